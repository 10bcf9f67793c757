package flexbuffers

// fbType is a FlexBuffers value type as stored in packed type bytes.
type fbType uint8

const (
	typeNull          fbType = 0
	typeInt           fbType = 1
	typeUint          fbType = 2
	typeFloat         fbType = 3
	typeKey           fbType = 4
	typeString        fbType = 5
	typeIndirectInt   fbType = 6
	typeIndirectUint  fbType = 7
	typeIndirectFloat fbType = 8
	typeMap           fbType = 9
	typeVector        fbType = 10
	typeVectorInt     fbType = 11
	typeVectorUint    fbType = 12
	typeVectorFloat   fbType = 13
	typeVectorKey     fbType = 14
	typeVectorString  fbType = 15 // deprecated, still readable
	typeVectorInt2    fbType = 16
	typeVectorFloat4  fbType = 24
	typeBlob          fbType = 25
	typeBool          fbType = 26
	typeVectorBool    fbType = 36
)

// inline types are stored in place; all others are offsets.
func (t fbType) inline() bool {
	return t <= typeFloat || t == typeBool
}

// bitWidth is log2 of a byte width: 0, 1, 2, 3 for 1, 2, 4, 8 bytes.
type bitWidth uint8

const (
	width8 bitWidth = iota
	width16
	width32
	width64
)

func (w bitWidth) bytes() int { return 1 << w }

func widthU(u uint64) bitWidth {
	switch {
	case u&^0xff == 0:
		return width8
	case u&^0xffff == 0:
		return width16
	case u&^0xffffffff == 0:
		return width32
	}
	return width64
}

func widthI(i int64) bitWidth {
	u := uint64(i) << 1
	if i < 0 {
		u = ^u
	}
	return widthU(u)
}

func widthF(f float64) bitWidth {
	if float64(float32(f)) == f {
		return width32
	}
	return width64
}

// padding returns the number of bytes needed to align size to n, a power of
// two.
func padding(size, n int) int {
	return -size & (n - 1)
}

func packType(t fbType, w bitWidth) byte {
	return byte(t)<<2 | byte(w)
}
