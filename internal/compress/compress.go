// Package compress handles the compression suffixes slate reads and writes
// transparently: .gz, .zst and .lz4.
package compress

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a compression algorithm by file suffix.
type Codec uint8

const (
	None Codec = iota
	Gzip
	Zstd
	LZ4
)

var suffixes = map[string]Codec{
	".gz":  Gzip,
	".zst": Zstd,
	".lz4": LZ4,
}

// String returns the human-readable name of a codec.
func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// Detect returns the codec named by the suffix of path (case-insensitive)
// and path without that suffix, so "config.yaml.gz" yields Gzip and
// "config.yaml".
func Detect(path string) (Codec, string) {
	ext := filepath.Ext(path)
	if c, ok := suffixes[strings.ToLower(ext)]; ok {
		return c, strings.TrimSuffix(path, ext)
	}
	return None, path
}

// zstdEncoder and zstdDecoder are reused across calls. Both are safe for
// concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compress returns data compressed as a complete stream for c. None returns
// data unchanged.
func (c Codec) Compress(data []byte) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	case Gzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		return finish(&buf, w, data, "gzip")
	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		return finish(&buf, w, data, "lz4")
	}
	return nil, fmt.Errorf("unsupported compression: %s", c)
}

func finish(buf *bytes.Buffer, w io.WriteCloser, data []byte, name string) ([]byte, error) {
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("%s compress: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s compress: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func (c Codec) Decompress(data []byte) ([]byte, error) {
	switch c {
	case None:
		return data, nil
	case Zstd:
		out, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip decompress: %w", err)
		}
		defer r.Close()
		return readAll(r, "gzip")
	case LZ4:
		return readAll(lz4.NewReader(bytes.NewReader(data)), "lz4")
	}
	return nil, fmt.Errorf("unsupported compression: %s", c)
}

func readAll(r io.Reader, name string) ([]byte, error) {
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s decompress: %w", name, err)
	}
	return out, nil
}
