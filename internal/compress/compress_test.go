package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		path      string
		wantCodec Codec
		wantPath  string
	}{
		{"config.yaml.gz", Gzip, "config.yaml"},
		{"data.json.ZST", Zstd, "data.json"},
		{"dir/out.cbor.lz4", LZ4, "dir/out.cbor"},
		{"plain.toml", None, "plain.toml"},
		{"noext", None, "noext"},
		{"-", None, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			codec, path := Detect(tt.path)
			assert.Equal(t, tt.wantCodec, codec)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("name: slate\nformats: [json, yaml, toml]\n"), 50)

	for _, codec := range []Codec{None, Gzip, Zstd, LZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			compressed, err := codec.Compress(data)
			require.NoError(t, err)
			if codec != None {
				assert.Less(t, len(compressed), len(data))
			}

			got, err := codec.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestRoundTrip_Empty(t *testing.T) {
	for _, codec := range []Codec{Gzip, Zstd, LZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			compressed, err := codec.Compress(nil)
			require.NoError(t, err)
			got, err := codec.Decompress(compressed)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	for _, codec := range []Codec{Gzip, Zstd, LZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			_, err := codec.Decompress([]byte("definitely not compressed"))
			assert.Error(t, err)
		})
	}
}

func TestUnknownCodec(t *testing.T) {
	_, err := Codec(42).Compress([]byte("x"))
	assert.Error(t, err)
	assert.Equal(t, "unknown(42)", Codec(42).String())
}
