package fsio

import (
	"errors"
	"os"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile_New(t *testing.T) {
	mem := afero.NewMemMapFs()
	f := New(mem)
	require.NoError(t, f.MkdirAll("/out"))

	require.NoError(t, f.WriteFile("/out/config.toml", []byte("a = 1\n")))

	got, err := f.ReadFile("/out/config.toml")
	require.NoError(t, err)
	assert.Equal(t, "a = 1\n", string(got))

	info, err := mem.Stat("/out/config.toml")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := afero.ReadDir(mem, "/out")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestWriteFile_ReplacesAndKeepsMode(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/secret.ini", []byte("old"), 0o600))

	f := New(mem)
	require.NoError(t, f.WriteFile("/secret.ini", []byte("new")))

	got, err := afero.ReadFile(mem, "/secret.ini")
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	info, err := mem.Stat("/secret.ini")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteFile_Directory(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/out", 0o755))

	err := New(mem).WriteFile("/out", []byte("x"))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "error = %v", err)
	assert.Equal(t, "/out", ioErr.Path)
}

func TestWriteFile_ReadOnly(t *testing.T) {
	ro := afero.NewReadOnlyFs(afero.NewMemMapFs())

	err := New(ro).WriteFile("/x.json", []byte("{}"))
	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr), "error = %v", err)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := New(afero.NewMemMapFs()).ReadFile("/missing.yaml")
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "read", ioErr.Op)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIsDir(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/a", []byte("x"), 0o644))
	require.NoError(t, mem.MkdirAll("/d", 0o755))
	f := New(mem)

	for path, want := range map[string]bool{"/a": false, "/d": true, "/missing": false} {
		ok, err := f.IsDir(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, ok, path)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		want   string
	}{
		{
			name:   "equal",
			before: "a\n",
			after:  "a\n",
			want:   "",
		},
		{
			name:   "changed line",
			before: "a = 1\nb = 2\n",
			after:  "a = 1\nb = 3\n",
			want:   "--- f\n+++ f\n a = 1\n-b = 2\n+b = 3\n",
		},
		{
			name:   "from empty",
			before: "",
			after:  "x\n",
			want:   "--- f\n+++ f\n+x\n",
		},
		{
			name:   "missing final newline",
			before: "x\n",
			after:  "x\ny",
			want:   "--- f\n+++ f\n x\n+y\n\\ No newline at end of file\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Diff("f", tt.before, tt.after))
		})
	}
}

func TestDiffFile(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/c.yaml", []byte("a: 1\n"), 0o644))
	f := New(mem)

	got, err := f.DiffFile("/c.yaml", []byte("a: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, "--- /c.yaml\n+++ /c.yaml\n-a: 1\n+a: 2\n", got)

	got, err = f.DiffFile("/new.yaml", []byte("a: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, "--- /new.yaml\n+++ /new.yaml\n+a: 2\n", got)
}
