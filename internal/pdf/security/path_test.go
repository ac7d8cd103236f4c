package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathValidator(t *testing.T) {
	_, err := NewPathValidator("")
	require.Error(t, err)

	dir := t.TempDir()
	v, err := NewPathValidator(dir)
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, v.Directory())
}

func TestPathValidator_Resolve(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "advices"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "advices", "a.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "b.pdf"), []byte("%PDF-1.4"), 0o644))
	require.NoError(t, os.Symlink(filepath.Join(outside, "b.pdf"), filepath.Join(dir, "link.pdf")))

	v, err := NewPathValidator(dir)
	require.NoError(t, err)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "relative file", path: "advices/a.pdf"},
		{name: "absolute file", path: filepath.Join(dir, "advices", "a.pdf")},
		{name: "file to be created", path: filepath.Join(dir, "out", "a.xlsx")},
		{name: "directory itself", path: dir},
		{name: "empty", path: "  ", wantErr: true},
		{name: "traversal", path: "../" + filepath.Base(outside) + "/b.pdf", wantErr: true},
		{name: "absolute outside", path: filepath.Join(outside, "b.pdf"), wantErr: true},
		{name: "symlink escaping", path: "link.pdf", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Resolve(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, v.IsWithin(tt.path))
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))
			assert.True(t, v.IsWithin(tt.path))
		})
	}
}

func TestPathValidator_OutsideSentinel(t *testing.T) {
	v, err := NewPathValidator(t.TempDir())
	require.NoError(t, err)

	_, err = v.Resolve("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideDirectory)
}
