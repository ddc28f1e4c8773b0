package sources

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBuiltin(t *testing.T) {
	data, err := NewReader(nil).Read(DefaultConfig)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[image]")
	assert.Contains(t, string(data), "[bootstrap]")

	for _, name := range []string{"data/init.sh.tmpl", "data/launcher.sh.tmpl"} {
		data, err := ReadBuiltin(name)
		require.NoError(t, err, name)
		assert.True(t, strings.HasPrefix(string(data), "#!"), name)
	}
}

func TestReadBuiltinMissing(t *testing.T) {
	_, err := NewReader(nil).Read("builtin:data/does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Contains(t, err.Error(), "builtin:data/does-not-exist")
}

func TestReadStdin(t *testing.T) {
	r := NewReader(strings.NewReader("[image]\nsize = 2M\n"))
	data, err := r.Read(Stdin)
	require.NoError(t, err)
	assert.Equal(t, "[image]\nsize = 2M\n", string(data))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.ini")
	require.NoError(t, os.WriteFile(path, []byte("[image]\nfs_type = ext2\n"), 0644))

	data, err := NewReader(nil).Read(path)
	require.NoError(t, err)
	assert.Equal(t, "[image]\nfs_type = ext2\n", string(data))

	_, err = NewReader(nil).Read(filepath.Join(t.TempDir(), "missing.ini"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestIsBuiltin(t *testing.T) {
	assert.True(t, IsBuiltin(DefaultConfig))
	assert.False(t, IsBuiltin("-"))
	assert.False(t, IsBuiltin("/etc/builtin:x"))
}
