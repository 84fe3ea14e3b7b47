package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirs(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "a", "b", "store.db")

	abs, err := EnsureParentDir(target)
	require.NoError(t, err)
	assert.Equal(t, target, abs)

	info, err := os.Stat(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err), "file itself must not be created")
}

func TestEnsureParentDir_ExistingDir(t *testing.T) {
	root := t.TempDir()

	_, err := EnsureParentDir(filepath.Join(root, "store.db"))
	require.NoError(t, err)
	_, err = EnsureParentDir(filepath.Join(root, "store.db"))
	require.NoError(t, err)
}

func TestEnsureParentDir_ParentIsFile(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := EnsureParentDir(filepath.Join(blocker, "store.db"))
	require.Error(t, err)
}
