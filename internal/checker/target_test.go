package checker

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestCollectTargetsDiscovery(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "mods", "a", MetadataFile))
	touch(t, filepath.Join(root, "mods", "a", "part.STL"))
	touch(t, filepath.Join(root, "mods", "a", "sub", "x.stl"))
	touch(t, filepath.Join(root, "mods", "b", "y.stl"))
	touch(t, filepath.Join(root, "mods", "b", "readme.txt"))
	touch(t, filepath.Join(root, ".git", "z.stl"))

	targets, dropped, err := CollectTargets(root, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, dropped)

	require.Len(t, targets, 3)
	assert.Equal(t, "mods/a/part.STL", targets[0].Name)
	assert.Equal(t, "mods/a/sub/x.stl", targets[1].Name)
	assert.Equal(t, "mods/b/y.stl", targets[2].Name)

	modA := filepath.Join(root, "mods", "a")
	assert.Equal(t, modA, targets[0].ModDir)
	assert.Equal(t, modA, targets[1].ModDir)
	assert.Equal(t, "", targets[2].ModDir)
}

func TestCollectTargetsMaxFiles(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		touch(t, filepath.Join(root, fmt.Sprintf("p%d.stl", i)))
	}

	targets, dropped, err := CollectTargets(root, nil, 2)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, 3, dropped)
	assert.Equal(t, "p0.stl", targets[0].Name)
}

func TestCollectTargetsExplicitPaths(t *testing.T) {
	root := t.TempDir()
	second := filepath.Join(root, "b.stl")
	first := filepath.Join(root, "a.stl")
	notes := filepath.Join(root, "notes.md")
	touch(t, first)
	touch(t, second)
	touch(t, notes)

	targets, _, err := CollectTargets("", []string{second, notes, first, second}, 0)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, second, targets[0].Path)
	assert.Equal(t, first, targets[1].Path)

	_, _, err = CollectTargets("", []string{filepath.Join(root, "missing.stl")}, 0)
	assert.Error(t, err)

	_, _, err = CollectTargets("", nil, 0)
	assert.Error(t, err)
}

func TestIsMeshFile(t *testing.T) {
	assert.True(t, IsMeshFile("a.stl"))
	assert.True(t, IsMeshFile("dir/B.STL"))
	assert.False(t, IsMeshFile("a.step"))
	assert.False(t, IsMeshFile("stl"))
}
