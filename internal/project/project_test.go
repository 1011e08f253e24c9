package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagePaths(t *testing.T) {
	dir := t.TempDir()
	projPath := filepath.Join(dir, "s"+Extension)

	p := New("s")
	p.AddImage(projPath, Image{Path: filepath.Join(dir, "plots", "a.jpg")})
	require.Len(t, p.Images, 1)
	assert.Equal(t, filepath.Join("plots", "a.jpg"), p.Images[0].Path)
	assert.Equal(t, filepath.Join(dir, "plots", "a.jpg"), p.ImagePath(projPath, p.Images[0]))

	abs := Image{Path: filepath.Join(dir, "x.jpg")}
	assert.Equal(t, abs.Path, p.ImagePath(projPath, abs))

	require.NoError(t, p.Save(projPath))
	loaded, err := Load(projPath)
	require.NoError(t, err)
	assert.Equal(t, FileVersion, loaded.Version)
	assert.Equal(t, "s", loaded.Name)

	_, err = Load(filepath.Join(dir, "missing"+Extension))
	assert.Error(t, err)
}
