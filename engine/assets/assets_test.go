package assets

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/vkbase/engine/assets/loaders"
	"github.com/spaghettifunk/vkbase/engine/core"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func spirv() []byte {
	buf := new(bytes.Buffer)
	for _, w := range []uint32{loaders.SPIRVMagic, 0x00010000, 0, 8, 0} {
		_ = binary.Write(buf, binary.LittleEndian, w)
	}
	return buf.Bytes()
}

func newManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "shaders", "mesh.vert.spv"), spirv())
	writeFile(t, filepath.Join(root, "models", "quad.obj"), []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	writeFile(t, filepath.Join(root, "README.txt"), []byte("ignored"))

	am, err := NewAssetManager(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Close() })
	return am, root
}

func TestAssetManagerIndex(t *testing.T) {
	am, root := newManager(t)

	assert.Equal(t, 2, am.Count())
	info, err := am.Lookup("shaders/mesh.vert.spv")
	require.NoError(t, err)
	assert.Equal(t, AssetTypeShader, info.Type)
	assert.Equal(t, filepath.Join(root, "shaders", "mesh.vert.spv"), info.Path)

	_, err = am.Lookup("README.txt")
	assert.ErrorIs(t, err, core.ErrAssetNotFound)

	models := am.List(AssetTypeModel)
	require.Len(t, models, 1)
	assert.Equal(t, "models/quad.obj", models[0].Name)
}

func TestAssetManagerLoad(t *testing.T) {
	am, _ := newManager(t)

	code, err := am.LoadShader("shaders/mesh.vert.spv")
	require.NoError(t, err)
	assert.Equal(t, loaders.SPIRVMagic, code[0])

	mesh, err := am.LoadOBJ("models/quad.obj")
	require.NoError(t, err)
	assert.Len(t, mesh.Indices, 3)

	_, err = am.LoadShader("models/quad.obj")
	assert.ErrorIs(t, err, core.ErrInvalidAsset)
	_, err = am.LoadImage("textures/missing.png", false)
	assert.ErrorIs(t, err, core.ErrAssetNotFound)
}

func TestAssetManagerWatches(t *testing.T) {
	am, root := newManager(t)

	writeFile(t, filepath.Join(root, "textures", "albedo.ktx"), []byte("placeholder"))
	assert.Eventually(t, func() bool {
		_, err := am.Lookup("textures/albedo.ktx")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "shaders", "mesh.vert.spv")))
	assert.Eventually(t, func() bool {
		_, err := am.Lookup("shaders/mesh.vert.spv")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAssetManagerRejectsMissingRoot(t *testing.T) {
	_, err := NewAssetManager(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, AssetTypeShader, determineAssetType("a/b.frag.spv"))
	assert.Equal(t, AssetTypeImage, determineAssetType("x.JPG"))
	assert.Equal(t, AssetTypeTexture, determineAssetType("x.ktx"))
	assert.Equal(t, AssetTypeScene, determineAssetType("x.glb"))
	assert.Equal(t, AssetTypeFont, determineAssetType("x.fnt"))
	assert.Equal(t, AssetTypeNone, determineAssetType("x.mtl"))
	assert.Equal(t, "scene", AssetTypeScene.String())
}
