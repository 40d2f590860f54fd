package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoaders struct {
	f        *fakeFactory
	shaders  map[string]int
	textures map[string]int
}

func newCountingCache(f *fakeFactory) (*ResourceCache, *countingLoaders) {
	counts := &countingLoaders{f: f, shaders: map[string]int{}, textures: map[string]int{}}

	cache := NewResourceCache(f)
	cache.loadShader = func(path string) (ShaderModule, error) {
		counts.shaders[path]++
		if path == "broken.spv" {
			return ShaderModule{}, errors.Newf("read shader %q", path)
		}
		return f.CreateShaderModule(make([]byte, 4))
	}
	cache.loadTexture = func(path string) (*Texture2D, error) {
		counts.textures[path]++
		return NewTexture2DFromImage(f, SolidImage(1, 1, whitePixel))
	}
	return cache, counts
}

func TestResourceCacheTextureLoadsOnce(t *testing.T) {
	f := newFakeFactory()
	cache, counts := newCountingCache(f)

	first, err := cache.GetTexture2D("hamster.jpg")
	require.NoError(t, err)
	second, err := cache.GetTexture2D("hamster.jpg")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, counts.textures["hamster.jpg"])

	other, err := cache.GetTexture2D("other.png")
	require.NoError(t, err)
	assert.NotSame(t, first, other)

	_, textures := cache.Len()
	assert.Equal(t, 2, textures)
}

func TestResourceCacheShaderCrossPairing(t *testing.T) {
	f := newFakeFactory()
	cache, counts := newCountingCache(f)

	a, err := cache.GetShader("default.vert.spv", "default.frag.spv")
	require.NoError(t, err)
	again, err := cache.GetShader("default.vert.spv", "default.frag.spv")
	require.NoError(t, err)
	assert.Same(t, a, again)

	b, err := cache.GetShader("default.vert.spv", "unlit.frag.spv")
	require.NoError(t, err)

	assert.Equal(t, a.Vertex, b.Vertex)
	assert.NotEqual(t, a.Fragment, b.Fragment)
	assert.Equal(t, 1, counts.shaders["default.vert.spv"])
	assert.Equal(t, 1, counts.shaders["default.frag.spv"])
	assert.Equal(t, 1, counts.shaders["unlit.frag.spv"])

	modules, _ := cache.Len()
	assert.Equal(t, 3, modules)
	assert.Equal(t, 3, f.modules.Len())
}

func TestResourceCacheSamePathInBothStages(t *testing.T) {
	f := newFakeFactory()
	cache, counts := newCountingCache(f)

	shader, err := cache.GetShader("uber.spv", "uber.spv")
	require.NoError(t, err)

	// stages are keyed separately
	assert.NotEqual(t, shader.Vertex, shader.Fragment)
	assert.Equal(t, 2, counts.shaders["uber.spv"])
}

func TestResourceCacheLoadFailureIsNotCached(t *testing.T) {
	f := newFakeFactory()
	cache, counts := newCountingCache(f)

	_, err := cache.GetShader("default.vert.spv", "broken.spv")
	require.Error(t, err)
	_, err = cache.GetShader("default.vert.spv", "broken.spv")
	require.Error(t, err)

	assert.Equal(t, 2, counts.shaders["broken.spv"])
	assert.Equal(t, 1, counts.shaders["default.vert.spv"])
}

func TestResourceCacheDestroy(t *testing.T) {
	f := newFakeFactory()
	cache, counts := newCountingCache(f)

	_, err := cache.GetShader("default.vert.spv", "default.frag.spv")
	require.NoError(t, err)
	texture, err := cache.GetTexture2D("hamster.jpg")
	require.NoError(t, err)

	require.NoError(t, cache.Destroy())
	assert.Zero(t, f.modules.Len())
	assert.Zero(t, f.images.Len())
	assert.False(t, texture.IsUsable())

	modules, textures := cache.Len()
	assert.Zero(t, modules)
	assert.Zero(t, textures)
	require.NoError(t, cache.Destroy())

	// a destroyed cache loads afresh
	_, err = cache.GetTexture2D("hamster.jpg")
	require.NoError(t, err)
	assert.Equal(t, 2, counts.textures["hamster.jpg"])
}
