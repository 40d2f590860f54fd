package engine

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "texture.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, png.Encode(file, img))
	return path
}

func checkerboard() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, A: 255})
	img.Set(0, 1, color.RGBA{B: 255, A: 255})
	img.Set(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

func TestDecodeImageFile(t *testing.T) {
	path := writePNG(t, checkerboard())

	decoded, err := DecodeImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Width)
	assert.Equal(t, 2, decoded.Height)
	assert.Equal(t, []byte{
		255, 0, 0, 255, 0, 255, 0, 255,
		0, 0, 255, 255, 255, 255, 255, 255,
	}, decoded.Pixels)
}

func TestDecodeImageFileGrayscale(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.SetGray(1, 0, color.Gray{Y: 128})
	path := writePNG(t, gray)

	decoded, err := DecodeImageFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.Channels)
	assert.Len(t, decoded.Pixels, 3*4)
	assert.Equal(t, []byte{128, 128, 128, 255}, decoded.Pixels[4:8])
}

func TestDecodeImageFileKeepsStraightAlpha(t *testing.T) {
	translucent := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	translucent.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 128})
	translucent.SetNRGBA(1, 0, color.NRGBA{R: 10, G: 200, B: 30, A: 255})

	decoded, err := DecodeImageFile(writePNG(t, translucent))
	require.NoError(t, err)
	assert.Equal(t, 4, decoded.Channels)
	assert.Equal(t, []byte{255, 0, 0, 128, 10, 200, 30, 255}, decoded.Pixels)
}

func TestDecodeImageFileTranslucentPalette(t *testing.T) {
	palette := color.Palette{
		color.NRGBA{R: 255, A: 128},
		color.NRGBA{B: 255, A: 255},
	}
	paletted := image.NewPaletted(image.Rect(0, 0, 2, 1), palette)
	paletted.SetColorIndex(1, 0, 1)

	decoded, err := DecodeImageFile(writePNG(t, paletted))
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 0, 0, 128, 0, 0, 255, 255}, decoded.Pixels)
}

func TestStraightPixelsUnpremultipliesRGBA(t *testing.T) {
	premultiplied := image.NewRGBA(image.Rect(0, 0, 1, 1))
	premultiplied.SetRGBA(0, 0, color.RGBA{R: 128, A: 128})

	assert.Equal(t, []byte{255, 0, 0, 128}, straightPixels(premultiplied))
}

func TestStraightPixelsSubImage(t *testing.T) {
	img := checkerboard()
	sub := img.SubImage(image.Rect(1, 1, 2, 2))

	assert.Equal(t, []byte{255, 255, 255, 255}, straightPixels(sub))
}

func TestDecodeImageFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := DecodeImageFile(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.png")

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = DecodeImageFile(garbage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "garbage.png")
}

func TestNewTexture2DUploadsAndTransitions(t *testing.T) {
	f := newFakeFactory()
	path := writePNG(t, checkerboard())

	tex, err := NewTexture2D(f, path)
	require.NoError(t, err)
	assert.True(t, tex.IsUsable())
	assert.Equal(t, path, tex.Path())
	assert.Equal(t, 2, tex.Width())

	assert.Equal(t, []layoutPair{
		{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal},
		{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal},
	}, f.transitions)

	img, ok := f.images.Get(tex.Image().handle)
	require.True(t, ok)
	assert.Equal(t, core1_0.ImageLayoutShaderReadOnlyOptimal, img.layout)
	assert.Equal(t, TextureFormat, img.format)
	assert.Equal(t, checkerboard().Pix, img.pixels)

	// the staging buffer is gone
	assert.Zero(t, f.buffers.Len())
}

func TestTexture2DDestroyIsIdempotent(t *testing.T) {
	f := newFakeFactory()

	tex, err := NewTexture2DFromImage(f, SolidImage(4, 4, color.RGBA{R: 10, G: 20, B: 30, A: 255}))
	require.NoError(t, err)
	require.Equal(t, 1, f.images.Len())
	require.Equal(t, 1, f.viewers.Len())

	require.NoError(t, tex.Destroy())
	assert.False(t, tex.IsUsable())
	assert.Zero(t, f.images.Len())
	assert.Zero(t, f.viewers.Len())

	require.NoError(t, tex.Destroy())
}

func TestNewTexture2DFromImageRejectsShortPixels(t *testing.T) {
	f := newFakeFactory()

	_, err := NewTexture2DFromImage(f, DecodedImage{Width: 2, Height: 2, Pixels: make([]byte, 3)})
	require.Error(t, err)
	assert.True(t, errors.HasAssertionFailure(err))
	assert.Zero(t, f.buffers.Len())
}

func TestSolidImage(t *testing.T) {
	img := SolidImage(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 4})
	assert.Equal(t, []byte{1, 2, 3, 4, 1, 2, 3, 4}, img.Pixels)
}
