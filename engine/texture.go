package engine

import (
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureFormat is the device format of every Texture2D.
const TextureFormat = core1_0.FormatR8G8B8A8SRGB

// DecodedImage is tightly packed, straight-alpha RGBA8 pixel data. Channels is the channel
// count of the source file; Pixels always holds four per texel.
type DecodedImage struct {
	Width    int
	Height   int
	Channels int
	Pixels   []byte
}

// DecodeImageFile reads and decodes a PNG, JPEG, BMP, TIFF or WebP file.
func DecodeImageFile(path string) (DecodedImage, error) {
	file, err := os.Open(path)
	if err != nil {
		return DecodedImage{}, errors.Wrapf(err, "open image %q", path)
	}
	defer file.Close()

	decoded, format, err := image.Decode(file)
	if err != nil {
		return DecodedImage{}, errors.Wrapf(err, "decode image %q", path)
	}

	bounds := decoded.Bounds()
	if bounds.Empty() {
		return DecodedImage{}, errors.Newf("decode image %q: %s image has no pixels", path, format)
	}

	return DecodedImage{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: sourceChannels(decoded.ColorModel()),
		Pixels:   straightPixels(decoded),
	}, nil
}

// straightPixels returns the image as tightly packed, non-premultiplied
// RGBA8. image.RGBA is premultiplied, so it is only used as is when opaque.
func straightPixels(img image.Image) []byte {
	bounds := img.Bounds()
	tight := func(stride int) bool {
		return stride == 4*bounds.Dx() && bounds.Min == (image.Point{})
	}

	switch src := img.(type) {
	case *image.NRGBA:
		if tight(src.Stride) {
			return src.Pix
		}
	case *image.RGBA:
		if tight(src.Stride) && src.Opaque() {
			return src.Pix
		}
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	return nrgba.Pix
}

func sourceChannels(model color.Model) int {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.YCbCrModel, color.CMYKModel:
		return 3
	default:
		return 4
	}
}

// SolidImage returns a width x height image filled with c.
func SolidImage(width, height int, c color.RGBA) DecodedImage {
	pixels := make([]byte, 0, width*height*4)
	for i := 0; i < width*height; i++ {
		pixels = append(pixels, c.R, c.G, c.B, c.A)
	}
	return DecodedImage{Width: width, Height: height, Channels: 4, Pixels: pixels}
}

// Texture2D is a sampled, device-local RGBA image.
type Texture2D struct {
	factory Factory
	path    string

	width, height int
	image         Image
	viewer        Image2DViewer
}

// NewTexture2D decodes the image at path and uploads it.
func NewTexture2D(f Factory, path string) (*Texture2D, error) {
	decoded, err := DecodeImageFile(path)
	if err != nil {
		return nil, err
	}

	t, err := NewTexture2DFromImage(f, decoded)
	if err != nil {
		return nil, errors.Wrapf(err, "texture %q", path)
	}
	t.path = path
	return t, nil
}

// NewTexture2DFromImage uploads already decoded pixels through a staging
// buffer and leaves the image ready for sampling.
func NewTexture2DFromImage(f Factory, img DecodedImage) (*Texture2D, error) {
	size := img.Width * img.Height * 4
	if img.Width <= 0 || img.Height <= 0 || len(img.Pixels) != size {
		return nil, errors.AssertionFailedf("texture of %dx%d needs %d bytes, got %d", img.Width, img.Height, size, len(img.Pixels))
	}

	staging, err := f.AllocateBuffer(size, core1_0.BufferUsageTransferSrc, HostMemory)
	if err != nil {
		return nil, errors.Wrap(err, "allocate staging buffer")
	}
	defer f.DeallocateBuffer(staging)

	if err := f.UploadBuffer(staging, img.Pixels); err != nil {
		return nil, err
	}

	t := &Texture2D{factory: f, width: img.Width, height: img.Height}
	t.image, err = f.AllocateImage2D(img.Width, img.Height, TextureFormat,
		core1_0.ImageUsageTransferDst|core1_0.ImageUsageSampled, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	err = t.upload(staging)
	if err == nil {
		t.viewer, err = f.CreateImage2DViewer(t.image, TextureFormat)
	}
	if err != nil {
		return nil, errors.CombineErrors(err, f.DeallocateImage2D(t.image.Take()))
	}

	return t, nil
}

func (t *Texture2D) upload(staging Buffer) error {
	f := t.factory
	if err := f.TransitionImageLayout(t.image, TextureFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal); err != nil {
		return err
	}
	if err := f.CopyBufferToImage(staging, t.image, t.width, t.height); err != nil {
		return err
	}
	return f.TransitionImageLayout(t.image, TextureFormat, core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal)
}

func (t *Texture2D) Path() string          { return t.path }
func (t *Texture2D) Width() int            { return t.width }
func (t *Texture2D) Height() int           { return t.height }
func (t *Texture2D) Image() Image          { return t.image }
func (t *Texture2D) Viewer() Image2DViewer { return t.viewer }

// IsUsable reports whether the image and its viewer are both alive.
func (t *Texture2D) IsUsable() bool {
	return t != nil && t.factory != nil && !t.image.IsEmpty() && !t.viewer.IsEmpty()
}

// Destroy releases the viewer and then the image. Calling it again is a
// no-op.
func (t *Texture2D) Destroy() error {
	if t.factory == nil {
		return nil
	}
	f := t.factory
	t.factory = nil

	err := f.DestroyImage2DViewer(t.viewer.Take())
	return errors.CombineErrors(err, f.DeallocateImage2D(t.image.Take()))
}
