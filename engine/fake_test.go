package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/malicengine/malic/internal/arena"
	"github.com/vkngwrapper/core/core1_0"
)

type fakeBuffer struct {
	data       []byte
	usage      core1_0.BufferUsageFlags
	properties core1_0.MemoryPropertyFlags
}

type fakeImage struct {
	width, height int
	format        core1_0.Format
	layout        core1_0.ImageLayout
	pixels        []byte
}

type fakeViewer struct {
	image Image
}

// fakeFactory is an in-memory Factory: host-visible and device-local
// memory are both plain byte slices, copies complete immediately.
type fakeFactory struct {
	buffers arena.Arena[*fakeBuffer]
	images  arena.Arena[*fakeImage]
	viewers arena.Arena[fakeViewer]
	modules arena.Arena[[]byte]

	frame int

	boundUniforms map[int][MaxFramesInFlight]Buffer
	boundImages   map[int]Image2DViewer

	copies      int
	transitions []layoutPair
	failAlloc   bool
}

var _ Factory = (*fakeFactory)(nil)

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		boundUniforms: map[int][MaxFramesInFlight]Buffer{},
		boundImages:   map[int]Image2DViewer{},
	}
}

func (f *fakeFactory) AllocateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (Buffer, error) {
	if f.failAlloc {
		return Buffer{}, errors.New("out of device memory")
	}
	if size <= 0 {
		return Buffer{}, errors.AssertionFailedf("buffer size %d", size)
	}
	h := f.buffers.Insert(&fakeBuffer{data: make([]byte, size), usage: usage, properties: properties})
	return Buffer{handle: h}, nil
}

func (f *fakeFactory) buffer(op string, b Buffer) (*fakeBuffer, error) {
	fb, ok := f.buffers.Get(b.handle)
	if !ok {
		return nil, invalidHandle(op, "buffer")
	}
	return fb, nil
}

func (f *fakeFactory) DeallocateBuffer(b Buffer) error {
	if _, err := f.buffers.Remove(b.handle); err != nil {
		return invalidHandle("DeallocateBuffer", "buffer")
	}
	return nil
}

func (f *fakeFactory) UploadBuffer(b Buffer, data []byte) error {
	fb, err := f.buffer("UploadBuffer", b)
	if err != nil {
		return err
	}
	if !isHostMemory(fb.properties) {
		return errors.AssertionFailedf("UploadBuffer: buffer is not host visible")
	}
	if len(data) > len(fb.data) {
		return errors.AssertionFailedf("UploadBuffer: %d bytes into %d byte buffer", len(data), len(fb.data))
	}
	copy(fb.data, data)
	return nil
}

func (f *fakeFactory) CopyBuffer(src, dst Buffer, size int) error {
	s, err := f.buffer("CopyBuffer", src)
	if err != nil {
		return err
	}
	d, err := f.buffer("CopyBuffer", dst)
	if err != nil {
		return err
	}
	if size > len(s.data) || size > len(d.data) {
		return errors.AssertionFailedf("CopyBuffer: size %d out of range", size)
	}
	copy(d.data[:size], s.data[:size])
	f.copies++
	return nil
}

func (f *fakeFactory) MapBuffer(b Buffer) ([]byte, error) {
	fb, err := f.buffer("MapBuffer", b)
	if err != nil {
		return nil, err
	}
	if !isHostMemory(fb.properties) {
		return nil, errors.AssertionFailedf("MapBuffer: buffer is not host visible")
	}
	return fb.data, nil
}

func (f *fakeFactory) AllocateImage2D(width, height int, format core1_0.Format, usage core1_0.ImageUsageFlags, properties core1_0.MemoryPropertyFlags) (Image, error) {
	if f.failAlloc {
		return Image{}, errors.New("out of device memory")
	}
	h := f.images.Insert(&fakeImage{
		width:  width,
		height: height,
		format: format,
		layout: core1_0.ImageLayoutUndefined,
		pixels: make([]byte, width*height*4),
	})
	return Image{handle: h}, nil
}

func (f *fakeFactory) DeallocateImage2D(i Image) error {
	if _, err := f.images.Remove(i.handle); err != nil {
		return invalidHandle("DeallocateImage2D", "image")
	}
	return nil
}

func (f *fakeFactory) CopyBufferToImage(src Buffer, dst Image, width, height int) error {
	s, err := f.buffer("CopyBufferToImage", src)
	if err != nil {
		return err
	}
	img, ok := f.images.Get(dst.handle)
	if !ok {
		return invalidHandle("CopyBufferToImage", "image")
	}
	if img.layout != core1_0.ImageLayoutTransferDstOptimal {
		return errors.AssertionFailedf("CopyBufferToImage: image in layout %s", img.layout)
	}
	copy(img.pixels, s.data[:width*height*4])
	f.copies++
	return nil
}

func (f *fakeFactory) TransitionImageLayout(i Image, format core1_0.Format, from, to core1_0.ImageLayout) error {
	img, ok := f.images.Get(i.handle)
	if !ok {
		return invalidHandle("TransitionImageLayout", "image")
	}
	if _, err := barrierFor(format, from, to); err != nil {
		return err
	}
	if from != core1_0.ImageLayoutUndefined && img.layout != from {
		return errors.AssertionFailedf("TransitionImageLayout: image in %s, not %s", img.layout, from)
	}
	img.layout = to
	f.transitions = append(f.transitions, layoutPair{from, to})
	return nil
}

func (f *fakeFactory) CreateImage2DViewer(i Image, format core1_0.Format) (Image2DViewer, error) {
	if _, ok := f.images.Get(i.handle); !ok {
		return Image2DViewer{}, invalidHandle("CreateImage2DViewer", "image")
	}
	return Image2DViewer{handle: f.viewers.Insert(fakeViewer{image: i})}, nil
}

func (f *fakeFactory) DestroyImage2DViewer(v Image2DViewer) error {
	if _, err := f.viewers.Remove(v.handle); err != nil {
		return invalidHandle("DestroyImage2DViewer", "image viewer")
	}
	return nil
}

func (f *fakeFactory) CreateShaderModule(code []byte) (ShaderModule, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return ShaderModule{}, errors.AssertionFailedf("shader bytecode length %d", len(code))
	}
	return ShaderModule{handle: f.modules.Insert(code)}, nil
}

func (f *fakeFactory) DestroyShaderModule(m ShaderModule) error {
	if _, err := f.modules.Remove(m.handle); err != nil {
		return invalidHandle("DestroyShaderModule", "shader module")
	}
	return nil
}

func (f *fakeFactory) BindUniformBuffer(binding int, buffers [MaxFramesInFlight]Buffer, size int) error {
	for _, b := range buffers {
		if _, err := f.buffer("BindUniformBuffer", b); err != nil {
			return err
		}
	}
	f.boundUniforms[binding] = buffers
	return nil
}

func (f *fakeFactory) BindImage2D(binding int, viewer Image2DViewer) error {
	if _, ok := f.viewers.Get(viewer.handle); !ok {
		return invalidHandle("BindImage2D", "image viewer")
	}
	f.boundImages[binding] = viewer
	return nil
}

func (f *fakeFactory) CurrentFrame() int {
	return f.frame
}

func (f *fakeFactory) bufferBytes(b Buffer) []byte {
	fb, ok := f.buffers.Get(b.handle)
	if !ok {
		return nil
	}
	return fb.data
}
