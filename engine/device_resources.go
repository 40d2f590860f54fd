package engine

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
)

type bufferEntry struct {
	buffer     core1_0.Buffer
	memory     core1_0.DeviceMemory
	size       int
	properties core1_0.MemoryPropertyFlags
	mapped     []byte
}

func (e *bufferEntry) destroy() {
	if e.mapped != nil {
		e.memory.Unmap()
		e.mapped = nil
	}
	e.buffer.Destroy(nil)
	e.memory.Free(nil)
}

type imageEntry struct {
	image  core1_0.Image
	memory core1_0.DeviceMemory
}

func (e *imageEntry) destroy() {
	e.image.Destroy(nil)
	e.memory.Free(nil)
}

type viewerEntry struct {
	view    core1_0.ImageView
	sampler core1_0.Sampler
}

func (e viewerEntry) destroy() {
	e.sampler.Destroy(nil)
	e.view.Destroy(nil)
}

func (d *Device) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	return FindMemoryType(d.physicalDevice.MemoryProperties().MemoryTypes, typeFilter, properties)
}

func (d *Device) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	sharingMode, families := d.families.sharing()
	buffer, res, err := d.device.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:               size,
		Usage:              usage,
		SharingMode:        sharingMode,
		QueueFamilyIndices: families,
	})
	if err != nil {
		return nil, nil, vkCheck("create buffer", res, err)
	}

	memRequirements := buffer.MemoryRequirements()
	memoryTypeIndex, err := d.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		buffer.Destroy(nil)
		return nil, nil, err
	}

	memory, res, err := d.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		buffer.Destroy(nil)
		return nil, nil, vkCheck("allocate buffer memory", res, err)
	}

	res, err = buffer.BindBufferMemory(memory, 0)
	if err != nil {
		buffer.Destroy(nil)
		memory.Free(nil)
		return nil, nil, vkCheck("bind buffer memory", res, err)
	}
	return buffer, memory, nil
}

func (d *Device) createImage(width, height int, format core1_0.Format, usage core1_0.ImageUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Image, core1_0.DeviceMemory, error) {
	sharingMode, families := d.families.sharing()
	image, res, err := d.device.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:          1,
		ArrayLayers:        1,
		Format:             format,
		Tiling:             core1_0.ImageTilingOptimal,
		InitialLayout:      core1_0.ImageLayoutUndefined,
		Usage:              usage,
		SharingMode:        sharingMode,
		QueueFamilyIndices: families,
		Samples:            core1_0.Samples1,
	})
	if err != nil {
		return nil, nil, vkCheck("create image", res, err)
	}

	memReqs := image.MemoryRequirements()
	memoryIndex, err := d.findMemoryType(memReqs.MemoryTypeBits, properties)
	if err != nil {
		image.Destroy(nil)
		return nil, nil, err
	}

	imageMemory, res, err := d.device.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		image.Destroy(nil)
		return nil, nil, vkCheck("allocate image memory", res, err)
	}

	res, err = image.BindImageMemory(imageMemory, 0)
	if err != nil {
		image.Destroy(nil)
		imageMemory.Free(nil)
		return nil, nil, vkCheck("bind image memory", res, err)
	}

	return image, imageMemory, nil
}

func (d *Device) createImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (core1_0.ImageView, error) {
	imageView, res, err := d.device.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	return imageView, vkCheck("create image view", res, err)
}

func (d *Device) createSampler() (core1_0.Sampler, error) {
	sampler, res, err := d.device.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    core1_0.FilterLinear,
		MinFilter:    core1_0.FilterLinear,
		AddressModeU: core1_0.SamplerAddressModeRepeat,
		AddressModeV: core1_0.SamplerAddressModeRepeat,
		AddressModeW: core1_0.SamplerAddressModeRepeat,

		AnisotropyEnable: true,
		MaxAnisotropy:    d.maxAnisotropy,

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: core1_0.SamplerMipmapModeLinear,
	})
	return sampler, vkCheck("create sampler", res, err)
}

// runOnce records commands into a one-shot command buffer from pool,
// submits it to queue and blocks on a fence until it has executed.
func (d *Device) runOnce(pool core1_0.CommandPool, queue core1_0.Queue, record func(core1_0.CommandBuffer) error) error {
	buffers, res, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	})
	if err != nil {
		return vkCheck("allocate one-shot command buffer", res, err)
	}
	defer d.device.FreeCommandBuffers(buffers)

	buffer := buffers[0]
	res, err = buffer.Begin(core1_0.CommandBufferBeginInfo{
		Flags: core1_0.CommandBufferUsageOneTimeSubmit,
	})
	if err != nil {
		return vkCheck("begin one-shot command buffer", res, err)
	}

	if err := record(buffer); err != nil {
		return err
	}

	res, err = buffer.End()
	if err != nil {
		return vkCheck("end one-shot command buffer", res, err)
	}

	fences, err := d.CreateFences(1, false)
	if err != nil {
		return err
	}
	defer d.DestroyFences(fences)

	res, err = queue.Submit(fences[0], []core1_0.SubmitInfo{
		{
			CommandBuffers: []core1_0.CommandBuffer{buffer},
		},
	})
	if err != nil {
		return vkCheck("submit one-shot command buffer", res, err)
	}

	res, err = d.device.WaitForFences(true, common.NoTimeout, fences)
	return vkCheck("wait for one-shot command buffer", res, err)
}

func (d *Device) lookupBuffer(op string, buffer Buffer) (*bufferEntry, error) {
	entry, ok := d.buffers.Get(buffer.handle)
	if !ok {
		return nil, invalidHandle(op, "buffer")
	}
	return entry, nil
}

func (d *Device) lookupImage(op string, image Image) (*imageEntry, error) {
	entry, ok := d.images.Get(image.handle)
	if !ok {
		return nil, invalidHandle(op, "image")
	}
	return entry, nil
}

func (d *Device) AllocateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (Buffer, error) {
	if size <= 0 {
		return Buffer{}, errors.AssertionFailedf("buffer size must be positive, got %d", size)
	}

	buffer, memory, err := d.createBuffer(size, usage, properties)
	if err != nil {
		return Buffer{}, err
	}

	handle := d.buffers.Insert(&bufferEntry{buffer: buffer, memory: memory, size: size, properties: properties})
	return Buffer{handle: handle}, nil
}

func (d *Device) DeallocateBuffer(buffer Buffer) error {
	entry, err := d.buffers.Remove(buffer.handle)
	if err != nil {
		return invalidHandle("DeallocateBuffer", "buffer")
	}
	entry.destroy()
	return nil
}

func (d *Device) UploadBuffer(buffer Buffer, data []byte) error {
	entry, err := d.lookupBuffer("UploadBuffer", buffer)
	if err != nil {
		return err
	}
	if !isHostMemory(entry.properties) {
		return errors.AssertionFailedf("UploadBuffer: buffer memory %s is not host visible and coherent", entry.properties)
	}
	if len(data) > entry.size {
		return errors.AssertionFailedf("UploadBuffer: %d bytes into a %d byte buffer", len(data), entry.size)
	}

	if entry.mapped != nil {
		copy(entry.mapped, data)
		return nil
	}

	memoryPtr, res, err := entry.memory.Map(0, len(data), 0)
	if err != nil {
		return vkCheck("map buffer memory", res, err)
	}
	defer entry.memory.Unmap()

	copy(unsafe.Slice((*byte)(memoryPtr), len(data)), data)
	return nil
}

func (d *Device) MapBuffer(buffer Buffer) ([]byte, error) {
	entry, err := d.lookupBuffer("MapBuffer", buffer)
	if err != nil {
		return nil, err
	}
	if !isHostMemory(entry.properties) {
		return nil, errors.AssertionFailedf("MapBuffer: buffer memory %s is not host visible and coherent", entry.properties)
	}
	if entry.mapped != nil {
		return entry.mapped, nil
	}

	memoryPtr, res, err := entry.memory.Map(0, entry.size, 0)
	if err != nil {
		return nil, vkCheck("map buffer memory", res, err)
	}
	entry.mapped = unsafe.Slice((*byte)(memoryPtr), entry.size)
	return entry.mapped, nil
}

func (d *Device) CopyBuffer(src, dst Buffer, size int) error {
	srcEntry, err := d.lookupBuffer("CopyBuffer", src)
	if err != nil {
		return err
	}
	dstEntry, err := d.lookupBuffer("CopyBuffer", dst)
	if err != nil {
		return err
	}
	if size > srcEntry.size || size > dstEntry.size {
		return errors.AssertionFailedf("CopyBuffer: %d bytes between buffers of %d and %d bytes", size, srcEntry.size, dstEntry.size)
	}

	return d.runOnce(d.transferPool, d.transferQueue, func(buffer core1_0.CommandBuffer) error {
		return buffer.CmdCopyBuffer(srcEntry.buffer, dstEntry.buffer, []core1_0.BufferCopy{
			{
				SrcOffset: 0,
				DstOffset: 0,
				Size:      size,
			},
		})
	})
}

func (d *Device) AllocateImage2D(width, height int, format core1_0.Format, usage core1_0.ImageUsageFlags, properties core1_0.MemoryPropertyFlags) (Image, error) {
	if width <= 0 || height <= 0 {
		return Image{}, errors.AssertionFailedf("image size must be positive, got %dx%d", width, height)
	}

	image, memory, err := d.createImage(width, height, format, usage, properties)
	if err != nil {
		return Image{}, err
	}

	return Image{handle: d.images.Insert(&imageEntry{image: image, memory: memory})}, nil
}

func (d *Device) DeallocateImage2D(image Image) error {
	entry, err := d.images.Remove(image.handle)
	if err != nil {
		return invalidHandle("DeallocateImage2D", "image")
	}
	entry.destroy()
	return nil
}

func (d *Device) CopyBufferToImage(src Buffer, dst Image, width, height int) error {
	srcEntry, err := d.lookupBuffer("CopyBufferToImage", src)
	if err != nil {
		return err
	}
	dstEntry, err := d.lookupImage("CopyBufferToImage", dst)
	if err != nil {
		return err
	}

	return d.runOnce(d.transferPool, d.transferQueue, func(cmdBuffer core1_0.CommandBuffer) error {
		return cmdBuffer.CmdCopyBufferToImage(srcEntry.buffer, dstEntry.image, core1_0.ImageLayoutTransferDstOptimal, []core1_0.BufferImageCopy{
			{
				BufferOffset:      0,
				BufferRowLength:   0,
				BufferImageHeight: 0,

				ImageSubresource: core1_0.ImageSubresourceLayers{
					AspectMask:     core1_0.ImageAspectColor,
					MipLevel:       0,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				ImageOffset: core1_0.Offset3D{X: 0, Y: 0, Z: 0},
				ImageExtent: core1_0.Extent3D{Width: width, Height: height, Depth: 1},
			},
		})
	})
}

func (d *Device) TransitionImageLayout(image Image, format core1_0.Format, from, to core1_0.ImageLayout) error {
	entry, err := d.lookupImage("TransitionImageLayout", image)
	if err != nil {
		return err
	}
	return d.transitionImage(entry.image, format, from, to)
}

// transitionImage runs on the graphics queue: the fragment shader stage a
// transition may wait on does not exist on transfer-only queues.
func (d *Device) transitionImage(image core1_0.Image, format core1_0.Format, from, to core1_0.ImageLayout) error {
	barrier, err := barrierFor(format, from, to)
	if err != nil {
		return err
	}

	return d.runOnce(d.graphicsPool, d.graphicsQueue, func(buffer core1_0.CommandBuffer) error {
		return buffer.CmdPipelineBarrier(barrier.SrcStage, barrier.DstStage, 0, nil, nil, []core1_0.ImageMemoryBarrier{
			{
				OldLayout:           from,
				NewLayout:           to,
				SrcQueueFamilyIndex: -1,
				DstQueueFamilyIndex: -1,
				Image:               image,
				SubresourceRange: core1_0.ImageSubresourceRange{
					AspectMask:     barrier.Aspect,
					BaseMipLevel:   0,
					LevelCount:     1,
					BaseArrayLayer: 0,
					LayerCount:     1,
				},
				SrcAccessMask: barrier.SrcAccess,
				DstAccessMask: barrier.DstAccess,
			},
		})
	})
}

// CreateImage2DViewer creates a color view of image and the sampler shaders
// read it through.
func (d *Device) CreateImage2DViewer(image Image, format core1_0.Format) (Image2DViewer, error) {
	entry, err := d.lookupImage("CreateImage2DViewer", image)
	if err != nil {
		return Image2DViewer{}, err
	}

	view, err := d.createImageView(entry.image, format, core1_0.ImageAspectColor)
	if err != nil {
		return Image2DViewer{}, err
	}
	sampler, err := d.createSampler()
	if err != nil {
		view.Destroy(nil)
		return Image2DViewer{}, err
	}

	return Image2DViewer{handle: d.viewers.Insert(viewerEntry{view: view, sampler: sampler})}, nil
}

func (d *Device) DestroyImage2DViewer(viewer Image2DViewer) error {
	entry, err := d.viewers.Remove(viewer.handle)
	if err != nil {
		return invalidHandle("DestroyImage2DViewer", "image viewer")
	}
	entry.destroy()
	return nil
}

func (d *Device) CreateShaderModule(code []byte) (ShaderModule, error) {
	words, err := spirvWords(code)
	if err != nil {
		return ShaderModule{}, errors.WithAssertionFailure(err)
	}

	module, res, err := d.device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: words,
	})
	if err != nil {
		return ShaderModule{}, vkCheck("create shader module", res, err)
	}
	return ShaderModule{handle: d.modules.Insert(module)}, nil
}

func (d *Device) DestroyShaderModule(module ShaderModule) error {
	m, err := d.modules.Remove(module.handle)
	if err != nil {
		return invalidHandle("DestroyShaderModule", "shader module")
	}
	m.Destroy(nil)
	return nil
}
