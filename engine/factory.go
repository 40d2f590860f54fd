package engine

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
)

// Factory is the set of GPU resource primitives the resource types are
// built on. *Device is the Vulkan implementation. Every resource must be
// released through the Factory that created it.
type Factory interface {
	AllocateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (Buffer, error)
	DeallocateBuffer(buffer Buffer) error
	// UploadBuffer copies data into a host-visible, host-coherent buffer.
	UploadBuffer(buffer Buffer, data []byte) error
	// CopyBuffer copies size bytes between device buffers and returns once
	// the copy has completed on the GPU.
	CopyBuffer(src, dst Buffer, size int) error
	// MapBuffer returns a persistent host mapping of a host-visible buffer.
	// The mapping stays valid until the buffer is deallocated.
	MapBuffer(buffer Buffer) ([]byte, error)

	AllocateImage2D(width, height int, format core1_0.Format, usage core1_0.ImageUsageFlags, properties core1_0.MemoryPropertyFlags) (Image, error)
	DeallocateImage2D(image Image) error
	CopyBufferToImage(src Buffer, dst Image, width, height int) error
	TransitionImageLayout(image Image, format core1_0.Format, from, to core1_0.ImageLayout) error
	CreateImage2DViewer(image Image, format core1_0.Format) (Image2DViewer, error)
	DestroyImage2DViewer(viewer Image2DViewer) error

	CreateShaderModule(code []byte) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule) error

	// BindUniformBuffer points binding of every per-frame descriptor set at
	// the buffer for that frame.
	BindUniformBuffer(binding int, buffers [MaxFramesInFlight]Buffer, size int) error
	// BindImage2D points binding of every per-frame descriptor set at viewer.
	BindImage2D(binding int, viewer Image2DViewer) error

	// CurrentFrame is the frame-in-flight index the next Present records.
	CurrentFrame() int
}

// uploadViaStaging copies data into a new device-local buffer through a
// transient host-visible staging buffer.
func uploadViaStaging(f Factory, data []byte, usage core1_0.BufferUsageFlags) (Buffer, error) {
	if len(data) == 0 {
		return Buffer{}, errors.AssertionFailedf("staging upload of an empty payload")
	}

	staging, err := f.AllocateBuffer(len(data), core1_0.BufferUsageTransferSrc, HostMemory)
	if err != nil {
		return Buffer{}, errors.Wrap(err, "allocate staging buffer")
	}
	defer f.DeallocateBuffer(staging)

	if err := f.UploadBuffer(staging, data); err != nil {
		return Buffer{}, err
	}

	dst, err := f.AllocateBuffer(len(data), usage|core1_0.BufferUsageTransferDst, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return Buffer{}, err
	}

	if err := f.CopyBuffer(staging, dst, len(data)); err != nil {
		_ = f.DeallocateBuffer(dst)
		return Buffer{}, err
	}

	return dst, nil
}

// encode lays data out in the byte order the GPU expects.
func encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, common.ByteOrder, data); err != nil {
		return nil, errors.Wrap(err, "encode gpu data")
	}
	return buf.Bytes(), nil
}
