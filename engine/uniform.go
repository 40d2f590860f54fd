package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// UniformBuffer holds one persistently mapped host buffer per frame in
// flight, so the CPU never writes a buffer the GPU may still be reading.
type UniformBuffer struct {
	factory Factory
	binding int
	size    int

	buffers [MaxFramesInFlight]Buffer
	mapped  [MaxFramesInFlight][]byte
}

// NewUniformBuffer allocates the per-frame buffers and points binding of
// every frame's descriptor set at them. Descriptor sets must already exist.
func NewUniformBuffer(f Factory, binding int, size int) (*UniformBuffer, error) {
	if size <= 0 {
		return nil, errors.AssertionFailedf("uniform buffer size must be positive, got %d", size)
	}

	u := &UniformBuffer{factory: f, binding: binding, size: size}
	for i := range u.buffers {
		buffer, err := f.AllocateBuffer(size, core1_0.BufferUsageUniformBuffer, HostMemory)
		if err != nil {
			return nil, errors.CombineErrors(errors.Wrapf(err, "uniform buffer for frame %d", i), u.Destroy())
		}
		u.buffers[i] = buffer

		u.mapped[i], err = f.MapBuffer(buffer)
		if err != nil {
			return nil, errors.CombineErrors(err, u.Destroy())
		}
	}

	if err := f.BindUniformBuffer(binding, u.buffers, size); err != nil {
		return nil, errors.CombineErrors(err, u.Destroy())
	}
	return u, nil
}

func (u *UniformBuffer) Binding() int { return u.binding }
func (u *UniformBuffer) Size() int    { return u.size }

// UpdateData copies data into the buffer of the frame the next Present
// records. Buffers of other frames are left untouched.
func (u *UniformBuffer) UpdateData(data []byte) error {
	if u.factory == nil {
		return invalidHandle("UpdateData", "uniform buffer")
	}
	if len(data) > u.size {
		return errors.AssertionFailedf("uniform update of %d bytes exceeds buffer size %d", len(data), u.size)
	}

	frame := u.factory.CurrentFrame()
	copy(u.mapped[frame], data)
	return nil
}

// Update encodes v the way vertex data is encoded and writes it with
// UpdateData. v must be a fixed-size value such as a struct of mgl32
// matrices.
func (u *UniformBuffer) Update(v any) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	return u.UpdateData(data)
}

func (u *UniformBuffer) IsUsable() bool {
	if u == nil || u.factory == nil {
		return false
	}
	for _, buffer := range u.buffers {
		if buffer.IsEmpty() {
			return false
		}
	}
	return true
}

// Destroy releases every per-frame buffer. Calling it again is a no-op.
func (u *UniformBuffer) Destroy() error {
	if u.factory == nil {
		return nil
	}
	f := u.factory
	u.factory = nil

	var err error
	for i := range u.buffers {
		u.mapped[i] = nil
		if u.buffers[i].IsEmpty() {
			continue
		}
		err = errors.CombineErrors(err, f.DeallocateBuffer(u.buffers[i].Take()))
	}
	return err
}
