package engine

import "github.com/malicengine/malic/internal/arena"

// Buffer names a device buffer together with its backing memory. The zero
// Buffer is empty. Copies share the same underlying resource; once it is
// deallocated through any copy, all copies are stale.
type Buffer struct {
	handle arena.Handle
}

// IsEmpty reports whether b names no buffer.
func (b Buffer) IsEmpty() bool { return b.handle.IsZero() }

// Take transfers ownership out of b: it returns the handle and leaves b empty.
func (b *Buffer) Take() Buffer {
	out := *b
	*b = Buffer{}
	return out
}

// Image names a 2D device image together with its backing memory.
type Image struct {
	handle arena.Handle
}

func (i Image) IsEmpty() bool { return i.handle.IsZero() }

func (i *Image) Take() Image {
	out := *i
	*i = Image{}
	return out
}

// Image2DViewer names an image view and the sampler used to read it.
type Image2DViewer struct {
	handle arena.Handle
}

func (v Image2DViewer) IsEmpty() bool { return v.handle.IsZero() }

func (v *Image2DViewer) Take() Image2DViewer {
	out := *v
	*v = Image2DViewer{}
	return out
}

// ShaderModule names a compiled SPIR-V module.
type ShaderModule struct {
	handle arena.Handle
}

func (m ShaderModule) IsEmpty() bool { return m.handle.IsZero() }
