package engine

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/core1_0"
)

// Vertex is the interleaved per-vertex record the pipeline consumes:
// 32 bytes, position then color then uv.
type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	UV       mgl32.Vec2
}

// VertexStride is the size of one Vertex in bytes.
const VertexStride = int(unsafe.Sizeof(Vertex{}))

// GeometryBuffer owns a device-local vertex buffer and index buffer.
type GeometryBuffer struct {
	factory Factory
	binding int

	vertices    Buffer
	indices     Buffer
	vertexCount int
	indexCount  int
}

// NewGeometryBuffer uploads vertices and indices to device-local memory.
func NewGeometryBuffer(f Factory, binding int, vertices []Vertex, indices []uint16) (*GeometryBuffer, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		return nil, errors.AssertionFailedf("geometry needs vertices and indices, got %d and %d", len(vertices), len(indices))
	}
	for _, index := range indices {
		if int(index) >= len(vertices) {
			return nil, errors.AssertionFailedf("index %d out of range for %d vertices", index, len(vertices))
		}
	}

	vertexBytes, err := encode(vertices)
	if err != nil {
		return nil, err
	}
	indexBytes, err := encode(indices)
	if err != nil {
		return nil, err
	}

	g := &GeometryBuffer{
		factory:     f,
		binding:     binding,
		vertexCount: len(vertices),
		indexCount:  len(indices),
	}

	g.vertices, err = uploadViaStaging(f, vertexBytes, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return nil, errors.Wrap(err, "upload vertex buffer")
	}

	g.indices, err = uploadViaStaging(f, indexBytes, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		_ = f.DeallocateBuffer(g.vertices)
		return nil, errors.Wrap(err, "upload index buffer")
	}

	return g, nil
}

func (g *GeometryBuffer) VerticesCount() int { return g.vertexCount }
func (g *GeometryBuffer) IndicesCount() int  { return g.indexCount }
func (g *GeometryBuffer) VertexBuffer() Buffer {
	return g.vertices
}
func (g *GeometryBuffer) IndexBuffer() Buffer {
	return g.indices
}

// IsUsable reports whether the buffers are still alive.
func (g *GeometryBuffer) IsUsable() bool {
	return g != nil && g.factory != nil && !g.vertices.IsEmpty() && !g.indices.IsEmpty()
}

func (g *GeometryBuffer) BindingDescription() core1_0.VertexInputBindingDescription {
	return core1_0.VertexInputBindingDescription{
		Binding:   g.binding,
		Stride:    VertexStride,
		InputRate: core1_0.VertexInputRateVertex,
	}
}

func (g *GeometryBuffer) AttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  g.binding,
			Location: VertexAttribPosition,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  g.binding,
			Location: VertexAttribColor,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
		{
			Binding:  g.binding,
			Location: VertexAttribUV,
			Format:   core1_0.FormatR32G32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.UV)),
		},
	}
}

// Destroy releases both buffers. Calling it again is a no-op.
func (g *GeometryBuffer) Destroy() error {
	if g.factory == nil {
		return nil
	}
	f := g.factory
	g.factory = nil

	err := f.DeallocateBuffer(g.vertices.Take())
	return errors.CombineErrors(err, f.DeallocateBuffer(g.indices.Take()))
}
