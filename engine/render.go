package engine

import "github.com/cockroachdb/errors"

// DrawRange is one indexed draw over a slice of the index buffer.
type DrawRange struct {
	IndexOffset int
	IndexCount  int
}

// RenderResources is one mesh as a client builds it: what to draw and which
// parts of the index buffer to draw it with.
type RenderResources struct {
	Material *Material
	Geometry *GeometryBuffer
	Draws    []DrawRange
}

// PipelineResources is everything CreateGraphicsPipeline needs.
type PipelineResources struct {
	Material *Material
	Geometry *GeometryBuffer

	// Draws lists the indexed draws recorded each frame. Empty draws the
	// whole index buffer once.
	Draws []DrawRange

	// AlbedoBinding is the descriptor binding the material's albedo is
	// written to.
	AlbedoBinding int

	// Config is the fixed-function state; nil means DefaultPipelineConfig.
	Config *PipelineConfig

	// PushConstantSize is the size of the push-constant block visible to the
	// vertex and fragment stages. Zero declares none.
	PushConstantSize int
}

// Pipeline assembles PipelineResources for r.
func (r RenderResources) Pipeline(albedoBinding int) PipelineResources {
	return PipelineResources{
		Material:      r.Material,
		Geometry:      r.Geometry,
		Draws:         r.Draws,
		AlbedoBinding: albedoBinding,
	}
}

func (p PipelineResources) config() PipelineConfig {
	if p.Config == nil {
		return DefaultPipelineConfig()
	}
	return *p.Config
}

func (p PipelineResources) validate() error {
	if !p.Material.IsUsable() {
		return errors.AssertionFailedf("pipeline material is not usable")
	}
	if !p.Geometry.IsUsable() {
		return errors.AssertionFailedf("pipeline geometry is not usable")
	}
	if p.PushConstantSize < 0 || p.PushConstantSize > MaxPushConstantsSize || p.PushConstantSize%4 != 0 {
		return errors.AssertionFailedf("push constant size %d must be a multiple of 4 no larger than %d", p.PushConstantSize, MaxPushConstantsSize)
	}
	for i, draw := range p.Draws {
		if draw.IndexOffset < 0 || draw.IndexCount <= 0 || draw.IndexOffset+draw.IndexCount > p.Geometry.IndicesCount() {
			return errors.AssertionFailedf("draw %d [%d, +%d) outside %d indices", i, draw.IndexOffset, draw.IndexCount, p.Geometry.IndicesCount())
		}
	}
	return p.config().validate()
}

func (p PipelineResources) drawRanges() []DrawRange {
	if len(p.Draws) == 0 {
		return []DrawRange{{IndexOffset: 0, IndexCount: p.Geometry.IndicesCount()}}
	}
	return p.Draws
}
