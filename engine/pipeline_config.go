package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// PipelineConfig is the fixed-function state of a graphics pipeline.
// DefaultPipelineConfig fills every field; callers override what they need.
type PipelineConfig struct {
	// Topology defaults to a triangle list.
	Topology core1_0.PrimitiveTopology

	// PolygonMode defaults to fill.
	PolygonMode core1_0.PolygonMode

	// CullMode defaults to culling back faces.
	CullMode core1_0.CullModeFlags

	// FrontFace defaults to clockwise.
	FrontFace core1_0.FrontFace

	// LineWidth defaults to 1.0.
	LineWidth float32

	// Blending defaults to standard alpha blending on color and pass-through
	// on alpha.
	BlendEnabled        bool
	SrcColorBlendFactor core1_0.BlendFactor
	DstColorBlendFactor core1_0.BlendFactor
	ColorBlendOp        core1_0.BlendOp
	SrcAlphaBlendFactor core1_0.BlendFactor
	DstAlphaBlendFactor core1_0.BlendFactor
	AlphaBlendOp        core1_0.BlendOp

	// DepthTestEnable and DepthWriteEnable default to true with a less-than
	// comparison.
	DepthTestEnable  bool
	DepthWriteEnable bool
	DepthCompareOp   core1_0.CompareOp

	// DynamicStates defaults to viewport and scissor so a resize does not
	// need a new pipeline.
	DynamicStates []core1_0.DynamicState
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Topology:    core1_0.PrimitiveTopologyTriangleList,
		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceClockwise,
		LineWidth:   1.0,

		BlendEnabled:        true,
		SrcColorBlendFactor: core1_0.BlendFactorSrcAlpha,
		DstColorBlendFactor: core1_0.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        core1_0.BlendOpAdd,
		SrcAlphaBlendFactor: core1_0.BlendFactorOne,
		DstAlphaBlendFactor: core1_0.BlendFactorZero,
		AlphaBlendOp:        core1_0.BlendOpAdd,

		DepthTestEnable:  true,
		DepthWriteEnable: true,
		DepthCompareOp:   core1_0.CompareOpLess,

		DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
	}
}

func (c PipelineConfig) validate() error {
	if c.LineWidth <= 0 {
		return errors.AssertionFailedf("pipeline line width must be positive, got %v", c.LineWidth)
	}
	if !c.hasDynamicState(core1_0.DynamicStateViewport) || !c.hasDynamicState(core1_0.DynamicStateScissor) {
		return errors.AssertionFailedf("pipeline must declare viewport and scissor as dynamic state")
	}
	return nil
}

func (c PipelineConfig) hasDynamicState(state core1_0.DynamicState) bool {
	for _, s := range c.DynamicStates {
		if s == state {
			return true
		}
	}
	return false
}

func (c PipelineConfig) inputAssemblyState() *core1_0.PipelineInputAssemblyStateCreateInfo {
	return &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               c.Topology,
		PrimitiveRestartEnable: false,
	}
}

func (c PipelineConfig) rasterizationState() *core1_0.PipelineRasterizationStateCreateInfo {
	return &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: c.PolygonMode,
		CullMode:    c.CullMode,
		FrontFace:   c.FrontFace,

		DepthBiasEnable: false,

		LineWidth: c.LineWidth,
	}
}

func (c PipelineConfig) multisampleState() *core1_0.PipelineMultisampleStateCreateInfo {
	return &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}
}

func (c PipelineConfig) depthStencilState() *core1_0.PipelineDepthStencilStateCreateInfo {
	return &core1_0.PipelineDepthStencilStateCreateInfo{
		DepthTestEnable:  c.DepthTestEnable,
		DepthWriteEnable: c.DepthWriteEnable,
		DepthCompareOp:   c.DepthCompareOp,
	}
}

func (c PipelineConfig) colorBlendState() *core1_0.PipelineColorBlendStateCreateInfo {
	return &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:        c.BlendEnabled,
				SrcColorBlendFactor: c.SrcColorBlendFactor,
				DstColorBlendFactor: c.DstColorBlendFactor,
				ColorBlendOp:        c.ColorBlendOp,
				SrcAlphaBlendFactor: c.SrcAlphaBlendFactor,
				DstAlphaBlendFactor: c.DstAlphaBlendFactor,
				AlphaBlendOp:        c.AlphaBlendOp,
				ColorWriteMask:      core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}
}

func (c PipelineConfig) dynamicState() *core1_0.PipelineDynamicStateCreateInfo {
	return &core1_0.PipelineDynamicStateCreateInfo{
		DynamicStates: c.DynamicStates,
	}
}

// viewportState declares one viewport and scissor. Their values are set
// per frame through dynamic state; extent only fills the placeholders.
func viewportState(extent core1_0.Extent2D) *core1_0.PipelineViewportStateCreateInfo {
	return &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{flippedViewport(extent)},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
		},
	}
}

// flippedViewport covers extent with Y pointing up, matching the clip space
// the camera math assumes.
func flippedViewport(extent core1_0.Extent2D) core1_0.Viewport {
	return core1_0.Viewport{
		X:        0,
		Y:        float32(extent.Height),
		Width:    float32(extent.Width),
		Height:   -float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
}
