package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

const pushConstantStages = core1_0.StageVertex | core1_0.StageFragment

// CreateGraphicsPipeline builds the pipeline the frame loop draws with,
// replacing the previous one. The material's albedo is written to every
// frame's descriptor set at res.AlbedoBinding. When building fails no
// pipeline is live and frames only clear.
func (d *Device) CreateGraphicsPipeline(res PipelineResources) error {
	if !d.initialized {
		return errors.Mark(errors.AssertionFailedf("graphics pipeline before init"), ErrNotInitialized)
	}
	if err := res.validate(); err != nil {
		return err
	}
	if d.descriptorSetLayout == nil {
		return errors.AssertionFailedf("graphics pipeline needs descriptor sets, call CreateDescriptorSets first")
	}

	// the old pipeline may still be recorded in a frame in flight
	if err := d.WaitIdle(); err != nil {
		return err
	}

	if err := d.BindImage2D(res.AlbedoBinding, res.Material.Albedo().Viewer()); err != nil {
		return errors.Wrap(err, "bind albedo")
	}

	err := d.pipeline.replace(func() (func(), error) {
		return d.buildGraphicsPipeline(res)
	})
	if err != nil {
		d.render = PipelineResources{}
		return err
	}

	d.render = res
	d.pushConstantData = nil
	d.log.WithField("draws", len(res.drawRanges())).Debug("graphics pipeline created")
	return nil
}

func (d *Device) buildGraphicsPipeline(res PipelineResources) (func(), error) {
	shader := res.Material.Shader()
	config := res.config()

	stages, err := d.shaderStages(shader)
	if err != nil {
		return nil, err
	}

	layoutInfo := core1_0.PipelineLayoutCreateInfo{
		SetLayouts: []core1_0.DescriptorSetLayout{
			d.descriptorSetLayout,
		},
	}
	if res.PushConstantSize > 0 {
		layoutInfo.PushConstantRanges = []core1_0.PushConstantRange{
			{
				StageFlags: pushConstantStages,
				Offset:     0,
				Size:       res.PushConstantSize,
			},
		}
	}

	pipelineLayout, result, err := d.device.CreatePipelineLayout(nil, layoutInfo)
	if err != nil {
		return nil, vkCheck("create pipeline layout", result, err)
	}

	pipelines, result, err := d.device.CreateGraphicsPipelines(nil, nil, []core1_0.GraphicsPipelineCreateInfo{
		{
			Stages: stages,
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions:   []core1_0.VertexInputBindingDescription{res.Geometry.BindingDescription()},
				VertexAttributeDescriptions: res.Geometry.AttributeDescriptions(),
			},
			InputAssemblyState: config.inputAssemblyState(),
			ViewportState:      viewportState(d.swapchain.extent),
			RasterizationState: config.rasterizationState(),
			MultisampleState:   config.multisampleState(),
			DepthStencilState:  config.depthStencilState(),
			ColorBlendState:    config.colorBlendState(),
			DynamicState:       config.dynamicState(),
			Layout:             pipelineLayout,
			RenderPass:         d.renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	})
	if err != nil {
		pipelineLayout.Destroy(nil)
		return nil, vkCheck("create graphics pipeline", result, err)
	}

	d.graphicsPipeline = pipelines[0]
	d.pipelineLayout = pipelineLayout
	return func() {
		d.graphicsPipeline.Destroy(nil)
		d.pipelineLayout.Destroy(nil)
		d.graphicsPipeline = nil
		d.pipelineLayout = nil
	}, nil
}

func (d *Device) shaderStages(shader *Shader) ([]core1_0.PipelineShaderStageCreateInfo, error) {
	modules := []struct {
		stage  core1_0.ShaderStageFlags
		module ShaderModule
	}{
		{core1_0.StageVertex, shader.Vertex},
		{core1_0.StageGeometry, shader.Geometry},
		{core1_0.StageFragment, shader.Fragment},
	}

	var stages []core1_0.PipelineShaderStageCreateInfo
	for _, m := range modules {
		if m.module.IsEmpty() {
			continue
		}
		module, ok := d.modules.Get(m.module.handle)
		if !ok {
			return nil, invalidHandle("CreateGraphicsPipeline", "shader module")
		}
		stages = append(stages, core1_0.PipelineShaderStageCreateInfo{
			Stage:  m.stage,
			Module: module,
			Name:   "main",
		})
	}
	return stages, nil
}

// DestroyGraphicsPipeline releases the live pipeline, if any. Later frames
// only clear.
func (d *Device) DestroyGraphicsPipeline() error {
	if err := d.WaitIdle(); err != nil {
		return err
	}
	d.pipeline.clear()
	d.render = PipelineResources{}
	d.pushConstantData = nil
	return nil
}

// SetPushConstants replaces the bytes pushed before every draw. Until it is
// called each draw pushes a PushConstants carrying its draw index.
func (d *Device) SetPushConstants(data []byte) error {
	if !d.pipeline.live() {
		return errors.AssertionFailedf("push constants without a graphics pipeline")
	}
	if len(data) != d.render.PushConstantSize {
		return errors.AssertionFailedf("push constants are %d bytes, pipeline declares %d", len(data), d.render.PushConstantSize)
	}
	d.pushConstantData = append(d.pushConstantData[:0], data...)
	return nil
}

// pushConstantsFor returns the bytes pushed before draw index i.
func (d *Device) pushConstantsFor(i int) ([]byte, error) {
	if d.pushConstantData != nil {
		return d.pushConstantData, nil
	}
	data, err := encode(PushConstants{DrawIndex: uint32(i)})
	if err != nil {
		return nil, err
	}
	size := d.render.PushConstantSize
	if size > len(data) {
		size = len(data)
	}
	return data[:size], nil
}
