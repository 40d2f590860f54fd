package engine

import (
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

func swapchainResult(res common.VkResult, err error) (swapchainStatus, error) {
	switch res {
	case khr_swapchain.VKErrorOutOfDate:
		return swapchainOutOfDate, nil
	case khr_swapchain.VKSuboptimal:
		return swapchainSuboptimal, nil
	}
	return swapchainOK, err
}

func (d *Device) waitForFrameFence(frame int) error {
	res, err := d.device.WaitForFences(true, common.NoTimeout, []core1_0.Fence{d.inFlight[frame]})
	return vkCheck("wait for frame fence", res, err)
}

func (d *Device) acquireImage(frame int) (int, swapchainStatus, error) {
	imageIndex, res, err := d.swapchain.handle.AcquireNextImage(common.NoTimeout, d.imageAvailable[frame], nil)
	status, err := swapchainResult(res, err)
	return imageIndex, status, vkCheck("acquire next image", res, err)
}

func (d *Device) resetFrameFence(frame int) error {
	res, err := d.device.ResetFences([]core1_0.Fence{d.inFlight[frame]})
	return vkCheck("reset frame fence", res, err)
}

func (d *Device) recordFrame(frame, image int) error {
	buffer := d.commandBuffers[frame]

	res, err := buffer.Reset(0)
	if err != nil {
		return vkCheck("reset command buffer", res, err)
	}
	res, err = buffer.Begin(core1_0.CommandBufferBeginInfo{})
	if err != nil {
		return vkCheck("begin command buffer", res, err)
	}

	err = buffer.CmdBeginRenderPass(core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  d.renderPass,
			Framebuffer: d.swapchain.framebuffers[image],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: d.swapchain.extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat{0, 0, 0, 1},
				core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
			},
		})
	if err != nil {
		return err
	}

	if d.pipeline.live() {
		if err := d.recordDraws(buffer, frame); err != nil {
			return err
		}
	}

	buffer.CmdEndRenderPass()

	res, err = buffer.End()
	return vkCheck("end command buffer", res, err)
}

func (d *Device) recordDraws(buffer core1_0.CommandBuffer, frame int) error {
	geometry := d.render.Geometry
	vertexEntry, err := d.lookupBuffer("record frame", geometry.VertexBuffer())
	if err != nil {
		return err
	}
	indexEntry, err := d.lookupBuffer("record frame", geometry.IndexBuffer())
	if err != nil {
		return err
	}

	buffer.CmdBindPipeline(core1_0.PipelineBindPointGraphics, d.graphicsPipeline)
	buffer.CmdSetViewport([]core1_0.Viewport{flippedViewport(d.swapchain.extent)})
	buffer.CmdSetScissor([]core1_0.Rect2D{
		{
			Offset: core1_0.Offset2D{X: 0, Y: 0},
			Extent: d.swapchain.extent,
		},
	})
	buffer.CmdBindVertexBuffers(0, []core1_0.Buffer{vertexEntry.buffer}, []int{0})
	buffer.CmdBindIndexBuffer(indexEntry.buffer, 0, core1_0.IndexTypeUInt16)
	buffer.CmdBindDescriptorSets(core1_0.PipelineBindPointGraphics, d.pipelineLayout, []core1_0.DescriptorSet{
		d.descriptorSets[frame],
	}, nil)

	for i, draw := range d.render.drawRanges() {
		if d.render.PushConstantSize > 0 {
			data, err := d.pushConstantsFor(i)
			if err != nil {
				return err
			}
			buffer.CmdPushConstants(d.pipelineLayout, pushConstantStages, 0, data)
		}
		buffer.CmdDrawIndexed(draw.IndexCount, 1, draw.IndexOffset, 0, 0)
	}
	return nil
}

func (d *Device) submitFrame(frame, image int) error {
	res, err := d.graphicsQueue.Submit(d.inFlight[frame], []core1_0.SubmitInfo{
		{
			WaitSemaphores:   []core1_0.Semaphore{d.imageAvailable[frame]},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{d.commandBuffers[frame]},
			SignalSemaphores: []core1_0.Semaphore{d.swapchain.renderFinished[image]},
		},
	})
	return vkCheck("submit frame", res, err)
}

func (d *Device) presentImage(frame, image int) (swapchainStatus, error) {
	res, err := d.swapchainExtension.QueuePresent(d.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{d.swapchain.renderFinished[image]},
		Swapchains:     []khr_swapchain.Swapchain{d.swapchain.handle},
		ImageIndices:   []int{image},
	})
	status, err := swapchainResult(res, err)
	return status, vkCheck("present", res, err)
}
