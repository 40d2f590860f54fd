package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// layoutBarrier is the synchronization a layout transition needs.
type layoutBarrier struct {
	SrcAccess core1_0.AccessFlags
	DstAccess core1_0.AccessFlags
	SrcStage  core1_0.PipelineStageFlags
	DstStage  core1_0.PipelineStageFlags
	Aspect    core1_0.ImageAspectFlags
}

type layoutPair struct {
	from, to core1_0.ImageLayout
}

var layoutBarriers = map[layoutPair]layoutBarrier{
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal}: {
		SrcAccess: 0,
		DstAccess: core1_0.AccessTransferWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageTransfer,
		Aspect:    core1_0.ImageAspectColor,
	},
	{core1_0.ImageLayoutTransferDstOptimal, core1_0.ImageLayoutShaderReadOnlyOptimal}: {
		SrcAccess: core1_0.AccessTransferWrite,
		DstAccess: core1_0.AccessShaderRead,
		SrcStage:  core1_0.PipelineStageTransfer,
		DstStage:  core1_0.PipelineStageFragmentShader,
		Aspect:    core1_0.ImageAspectColor,
	},
	{core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal}: {
		SrcAccess: 0,
		DstAccess: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
		SrcStage:  core1_0.PipelineStageTopOfPipe,
		DstStage:  core1_0.PipelineStageEarlyFragmentTests,
		Aspect:    core1_0.ImageAspectDepth,
	},
}

// barrierFor returns the fixed barrier for a supported transition. Depth
// formats with a stencil component also get the stencil aspect.
func barrierFor(format core1_0.Format, from, to core1_0.ImageLayout) (layoutBarrier, error) {
	barrier, ok := layoutBarriers[layoutPair{from, to}]
	if !ok {
		return layoutBarrier{}, errors.Mark(
			errors.AssertionFailedf("unexpected layout transition: %s -> %s", from, to),
			ErrUnsupportedTransition)
	}

	if barrier.Aspect == core1_0.ImageAspectDepth && hasStencilComponent(format) {
		barrier.Aspect |= core1_0.ImageAspectStencil
	}
	return barrier, nil
}

func hasStencilComponent(format core1_0.Format) bool {
	return format == core1_0.FormatD32SignedFloatS8UnsignedInt || format == core1_0.FormatD24UnsignedNormalizedS8UnsignedInt
}
