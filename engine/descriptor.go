package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/core1_0"
)

// DescriptorType is the kind of resource a descriptor slot holds.
type DescriptorType int

const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorCombinedImageSampler
)

func (t DescriptorType) String() string {
	switch t {
	case DescriptorUniformBuffer:
		return "UniformBuffer"
	case DescriptorCombinedImageSampler:
		return "CombinedImageSampler"
	default:
		return "Unknown"
	}
}

func (t DescriptorType) vulkan() core1_0.DescriptorType {
	if t == DescriptorCombinedImageSampler {
		return core1_0.DescriptorTypeCombinedImageSampler
	}
	return core1_0.DescriptorTypeUniformBuffer
}

// DescriptorInfo declares one slot of the engine's descriptor set layout.
type DescriptorInfo struct {
	Type    DescriptorType
	Stages  core1_0.ShaderStageFlags
	Binding int
	Count   int
}

func validateDescriptorInfos(infos []DescriptorInfo) error {
	if len(infos) == 0 {
		return errors.AssertionFailedf("descriptor layout needs at least one binding")
	}

	seen := make(map[int]struct{}, len(infos))
	for _, info := range infos {
		if info.Type != DescriptorUniformBuffer && info.Type != DescriptorCombinedImageSampler {
			return errors.AssertionFailedf("binding %d: unknown descriptor type %d", info.Binding, info.Type)
		}
		if info.Count < 1 {
			return errors.AssertionFailedf("binding %d: descriptor count must be positive, got %d", info.Binding, info.Count)
		}
		if info.Stages == 0 {
			return errors.AssertionFailedf("binding %d: no shader stages", info.Binding)
		}
		if _, dup := seen[info.Binding]; dup {
			return errors.AssertionFailedf("binding %d declared twice", info.Binding)
		}
		seen[info.Binding] = struct{}{}
	}
	return nil
}

// descriptorPoolSizes sizes the pool so every frame in flight gets a full set.
func descriptorPoolSizes(infos []DescriptorInfo) []core1_0.DescriptorPoolSize {
	sizes := make([]core1_0.DescriptorPoolSize, 0, len(infos))
	for _, info := range infos {
		sizes = append(sizes, core1_0.DescriptorPoolSize{
			Type:            info.Type.vulkan(),
			DescriptorCount: info.Count * MaxDescriptorSets,
		})
	}
	return sizes
}

func descriptorSetLayoutBindings(infos []DescriptorInfo) []core1_0.DescriptorSetLayoutBinding {
	bindings := make([]core1_0.DescriptorSetLayoutBinding, 0, len(infos))
	for _, info := range infos {
		bindings = append(bindings, core1_0.DescriptorSetLayoutBinding{
			Binding:         info.Binding,
			DescriptorType:  info.Type.vulkan(),
			DescriptorCount: info.Count,
			StageFlags:      info.Stages,
		})
	}
	return bindings
}

// DefaultDescriptorInfos is the layout the bundled shaders expect: a vertex
// stage uniform buffer at binding 0 and an albedo sampler at binding 1.
func DefaultDescriptorInfos() []DescriptorInfo {
	return []DescriptorInfo{
		{Type: DescriptorUniformBuffer, Stages: core1_0.StageVertex, Binding: 0, Count: 1},
		{Type: DescriptorCombinedImageSampler, Stages: core1_0.StageFragment, Binding: 1, Count: 1},
	}
}
