package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
)

// CreateDescriptorSets builds the descriptor set layout from infos and
// allocates one set per frame in flight. It may only be called once per
// device.
func (d *Device) CreateDescriptorSets(infos []DescriptorInfo) (err error) {
	if !d.initialized {
		return errors.Mark(errors.AssertionFailedf("descriptor sets before init"), ErrNotInitialized)
	}
	if d.descriptorSetLayout != nil {
		return errors.AssertionFailedf("descriptor sets already created")
	}
	if err := validateDescriptorInfos(infos); err != nil {
		return err
	}

	defer func() {
		if err != nil {
			d.destroyDescriptorSets()
		}
	}()

	var res common.VkResult
	d.descriptorSetLayout, res, err = d.device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: descriptorSetLayoutBindings(infos),
	})
	if err != nil {
		return vkCheck("create descriptor set layout", res, err)
	}

	d.descriptorPool, res, err = d.device.CreateDescriptorPool(nil, core1_0.DescriptorPoolCreateInfo{
		MaxSets:   MaxDescriptorSets,
		PoolSizes: descriptorPoolSizes(infos),
	})
	if err != nil {
		return vkCheck("create descriptor pool", res, err)
	}

	var allocLayouts []core1_0.DescriptorSetLayout
	for i := 0; i < MaxFramesInFlight; i++ {
		allocLayouts = append(allocLayouts, d.descriptorSetLayout)
	}

	d.descriptorSets, res, err = d.device.AllocateDescriptorSets(core1_0.DescriptorSetAllocateInfo{
		DescriptorPool: d.descriptorPool,
		SetLayouts:     allocLayouts,
	})
	if err != nil {
		return vkCheck("allocate descriptor sets", res, err)
	}

	d.log.WithField("bindings", len(infos)).Debug("descriptor sets created")
	return nil
}

func (d *Device) destroyDescriptorSets() {
	// destroying the pool frees its sets
	d.descriptorSets = nil
	if d.descriptorPool != nil {
		d.descriptorPool.Destroy(nil)
		d.descriptorPool = nil
	}
	if d.descriptorSetLayout != nil {
		d.descriptorSetLayout.Destroy(nil)
		d.descriptorSetLayout = nil
	}
}

func (d *Device) requireDescriptorSets(op string) error {
	if len(d.descriptorSets) != MaxFramesInFlight {
		return errors.AssertionFailedf("%s: descriptor sets have not been created", op)
	}
	return nil
}

func (d *Device) BindUniformBuffer(binding int, buffers [MaxFramesInFlight]Buffer, size int) error {
	if err := d.requireDescriptorSets("BindUniformBuffer"); err != nil {
		return err
	}

	var writes []core1_0.WriteDescriptorSet
	for i, buffer := range buffers {
		entry, err := d.lookupBuffer("BindUniformBuffer", buffer)
		if err != nil {
			return err
		}
		if size > entry.size {
			return errors.AssertionFailedf("BindUniformBuffer: range %d exceeds %d byte buffer", size, entry.size)
		}

		writes = append(writes, core1_0.WriteDescriptorSet{
			DstSet:          d.descriptorSets[i],
			DstBinding:      binding,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeUniformBuffer,

			BufferInfo: []core1_0.DescriptorBufferInfo{
				{
					Buffer: entry.buffer,
					Offset: 0,
					Range:  size,
				},
			},
		})
	}

	return errors.Wrap(d.device.UpdateDescriptorSets(writes, nil), "update uniform buffer descriptors")
}

func (d *Device) BindImage2D(binding int, viewer Image2DViewer) error {
	if err := d.requireDescriptorSets("BindImage2D"); err != nil {
		return err
	}
	entry, ok := d.viewers.Get(viewer.handle)
	if !ok {
		return invalidHandle("BindImage2D", "image viewer")
	}

	var writes []core1_0.WriteDescriptorSet
	for _, set := range d.descriptorSets {
		writes = append(writes, core1_0.WriteDescriptorSet{
			DstSet:          set,
			DstBinding:      binding,
			DstArrayElement: 0,

			DescriptorType: core1_0.DescriptorTypeCombinedImageSampler,

			ImageInfo: []core1_0.DescriptorImageInfo{
				{
					ImageView:   entry.view,
					Sampler:     entry.sampler,
					ImageLayout: core1_0.ImageLayoutShaderReadOnlyOptimal,
				},
			},
		})
	}

	return errors.Wrap(d.device.UpdateDescriptorSets(writes, nil), "update image descriptors")
}
