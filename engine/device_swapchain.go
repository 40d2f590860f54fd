package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

type queueFamilies struct {
	graphics *int
	present  *int
	transfer *int
}

func (f queueFamilies) complete() bool {
	return f.graphics != nil && f.present != nil && f.transfer != nil
}

// unique lists each family once, graphics first.
func (f queueFamilies) unique() []int {
	out := []int{*f.graphics}
	for _, family := range []int{*f.present, *f.transfer} {
		seen := false
		for _, o := range out {
			seen = seen || o == family
		}
		if !seen {
			out = append(out, family)
		}
	}
	return out
}

// selectQueueFamilies picks the first graphics family, preferring one that
// can also present, and a transfer family without graphics support when the
// device has one. Present and transfer fall back to aliasing other families.
func selectQueueFamilies(flags []core1_0.QueueFlags, canPresent func(family int) (bool, error)) (queueFamilies, error) {
	var families queueFamilies
	var firstPresent *int

	for i, queueFlags := range flags {
		family := i

		supported, err := canPresent(family)
		if err != nil {
			return families, err
		}
		if supported && firstPresent == nil {
			firstPresent = &family
		}

		if queueFlags&core1_0.QueueGraphics != 0 {
			if families.graphics == nil || (supported && families.present == nil) {
				families.graphics = &family
				if supported {
					families.present = &family
				}
			}
		} else if queueFlags&core1_0.QueueTransfer != 0 && families.transfer == nil {
			families.transfer = &family
		}
	}

	if families.present == nil {
		families.present = firstPresent
	}
	// graphics queues always support transfer
	if families.transfer == nil {
		families.transfer = families.graphics
	}
	return families, nil
}

// sharing returns the sharing mode for resources touched by both the
// graphics and the transfer queue.
func (f queueFamilies) sharing() (core1_0.SharingMode, []int) {
	if *f.graphics == *f.transfer {
		return core1_0.SharingModeExclusive, nil
	}
	return core1_0.SharingModeConcurrent, []int{*f.graphics, *f.transfer}
}

type swapchainSupport struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

func (d *Device) querySwapchainSupport(device core1_0.PhysicalDevice) (swapchainSupport, error) {
	var details swapchainSupport
	var err error

	details.Capabilities, _, err = d.surface.PhysicalDeviceSurfaceCapabilities(device)
	if err != nil {
		return details, err
	}

	details.Formats, _, err = d.surface.PhysicalDeviceSurfaceFormats(device)
	if err != nil {
		return details, err
	}

	details.PresentModes, _, err = d.surface.PhysicalDeviceSurfacePresentModes(device)
	return details, err
}

func chooseSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8SRGB && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

func choosePresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

// chooseExtent uses the surface's extent when it dictates one and otherwise
// clamps the drawable size to what the surface allows.
func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clamp(drawableWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clamp(drawableHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}
	return imageCount
}

// swapchain is everything that is rebuilt when the surface changes size.
type swapchain struct {
	handle       khr_swapchain.Swapchain
	format       core1_0.Format
	extent       core1_0.Extent2D
	images       []core1_0.Image
	views        []core1_0.ImageView
	framebuffers []core1_0.Framebuffer

	// indexed by swapchain image: an image may be presented more often than
	// there are frames in flight
	renderFinished []core1_0.Semaphore

	depthImage  core1_0.Image
	depthMemory core1_0.DeviceMemory
	depthView   core1_0.ImageView
}

func (d *Device) createSwapchain() error {
	support, err := d.querySwapchainSupport(d.physicalDevice)
	if err != nil {
		return err
	}

	surfaceFormat := chooseSurfaceFormat(support.Formats)
	presentMode := choosePresentMode(support.PresentModes)
	width, height := d.window.DrawableSize()
	extent := chooseExtent(support.Capabilities, width, height)

	sharingMode := core1_0.SharingModeExclusive
	var queueFamilyIndices []int
	if *d.families.graphics != *d.families.present {
		sharingMode = core1_0.SharingModeConcurrent
		queueFamilyIndices = append(queueFamilyIndices, *d.families.graphics, *d.families.present)
	}

	handle, res, err := d.swapchainExtension.CreateSwapchain(d.device, nil, khr_swapchain.SwapchainCreateInfo{
		Surface: d.surface,

		MinImageCount:    chooseImageCount(support.Capabilities),
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return vkCheck("create swapchain", res, err)
	}
	d.swapchain = swapchain{handle: handle, format: surfaceFormat.Format, extent: extent}

	if err := d.createSwapchainViews(); err != nil {
		return err
	}
	if err := d.createDepthResources(); err != nil {
		return err
	}
	if err := d.createFramebuffers(); err != nil {
		return err
	}

	for range d.swapchain.images {
		semaphore, res, err := d.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return vkCheck("create render finished semaphore", res, err)
		}
		d.swapchain.renderFinished = append(d.swapchain.renderFinished, semaphore)
	}

	d.log.WithFields(logrus.Fields{
		"width":   extent.Width,
		"height":  extent.Height,
		"images":  len(d.swapchain.images),
		"present": presentMode,
	}).Debug("swapchain created")
	return nil
}

func (d *Device) createSwapchainViews() error {
	images, res, err := d.swapchain.handle.SwapchainImages()
	if err != nil {
		return vkCheck("get swapchain images", res, err)
	}
	d.swapchain.images = images

	for _, image := range images {
		view, err := d.createImageView(image, d.swapchain.format, core1_0.ImageAspectColor)
		if err != nil {
			return err
		}
		d.swapchain.views = append(d.swapchain.views, view)
	}
	return nil
}

func (d *Device) createDepthResources() error {
	image, memory, err := d.createImage(d.swapchain.extent.Width, d.swapchain.extent.Height,
		d.depthFormat,
		core1_0.ImageUsageDepthStencilAttachment,
		core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return errors.Wrap(err, "create depth image")
	}
	d.swapchain.depthImage = image
	d.swapchain.depthMemory = memory

	d.swapchain.depthView, err = d.createImageView(image, d.depthFormat, core1_0.ImageAspectDepth)
	if err != nil {
		return err
	}

	return d.transitionImage(image, d.depthFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutDepthStencilAttachmentOptimal)
}

func (d *Device) createFramebuffers() error {
	for _, imageView := range d.swapchain.views {
		framebuffer, res, err := d.device.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: d.renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				imageView,
				d.swapchain.depthView,
			},
			Width:  d.swapchain.extent.Width,
			Height: d.swapchain.extent.Height,
		})
		if err != nil {
			return vkCheck("create framebuffer", res, err)
		}

		d.swapchain.framebuffers = append(d.swapchain.framebuffers, framebuffer)
	}
	return nil
}

func (d *Device) destroySwapchain() {
	sc := &d.swapchain

	for _, semaphore := range sc.renderFinished {
		semaphore.Destroy(nil)
	}
	for _, framebuffer := range sc.framebuffers {
		framebuffer.Destroy(nil)
	}
	if sc.depthView != nil {
		sc.depthView.Destroy(nil)
	}
	if sc.depthImage != nil {
		sc.depthImage.Destroy(nil)
	}
	if sc.depthMemory != nil {
		sc.depthMemory.Free(nil)
	}
	for _, imageView := range sc.views {
		imageView.Destroy(nil)
	}
	if sc.handle != nil {
		sc.handle.Destroy(nil)
	}

	d.swapchain = swapchain{}
}

func (d *Device) waitForSurface() bool {
	d.window.WaitWhileMinimized()
	width, height := d.window.DrawableSize()
	return width > 0 && height > 0
}

// recreateSwapchain drains the device and rebuilds the swapchain and
// everything sized by it.
func (d *Device) recreateSwapchain() error {
	if err := d.WaitIdle(); err != nil {
		return err
	}

	d.destroySwapchain()
	return errors.Wrap(d.createSwapchain(), "recreate swapchain")
}

func (d *Device) findSupportedFormat(formats []core1_0.Format, tiling core1_0.ImageTiling, features core1_0.FormatFeatureFlags) (core1_0.Format, error) {
	for _, format := range formats {
		props := d.physicalDevice.FormatProperties(format)

		if tiling == core1_0.ImageTilingLinear && (props.LinearTilingFeatures&features) == features {
			return format, nil
		} else if tiling == core1_0.ImageTilingOptimal && (props.OptimalTilingFeatures&features) == features {
			return format, nil
		}
	}

	return 0, errors.Mark(
		errors.Newf("failed to find supported format for tiling %s, featureset %s", tiling, features),
		ErrUnsupportedDevice)
}

func (d *Device) createRenderPass() error {
	var err error
	d.depthFormat, err = d.findSupportedFormat(
		[]core1_0.Format{core1_0.FormatD32SignedFloat, core1_0.FormatD32SignedFloatS8UnsignedInt, core1_0.FormatD24UnsignedNormalizedS8UnsignedInt},
		core1_0.ImageTilingOptimal,
		core1_0.FormatFeatureDepthStencilAttachment)
	if err != nil {
		return err
	}

	support, err := d.querySwapchainSupport(d.physicalDevice)
	if err != nil {
		return err
	}
	colorFormat := chooseSurfaceFormat(support.Formats).Format

	var res common.VkResult
	d.renderPass, res, err = d.device.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         colorFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
			{
				Format:         d.depthFormat,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpDontCare,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
				DepthStencilAttachment: &core1_0.AttachmentReference{
					Attachment: 1,
					Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput | core1_0.PipelineStageEarlyFragmentTests,
				DstAccessMask: core1_0.AccessColorAttachmentWrite | core1_0.AccessDepthStencilAttachmentWrite,
			},
		},
	})
	return vkCheck("create render pass", res, err)
}
