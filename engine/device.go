package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/malicengine/malic/internal/arena"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core"
	"github.com/vkngwrapper/core/common"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_portability_subset"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2"
)

// VK_KHR_portability_enumeration is not wrapped by the extensions module.
const portabilityEnumerationExtension = "VK_KHR_portability_enumeration"

const instanceCreateEnumeratePortability core1_0.InstanceCreateFlags = 0x00000001

// enablePortabilityEnumeration lists portability devices such as MoltenVK
// when the loader supports it.
func enablePortabilityEnumeration(options *core1_0.InstanceCreateInfo, available map[string]*core1_0.ExtensionProperties) {
	if _, supported := available[portabilityEnumerationExtension]; !supported {
		return
	}
	options.EnabledExtensionNames = append(options.EnabledExtensionNames, portabilityEnumerationExtension)
	options.Flags |= instanceCreateEnumeratePortability
}

// Window is what the device needs from the window it presents to.
type Window interface {
	SDL() *sdl.Window
	DrawableSize() (int, int)
	WaitWhileMinimized()
}

// Device owns the Vulkan instance, the logical device, its queues and the
// swapchain, and implements Factory on top of them. It must only be used
// from the thread that called Init.
type Device struct {
	log        *logrus.Entry
	validation bool
	appName    string
	window     Window

	loader         core.Loader
	instance       core1_0.Instance
	debugMessenger ext_debug_utils.DebugUtilsMessenger
	surface        khr_surface.Surface

	physicalDevice core1_0.PhysicalDevice
	device         core1_0.Device
	families       queueFamilies
	maxAnisotropy  float32

	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue
	transferQueue core1_0.Queue

	swapchainExtension khr_swapchain.Extension
	swapchain          swapchain
	depthFormat        core1_0.Format
	renderPass         core1_0.RenderPass

	graphicsPool   core1_0.CommandPool
	transferPool   core1_0.CommandPool
	commandBuffers []core1_0.CommandBuffer

	imageAvailable []core1_0.Semaphore
	inFlight       []core1_0.Fence

	descriptorSetLayout core1_0.DescriptorSetLayout
	descriptorPool      core1_0.DescriptorPool
	descriptorSets      []core1_0.DescriptorSet

	pipeline         releaseSlot
	graphicsPipeline core1_0.Pipeline
	pipelineLayout   core1_0.PipelineLayout
	render           PipelineResources
	pushConstantData []byte

	buffers arena.Arena[*bufferEntry]
	images  arena.Arena[*imageEntry]
	viewers arena.Arena[viewerEntry]
	modules arena.Arena[core1_0.ShaderModule]

	frames      presenter
	initialized bool
}

var _ Factory = (*Device)(nil)

// NewDevice returns an uninitialized device manager.
func NewDevice(config Config) *Device {
	d := &Device{
		log:        config.logger(),
		validation: config.EnableValidation,
		appName:    config.ApplicationName,
	}
	d.frames.backend = d
	return d
}

// Init brings up everything between the window and the first frame. It
// fails with ErrUnsupportedDevice when the host lacks a required capability.
// On failure everything created so far is released.
func (d *Device) Init(w Window) (err error) {
	if d.initialized {
		return errors.AssertionFailedf("device manager initialized twice")
	}
	d.window = w

	defer func() {
		if err != nil {
			d.release()
		}
	}()

	d.loader, err = core.CreateLoaderFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "create vulkan loader")
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"create instance", d.createInstance},
		{"set up debug messenger", d.setupDebugMessenger},
		{"create surface", d.createSurface},
		{"pick physical device", d.pickPhysicalDevice},
		{"create logical device", d.createLogicalDevice},
		{"create command pools", d.createCommandPools},
		{"create render pass", d.createRenderPass},
		{"create swapchain", d.createSwapchain},
		{"create command buffers", d.createCommandBuffers},
		{"create sync objects", d.createSyncObjects},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return errors.Wrap(err, step.name)
		}
	}

	d.initialized = true
	d.log.WithFields(logrus.Fields{
		"width":  d.swapchain.extent.Width,
		"height": d.swapchain.extent.Height,
		"images": len(d.swapchain.images),
	}).Info("device initialized")
	return nil
}

// ShutDown waits for the GPU to go idle and destroys every handle the
// device owns, newest first. Resources still alive in the arenas are
// released as well. Calling it again is a no-op.
func (d *Device) ShutDown() error {
	if !d.initialized {
		return nil
	}
	err := d.WaitIdle()
	d.release()
	return err
}

// logLeaks warns about every buffer and image the client did not
// deallocate before shutdown.
func (d *Device) logLeaks() {
	leaked := d.buffers.Len() + d.images.Len() + d.viewers.Len() + d.modules.Len()
	if leaked == 0 {
		return
	}
	d.log.WithField("count", leaked).Warn("releasing resources still alive at shutdown")

	d.buffers.Each(func(h arena.Handle, buffer *bufferEntry) {
		d.log.WithFields(logrus.Fields{
			"handle": h,
			"size":   buffer.size,
			"mapped": buffer.mapped != nil,
		}).Debug("leaked buffer")
	})
	d.images.Each(func(h arena.Handle, _ *imageEntry) {
		d.log.WithField("handle", h).Debug("leaked image")
	})
}

func (d *Device) release() {
	d.initialized = false

	d.logLeaks()

	d.pipeline.clear()
	d.destroyDescriptorSets()

	d.modules.Drain(func(module core1_0.ShaderModule) { module.Destroy(nil) })
	d.viewers.Drain(func(viewer viewerEntry) { viewer.destroy() })
	d.images.Drain(func(image *imageEntry) { image.destroy() })
	d.buffers.Drain(func(buffer *bufferEntry) { buffer.destroy() })

	d.DestroyFences(d.inFlight)
	d.inFlight = nil
	for _, semaphore := range d.imageAvailable {
		semaphore.Destroy(nil)
	}
	d.imageAvailable = nil

	d.destroySwapchain()

	if d.renderPass != nil {
		d.renderPass.Destroy(nil)
		d.renderPass = nil
	}

	// destroying a pool frees its command buffers
	d.commandBuffers = nil
	if d.transferPool != nil {
		d.transferPool.Destroy(nil)
		d.transferPool = nil
	}
	if d.graphicsPool != nil {
		d.graphicsPool.Destroy(nil)
		d.graphicsPool = nil
	}

	if d.device != nil {
		d.device.Destroy(nil)
		d.device = nil
	}
	if d.debugMessenger != nil {
		d.debugMessenger.Destroy(nil)
		d.debugMessenger = nil
	}
	if d.surface != nil {
		d.surface.Destroy(nil)
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Destroy(nil)
		d.instance = nil
	}
}

// WaitIdle blocks until the device has finished all submitted work.
func (d *Device) WaitIdle() error {
	if d.device == nil {
		return nil
	}
	res, err := d.device.WaitIdle()
	return vkCheck("wait for device idle", res, err)
}

// ResizeFramebuffer makes the next Present rebuild the swapchain.
func (d *Device) ResizeFramebuffer() {
	d.frames.requestResize()
}

func (d *Device) CurrentFrame() int {
	return d.frames.currentFrame()
}

// Present records, submits and presents one frame.
func (d *Device) Present() error {
	if !d.initialized {
		return errors.Mark(errors.AssertionFailedf("present before init"), ErrNotInitialized)
	}
	return d.frames.present()
}

// CreateFences creates count fences, optionally already signaled.
func (d *Device) CreateFences(count int, signaled bool) ([]core1_0.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fences := make([]core1_0.Fence, 0, count)
	for i := 0; i < count; i++ {
		fence, res, err := d.device.CreateFence(nil, core1_0.FenceCreateInfo{Flags: flags})
		if err != nil {
			d.DestroyFences(fences)
			return nil, vkCheck("create fence", res, err)
		}
		fences = append(fences, fence)
	}
	return fences, nil
}

func (d *Device) DestroyFences(fences []core1_0.Fence) {
	for _, fence := range fences {
		fence.Destroy(nil)
	}
}

func (d *Device) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    d.appName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "Malic",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	sdlExtensions := d.window.SDL().VulkanGetInstanceExtensions()
	extensions, _, err := d.loader.AvailableExtensions()
	if err != nil {
		return err
	}

	for _, ext := range sdlExtensions {
		if _, hasExt := extensions[ext]; !hasExt {
			return errors.Mark(errors.Newf("missing instance extension %s", ext), ErrUnsupportedDevice)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	if d.validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	enablePortabilityEnumeration(&instanceOptions, extensions)

	if d.validation {
		layers, _, err := d.loader.AvailableLayers()
		if err != nil {
			return err
		}

		missing := missingNames(ValidationLayers, layers)
		if len(missing) > 0 {
			return errors.Mark(errors.Newf("validation layers %v not available, install the Vulkan SDK", missing), ErrUnsupportedDevice)
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, ValidationLayers...)

		// also captures messages from instance creation itself
		instanceOptions.Next = d.debugMessengerOptions()
	}

	var res common.VkResult
	d.instance, res, err = d.loader.CreateInstance(nil, instanceOptions)
	return vkCheck("vkCreateInstance", res, err)
}

// missingNames returns the names in required that available lacks.
func missingNames[T any](required []string, available map[string]T) []string {
	var missing []string
	for _, name := range required {
		if _, ok := available[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (d *Device) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	severity := ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning
	if d.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		severity |= ext_debug_utils.SeverityInfo | ext_debug_utils.SeverityVerbose
	}

	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: severity,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    d.logDebug,
	}
}

func (d *Device) logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	d.log.WithField("type", msgType.String()).Log(debugLogLevel(severity), data.Message)
	return false
}

func debugLogLevel(severity ext_debug_utils.DebugUtilsMessageSeverityFlags) logrus.Level {
	switch {
	case severity&ext_debug_utils.SeverityError != 0:
		return logrus.ErrorLevel
	case severity&ext_debug_utils.SeverityWarning != 0:
		return logrus.WarnLevel
	case severity&ext_debug_utils.SeverityInfo != 0:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}

func (d *Device) setupDebugMessenger() error {
	if !d.validation {
		return nil
	}

	var res common.VkResult
	var err error
	debugLoader := ext_debug_utils.CreateExtensionFromInstance(d.instance)
	d.debugMessenger, res, err = debugLoader.CreateDebugUtilsMessenger(d.instance, nil, d.debugMessengerOptions())
	return vkCheck("create debug messenger", res, err)
}

func (d *Device) createSurface() error {
	surfaceLoader := khr_surface.CreateExtensionFromInstance(d.instance)

	surface, err := vkng_sdl2.CreateSurface(d.instance, surfaceLoader, d.window.SDL())
	if err != nil {
		return err
	}

	d.surface = surface
	return nil
}

func (d *Device) pickPhysicalDevice() error {
	physicalDevices, res, err := d.instance.EnumeratePhysicalDevices()
	if err != nil {
		return vkCheck("enumerate physical devices", res, err)
	}

	for _, device := range physicalDevices {
		families, reason, err := d.deviceSuitability(device)
		if err != nil {
			return err
		}

		properties, err := device.Properties()
		if err != nil {
			return err
		}

		if reason != "" {
			d.log.WithFields(logrus.Fields{"gpu": properties.DeviceName, "reason": reason}).Debug("skipping physical device")
			continue
		}

		d.physicalDevice = device
		d.families = families
		d.maxAnisotropy = properties.Limits.MaxSamplerAnisotropy
		d.log.WithFields(logrus.Fields{
			"gpu":      properties.DeviceName,
			"graphics": *families.graphics,
			"present":  *families.present,
			"transfer": *families.transfer,
		}).Info("selected physical device")
		return nil
	}

	return errors.Mark(errors.Newf("none of %d GPUs is suitable", len(physicalDevices)), ErrUnsupportedDevice)
}

// deviceSuitability returns the device's queue families, or a reason it
// cannot be used.
func (d *Device) deviceSuitability(device core1_0.PhysicalDevice) (queueFamilies, string, error) {
	families, err := d.findQueueFamilies(device)
	if err != nil {
		return families, "", err
	}
	if !families.complete() {
		return families, "missing graphics or present queue family", nil
	}

	extensions, _, err := device.EnumerateDeviceExtensionProperties()
	if err != nil {
		return families, "", err
	}
	if missing := missingNames(DeviceExtensions, extensions); len(missing) > 0 {
		return families, "missing device extensions", nil
	}

	support, err := d.querySwapchainSupport(device)
	if err != nil {
		return families, "", err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return families, "no surface formats or present modes", nil
	}

	if !device.Features().SamplerAnisotropy {
		return families, "no sampler anisotropy", nil
	}

	return families, "", nil
}

func (d *Device) findQueueFamilies(device core1_0.PhysicalDevice) (queueFamilies, error) {
	var flags []core1_0.QueueFlags
	for _, family := range device.QueueFamilyProperties() {
		flags = append(flags, family.QueueFlags)
	}

	return selectQueueFamilies(flags, func(family int) (bool, error) {
		supported, _, err := d.surface.PhysicalDeviceSurfaceSupport(device, family)
		return supported, err
	})
}

func (d *Device) createLogicalDevice() error {
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range d.families.unique() {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	var extensionNames []string
	extensionNames = append(extensionNames, DeviceExtensions...)

	extensions, _, err := d.physicalDevice.EnumerateDeviceExtensionProperties()
	if err != nil {
		return err
	}

	// required on portability implementations such as MoltenVK
	if _, supported := extensions[khr_portability_subset.ExtensionName]; supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}
	for _, optional := range OptionalDeviceExtensions {
		if _, supported := extensions[optional]; supported {
			extensionNames = append(extensionNames, optional)
		}
	}

	var res common.VkResult
	d.device, res, err = d.physicalDevice.CreateDevice(nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: queueFamilyOptions,
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: true,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return vkCheck("vkCreateDevice", res, err)
	}

	d.graphicsQueue = d.device.GetQueue(*d.families.graphics, 0)
	d.presentQueue = d.device.GetQueue(*d.families.present, 0)
	d.transferQueue = d.device.GetQueue(*d.families.transfer, 0)
	d.swapchainExtension = khr_swapchain.CreateExtensionFromDevice(d.device)
	return nil
}

func (d *Device) createCommandPools() error {
	var res common.VkResult
	var err error

	d.graphicsPool, res, err = d.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: *d.families.graphics,
	})
	if err != nil {
		return vkCheck("create graphics command pool", res, err)
	}

	d.transferPool, res, err = d.device.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateTransient,
		QueueFamilyIndex: *d.families.transfer,
	})
	return vkCheck("create transfer command pool", res, err)
}

func (d *Device) createCommandBuffers() error {
	buffers, res, err := d.device.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        d.graphicsPool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: MaxFramesInFlight,
	})
	if err != nil {
		return vkCheck("allocate frame command buffers", res, err)
	}
	d.commandBuffers = buffers
	return nil
}

func (d *Device) createSyncObjects() error {
	for i := 0; i < MaxFramesInFlight; i++ {
		semaphore, res, err := d.device.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return vkCheck("create image available semaphore", res, err)
		}
		d.imageAvailable = append(d.imageAvailable, semaphore)
	}

	// signaled so the first wait on each frame returns at once
	fences, err := d.CreateFences(MaxFramesInFlight, true)
	if err != nil {
		return err
	}
	d.inFlight = fences
	return nil
}
