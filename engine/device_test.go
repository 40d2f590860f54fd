package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/core1_0"
	"github.com/vkngwrapper/extensions/ext_debug_utils"
	"github.com/vkngwrapper/extensions/khr_surface"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

func presentOn(families ...int) func(int) (bool, error) {
	return func(family int) (bool, error) {
		for _, f := range families {
			if f == family {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestSelectQueueFamilies(t *testing.T) {
	graphics := core1_0.QueueGraphics | core1_0.QueueCompute | core1_0.QueueTransfer
	tests := []struct {
		name       string
		flags      []core1_0.QueueFlags
		canPresent func(int) (bool, error)

		complete                    bool
		graphics, present, transfer int
	}{
		{
			name:       "single universal family",
			flags:      []core1_0.QueueFlags{graphics},
			canPresent: presentOn(0),
			complete:   true,
		},
		{
			name:       "dedicated transfer family",
			flags:      []core1_0.QueueFlags{graphics, core1_0.QueueCompute, core1_0.QueueTransfer},
			canPresent: presentOn(0),
			complete:   true,
			transfer:   2,
		},
		{
			name:       "prefers a graphics family that presents",
			flags:      []core1_0.QueueFlags{graphics, graphics},
			canPresent: presentOn(1),
			complete:   true,
			graphics:   1,
			present:    1,
			transfer:   1,
		},
		{
			name:       "present only on a compute family",
			flags:      []core1_0.QueueFlags{graphics, core1_0.QueueCompute},
			canPresent: presentOn(1),
			complete:   true,
			present:    1,
		},
		{
			name:       "no present support",
			flags:      []core1_0.QueueFlags{graphics},
			canPresent: presentOn(),
		},
		{
			name:       "no graphics family",
			flags:      []core1_0.QueueFlags{core1_0.QueueCompute | core1_0.QueueTransfer},
			canPresent: presentOn(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			families, err := selectQueueFamilies(tt.flags, tt.canPresent)
			require.NoError(t, err)
			require.Equal(t, tt.complete, families.complete())
			if !tt.complete {
				return
			}
			assert.Equal(t, tt.graphics, *families.graphics)
			assert.Equal(t, tt.present, *families.present)
			assert.Equal(t, tt.transfer, *families.transfer)
		})
	}
}

func TestSelectQueueFamiliesPropagatesSurfaceErrors(t *testing.T) {
	boom := errors.New("surface lost")
	_, err := selectQueueFamilies([]core1_0.QueueFlags{core1_0.QueueGraphics}, func(int) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestQueueFamiliesUniqueAndSharing(t *testing.T) {
	zero, one, two := 0, 1, 2

	shared := queueFamilies{graphics: &zero, present: &zero, transfer: &zero}
	assert.Equal(t, []int{0}, shared.unique())
	mode, indices := shared.sharing()
	assert.Equal(t, core1_0.SharingModeExclusive, mode)
	assert.Empty(t, indices)

	split := queueFamilies{graphics: &zero, present: &one, transfer: &two}
	assert.Equal(t, []int{0, 1, 2}, split.unique())
	mode, indices = split.sharing()
	assert.Equal(t, core1_0.SharingModeConcurrent, mode)
	assert.Equal(t, []int{0, 2}, indices)

	aliased := queueFamilies{graphics: &zero, present: &one, transfer: &zero}
	assert.Equal(t, []int{0, 1}, aliased.unique())
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := khr_surface.SurfaceFormat{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}
	other := khr_surface.SurfaceFormat{Format: core1_0.FormatR8G8B8A8UnsignedNormalized, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear}

	assert.Equal(t, preferred, chooseSurfaceFormat([]khr_surface.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSurfaceFormat([]khr_surface.SurfaceFormat{other}))
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, khr_surface.PresentModeMailbox,
		choosePresentMode([]khr_surface.PresentMode{khr_surface.PresentModeFIFO, khr_surface.PresentModeMailbox}))
	assert.Equal(t, khr_surface.PresentModeFIFO,
		choosePresentMode([]khr_surface.PresentMode{khr_surface.PresentModeFIFO}))
}

func TestChooseExtent(t *testing.T) {
	fixed := &khr_surface.SurfaceCapabilities{
		CurrentExtent: core1_0.Extent2D{Width: 800, Height: 600},
	}
	assert.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, chooseExtent(fixed, 1920, 1080))

	free := &khr_surface.SurfaceCapabilities{
		CurrentExtent:  core1_0.Extent2D{Width: -1, Height: -1},
		MinImageExtent: core1_0.Extent2D{Width: 100, Height: 100},
		MaxImageExtent: core1_0.Extent2D{Width: 1000, Height: 1000},
	}
	assert.Equal(t, core1_0.Extent2D{Width: 640, Height: 480}, chooseExtent(free, 640, 480))
	assert.Equal(t, core1_0.Extent2D{Width: 1000, Height: 100}, chooseExtent(free, 4000, 10))
}

func TestChooseImageCount(t *testing.T) {
	assert.Equal(t, 3, chooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2}))
	assert.Equal(t, 3, chooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 8}))
	assert.Equal(t, 2, chooseImageCount(&khr_surface.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 2}))
}

func TestDebugLogLevel(t *testing.T) {
	assert.Equal(t, logrus.ErrorLevel, debugLogLevel(ext_debug_utils.SeverityError))
	assert.Equal(t, logrus.WarnLevel, debugLogLevel(ext_debug_utils.SeverityWarning))
	assert.Equal(t, logrus.InfoLevel, debugLogLevel(ext_debug_utils.SeverityInfo))
	assert.Equal(t, logrus.DebugLevel, debugLogLevel(ext_debug_utils.SeverityVerbose))
}

func TestMissingNames(t *testing.T) {
	available := map[string]int{"VK_KHR_swapchain": 1, "VK_KHR_maintenance1": 1}
	assert.Empty(t, missingNames([]string{"VK_KHR_swapchain"}, available))
	assert.Equal(t, []string{"VK_LAYER_KHRONOS_validation"},
		missingNames([]string{"VK_KHR_swapchain", "VK_LAYER_KHRONOS_validation"}, available))
}

func TestSwapchainResult(t *testing.T) {
	status, err := swapchainResult(khr_swapchain.VKErrorOutOfDate, errors.New("out of date"))
	require.NoError(t, err)
	assert.Equal(t, swapchainOutOfDate, status)

	status, err = swapchainResult(khr_swapchain.VKSuboptimal, nil)
	require.NoError(t, err)
	assert.Equal(t, swapchainSuboptimal, status)

	status, err = swapchainResult(core1_0.VKSuccess, nil)
	require.NoError(t, err)
	assert.Equal(t, swapchainOK, status)

	lost := errors.New("device lost")
	_, err = swapchainResult(core1_0.VKErrorDeviceLost, lost)
	assert.ErrorIs(t, err, lost)
}

func TestDeviceRequiresInit(t *testing.T) {
	d := NewDevice(DefaultConfig())

	assert.True(t, errors.Is(d.Present(), ErrNotInitialized))
	assert.True(t, errors.Is(d.CreateDescriptorSets(DefaultDescriptorInfos()), ErrNotInitialized))
	assert.True(t, errors.Is(d.CreateGraphicsPipeline(PipelineResources{}), ErrNotInitialized))
	assert.Error(t, d.SetPushConstants([]byte{0, 0, 0, 0}))
	assert.Equal(t, 0, d.CurrentFrame())

	require.NoError(t, d.ShutDown())
	require.NoError(t, d.ShutDown())
}

func TestDeviceRejectsStaleHandles(t *testing.T) {
	d := NewDevice(DefaultConfig())

	err := d.DeallocateBuffer(Buffer{})
	assert.True(t, errors.Is(err, ErrInvalidHandle))
	assert.True(t, errors.HasAssertionFailure(err))

	_, err = d.MapBuffer(Buffer{})
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	err = d.TransitionImageLayout(Image{}, TextureFormat, core1_0.ImageLayoutUndefined, core1_0.ImageLayoutTransferDstOptimal)
	assert.True(t, errors.Is(err, ErrInvalidHandle))

	assert.True(t, errors.Is(d.DestroyImage2DViewer(Image2DViewer{}), ErrInvalidHandle))
	assert.True(t, errors.Is(d.DestroyShaderModule(ShaderModule{}), ErrInvalidHandle))
}

func TestDeviceLogsLeakedResources(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	config := DefaultConfig()
	config.Logger = logrus.NewEntry(logger)
	d := NewDevice(config)

	d.logLeaks()
	assert.Empty(t, hook.AllEntries())

	d.buffers.Insert(&bufferEntry{size: 64})
	d.images.Insert(&imageEntry{})
	d.logLeaks()

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, logrus.WarnLevel, entries[0].Level)
	assert.Equal(t, 2, entries[0].Data["count"])
	assert.Equal(t, "leaked buffer", entries[1].Message)
	assert.Equal(t, 64, entries[1].Data["size"])
	assert.Equal(t, false, entries[1].Data["mapped"])
	assert.Equal(t, "leaked image", entries[2].Message)
}

func TestEnablePortabilityEnumeration(t *testing.T) {
	options := core1_0.InstanceCreateInfo{EnabledExtensionNames: []string{"VK_KHR_surface"}}
	enablePortabilityEnumeration(&options, map[string]*core1_0.ExtensionProperties{
		"VK_KHR_surface": {},
	})
	assert.Equal(t, []string{"VK_KHR_surface"}, options.EnabledExtensionNames)
	assert.Zero(t, options.Flags)

	enablePortabilityEnumeration(&options, map[string]*core1_0.ExtensionProperties{
		"VK_KHR_surface":                 {},
		"VK_KHR_portability_enumeration": {},
	})
	assert.Equal(t, []string{"VK_KHR_surface", "VK_KHR_portability_enumeration"}, options.EnabledExtensionNames)
	assert.Equal(t, core1_0.InstanceCreateFlags(1), options.Flags)
}
