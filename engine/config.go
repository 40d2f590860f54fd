package engine

import (
	"unsafe"

	"github.com/malicengine/malic/window"
	"github.com/sirupsen/logrus"
	"github.com/vkngwrapper/extensions/khr_swapchain"
)

// MaxFramesInFlight bounds how many frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

// MaxDescriptorSets is the number of descriptor sets allocated from the
// engine's pool: one per frame in flight.
const MaxDescriptorSets = MaxFramesInFlight

// MaxPushConstantsSize is the largest push-constant block a pipeline may declare.
const MaxPushConstantsSize = 128

const (
	VertexAttribPosition = 0
	VertexAttribColor    = 1
	VertexAttribUV       = 2
)

// vertexInputDynamicState is requested when the device offers it; it is not
// required.
const vertexInputDynamicState = "VK_EXT_vertex_input_dynamic_state"

var ValidationLayers = []string{"VK_LAYER_KHRONOS_validation"}
var DeviceExtensions = []string{khr_swapchain.ExtensionName}
var OptionalDeviceExtensions = []string{vertexInputDynamicState}

// PushConstants is the per-draw block the default shaders read.
type PushConstants struct {
	DrawIndex uint32
	_         [3]uint32
}

// Fails to compile if PushConstants outgrows the budget.
var _ = [MaxPushConstantsSize - unsafe.Sizeof(PushConstants{})]struct{}{}

// Config is the engine configuration.
type Config struct {
	Window           window.Config
	EnableValidation bool
	ApplicationName  string

	// Logger receives engine logs; defaults to the standard logrus logger.
	Logger *logrus.Entry
}

// DefaultConfig returns a configuration for an 800x600 window with
// validation layers enabled.
func DefaultConfig() Config {
	return Config{
		Window:           window.DefaultConfig(),
		EnableValidation: true,
		ApplicationName:  "Malic",
	}
}

func (c Config) logger() *logrus.Entry {
	if c.Logger != nil {
		return c.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger()).WithField("component", "malic")
}
