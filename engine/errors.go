package engine

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
)

var (
	// ErrInvalidHandle marks operations given an empty or already released
	// resource handle.
	ErrInvalidHandle = errors.New("invalid resource handle")

	// ErrUnsupportedTransition marks image layout transitions the engine has
	// no barrier for.
	ErrUnsupportedTransition = errors.New("unsupported image layout transition")

	// ErrNoMemoryType is returned when no device memory type satisfies an
	// allocation request.
	ErrNoMemoryType = errors.New("no suitable device memory type")

	// ErrUnsupportedDevice is returned when the host lacks a required
	// capability: validation layers, device extensions, a suitable GPU,
	// anisotropic sampling or a complete set of queue families.
	ErrUnsupportedDevice = errors.New("unsupported device")

	// ErrNotInitialized is returned when the device manager is used before
	// Init or after ShutDown.
	ErrNotInitialized = errors.New("device manager not initialized")
)

// invalidHandle reports a precondition violation on a resource handle.
func invalidHandle(op string, kind string) error {
	return errors.Mark(errors.AssertionFailedf("%s: %s handle is empty or already released", op, kind), ErrInvalidHandle)
}

// vkCheck wraps a failed Vulkan call with the operation that issued it.
func vkCheck(op string, res common.VkResult, err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "%s (%s)", op, res)
}
