package engine

import "github.com/cockroachdb/errors"

// swapchainStatus is the outcome of an acquire or present that did not fail
// outright.
type swapchainStatus int

const (
	swapchainOK swapchainStatus = iota
	swapchainSuboptimal
	swapchainOutOfDate
)

func (s swapchainStatus) String() string {
	switch s {
	case swapchainOK:
		return "ok"
	case swapchainSuboptimal:
		return "suboptimal"
	case swapchainOutOfDate:
		return "out of date"
	default:
		return "unknown"
	}
}

// frameBackend is the GPU side of one Present call. frame is always the
// frame-in-flight index and image the swapchain image index.
type frameBackend interface {
	waitForFrameFence(frame int) error
	acquireImage(frame int) (image int, status swapchainStatus, err error)
	resetFrameFence(frame int) error
	recordFrame(frame, image int) error
	submitFrame(frame, image int) error
	presentImage(frame, image int) (swapchainStatus, error)
	// waitForSurface blocks while the window is minimized and reports
	// whether the surface has a non-zero size to build a swapchain for.
	waitForSurface() bool
	recreateSwapchain() error
}

// presenter drives the per-frame state machine: wait for the frame's fence,
// acquire an image, record, submit, present, advance.
type presenter struct {
	backend frameBackend
	frame   int
	resized bool
}

func (p *presenter) currentFrame() int {
	return p.frame
}

// requestResize makes the next successful present rebuild the swapchain.
func (p *presenter) requestResize() {
	p.resized = true
}

// present renders and presents one frame. An out-of-date swapchain at
// acquire rebuilds the swapchain and returns without rendering or advancing.
func (p *presenter) present() error {
	b := p.backend

	if err := b.waitForFrameFence(p.frame); err != nil {
		return errors.Wrapf(err, "wait for frame %d", p.frame)
	}

	image, status, err := b.acquireImage(p.frame)
	if err != nil {
		return errors.Wrap(err, "acquire swapchain image")
	}
	if status == swapchainOutOfDate {
		return p.rebuild()
	}

	// only reset once work is certain to be submitted, or the next wait on
	// this fence never returns
	if err := b.resetFrameFence(p.frame); err != nil {
		return err
	}
	if err := b.recordFrame(p.frame, image); err != nil {
		return errors.Wrapf(err, "record frame %d", p.frame)
	}
	if err := b.submitFrame(p.frame, image); err != nil {
		return errors.Wrapf(err, "submit frame %d", p.frame)
	}

	status, err = b.presentImage(p.frame, image)
	if err != nil {
		return errors.Wrapf(err, "present image %d", image)
	}

	p.frame = (p.frame + 1) % MaxFramesInFlight

	if status != swapchainOK || p.resized {
		return p.rebuild()
	}
	return nil
}

// rebuild recreates the swapchain once the window has a drawable size. A
// window closed while minimized never gets one; the rebuild stays pending
// and the swapchain is left untouched.
func (p *presenter) rebuild() error {
	if !p.backend.waitForSurface() {
		p.resized = true
		return nil
	}
	p.resized = false
	return p.backend.recreateSwapchain()
}
