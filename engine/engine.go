// Package engine is a thin renderer over Vulkan: a device manager that hands
// out GPU resources as arena handles, the resource types built on them, a
// path-keyed resource cache and a frame loop that drives a client's entry
// and update callbacks.
package engine

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/malicengine/malic/window"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// fpsInterval is how often the frame loop logs its frame rate.
const fpsInterval = time.Second

// Engine owns the window, the device manager and the resource cache, and
// carries a client context of type T between the callbacks.
type Engine[T any] struct {
	config Config
	log    *logrus.Entry
	ctx    *T

	window    *window.Window
	device    *Device
	resources *ResourceCache
}

// New returns an engine that has not opened its window yet. ctx is handed
// back unchanged through Context.
func New[T any](config Config, ctx *T) *Engine[T] {
	return &Engine[T]{
		config: config,
		log:    config.logger(),
		ctx:    ctx,
		device: NewDevice(config),
	}
}

func (e *Engine[T]) Context() *T { return e.ctx }

// Device is the Factory resources are created through.
func (e *Engine[T]) Device() *Device { return e.device }

// Resources is nil until Run has initialized the device.
func (e *Engine[T]) Resources() *ResourceCache { return e.resources }

// WindowInfo returns the window configuration, with the current size once
// the window is open.
func (e *Engine[T]) WindowInfo() window.Config {
	if e.window == nil {
		return e.config.Window
	}
	return e.window.Config()
}

func (e *Engine[T]) IsKeyPressed(code sdl.Scancode) bool {
	return e.window != nil && e.window.IsKeyPressed(code)
}

// CursorPos is the cursor position in window pixels, Y down.
func (e *Engine[T]) CursorPos() mgl32.Vec2 {
	if e.window == nil {
		return mgl32.Vec2{}
	}
	x, y := e.window.CursorPos()
	return mgl32.Vec2{x, y}
}

// HideCursor toggles between a visible cursor and a hidden, captured one.
func (e *Engine[T]) HideCursor() {
	if e.window != nil {
		e.window.SetCursorHidden(!e.window.CursorHidden())
	}
}

func (e *Engine[T]) NewGeometryBuffer(binding int, vertices []Vertex, indices []uint16) (*GeometryBuffer, error) {
	return NewGeometryBuffer(e.device, binding, vertices, indices)
}

// NewShader loads a vertex and fragment SPIR-V pair through the cache.
func (e *Engine[T]) NewShader(vertPath, fragPath string) (*Shader, error) {
	if e.resources == nil {
		return nil, errors.Mark(errors.AssertionFailedf("shader before Run"), ErrNotInitialized)
	}
	return e.resources.GetShader(vertPath, fragPath)
}

// NewTexture2D loads an image file through the cache.
func (e *Engine[T]) NewTexture2D(path string) (*Texture2D, error) {
	if e.resources == nil {
		return nil, errors.Mark(errors.AssertionFailedf("texture before Run"), ErrNotInitialized)
	}
	return e.resources.GetTexture2D(path)
}

func (e *Engine[T]) NewUniformBuffer(binding, size int) (*UniformBuffer, error) {
	return NewUniformBuffer(e.device, binding, size)
}

func (e *Engine[T]) CreateDescriptorSets(infos []DescriptorInfo) error {
	return e.device.CreateDescriptorSets(infos)
}

func (e *Engine[T]) CreateGraphicsPipeline(res PipelineResources) error {
	return e.device.CreateGraphicsPipeline(res)
}

// Run opens the window, initializes the device, calls entry once and then
// calls update and presents a frame until the window is closed. dt is the
// time since the previous update in seconds.
func (e *Engine[T]) Run(entry func(e *Engine[T]) error, update func(e *Engine[T], dt float32) error) error {
	if e.window != nil {
		return errors.AssertionFailedf("engine is already running")
	}

	w, err := window.Open(e.config.Window, e.log)
	if err != nil {
		return err
	}
	e.window = w

	if err := e.device.Init(w); err != nil {
		return errors.Wrap(err, "init device")
	}
	e.resources = NewResourceCache(e.device)

	if err := entry(e); err != nil {
		return errors.Wrap(err, "entry")
	}

	err = e.loop(update)
	return errors.CombineErrors(err, e.device.WaitIdle())
}

func (e *Engine[T]) loop(update func(e *Engine[T], dt float32) error) error {
	last := hrtime.Now()
	lastReport := last
	frames := 0

	for !e.window.ShouldClose() {
		now := hrtime.Now()
		dt := float32((now - last).Seconds())
		last = now

		if err := update(e, dt); err != nil {
			return errors.Wrap(err, "update")
		}

		e.window.PollEvents()
		if e.window.ConsumeResize() {
			e.device.ResizeFramebuffer()
		}

		if err := e.device.Present(); err != nil {
			return err
		}

		frames++
		if elapsed := now - lastReport; elapsed >= fpsInterval {
			e.log.WithField("fps", float64(frames)/elapsed.Seconds()).Debug("frame rate")
			frames = 0
			lastReport = now
		}
	}
	return nil
}

// ShutDown releases the resource cache, the device and the window, in that
// order. Calling it again is a no-op.
func (e *Engine[T]) ShutDown() error {
	var err error
	if e.resources != nil {
		err = e.resources.Destroy()
		e.resources = nil
	}
	err = errors.CombineErrors(err, e.device.ShutDown())
	if e.window != nil {
		e.window.Destroy()
		e.window = nil
	}
	return err
}
