// Package window wraps an SDL2 window with the small amount of input and
// resize bookkeeping the renderer needs.
package window

import (
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"
)

// Config describes the window to open.
type Config struct {
	Title     string
	Width     int
	Height    int
	Resizable bool
}

// DefaultConfig returns an 800x600 resizable window titled "Malic".
func DefaultConfig() Config {
	return Config{
		Title:     "Malic",
		Width:     800,
		Height:    600,
		Resizable: true,
	}
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window: invalid size %dx%d", c.Width, c.Height)
	}
	return nil
}

// Window is an open SDL window. It must only be used from the thread that
// opened it.
type Window struct {
	handle *sdl.Window
	config Config
	log    *logrus.Entry

	shouldClose  bool
	resized      bool
	cursorHidden bool
	cursorX      float32
	cursorY      float32
}

// Open initializes SDL video and creates a Vulkan-capable window.
func Open(config Config, log *logrus.Entry) (*Window, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return nil, errors.Wrap(err, "window: sdl init")
	}

	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if config.Resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	handle, err := sdl.CreateWindow(config.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(config.Width), int32(config.Height), flags)
	if err != nil {
		sdl.Quit()
		return nil, errors.Wrapf(err, "window: create %q", config.Title)
	}

	log.WithFields(logrus.Fields{"width": config.Width, "height": config.Height}).Debug("window opened")

	return &Window{
		handle: handle,
		config: config,
		log:    log,
	}, nil
}

// SDL exposes the underlying window for surface creation.
func (w *Window) SDL() *sdl.Window {
	return w.handle
}

// Config returns the configuration the window was opened with, with Width
// and Height updated to the current window size.
func (w *Window) Config() Config {
	c := w.config
	width, height := w.handle.GetSize()
	if width > 0 && height > 0 {
		c.Width, c.Height = int(width), int(height)
	}
	return c
}

// PollEvents drains the SDL event queue. It records close requests,
// framebuffer resizes and cursor motion.
func (w *Window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handleEvent(event)
	}
}

func (w *Window) handleEvent(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		w.shouldClose = true
	case *sdl.KeyboardEvent:
		if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
			w.shouldClose = true
		}
	case *sdl.MouseMotionEvent:
		if w.cursorHidden {
			w.cursorX += float32(e.XRel)
			w.cursorY += float32(e.YRel)
		} else {
			w.cursorX, w.cursorY = float32(e.X), float32(e.Y)
		}
	case *sdl.WindowEvent:
		switch e.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			w.resized = true
			w.log.WithFields(logrus.Fields{"width": e.Data1, "height": e.Data2}).Debug("window resized")
		case sdl.WINDOWEVENT_CLOSE:
			w.shouldClose = true
		}
	}
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool {
	return w.shouldClose
}

// RequestClose makes ShouldClose report true.
func (w *Window) RequestClose() {
	w.shouldClose = true
}

// ConsumeResize reports whether the framebuffer was resized since the last
// call and clears the flag.
func (w *Window) ConsumeResize() bool {
	resized := w.resized
	w.resized = false
	return resized
}

// DrawableSize returns the framebuffer size in pixels.
func (w *Window) DrawableSize() (int, int) {
	width, height := w.handle.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *Window) minimized() bool {
	if (w.handle.GetFlags() & sdl.WINDOW_MINIMIZED) != 0 {
		return true
	}
	width, height := w.DrawableSize()
	return width == 0 || height == 0
}

// WaitWhileMinimized blocks on the event queue until the window has a
// non-zero drawable size again or is asked to close.
func (w *Window) WaitWhileMinimized() {
	for w.minimized() && !w.shouldClose {
		if event := sdl.WaitEvent(); event != nil {
			w.handleEvent(event)
		}
	}
}

// IsKeyPressed reports whether the key at the given scancode is held down.
func (w *Window) IsKeyPressed(code sdl.Scancode) bool {
	state := sdl.GetKeyboardState()
	if int(code) < 0 || int(code) >= len(state) {
		return false
	}
	return state[code] != 0
}

// CursorPos returns the cursor position in pixels, Y down. While the cursor
// is hidden the position is virtual and unbounded.
func (w *Window) CursorPos() (float32, float32) {
	return w.cursorX, w.cursorY
}

// SetCursorHidden hides and captures the cursor, or releases it.
func (w *Window) SetCursorHidden(hidden bool) {
	if hidden == w.cursorHidden {
		return
	}
	w.cursorHidden = hidden
	sdl.SetRelativeMouseMode(hidden)
}

func (w *Window) CursorHidden() bool {
	return w.cursorHidden
}

// Destroy closes the window and shuts SDL down.
func (w *Window) Destroy() {
	if w.handle != nil {
		w.handle.Destroy()
		w.handle = nil
	}
	sdl.Quit()
}
