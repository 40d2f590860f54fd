package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veandco/go-sdl2/sdl"
)

type appState struct {
	frames int
}

func TestEngineBeforeRun(t *testing.T) {
	state := &appState{frames: 3}
	config := DefaultConfig()
	config.Window.Title = "before run"

	e := New(config, state)

	assert.Same(t, state, e.Context())
	assert.Equal(t, "before run", e.WindowInfo().Title)
	assert.Equal(t, 800, e.WindowInfo().Width)
	assert.False(t, e.IsKeyPressed(sdl.SCANCODE_W))
	assert.Equal(t, mgl32.Vec2{}, e.CursorPos())
	assert.Nil(t, e.Resources())
	assert.NotNil(t, e.Device())
	e.HideCursor()

	_, err := e.NewShader("a.vert.spv", "a.frag.spv")
	assert.True(t, errors.Is(err, ErrNotInitialized))
	_, err = e.NewTexture2D("a.png")
	assert.True(t, errors.Is(err, ErrNotInitialized))
	assert.True(t, errors.Is(e.CreateDescriptorSets(DefaultDescriptorInfos()), ErrNotInitialized))
}

func TestEngineShutDownIsIdempotent(t *testing.T) {
	e := New[appState](DefaultConfig(), nil)
	require.NoError(t, e.ShutDown())
	require.NoError(t, e.ShutDown())
	assert.Nil(t, e.Context())
}
