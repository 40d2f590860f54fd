package main

import (
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dotenvLookup(t *testing.T, contents string) func(string) (string, bool) {
	env, err := godotenv.Parse(strings.NewReader(contents))
	require.NoError(t, err)
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestParseSettingsDefaults(t *testing.T) {
	s, err := parseSettings(dotenvLookup(t, ""))
	require.NoError(t, err)
	assert.Equal(t, defaultSettings(), s)
	assert.Equal(t, 800, s.Width)
	assert.True(t, s.Validation)
	assert.Empty(t, s.Model)
}

func TestParseSettingsOverrides(t *testing.T) {
	s, err := parseSettings(dotenvLookup(t, `
MALIC_TITLE="Viking Room"
MALIC_WIDTH=1280
MALIC_HEIGHT=720
MALIC_VALIDATION=false
MALIC_LOG_LEVEL=debug
MALIC_MODEL=meshes/viking_room.obj
MALIC_SHADER_DIR=build/shaders
`))
	require.NoError(t, err)

	assert.Equal(t, "Viking Room", s.Title)
	assert.Equal(t, 1280, s.Width)
	assert.Equal(t, 720, s.Height)
	assert.False(t, s.Validation)
	assert.Equal(t, logrus.DebugLevel, s.LogLevel)
	assert.Equal(t, "meshes/viking_room.obj", s.Model)
	assert.Equal(t, "build/shaders/default_vert.spv", s.vertexShader())
	assert.Equal(t, "build/shaders/default_frag.spv", s.fragmentShader())
}

func TestParseSettingsRejectsBadValues(t *testing.T) {
	for _, contents := range []string{
		"MALIC_WIDTH=wide",
		"MALIC_HEIGHT=-1",
		"MALIC_VALIDATION=maybe",
		"MALIC_LOG_LEVEL=loud",
	} {
		_, err := parseSettings(dotenvLookup(t, contents))
		assert.Error(t, err, contents)
	}
}

func TestLoadSettingsWithoutFile(t *testing.T) {
	_, err := loadSettings("does-not-exist.env")
	assert.NoError(t, err)
}
