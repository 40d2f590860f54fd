package main

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// settings are the client's overrides, read from MALIC_* variables.
type settings struct {
	Title      string
	Width      int
	Height     int
	Validation bool
	LogLevel   logrus.Level

	// Model is an optional OBJ file drawn instead of the built-in quads.
	Model     string
	Texture   string
	ShaderDir string
}

func defaultSettings() settings {
	return settings{
		Title:      "Malic Engine",
		Width:      800,
		Height:     600,
		Validation: true,
		LogLevel:   logrus.InfoLevel,
		Texture:    filepath.Join("resources", "images", "texture.png"),
		ShaderDir:  filepath.Join("resources", "shaders"),
	}
}

func (s settings) vertexShader() string {
	return filepath.Join(s.ShaderDir, "default_vert.spv")
}

func (s settings) fragmentShader() string {
	return filepath.Join(s.ShaderDir, "default_frag.spv")
}

// loadSettings merges the dotenv file at path into the environment, without
// overriding variables already set, and parses the result. A missing file
// is not an error.
func loadSettings(path string) (settings, error) {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return settings{}, errors.Wrapf(err, "load %s", path)
	}
	return parseSettings(os.LookupEnv)
}

func parseSettings(lookup func(key string) (string, bool)) (settings, error) {
	s := defaultSettings()

	if v, ok := lookup("MALIC_TITLE"); ok && v != "" {
		s.Title = v
	}
	if v, ok := lookup("MALIC_MODEL"); ok {
		s.Model = v
	}
	if v, ok := lookup("MALIC_TEXTURE"); ok && v != "" {
		s.Texture = v
	}
	if v, ok := lookup("MALIC_SHADER_DIR"); ok && v != "" {
		s.ShaderDir = v
	}

	for key, dst := range map[string]*int{"MALIC_WIDTH": &s.Width, "MALIC_HEIGHT": &s.Height} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return settings{}, errors.Newf("%s must be a positive integer, got %q", key, v)
		}
		*dst = n
	}

	if v, ok := lookup("MALIC_VALIDATION"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return settings{}, errors.Wrapf(err, "MALIC_VALIDATION")
		}
		s.Validation = enabled
	}

	if v, ok := lookup("MALIC_LOG_LEVEL"); ok && v != "" {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return settings{}, errors.Wrapf(err, "MALIC_LOG_LEVEL")
		}
		s.LogLevel = level
	}

	return s, nil
}
