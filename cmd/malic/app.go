package main

import (
	"image/color"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/malicengine/malic/engine"
	"github.com/sirupsen/logrus"
)

const (
	uniformBinding = 0
	albedoBinding  = 1
)

// uniforms is the per-frame block the default vertex shader reads.
type uniforms struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

// appState is the client context carried by the engine.
type appState struct {
	settings settings
	log      *logrus.Entry

	camera     Camera
	controller *controller

	geometry *engine.GeometryBuffer
	uniforms *engine.UniformBuffer
	// placeholder is set when the configured texture could not be loaded;
	// cached textures belong to the engine.
	placeholder *engine.Texture2D
}

func newAppState(s settings, log *logrus.Entry) *appState {
	camera := newCamera()
	return &appState{
		settings:   s,
		log:        log,
		camera:     camera,
		controller: newController(camera),
	}
}

// quadScene is two textured quads one unit apart along Z.
func quadScene() mesh {
	quad := []engine.Vertex{
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{1, 0, 0}, UV: mgl32.Vec2{0, 0}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 1, 0}, UV: mgl32.Vec2{1, 0}},
		{Position: mgl32.Vec3{0.5, -0.5, 0}, Color: mgl32.Vec3{0, 0, 1}, UV: mgl32.Vec2{1, 1}},
		{Position: mgl32.Vec3{-0.5, -0.5, 0}, Color: mgl32.Vec3{1, 1, 1}, UV: mgl32.Vec2{0, 1}},
	}

	var vertices []engine.Vertex
	vertices = append(vertices, quad...)
	for _, v := range quad {
		v.Position[2] = 1
		vertices = append(vertices, v)
	}

	return mesh{
		Vertices: vertices,
		Indices: []uint16{
			0, 1, 2,
			0, 2, 3,
			4, 5, 6,
			4, 6, 7,
		},
	}
}

func (s *appState) scene() (mesh, error) {
	if s.settings.Model == "" {
		return quadScene(), nil
	}
	return loadModel(s.settings.Model)
}

// texturePath picks the albedo for a scene: the model's own diffuse map
// when it names one, the configured texture otherwise. One texture is bound
// for every draw.
func (s *appState) texturePath(scene mesh) string {
	if path := scene.diffuseMap(); path != "" {
		return path
	}
	return s.settings.Texture
}

func (s *appState) albedo(e *engine.Engine[appState], path string) (*engine.Texture2D, error) {
	texture, err := e.NewTexture2D(path)
	if err == nil {
		return texture, nil
	}

	s.log.WithError(err).WithField("path", path).Warn("using placeholder texture")
	s.placeholder, err = engine.NewTexture2DFromImage(e.Device(), engine.SolidImage(1, 1, color.RGBA{R: 255, G: 255, B: 255, A: 255}))
	return s.placeholder, err
}

func entry(e *engine.Engine[appState]) error {
	s := e.Context()
	e.HideCursor()

	scene, err := s.scene()
	if err != nil {
		return err
	}
	s.geometry, err = e.NewGeometryBuffer(0, scene.Vertices, scene.Indices)
	if err != nil {
		return errors.Wrap(err, "scene geometry")
	}

	shader, err := e.NewShader(s.settings.vertexShader(), s.settings.fragmentShader())
	if err != nil {
		return err
	}
	texture, err := s.albedo(e, s.texturePath(scene))
	if err != nil {
		return err
	}

	if err := e.CreateDescriptorSets(engine.DefaultDescriptorInfos()); err != nil {
		return err
	}

	s.uniforms, err = e.NewUniformBuffer(uniformBinding, int(unsafe.Sizeof(uniforms{})))
	if err != nil {
		return err
	}

	render := engine.RenderResources{
		Material: engine.NewMaterial(shader, texture),
		Geometry: s.geometry,
		Draws:    scene.Draws,
	}
	pipeline := render.Pipeline(albedoBinding)
	pipeline.PushConstantSize = int(unsafe.Sizeof(engine.PushConstants{}))

	s.log.WithFields(logrus.Fields{
		"vertices": s.geometry.VerticesCount(),
		"indices":  s.geometry.IndicesCount(),
		"draws":    len(scene.Draws),
	}).Info("scene loaded")
	return e.CreateGraphicsPipeline(pipeline)
}

func update(e *engine.Engine[appState], dt float32) error {
	s := e.Context()
	s.controller.update(e, &s.camera, dt)

	info := e.WindowInfo()
	aspect := float32(info.Width) / float32(info.Height)

	return s.uniforms.Update(uniforms{
		Model: mgl32.Ident4(),
		View:  s.camera.View(),
		Proj:  s.camera.Projection(aspect),
	})
}

// destroy releases what the client created outside the resource cache.
func (s *appState) destroy() error {
	var err error
	if s.uniforms != nil {
		err = errors.CombineErrors(err, s.uniforms.Destroy())
	}
	if s.geometry != nil {
		err = errors.CombineErrors(err, s.geometry.Destroy())
	}
	if s.placeholder != nil {
		err = errors.CombineErrors(err, s.placeholder.Destroy())
	}
	return err
}
