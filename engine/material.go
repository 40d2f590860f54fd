package engine

// Material pairs a shader with an albedo texture. Neither is owned: the
// shader belongs to the ResourceCache and the texture to whoever created it.
type Material struct {
	shader *Shader
	albedo *Texture2D
}

func NewMaterial(shader *Shader, albedo *Texture2D) *Material {
	return &Material{shader: shader, albedo: albedo}
}

func (m *Material) Shader() *Shader        { return m.shader }
func (m *Material) Albedo() *Texture2D     { return m.albedo }
func (m *Material) SetShader(s *Shader)    { m.shader = s }
func (m *Material) SetAlbedo(t *Texture2D) { m.albedo = t }

// IsUsable requires both the shader and the albedo to be usable.
func (m *Material) IsUsable() bool {
	return m != nil && m.shader.IsUsable() && m.albedo.IsUsable()
}
