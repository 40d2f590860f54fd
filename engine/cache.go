package engine

import "github.com/cockroachdb/errors"

// ResourceCache loads shader modules and textures once per path and keeps
// them until Destroy. Modules are cached per stage, so one vertex module can
// be paired with several fragment modules.
type ResourceCache struct {
	loadShader  func(path string) (ShaderModule, error)
	loadTexture func(path string) (*Texture2D, error)

	vertex   map[string]ShaderModule
	fragment map[string]ShaderModule
	shaders  map[[2]string]*Shader
	textures map[string]*Texture2D

	modules       []ShaderModule
	textureOrder  []*Texture2D
	destroyModule func(ShaderModule) error
}

// NewResourceCache returns an empty cache that loads through f.
func NewResourceCache(f Factory) *ResourceCache {
	return &ResourceCache{
		loadShader: func(path string) (ShaderModule, error) {
			return LoadShaderModule(f, path)
		},
		loadTexture: func(path string) (*Texture2D, error) {
			return NewTexture2D(f, path)
		},
		destroyModule: f.DestroyShaderModule,
		vertex:        map[string]ShaderModule{},
		fragment:      map[string]ShaderModule{},
		shaders:       map[[2]string]*Shader{},
		textures:      map[string]*Texture2D{},
	}
}

// GetShader returns the shader built from the given SPIR-V files, loading
// whichever stage has not been seen before.
func (c *ResourceCache) GetShader(vertPath, fragPath string) (*Shader, error) {
	key := [2]string{vertPath, fragPath}
	if shader, ok := c.shaders[key]; ok {
		return shader, nil
	}

	vert, err := c.module(c.vertex, vertPath)
	if err != nil {
		return nil, err
	}
	frag, err := c.module(c.fragment, fragPath)
	if err != nil {
		return nil, err
	}

	shader := &Shader{Vertex: vert, Fragment: frag}
	c.shaders[key] = shader
	return shader, nil
}

func (c *ResourceCache) module(stage map[string]ShaderModule, path string) (ShaderModule, error) {
	if module, ok := stage[path]; ok {
		return module, nil
	}

	module, err := c.loadShader(path)
	if err != nil {
		return ShaderModule{}, err
	}
	stage[path] = module
	c.modules = append(c.modules, module)
	return module, nil
}

// GetTexture2D returns the texture loaded from path.
func (c *ResourceCache) GetTexture2D(path string) (*Texture2D, error) {
	if texture, ok := c.textures[path]; ok {
		return texture, nil
	}

	texture, err := c.loadTexture(path)
	if err != nil {
		return nil, err
	}
	c.textures[path] = texture
	c.textureOrder = append(c.textureOrder, texture)
	return texture, nil
}

// Len returns the number of cached shader modules and textures.
func (c *ResourceCache) Len() (modules, textures int) {
	return len(c.modules), len(c.textureOrder)
}

// Destroy releases every texture and then every shader module, each in load
// order, and empties the cache.
func (c *ResourceCache) Destroy() error {
	var err error
	for _, texture := range c.textureOrder {
		err = errors.CombineErrors(err, texture.Destroy())
	}
	for _, module := range c.modules {
		err = errors.CombineErrors(err, c.destroyModule(module))
	}

	c.modules = nil
	c.textureOrder = nil
	c.vertex = map[string]ShaderModule{}
	c.fragment = map[string]ShaderModule{}
	c.shaders = map[[2]string]*Shader{}
	c.textures = map[string]*Texture2D{}
	return err
}
