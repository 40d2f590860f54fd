package engine

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/common"
)

const spirvMagic = 0x07230203

// Shader is the set of stage modules one pipeline is built from. Geometry
// is optional. The modules are owned by the ResourceCache that loaded them.
type Shader struct {
	Vertex   ShaderModule
	Fragment ShaderModule
	Geometry ShaderModule
}

// IsUsable reports whether both required stages are present.
func (s *Shader) IsUsable() bool {
	return s != nil && !s.Vertex.IsEmpty() && !s.Fragment.IsEmpty()
}

// LoadShaderModule reads a compiled SPIR-V file and creates a module from it.
func LoadShaderModule(f Factory, path string) (ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return ShaderModule{}, errors.Wrapf(err, "read shader %q", path)
	}
	if _, err := spirvWords(code); err != nil {
		return ShaderModule{}, errors.Wrapf(err, "shader %q", path)
	}

	module, err := f.CreateShaderModule(code)
	if err != nil {
		return ShaderModule{}, errors.Wrapf(err, "shader %q", path)
	}
	return module, nil
}

// spirvWords reinterprets SPIR-V bytes as the 32-bit words Vulkan consumes.
func spirvWords(code []byte) ([]uint32, error) {
	if len(code) < 4 || len(code)%4 != 0 {
		return nil, errors.Newf("SPIR-V length %d is not a positive multiple of 4", len(code))
	}

	words := make([]uint32, len(code)/4)
	for i := range words {
		words[i] = common.ByteOrder.Uint32(code[i*4:])
	}
	if words[0] != spirvMagic {
		return nil, errors.Newf("bad SPIR-V magic %#08x", words[0])
	}
	return words, nil
}
