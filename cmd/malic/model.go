package main

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/malicengine/malic/engine"
)

// mesh is indexed geometry with one draw range per material, in the order
// materials first appear in the file. Materials and Textures are parallel
// to Draws; Textures holds each material's diffuse map, or "".
type mesh struct {
	Vertices  []engine.Vertex
	Indices   []uint16
	Draws     []engine.DrawRange
	Materials []string
	Textures  []string
}

// diffuseMap returns the first diffuse map any material names.
func (m mesh) diffuseMap() string {
	for _, texture := range m.Textures {
		if texture != "" {
			return texture
		}
	}
	return ""
}

// loadModel reads an OBJ file and the .mtl file next to it, if any.
func loadModel(path string) (mesh, error) {
	meshFile, err := os.Open(path)
	if err != nil {
		return mesh{}, errors.Wrapf(err, "open model %q", path)
	}
	defer meshFile.Close()

	var matReader io.Reader = strings.NewReader("")
	matPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".mtl"
	if matFile, err := os.Open(matPath); err == nil {
		defer matFile.Close()
		matReader = matFile
	}

	m, err := decodeModel(meshFile, matReader)
	if err != nil {
		return mesh{}, errors.Wrapf(err, "model %q", path)
	}

	// map_Kd paths are relative to the model
	for i, texture := range m.Textures {
		if texture != "" && !filepath.IsAbs(texture) {
			m.Textures[i] = filepath.Join(filepath.Dir(path), texture)
		}
	}
	return m, nil
}

type vertexKey struct {
	position, uv int
}

type meshBuilder struct {
	decoder *obj.Decoder
	unique  map[vertexKey]uint16
	mesh    mesh
}

func (b *meshBuilder) addVertex(face obj.Face, faceIndex int) (uint16, error) {
	key := vertexKey{position: face.Vertices[faceIndex], uv: face.Uvs[faceIndex]}
	if index, exists := b.unique[key]; exists {
		return index, nil
	}

	if len(b.mesh.Vertices) > math.MaxUint16 {
		return 0, errors.Newf("more than %d unique vertices", math.MaxUint16+1)
	}

	vertInd := key.position
	if vertInd < 0 || vertInd*3+2 >= len(b.decoder.Vertices) {
		return 0, errors.Newf("vertex index %d out of range", vertInd)
	}
	vert := engine.Vertex{Position: mgl32.Vec3{
		b.decoder.Vertices[vertInd*3],
		b.decoder.Vertices[vertInd*3+1],
		b.decoder.Vertices[vertInd*3+2],
	}, Color: mgl32.Vec3{1, 1, 1}}

	// faces without texture coordinates sample the texture's origin
	if uvInd := key.uv; uvInd >= 0 && uvInd*2+1 < len(b.decoder.Uvs) {
		vert.UV = mgl32.Vec2{
			b.decoder.Uvs[uvInd*2],
			1.0 - b.decoder.Uvs[uvInd*2+1],
		}
	}

	index := uint16(len(b.mesh.Vertices))
	b.mesh.Vertices = append(b.mesh.Vertices, vert)
	b.unique[key] = index
	return index, nil
}

func decodeModel(meshReader, matReader io.Reader) (mesh, error) {
	decoder, err := obj.DecodeReader(meshReader, matReader)
	if err != nil {
		return mesh{}, err
	}

	b := &meshBuilder{decoder: decoder, unique: map[vertexKey]uint16{}}
	byMaterial := map[string][]uint16{}
	var order []string

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			if _, seen := byMaterial[face.Material]; !seen {
				byMaterial[face.Material] = nil
				order = append(order, face.Material)
			}

			// triangulate as a fan around the first vertex
			for i := 2; i < len(face.Vertices); i++ {
				for _, corner := range []int{0, i - 1, i} {
					index, err := b.addVertex(face, corner)
					if err != nil {
						return mesh{}, err
					}
					byMaterial[face.Material] = append(byMaterial[face.Material], index)
				}
			}
		}
	}

	for _, material := range order {
		indices := byMaterial[material]
		if len(indices) == 0 {
			continue
		}
		b.mesh.Draws = append(b.mesh.Draws, engine.DrawRange{
			IndexOffset: len(b.mesh.Indices),
			IndexCount:  len(indices),
		})
		b.mesh.Indices = append(b.mesh.Indices, indices...)
		b.mesh.Materials = append(b.mesh.Materials, material)

		var texture string
		if mat, ok := decoder.Materials[material]; ok && mat != nil {
			texture = mat.MapKd
		}
		b.mesh.Textures = append(b.mesh.Textures, texture)
	}

	if len(b.mesh.Indices) == 0 {
		return mesh{}, errors.New("model has no faces")
	}
	return b.mesh, nil
}
