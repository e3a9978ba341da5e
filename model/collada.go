package model

import (
	"errors"
	"fmt"
	"sync"

	"github.com/devblok/koruasset/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

// Errors produced while importing a Collada object.
var (
	ErrNoPositions = errors.New("model: mesh has no position source")
	ErrBadIndex    = errors.New("model: triangle index out of range")
)

var defaultColor = glm.Vec4{1.0, 1.0, 1.0, 1.0}

// ImportColladaObject reads given file and converts Collada object to
// engine's internal object. Only the first geometry is imported.
// When the mesh carries no normals, flat normals are computed per triangle.
func ImportColladaObject(fileContents []byte) (*ColladaObject, error) {
	doc, err := collada.Decode(fileContents)
	if err != nil {
		return nil, err
	}

	mesh := &doc.Geometries[0].Mesh
	tris := &mesh.Triangles
	stride := tris.Stride()
	if stride == 0 {
		return nil, ErrNoPositions
	}

	vertexInput, ok := tris.Input("VERTEX")
	if !ok {
		return nil, ErrNoPositions
	}
	positions, err := positionSource(mesh, vertexInput.Source)
	if err != nil {
		return nil, err
	}

	var normals, uvs *collada.Source
	normalInput, hasNormals := tris.Input("NORMAL")
	if hasNormals {
		normals, _ = mesh.SourceByID(normalInput.Source)
		hasNormals = normals != nil
	}
	uvInput, hasUV := tris.Input("TEXCOORD")
	if hasUV {
		uvs, _ = mesh.SourceByID(uvInput.Source)
		hasUV = uvs != nil
	}

	count := len(tris.Index) / stride
	vertices := make([]Vertex, 0, count)
	for idx := 0; idx < count; idx++ {
		indices := tris.Index[stride*idx : stride*idx+stride]

		var vert Vertex
		p, err := element(positions, indices[vertexInput.Offset], 3)
		if err != nil {
			return nil, err
		}
		vert.Pos = glm.Vec3{p[0], p[1], p[2]}
		if hasNormals {
			n, err := element(normals, indices[normalInput.Offset], 3)
			if err != nil {
				return nil, err
			}
			vert.Normal = glm.Vec3{n[0], n[1], n[2]}
		}
		if hasUV {
			uv, err := element(uvs, indices[uvInput.Offset], 2)
			if err != nil {
				return nil, err
			}
			vert.UV = glm.Vec2{uv[0], uv[1]}
		}
		vert.Color = defaultColor
		vertices = append(vertices, vert)
	}

	if !hasNormals {
		computeFlatNormals(vertices)
	}

	var images []string
	for _, img := range doc.Images {
		if img.InitFrom != "" {
			images = append(images, img.InitFrom)
		}
	}

	return &ColladaObject{
		name:     doc.Geometries[0].Name,
		position: glm.Ident4(),
		rotation: glm.Ident4(),
		vertices: vertices,
		images:   images,
	}, nil
}

// positionSource resolves the VERTEX input, which usually points
// at the vertices element rather than a source.
func positionSource(mesh *collada.Mesh, ref string) (*collada.Source, error) {
	if s, ok := mesh.SourceByID(ref); ok {
		return s, nil
	}
	for _, in := range mesh.Vertices.Inputs {
		if in.Semantic == "POSITION" {
			if s, ok := mesh.SourceByID(in.Source); ok {
				return s, nil
			}
		}
	}
	return nil, ErrNoPositions
}

func element(s *collada.Source, index, size int) ([]float32, error) {
	start := index * s.Stride()
	if index < 0 || start+size > len(s.Floats.Data) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrBadIndex, s.ID, index)
	}
	return s.Floats.Data[start : start+size], nil
}

func computeFlatNormals(vertices []Vertex) {
	for i := 0; i+2 < len(vertices); i += 3 {
		a, b, c := vertices[i].Pos, vertices[i+1].Pos, vertices[i+2].Pos
		n := b.Sub(a).Cross(c.Sub(a))
		if n.Len() > 0 {
			n = n.Normalize()
		}
		vertices[i].Normal = n
		vertices[i+1].Normal = n
		vertices[i+2].Normal = n
	}
}

// ColladaObject is imported from a collada (.dae) file.
// Loaded and held in memory
type ColladaObject struct {
	name string

	mutex    sync.RWMutex
	position glm.Mat4
	rotation glm.Mat4

	vertices []Vertex
	images   []string
	textures []*Texture
}

// Name is the name of the imported geometry.
func (co *ColladaObject) Name() string {
	return co.name
}

// SetPosition implements interface
func (co *ColladaObject) SetPosition(pos glm.Mat4) {
	co.mutex.Lock()
	co.position = pos
	co.mutex.Unlock()
}

// Position implements interface
func (co *ColladaObject) Position() glm.Mat4 {
	co.mutex.RLock()
	defer co.mutex.RUnlock()
	return co.position
}

// SetRotation implements interface
func (co *ColladaObject) SetRotation(rot glm.Mat4) {
	co.mutex.Lock()
	co.rotation = rot
	co.mutex.Unlock()
}

// Rotation implements interface
func (co *ColladaObject) Rotation() glm.Mat4 {
	co.mutex.RLock()
	defer co.mutex.RUnlock()
	return co.rotation
}

// Vertices implements interface
func (co *ColladaObject) Vertices() []Vertex {
	co.mutex.RLock()
	defer co.mutex.RUnlock()
	return co.vertices
}

// Images lists the image paths the document references.
func (co *ColladaObject) Images() []string {
	return co.images
}

// AttachTexture adds a decoded texture to the object.
func (co *ColladaObject) AttachTexture(t *Texture) {
	co.mutex.Lock()
	co.textures = append(co.textures, t)
	co.mutex.Unlock()
}

// Textures returns the attached textures.
func (co *ColladaObject) Textures() []*Texture {
	co.mutex.RLock()
	defer co.mutex.RUnlock()
	return co.textures
}

// Release implements interface
func (co *ColladaObject) Release() {
	co.mutex.Lock()
	defer co.mutex.Unlock()
	for _, t := range co.textures {
		t.Release()
	}
	co.vertices = nil
	co.textures = nil
}
