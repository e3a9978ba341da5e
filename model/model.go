// Package model holds the engine side representations of
// loaded assets: meshes imported from Collada documents and
// textures decoded from images.
package model

import (
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Object represents the engine supported model
type Object interface {

	// SetPosition sets the object's current position in space.
	// Has to be thread-safe
	SetPosition(glm.Mat4)

	// Position gets the object's current position in space.
	// Has to be thread-safe
	Position() glm.Mat4

	// SetRotation sets the object's rotation matrix.
	// Has to be thread-safe
	SetRotation(glm.Mat4)

	// Rotation gets the object's rotation matrix.
	// Has to be thread-safe
	Rotation() glm.Mat4

	// Vertices returns the vertices for Renderer use,
	// so it has to match the descriptors exactly
	Vertices() []Vertex

	// Release drops the memory held by the object.
	Release()
}

// Vertex is a model vertex
type Vertex struct {
	Pos    glm.Vec3
	Normal glm.Vec3
	Color  glm.Vec4
	UV     glm.Vec2
}

// VertexStride is the size of one Vertex in a vertex buffer.
const VertexStride = int(unsafe.Sizeof(Vertex{}))

// VertexBufferSize is the number of bytes the vertices of o
// take in a vertex buffer.
func VertexBufferSize(o Object) int {
	return VertexStride * len(o.Vertices())
}
