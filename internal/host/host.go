// Package host defines the read-only view of the legacy engine's scene
// graph: BSP nodes, placed objects (vobs), their visuals and materials.
//
// The renderer never mutates host data. Identity matters: values of these
// interfaces are used as map keys, so implementations must be comparable
// (typically pointers).
package host

import "github.com/Faultbox/zenbsp/pkg/math"

// VisualType is the type tag of a host visual.
type VisualType int

const (
	VisualUnknown VisualType = iota
	VisualStaticMesh
	VisualSkeletalMesh
	VisualMorphMesh
	VisualParticleFX
	VisualDecal
)

func (t VisualType) String() string {
	switch t {
	case VisualStaticMesh:
		return "static-mesh"
	case VisualSkeletalMesh:
		return "skeletal-mesh"
	case VisualMorphMesh:
		return "morph-mesh"
	case VisualParticleFX:
		return "particle-fx"
	case VisualDecal:
		return "decal"
	default:
		return "unknown"
	}
}

// Residency is the cache state of a texture.
type Residency int

const (
	NotResident Residency = iota
	Queued
	Loading
	Resident
)

// BlockUntilResident asks CacheIn to load the texture synchronously.
const BlockUntilResident float32 = -1

// Texture is a host texture that may be cached out.
type Texture interface {
	// ID is the renderer-side texture id. It is only meaningful once resident.
	ID() uint32
	// CacheIn requests the texture and waits at most timeout seconds
	// (BlockUntilResident waits until loaded). It returns the resulting state.
	CacheIn(timeout float32) Residency
	HasAlpha() bool
}

// Material describes the surface of a submesh or world polygon.
type Material interface {
	Name() string
	// Texture may be nil for untextured materials.
	Texture() Texture
	// AlphaFunc is the host blend function; values above 1 need alpha testing.
	AlphaFunc() int
}

// Vertex is the geometry layout shared by visuals and the world mesh.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
	Color    uint32
}

// Submesh is the part of a mesh drawn with one material.
type Submesh struct {
	Material Material
	Vertices []Vertex
	Indices  []uint32
}

// VisualSource is a mesh asset shared by every vob that shows it.
type VisualSource interface {
	Type() VisualType
	Name() string
	// Size is the bounding size used by the small-object classification.
	Size() float32
	// Submeshes are ordered; the renderer keeps the same order.
	Submeshes() []Submesh
}

// InstanceInfo is the per-instance data uploaded for instanced drawing.
type InstanceInfo struct {
	World math.Mat4
	Color uint32
}

// Vob is a placed object.
type Vob interface {
	Name() string
	// Visual may be nil; such vobs are not rendered.
	Visual() VisualSource
	BBox() math.AABB
	Position() math.Vec3
	InstanceInfo() InstanceInfo
	IsIndoor() bool
	IsLight() bool
}

// Polygon is a world mesh triangle.
type Polygon struct {
	Material Material
	Vertices [3]Vertex
}

// BSPNode is a node or leaf of the host BSP tree.
type BSPNode interface {
	IsLeaf() bool
	BBox() math.AABB
	// Front and Back are nil for leaves and may be nil for inner nodes.
	Front() BSPNode
	Back() BSPNode
	// Plane is the splitting plane of an inner node.
	Plane() math.Plane
	// PlaneAxis is the dominant axis of the plane normal (0, 1 or 2).
	PlaneAxis() int
	// LeafVobs lists the vobs touching a leaf.
	LeafVobs() []Vob
	// Polygons lists the world polygons of a leaf. Polygons shared between
	// leaves are returned by pointer identity.
	Polygons() []*Polygon
}
