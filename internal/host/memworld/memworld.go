// Package memworld is an in-memory implementation of the host scene model.
//
// It stands in for the legacy engine in tests and tools: worlds are either
// described in YAML (see Parse) or generated as a grid (see Generate).
package memworld

import (
	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// Texture is a host texture with a scripted residency state.
type Texture struct {
	TexID uint32
	State host.Residency
	Alpha bool
	// Requests counts CacheIn calls; Blocking counts the synchronous ones.
	Requests int
	Blocking int
}

// ID returns the renderer texture id.
func (t *Texture) ID() uint32 { return t.TexID }

// CacheIn returns the current state. A blocking request makes the texture resident.
func (t *Texture) CacheIn(timeout float32) host.Residency {
	t.Requests++
	if timeout == host.BlockUntilResident {
		t.Blocking++
		t.State = host.Resident
	}
	return t.State
}

// HasAlpha reports whether the texture has an alpha channel.
func (t *Texture) HasAlpha() bool { return t.Alpha }

// Material is a named surface.
type Material struct {
	MatName string
	Tex     *Texture
	Alpha   int
}

func (m *Material) Name() string { return m.MatName }

// Texture returns the material texture or nil.
func (m *Material) Texture() host.Texture {
	if m.Tex == nil {
		return nil
	}
	return m.Tex
}

func (m *Material) AlphaFunc() int { return m.Alpha }

// Mesh is a visual asset.
type Mesh struct {
	MeshName string
	Kind     host.VisualType
	Parts    []host.Submesh
	Bounds   math.AABB
}

func (m *Mesh) Type() host.VisualType     { return m.Kind }
func (m *Mesh) Name() string              { return m.MeshName }
func (m *Mesh) Size() float32             { return m.Bounds.Size() }
func (m *Mesh) Submeshes() []host.Submesh { return m.Parts }

// Vob is a placed object.
type Vob struct {
	VobName string
	Mesh    *Mesh
	Pos     math.Vec3
	// Yaw rotates the mesh around the Y axis, in radians.
	Yaw     float32
	Color   uint32
	Indoor  bool
	Light   bool
	Dynamic bool
}

func (v *Vob) Name() string { return v.VobName }

// Visual returns the vob mesh or nil.
func (v *Vob) Visual() host.VisualSource {
	if v.Mesh == nil {
		return nil
	}
	return v.Mesh
}

// BBox returns the mesh bounds placed by the vob transform. Vobs without
// a mesh occupy a single point.
func (v *Vob) BBox() math.AABB {
	if v.Mesh == nil {
		return math.AABB{Min: v.Pos, Max: v.Pos}
	}
	return v.Mesh.Bounds.Transform(v.transform())
}

func (v *Vob) Position() math.Vec3 { return v.Pos }

// InstanceInfo returns the vob transform and color.
func (v *Vob) InstanceInfo() host.InstanceInfo {
	return host.InstanceInfo{World: v.transform(), Color: v.Color}
}

func (v *Vob) transform() math.Mat4 {
	m := math.Translate(v.Pos.X, v.Pos.Y, v.Pos.Z)
	if v.Yaw != 0 {
		m = m.Mul(math.RotateY(v.Yaw))
	}
	return m
}

func (v *Vob) IsIndoor() bool { return v.Indoor }
func (v *Vob) IsLight() bool  { return v.Light }

// MoveTo changes the vob position.
func (v *Vob) MoveTo(p math.Vec3) { v.Pos = p }

// Node is a BSP node or leaf.
type Node struct {
	Box        math.AABB
	Leaf       bool
	FrontNode  *Node
	BackNode   *Node
	SplitPlane math.Plane
	Axis       int
	Vobs       []host.Vob
	Polys      []*host.Polygon
}

func (n *Node) IsLeaf() bool              { return n.Leaf }
func (n *Node) BBox() math.AABB           { return n.Box }
func (n *Node) Plane() math.Plane         { return n.SplitPlane }
func (n *Node) PlaneAxis() int            { return n.Axis }
func (n *Node) LeafVobs() []host.Vob      { return n.Vobs }
func (n *Node) Polygons() []*host.Polygon { return n.Polys }

// Front returns the front child or nil.
func (n *Node) Front() host.BSPNode {
	if n.FrontNode == nil {
		return nil
	}
	return n.FrontNode
}

// Back returns the back child or nil.
func (n *Node) Back() host.BSPNode {
	if n.BackNode == nil {
		return nil
	}
	return n.BackNode
}

// NewLeaf returns an empty leaf.
func NewLeaf(box math.AABB) *Node {
	return &Node{Box: box, Leaf: true}
}

// NewSplit returns an inner node splitting at value along axis. The front
// child covers coordinates above value.
func NewSplit(axis int, value float32, front, back *Node) *Node {
	n := &Node{
		Axis:      axis,
		FrontNode: front,
		BackNode:  back,
		SplitPlane: math.Plane{
			Normal:   math.Vec3{}.SetAxis(axis, 1),
			Distance: value,
		},
	}
	n.Box = math.EmptyAABB()
	if front != nil {
		n.Box = n.Box.Union(front.Box)
	}
	if back != nil {
		n.Box = n.Box.Union(back.Box)
	}
	return n
}

// World is a complete host world.
type World struct {
	Root      *Node
	Vobs      []*Vob
	Meshes    map[string]*Mesh
	Materials map[string]*Material
}

// Leaves returns every leaf reachable from the root, each once.
func (w *World) Leaves() []*Node {
	var out []*Node
	seen := make(map[*Node]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if n.Leaf {
			out = append(out, n)
			return
		}
		walk(n.FrontNode)
		walk(n.BackNode)
	}
	walk(w.Root)
	return out
}

// Place adds v to every leaf its bounding box overlaps. Dynamic vobs are
// kept out of the tree.
func (w *World) Place(v *Vob) {
	w.Vobs = append(w.Vobs, v)
	if v.Dynamic {
		return
	}
	box := v.BBox()
	for _, leaf := range w.Leaves() {
		if leaf.Box.Overlaps(box) {
			leaf.Vobs = append(leaf.Vobs, v)
		}
	}
}

// Unplace removes v from every leaf and from the vob list.
func (w *World) Unplace(v *Vob) {
	for _, leaf := range w.Leaves() {
		leaf.Vobs = removeVob(leaf.Vobs, v)
	}
	for i, other := range w.Vobs {
		if other == v {
			w.Vobs = append(w.Vobs[:i], w.Vobs[i+1:]...)
			break
		}
	}
}

func removeVob(list []host.Vob, v *Vob) []host.Vob {
	out := list[:0]
	for _, other := range list {
		if other != host.Vob(v) {
			out = append(out, other)
		}
	}
	return out
}

// AddFloor gives every leaf two triangles covering its bottom face.
func (w *World) AddFloor(mat *Material) {
	for _, leaf := range w.Leaves() {
		b := leaf.Box
		corner := func(x, z float32) host.Vertex {
			return host.Vertex{
				Position: [3]float32{x, b.Min.Y, z},
				Normal:   [3]float32{0, 1, 0},
				TexCoord: [2]float32{x / 1000, z / 1000},
				Color:    0xFFFFFFFF,
			}
		}
		a, bb, c, d := corner(b.Min.X, b.Min.Z), corner(b.Max.X, b.Min.Z), corner(b.Max.X, b.Max.Z), corner(b.Min.X, b.Max.Z)
		leaf.Polys = append(leaf.Polys,
			&host.Polygon{Material: mat, Vertices: [3]host.Vertex{a, bb, c}},
			&host.Polygon{Material: mat, Vertices: [3]host.Vertex{a, c, d}},
		)
	}
}
