package memworld

import (
	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// boxIndices are the 12 triangles of a box built from boxCorners.
var boxIndices = []uint32{
	0, 1, 2, 0, 2, 3, // -z
	5, 4, 7, 5, 7, 6, // +z
	4, 0, 3, 4, 3, 7, // -x
	1, 5, 6, 1, 6, 2, // +x
	3, 2, 6, 3, 6, 7, // +y
	4, 5, 1, 4, 1, 0, // -y
}

func boxCorners(b math.AABB) []host.Vertex {
	pts := [8]math.Vec3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z},
	}
	center := b.Center()
	out := make([]host.Vertex, len(pts))
	for i, p := range pts {
		n := p.Sub(center).Normalize()
		out[i] = host.Vertex{
			Position: [3]float32{p.X, p.Y, p.Z},
			Normal:   [3]float32{n.X, n.Y, n.Z},
			TexCoord: [2]float32{float32(i & 1), float32(i >> 1 & 1)},
			Color:    0xFFFFFFFF,
		}
	}
	return out
}

// NewBoxMesh returns a mesh with one box-shaped submesh per material.
// Each submesh is shrunk a little so the parts stay distinguishable.
func NewBoxMesh(name string, kind host.VisualType, bounds math.AABB, mats ...*Material) *Mesh {
	m := &Mesh{MeshName: name, Kind: kind, Bounds: bounds}
	inset := bounds.Max.Sub(bounds.Min).Scale(0.05)
	part := bounds
	for _, mat := range mats {
		m.Parts = append(m.Parts, host.Submesh{
			Material: mat,
			Vertices: boxCorners(part),
			Indices:  append([]uint32(nil), boxIndices...),
		})
		part = math.AABB{Min: part.Min.Add(inset), Max: part.Max.Sub(inset)}
	}
	return m
}
