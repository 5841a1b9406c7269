package memworld

import (
	"fmt"
	"math/rand/v2"

	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// GridParams controls Generate.
type GridParams struct {
	Size        int     // leaves per side
	CellSize    float32 // leaf edge length
	Height      float32 // leaf height
	VobsPerCell int
	Meshes      int
	Dynamic     int
	Seed        int64
}

// Generate builds a square world of Size x Size leaves split by a kd-tree
// that alternates between the X and Z axes, with random static vobs in
// every cell and Dynamic free-moving vobs.
func Generate(p GridParams) *World {
	if p.Size < 1 {
		p.Size = 1
	}
	if p.Height == 0 {
		p.Height = p.CellSize
	}
	if p.Meshes < 1 {
		p.Meshes = 1
	}
	rng := rand.New(rand.NewPCG(uint64(p.Seed), 0x5eed))

	w := &World{
		Meshes:    make(map[string]*Mesh),
		Materials: make(map[string]*Material),
	}

	ground := &Material{MatName: "ground", Tex: &Texture{TexID: 1, State: host.Resident}}
	w.Materials[ground.MatName] = ground

	w.Root = splitCells(0, p.Size, 0, p.Size, 0, p)
	w.AddFloor(ground)

	meshes := make([]*Mesh, p.Meshes)
	for i := range meshes {
		bark := &Material{MatName: fmt.Sprintf("mat%02d_a", i), Tex: &Texture{TexID: uint32(10 + 2*i), State: host.Resident}}
		leaf := &Material{MatName: fmt.Sprintf("mat%02d_b", i), Tex: &Texture{TexID: uint32(11 + 2*i), State: host.Resident}, Alpha: 2}
		w.Materials[bark.MatName] = bark
		w.Materials[leaf.MatName] = leaf

		// Every third mesh is small so the small-vob list gets traffic.
		half := p.CellSize * 0.1
		if i%3 == 2 {
			half = p.CellSize * 0.01
		}
		bounds := math.AABB{Min: math.Vec3{X: -half, Y: 0, Z: -half}, Max: math.Vec3{X: half, Y: 2 * half, Z: half}}
		meshes[i] = NewBoxMesh(fmt.Sprintf("mesh%02d", i), host.VisualStaticMesh, bounds, bark, leaf)
		w.Meshes[meshes[i].MeshName] = meshes[i]
	}

	extent := float32(p.Size) * p.CellSize
	for i := 0; i < p.Size*p.Size*p.VobsPerCell; i++ {
		w.Place(&Vob{
			VobName: fmt.Sprintf("static%05d", i),
			Mesh:    meshes[rng.IntN(len(meshes))],
			Pos:     math.Vec3{X: rng.Float32() * extent, Y: 0, Z: rng.Float32() * extent},
			Color:   0xFFFFFFFF,
			Indoor:  rng.IntN(10) == 0,
		})
	}
	for i := 0; i < p.Dynamic; i++ {
		w.Place(&Vob{
			VobName: fmt.Sprintf("dynamic%04d", i),
			Mesh:    meshes[rng.IntN(len(meshes))],
			Pos:     math.Vec3{X: rng.Float32() * extent, Y: 0, Z: rng.Float32() * extent},
			Color:   0xFF00FFFF,
			Dynamic: true,
		})
	}
	return w
}

// splitCells builds the subtree for cells [x0,x1) x [z0,z1).
func splitCells(x0, x1, z0, z1, depth int, p GridParams) *Node {
	if x1-x0 == 1 && z1-z0 == 1 {
		return NewLeaf(math.AABB{
			Min: math.Vec3{X: float32(x0) * p.CellSize, Y: 0, Z: float32(z0) * p.CellSize},
			Max: math.Vec3{X: float32(x1) * p.CellSize, Y: p.Height, Z: float32(z1) * p.CellSize},
		})
	}

	splitX := x1-x0 > 1 && (depth%2 == 0 || z1-z0 == 1)
	if splitX {
		mid := (x0 + x1) / 2
		return NewSplit(0, float32(mid)*p.CellSize,
			splitCells(mid, x1, z0, z1, depth+1, p),
			splitCells(x0, mid, z0, z1, depth+1, p))
	}
	mid := (z0 + z1) / 2
	return NewSplit(2, float32(mid)*p.CellSize,
		splitCells(x0, x1, mid, z1, depth+1, p),
		splitCells(x0, x1, z0, mid, depth+1, p))
}
