package memworld

import (
	"strings"
	"testing"

	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

func TestGenerateLeaves(t *testing.T) {
	tests := []struct {
		size int
	}{{1}, {2}, {3}, {8}}
	for _, tt := range tests {
		w := Generate(GridParams{Size: tt.size, CellSize: 100, VobsPerCell: 2, Meshes: 3, Seed: 7})
		leaves := w.Leaves()
		if len(leaves) != tt.size*tt.size {
			t.Errorf("size %d: got %d leaves, want %d", tt.size, len(leaves), tt.size*tt.size)
		}
		for _, l := range leaves {
			if !w.Root.Box.Contains(l.Box.Center()) {
				t.Errorf("size %d: leaf %v outside root %v", tt.size, l.Box, w.Root.Box)
			}
			if len(l.Polys) != 2 {
				t.Errorf("size %d: leaf has %d floor polygons, want 2", tt.size, len(l.Polys))
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	p := GridParams{Size: 4, CellSize: 100, VobsPerCell: 3, Meshes: 4, Dynamic: 5, Seed: 42}
	a, b := Generate(p), Generate(p)
	if len(a.Vobs) != len(b.Vobs) {
		t.Fatalf("vob count differs: %d vs %d", len(a.Vobs), len(b.Vobs))
	}
	for i := range a.Vobs {
		if a.Vobs[i].Pos != b.Vobs[i].Pos || a.Vobs[i].Mesh.MeshName != b.Vobs[i].Mesh.MeshName {
			t.Fatalf("vob %d differs", i)
		}
	}
	if want := 4*4*3 + 5; len(a.Vobs) != want {
		t.Errorf("got %d vobs, want %d", len(a.Vobs), want)
	}
}

func TestPlaceDynamicStaysOutOfTree(t *testing.T) {
	w := Generate(GridParams{Size: 2, CellSize: 100, Meshes: 1})
	mesh := w.Meshes["mesh00"]
	v := &Vob{VobName: "npc", Mesh: mesh, Pos: math.Vec3{X: 50, Z: 50}, Dynamic: true}
	w.Place(v)
	for _, l := range w.Leaves() {
		for _, lv := range l.Vobs {
			if lv == host.Vob(v) {
				t.Fatal("dynamic vob placed into a leaf")
			}
		}
	}
}

func TestPlaceAcrossLeaves(t *testing.T) {
	w := Generate(GridParams{Size: 2, CellSize: 100, Meshes: 1})
	// Mesh bounds are +-10 around the origin, so a vob at the shared corner
	// overlaps all four leaves.
	v := &Vob{VobName: "corner", Mesh: w.Meshes["mesh00"], Pos: math.Vec3{X: 100, Z: 100}}
	w.Place(v)
	count := 0
	for _, l := range w.Leaves() {
		for _, lv := range l.Vobs {
			if lv == host.Vob(v) {
				count++
			}
		}
	}
	if count != 4 {
		t.Errorf("vob in %d leaves, want 4", count)
	}

	w.Unplace(v)
	for _, l := range w.Leaves() {
		for _, lv := range l.Vobs {
			if lv == host.Vob(v) {
				t.Fatal("vob still in a leaf after Unplace")
			}
		}
	}
}

func TestTextureCacheIn(t *testing.T) {
	tex := &Texture{TexID: 3}
	if got := tex.CacheIn(0.6); got != host.NotResident {
		t.Errorf("timed CacheIn: got %v, want NotResident", got)
	}
	if got := tex.CacheIn(host.BlockUntilResident); got != host.Resident {
		t.Errorf("blocking CacheIn: got %v, want Resident", got)
	}
	if tex.Requests != 2 || tex.Blocking != 1 {
		t.Errorf("requests %d blocking %d, want 2 and 1", tex.Requests, tex.Blocking)
	}
}

func TestNewBoxMesh(t *testing.T) {
	a := &Material{MatName: "a"}
	b := &Material{MatName: "b"}
	m := NewBoxMesh("crate", host.VisualStaticMesh, math.AABB{Max: math.Vec3{X: 1, Y: 1, Z: 1}}, a, b)
	if len(m.Parts) != 2 {
		t.Fatalf("got %d parts, want 2", len(m.Parts))
	}
	for i, p := range m.Parts {
		if len(p.Vertices) != 8 || len(p.Indices) != 36 {
			t.Errorf("part %d: %d vertices %d indices", i, len(p.Vertices), len(p.Indices))
		}
	}
	if m.Parts[1].Vertices[0].Position[0] <= m.Parts[0].Vertices[0].Position[0] {
		t.Error("second part should be inset")
	}
}

const testWorld = `
materials:
  - {name: stone, texture: 5, resident: true}
  - {name: glass, texture: 6, alpha: true, alpha_func: 2}
  - {name: bare}
meshes:
  - {name: pillar, box: [-1, 0, -1, 1, 4, 1], materials: [stone, glass]}
  - {name: fire, type: particle-fx, box: [0, 0, 0, 1, 1, 1], materials: [bare]}
  - {name: weird, type: hologram, box: [0, 0, 0, 1, 1, 1]}
floor: stone
tree:
  axis: 0
  at: 10
  front:
    box: [10, 0, 0, 20, 10, 10]
  back:
    box: [0, 0, 0, 10, 10, 10]
vobs:
  - {name: p1, mesh: pillar, position: [5, 0, 5]}
  - {name: p2, mesh: pillar, position: [10, 0, 5]}
  - {name: torch, mesh: fire, position: [15, 0, 5], light: true}
  - {name: ghost, mesh: pillar, position: [2, 0, 2], dynamic: true}
  - {name: marker, position: [1, 1, 1], indoor: true}
`

func TestParse(t *testing.T) {
	w, err := Parse([]byte(testWorld))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if w.Root.IsLeaf() || w.Root.PlaneAxis() != 0 {
		t.Fatal("root should be an X split")
	}
	if !w.Root.Plane().InFront(math.Vec3{X: 15}) {
		t.Error("front child should be the upper side")
	}
	if w.Root.Box.Max.X != 20 {
		t.Errorf("root box max X: got %v, want 20", w.Root.Box.Max.X)
	}

	if got := w.Materials["stone"].Tex.State; got != host.Resident {
		t.Errorf("stone residency: got %v", got)
	}
	if w.Materials["bare"].Texture() != nil {
		t.Error("material without texture id should have no texture")
	}
	if w.Meshes["fire"].Type() != host.VisualParticleFX {
		t.Errorf("fire type: got %v", w.Meshes["fire"].Type())
	}
	if w.Meshes["weird"].Type() != host.VisualUnknown {
		t.Errorf("unknown type name should map to VisualUnknown, got %v", w.Meshes["weird"].Type())
	}

	back, front := w.Root.BackNode, w.Root.FrontNode
	// p2 straddles the split plane.
	if len(back.Vobs) != 3 {
		t.Errorf("back leaf: got %d vobs, want 3", len(back.Vobs))
	}
	if len(front.Vobs) != 2 {
		t.Errorf("front leaf: got %d vobs, want 2", len(front.Vobs))
	}
	if len(w.Vobs) != 5 {
		t.Errorf("world vobs: got %d, want 5", len(w.Vobs))
	}
	if len(back.Polys) != 2 || len(front.Polys) != 2 {
		t.Error("floor should add two polygons per leaf")
	}
}

func TestParseVobTransform(t *testing.T) {
	doc := `
meshes:
  - name: plank
    type: static-mesh
    box: [-1, 0, -2, 1, 3, 2]
tree:
  box: [-100, -100, -100, 100, 100, 100]
vobs:
  - name: turned
    mesh: plank
    position: [10, 0, 0]
    yaw: 90
    color: 0x11223344
`
	w, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	v := w.Vobs[0]
	if got := v.InstanceInfo().Color; got != 0x11223344 {
		t.Errorf("color = %#x, want 0x11223344", got)
	}

	box := v.BBox()
	want := math.AABB{Min: math.Vec3{X: 8, Y: 0, Z: -1}, Max: math.Vec3{X: 12, Y: 3, Z: 1}}
	if box.Min.Distance(want.Min) > 1e-4 || box.Max.Distance(want.Max) > 1e-4 {
		t.Errorf("BBox = %+v, want %+v", box, want)
	}
	origin := v.InstanceInfo().World.TransformVec3(math.Vec3{})
	if origin != v.Pos {
		t.Errorf("mesh origin maps to %+v, want %+v", origin, v.Pos)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no tree", "materials: []", "no tree"},
		{"bad material", "meshes: [{name: m, materials: [nope]}]\ntree: {box: [0,0,0,1,1,1]}", "unknown material"},
		{"bad mesh", "tree: {box: [0,0,0,1,1,1]}\nvobs: [{name: v, mesh: nope}]", "unknown mesh"},
		{"bad axis", "tree: {axis: 5, at: 0}", "out of range"},
		{"bad floor", "tree: {box: [0,0,0,1,1,1]}\nfloor: lava", "unknown material"},
		{"bad yaml", "tree: [", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
