package memworld

import (
	"errors"
	"fmt"
	gomath "math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/zenbsp/internal/host"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// worldFile is the YAML layout of a world description.
type worldFile struct {
	Materials []materialFile `yaml:"materials"`
	Meshes    []meshFile     `yaml:"meshes"`
	Tree      *nodeFile      `yaml:"tree"`
	Vobs      []vobFile      `yaml:"vobs"`
	Floor     string         `yaml:"floor"`
}

type materialFile struct {
	Name      string `yaml:"name"`
	Texture   uint32 `yaml:"texture"`
	Resident  bool   `yaml:"resident"`
	Alpha     bool   `yaml:"alpha"`
	AlphaFunc int    `yaml:"alpha_func"`
}

type meshFile struct {
	Name      string     `yaml:"name"`
	Type      string     `yaml:"type"`
	Box       [6]float32 `yaml:"box"`
	Materials []string   `yaml:"materials"`
}

type nodeFile struct {
	Box   [6]float32 `yaml:"box"`
	Axis  *int       `yaml:"axis"`
	At    float32    `yaml:"at"`
	Front *nodeFile  `yaml:"front"`
	Back  *nodeFile  `yaml:"back"`
}

type vobFile struct {
	Name     string     `yaml:"name"`
	Mesh     string     `yaml:"mesh"`
	Position [3]float32 `yaml:"position"`
	Yaw      float32    `yaml:"yaw"` // degrees
	Color    *uint32    `yaml:"color"`
	Indoor   bool       `yaml:"indoor"`
	Light    bool       `yaml:"light"`
	Dynamic  bool       `yaml:"dynamic"`
}

var visualTypes = map[string]host.VisualType{
	"static-mesh":   host.VisualStaticMesh,
	"skeletal-mesh": host.VisualSkeletalMesh,
	"morph-mesh":    host.VisualMorphMesh,
	"particle-fx":   host.VisualParticleFX,
	"decal":         host.VisualDecal,
}

// LoadFile reads a YAML world description.
func LoadFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	w, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return w, nil
}

// Parse builds a world from its YAML description. Leaves without an axis
// are leaves; inner nodes take their box from their children. Vobs are
// placed into every leaf their box overlaps.
func Parse(data []byte) (*World, error) {
	var f worldFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.Tree == nil {
		return nil, errors.New("world has no tree")
	}

	w := &World{
		Meshes:    make(map[string]*Mesh),
		Materials: make(map[string]*Material),
	}

	for _, mf := range f.Materials {
		m := &Material{MatName: mf.Name, Alpha: mf.AlphaFunc}
		if mf.Texture != 0 {
			state := host.NotResident
			if mf.Resident {
				state = host.Resident
			}
			m.Tex = &Texture{TexID: mf.Texture, State: state, Alpha: mf.Alpha}
		}
		w.Materials[mf.Name] = m
	}

	for _, mf := range f.Meshes {
		kind := host.VisualStaticMesh
		if mf.Type != "" {
			k, ok := visualTypes[mf.Type]
			if !ok {
				kind = host.VisualUnknown
			} else {
				kind = k
			}
		}
		mats := make([]*Material, 0, len(mf.Materials))
		for _, name := range mf.Materials {
			mat, ok := w.Materials[name]
			if !ok {
				return nil, fmt.Errorf("mesh %q: unknown material %q", mf.Name, name)
			}
			mats = append(mats, mat)
		}
		w.Meshes[mf.Name] = NewBoxMesh(mf.Name, kind, boxFrom(mf.Box), mats...)
	}

	root, err := buildNode(f.Tree)
	if err != nil {
		return nil, err
	}
	w.Root = root

	if f.Floor != "" {
		mat, ok := w.Materials[f.Floor]
		if !ok {
			return nil, fmt.Errorf("floor: unknown material %q", f.Floor)
		}
		w.AddFloor(mat)
	}

	for _, vf := range f.Vobs {
		v := &Vob{
			VobName: vf.Name,
			Pos:     math.Vec3{X: vf.Position[0], Y: vf.Position[1], Z: vf.Position[2]},
			Yaw:     vf.Yaw * gomath.Pi / 180,
			Color:   0xFFFFFFFF,
			Indoor:  vf.Indoor,
			Light:   vf.Light,
			Dynamic: vf.Dynamic,
		}
		if vf.Color != nil {
			v.Color = *vf.Color
		}
		if vf.Mesh != "" {
			mesh, ok := w.Meshes[vf.Mesh]
			if !ok {
				return nil, fmt.Errorf("vob %q: unknown mesh %q", vf.Name, vf.Mesh)
			}
			v.Mesh = mesh
		}
		w.Place(v)
	}
	return w, nil
}

func buildNode(nf *nodeFile) (*Node, error) {
	if nf.Axis == nil {
		return NewLeaf(boxFrom(nf.Box)), nil
	}
	if *nf.Axis < 0 || *nf.Axis > 2 {
		return nil, fmt.Errorf("node axis %d out of range", *nf.Axis)
	}
	var front, back *Node
	var err error
	if nf.Front != nil {
		if front, err = buildNode(nf.Front); err != nil {
			return nil, err
		}
	}
	if nf.Back != nil {
		if back, err = buildNode(nf.Back); err != nil {
			return nil, err
		}
	}
	return NewSplit(*nf.Axis, nf.At, front, back), nil
}

func boxFrom(b [6]float32) math.AABB {
	return math.AABB{
		Min: math.Vec3{X: b[0], Y: b[1], Z: b[2]},
		Max: math.Vec3{X: b[3], Y: b[4], Z: b[5]},
	}
}
