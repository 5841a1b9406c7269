// Package scene connects a host world to the renderer. It loads or
// generates the host world, registers every vob, builds the mirror tree
// and drives per-frame updates for the tools.
package scene

import (
	"fmt"
	gomath "math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/config"
	"github.com/Faultbox/zenbsp/internal/engine/world"
	"github.com/Faultbox/zenbsp/internal/gfx"
	"github.com/Faultbox/zenbsp/internal/host/memworld"
	"github.com/Faultbox/zenbsp/pkg/math"
)

// WanderRadius is how far Animate moves dynamic vobs from their origin.
const WanderRadius = 200

// LoadHost reads the world file named by cfg, or generates a grid world
// when no file is set.
func LoadHost(cfg config.WorldConfig) (*memworld.World, error) {
	if cfg.File != "" {
		hw, err := memworld.LoadFile(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("loading world: %w", err)
		}
		return hw, nil
	}
	return memworld.Generate(memworld.GridParams{
		Size:        cfg.GridSize,
		CellSize:    cfg.CellSize,
		VobsPerCell: cfg.VobsPerCell,
		Meshes:      cfg.Meshes,
		Dynamic:     cfg.Dynamic,
		Seed:        cfg.Seed,
	}), nil
}

// Scene is a host world registered with a renderer world.
type Scene struct {
	Host  *memworld.World
	World *world.World

	cfg config.RendererConfig
	log *zap.Logger

	movers  []*memworld.Vob
	origins []math.Vec3
	// Rejected counts vobs the renderer refused.
	Rejected int
}

// New registers every vob of hw, builds the tree and extracts the world mesh.
func New(hw *memworld.World, dev gfx.Device, cfg config.RendererConfig, log *zap.Logger) (*Scene, error) {
	s := &Scene{
		Host:  hw,
		World: world.New(dev, cfg, log.Named("world")),
		cfg:   cfg,
		log:   log,
	}
	for _, v := range hw.Vobs {
		if !s.World.AddVob(v, v.Dynamic) {
			s.Rejected++
			continue
		}
		if v.Dynamic {
			s.movers = append(s.movers, v)
			s.origins = append(s.origins, v.Pos)
		}
	}
	if err := s.World.BuildBSPTree(hw.Root); err != nil {
		return nil, multierr.Append(fmt.Errorf("building tree: %w", err), s.World.Release())
	}
	if err := s.World.ExtractWorldMesh(hw.Root); err != nil {
		return nil, multierr.Append(fmt.Errorf("extracting world mesh: %w", err), s.World.Release())
	}

	log.Info("scene ready",
		zap.Int("vobs", s.World.NumObjects()),
		zap.Int("rejected", s.Rejected),
		zap.Int("visuals", s.World.NumVisuals()),
		zap.Int("nodes", s.World.NumNodes()),
		zap.Int("dynamic", len(s.movers)),
	)
	return s, nil
}

// Bounds returns the box of the whole host world.
func (s *Scene) Bounds() math.AABB {
	if s.Host.Root == nil {
		return math.EmptyAABB()
	}
	return s.Host.Root.Box
}

// Animate moves every dynamic vob along a circle around its origin.
func (s *Scene) Animate(seconds float64) {
	for i, v := range s.movers {
		phase := seconds + float64(i)
		o := s.origins[i]
		v.MoveTo(math.Vec3{
			X: o.X + WanderRadius*float32(gomath.Cos(phase)),
			Y: o.Y,
			Z: o.Z + WanderRadius*float32(gomath.Sin(phase)),
		})
		s.World.OnVobMoved(v)
	}
}

// Draw draws one frame, culling on several goroutines when configured.
func (s *Scene) Draw(view world.View) error {
	if s.cfg.CullWorkers > 1 {
		return s.World.DrawWorldThreaded(view)
	}
	return s.World.DrawWorld(view)
}

// Close releases every renderer resource of the scene.
func (s *Scene) Close() error {
	return s.World.Release()
}
