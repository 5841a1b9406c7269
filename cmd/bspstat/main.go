// bspstat draws a world headlessly and reports what the renderer did.
//
// The camera circles the world center for the requested number of frames
// while dynamic vobs wander. Draws are recorded by the memgfx device.
package main

import (
	"flag"
	"fmt"
	"io"
	gomath "math"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/config"
	"github.com/Faultbox/zenbsp/internal/engine/camera"
	"github.com/Faultbox/zenbsp/internal/engine/scene"
	"github.com/Faultbox/zenbsp/internal/engine/world"
	"github.com/Faultbox/zenbsp/internal/gfx/memgfx"
	"github.com/Faultbox/zenbsp/internal/logger"
)

var (
	flagFrames = flag.Int("frames", 120, "Number of frames to draw")
	flagAspect = flag.Float64("aspect", 16.0/9.0, "Viewport aspect ratio")
	flagWrite  = flag.String("write-config", "", "Write the effective config to this path and exit")
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *flagWrite != "" {
		if err := cfg.SaveTo(*flagWrite); err != nil {
			fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := logger.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, *flagFrames, float32(*flagAspect)); err != nil {
		logger.Error("bspstat failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, frames int, aspect float32) error {
	hw, err := scene.LoadHost(cfg.World)
	if err != nil {
		return err
	}

	dev := memgfx.New()
	s, err := scene.New(hw, dev, cfg.Renderer, logger.Named("scene"))
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("release failed", zap.Error(err))
		}
	}()

	cam := camera.NewOrbitCamera()
	cam.FitToBounds(s.Bounds())

	var total world.FrameStats
	start := time.Now()
	for i := 0; i < frames; i++ {
		t := float64(i) / 60
		cam.RotationY = float32(t * 2 * gomath.Pi / 10)
		s.Animate(t)

		view := world.View{Position: cam.Position(), Frustum: cam.Frustum(aspect)}
		if err := s.Draw(view); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		accumulate(&total, s.World.Stats())
	}
	elapsed := time.Since(start)

	report(os.Stdout, s, dev, total, frames, elapsed)
	return nil
}

func accumulate(total *world.FrameStats, f world.FrameStats) {
	total.Frame = f.Frame
	total.NodesVisited += f.NodesVisited
	total.NodesCulledDistance += f.NodesCulledDistance
	total.NodesCulledFrustum += f.NodesCulledFrustum
	total.LeavesDrawn += f.LeavesDrawn
	total.WorldMeshDraws += f.WorldMeshDraws
	total.BakedDraws += f.BakedDraws
	total.ImmediateDraws += f.ImmediateDraws
	total.DynamicDraws += f.DynamicDraws
	total.DynamicCulled += f.DynamicCulled
	total.Submitted += f.Submitted
}

func report(out io.Writer, s *scene.Scene, dev *memgfx.Device, total world.FrameStats, frames int, elapsed time.Duration) {
	if frames == 0 {
		frames = 1
	}
	avg := func(v int) string {
		return fmt.Sprintf("%.1f", float64(v)/float64(frames))
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "nodes\t%d\n", s.World.NumNodes())
	fmt.Fprintf(tw, "objects\t%d\t(%d rejected)\n", s.World.NumObjects(), s.Rejected)
	fmt.Fprintf(tw, "visuals\t%d\n", s.World.NumVisuals())
	fmt.Fprintf(tw, "buffers\t%d live\t%d created\n", dev.LiveBuffers(), dev.BuffersCreated)
	fmt.Fprintf(tw, "frames\t%d\t%s/frame\n", frames, elapsed/time.Duration(frames))
	fmt.Fprintln(tw, "\tper frame")
	fmt.Fprintf(tw, "nodes visited\t%s\n", avg(total.NodesVisited))
	fmt.Fprintf(tw, "culled by distance\t%s\n", avg(total.NodesCulledDistance))
	fmt.Fprintf(tw, "culled by frustum\t%s\n", avg(total.NodesCulledFrustum))
	fmt.Fprintf(tw, "leaves drawn\t%s\n", avg(total.LeavesDrawn))
	fmt.Fprintf(tw, "world mesh draws\t%s\n", avg(total.WorldMeshDraws))
	fmt.Fprintf(tw, "baked draws\t%s\n", avg(total.BakedDraws))
	fmt.Fprintf(tw, "immediate draws\t%s\n", avg(total.ImmediateDraws))
	fmt.Fprintf(tw, "dynamic draws\t%s\t(%s culled)\n", avg(total.DynamicDraws), avg(total.DynamicCulled))
	fmt.Fprintf(tw, "states submitted\t%s\n", avg(total.Submitted))
	tw.Flush()
}
