// bspview is an interactive viewer for BSP worlds.
//
// Drag with the left mouse button to orbit, scroll to zoom and use
// WASD/QE to move. T toggles threaded culling, V toggles vobs, M toggles
// the world mesh, F freezes the culling camera, R resets the view, P
// saves a screenshot, L toggles debug logging and K stores the current
// renderer toggles in the user config file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/zenbsp/internal/config"
	"github.com/Faultbox/zenbsp/internal/engine/camera"
	"github.com/Faultbox/zenbsp/internal/engine/debug"
	"github.com/Faultbox/zenbsp/internal/engine/input"
	"github.com/Faultbox/zenbsp/internal/engine/scene"
	"github.com/Faultbox/zenbsp/internal/engine/window"
	"github.com/Faultbox/zenbsp/internal/engine/world"
	"github.com/Faultbox/zenbsp/internal/gfx/gldev"
	"github.com/Faultbox/zenbsp/internal/logger"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("=== BSP viewer ===")
	logger.Sugar.Debugf("Config: %+v", cfg)

	v, err := newViewer(cfg)
	if err != nil {
		logger.Error("failed to start viewer", zap.Error(err))
		os.Exit(1)
	}
	defer v.Close()

	if err := v.Run(); err != nil {
		logger.Error("viewer error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("viewer closed normally")
}

type viewer struct {
	cfg   *config.Config
	win   *window.Window
	dev   *gldev.Device
	scene *scene.Scene
	cam   *camera.OrbitCamera
	in    *input.Input
	shots *debug.Screenshots

	// frozen keeps culling from this view while the camera moves on.
	frozen *world.View
}

func newViewer(cfg *config.Config) (*viewer, error) {
	hw, err := scene.LoadHost(cfg.World)
	if err != nil {
		return nil, err
	}

	win, err := window.New("bspview", cfg.Window, logger.Named("window"))
	if err != nil {
		return nil, err
	}
	dev, err := gldev.New(logger.Named("gl"))
	if err != nil {
		win.Close()
		return nil, err
	}
	dev.Resize(win.Size())

	s, err := scene.New(hw, dev, cfg.Renderer, logger.Named("scene"))
	if err != nil {
		dev.Close()
		win.Close()
		return nil, err
	}

	cam := camera.NewOrbitCamera()
	cam.FitToBounds(s.Bounds())
	return &viewer{cfg: cfg, win: win, dev: dev, scene: s, cam: cam, in: input.New(),
		shots: debug.NewScreenshots("screenshots", "bspview")}, nil
}

// Run loops until the window is closed.
func (v *viewer) Run() error {
	start := time.Now()
	lastTitle := start
	frames := 0
	for !v.in.Update() {
		v.handleInput()

		aspect := v.win.Aspect()
		view := world.View{Position: v.cam.Position(), Frustum: v.cam.Frustum(aspect)}
		if v.frozen != nil {
			view = *v.frozen
		}
		v.scene.Animate(time.Since(start).Seconds())

		v.dev.Begin()
		v.dev.SetViewProjection(v.cam.ViewProjection(aspect))
		if err := v.scene.Draw(view); err != nil {
			logger.Warn("frame failed", zap.Error(err))
		}
		if v.in.Pressed(sdl.SCANCODE_P) {
			v.screenshot()
		}
		v.win.SwapBuffers()

		frames++
		if now := time.Now(); now.Sub(lastTitle) >= time.Second {
			v.win.SetTitle(v.title(float64(frames) / now.Sub(lastTitle).Seconds()))
			lastTitle, frames = now, 0
		}
	}
	return nil
}

func (v *viewer) handleInput() {
	in := v.in
	if in.Resized {
		v.dev.Resize(v.win.Size())
	}
	if in.DragX != 0 || in.DragY != 0 {
		v.cam.HandleDrag(in.DragX, in.DragY)
	}
	if in.Wheel != 0 {
		v.cam.HandleZoom(in.Wheel)
	}
	if f, r, u := input.Axes(); f != 0 || r != 0 || u != 0 {
		v.cam.HandleMovement(f, r, u)
	}

	r := &v.cfg.Renderer
	switch {
	case in.Pressed(sdl.SCANCODE_T):
		if r.CullWorkers > 1 {
			r.CullWorkers = 1
		} else {
			r.CullWorkers = 2
		}
		v.rebuild()
	case in.Pressed(sdl.SCANCODE_V):
		r.DrawVobs = !r.DrawVobs
		v.rebuild()
	case in.Pressed(sdl.SCANCODE_M):
		r.DrawWorldMesh = !r.DrawWorldMesh
		v.rebuild()
	case in.Pressed(sdl.SCANCODE_F):
		if v.frozen != nil {
			v.frozen = nil
		} else {
			aspect := v.win.Aspect()
			v.frozen = &world.View{Position: v.cam.Position(), Frustum: v.cam.Frustum(aspect)}
		}
	case in.Pressed(sdl.SCANCODE_R):
		v.cam.FitToBounds(v.scene.Bounds())
	case in.Pressed(sdl.SCANCODE_K):
		if err := v.cfg.Save(); err != nil {
			logger.Warn("saving config failed", zap.Error(err))
		} else {
			logger.Info("config saved", zap.String("dir", config.ConfigDir()))
		}
	case in.Pressed(sdl.SCANCODE_L):
		if logger.Level() == "debug" {
			logger.SetLevel(v.cfg.Logging.Level)
		} else {
			logger.SetLevel("debug")
		}
		logger.Info("log level changed", zap.String("level", logger.Level()))
	}
}

func (v *viewer) screenshot() {
	w, h := v.win.Size()
	path, err := v.shots.SaveRGBA(v.dev.ReadPixels(w, h), w, h)
	if err != nil {
		logger.Warn("screenshot failed", zap.Error(err))
		return
	}
	logger.Info("screenshot saved", zap.String("path", path))
}

// rebuild recreates the scene after a renderer setting changed.
func (v *viewer) rebuild() {
	if err := v.scene.Close(); err != nil {
		logger.Warn("release failed", zap.Error(err))
	}
	s, err := scene.New(v.scene.Host, v.dev, v.cfg.Renderer, logger.Named("scene"))
	if err != nil {
		logger.Error("rebuild failed", zap.Error(err))
		os.Exit(1)
	}
	v.scene = s
	logger.Info("renderer settings changed",
		zap.Int("cull_workers", v.cfg.Renderer.CullWorkers),
		zap.Bool("draw_vobs", v.cfg.Renderer.DrawVobs),
		zap.Bool("draw_world_mesh", v.cfg.Renderer.DrawWorldMesh))
}

func (v *viewer) title(fps float64) string {
	st := v.scene.World.Stats()
	mode := "serial"
	if v.cfg.Renderer.CullWorkers > 1 {
		mode = "threaded"
	}
	frozen := ""
	if v.frozen != nil {
		frozen = " [frozen]"
	}
	return fmt.Sprintf("bspview  %.0f fps  %s  leaves %d  states %d  gl draws %d%s",
		fps, mode, st.LeavesDrawn, st.Submitted, v.dev.Draws(), frozen)
}

// Close releases the scene, the GL device and the window in that order.
func (v *viewer) Close() {
	if err := v.scene.Close(); err != nil {
		logger.Warn("release failed", zap.Error(err))
	}
	if err := v.dev.Close(); err != nil {
		logger.Warn("device close failed", zap.Error(err))
	}
	v.win.Close()
}
