package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagWorld      = flag.String("world", "", "YAML world description to load")
	flagRadius     = flag.Float64("radius", 0, "Outdoor vob draw radius")
	flagWorkers    = flag.Int("workers", 0, "Number of culling workers")
	flagNoVobs     = flag.Bool("novobs", false, "Disable vob drawing")
	flagGrid       = flag.Int("grid", 0, "Generated world size in leaves per side")
	flagFullscreen = flag.Bool("fullscreen", false, "Run viewer in fullscreen mode")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagWorld != "" {
		cfg.World.File = *flagWorld
	}
	if *flagRadius > 0 {
		cfg.Renderer.OutdoorVobDrawRadius = float32(*flagRadius)
	}
	if *flagWorkers > 0 {
		cfg.Renderer.CullWorkers = *flagWorkers
	}
	if *flagNoVobs {
		cfg.Renderer.DrawVobs = false
	}
	if *flagGrid > 0 {
		cfg.World.GridSize = *flagGrid
	}
	if *flagFullscreen {
		cfg.Window.Fullscreen = true
	}
}
