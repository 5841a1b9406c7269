// Package config handles renderer configuration loading and management.
package config

// Config holds all renderer settings.
type Config struct {
	Renderer RendererConfig `yaml:"renderer"`
	Window   WindowConfig   `yaml:"window"`
	World    WorldConfig    `yaml:"world"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// RendererConfig holds the visibility and instancing settings.
type RendererConfig struct {
	DrawVobs        bool `yaml:"draw_vobs"`
	DrawDynamicVobs bool `yaml:"draw_dynamic_vobs"`
	DrawWorldMesh   bool `yaml:"draw_world_mesh"`

	// OutdoorVobDrawRadius culls BSP nodes further away than this.
	OutdoorVobDrawRadius float32 `yaml:"outdoor_vob_draw_radius"`
	// DynamicVobDrawRadius culls dynamic vobs further away than this.
	DynamicVobDrawRadius float32 `yaml:"dynamic_vob_draw_radius"`
	// SmallVobSize is the visual size below which vobs go to the small list.
	SmallVobSize float32 `yaml:"small_vob_size"`

	// CrossingSplitDepth is the node depth from which crossing nodes are
	// split further instead of drawn whole.
	CrossingSplitDepth int `yaml:"crossing_split_depth"`
	// InstanceCapacity is the initial instance buffer size in records.
	InstanceCapacity int `yaml:"instance_capacity"`
	// TextureCacheTimeout is passed to texture residency queries, in seconds.
	TextureCacheTimeout float32 `yaml:"texture_cache_timeout"`

	// CullWorkers > 1 culls through DrawWorldThreaded.
	CullWorkers int `yaml:"cull_workers"`
}

// WindowConfig holds viewer window settings.
type WindowConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// WorldConfig selects the world that the tools load.
type WorldConfig struct {
	// File is a YAML world description. When empty a grid world is generated.
	File string `yaml:"file"`

	GridSize    int     `yaml:"grid_size"`     // leaves per side
	CellSize    float32 `yaml:"cell_size"`     // world units per leaf
	VobsPerCell int     `yaml:"vobs_per_cell"` // static vobs per leaf
	Meshes      int     `yaml:"meshes"`        // distinct mesh assets
	Dynamic     int     `yaml:"dynamic"`       // dynamic vobs
	Seed        int64   `yaml:"seed"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	// Quiet disables console output.
	Quiet bool `yaml:"quiet"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Renderer: RendererConfig{
			DrawVobs:             true,
			DrawDynamicVobs:      true,
			DrawWorldMesh:        true,
			OutdoorVobDrawRadius: 30000,
			DynamicVobDrawRadius: 5000,
			SmallVobSize:         500,
			CrossingSplitDepth:   6,
			InstanceCapacity:     64,
			TextureCacheTimeout:  0.6,
			CullWorkers:          1,
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		World: WorldConfig{
			GridSize:    16,
			CellSize:    2000,
			VobsPerCell: 8,
			Meshes:      12,
			Dynamic:     32,
			Seed:        1,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings the renderer cannot work with.
func (c *Config) Validate() error {
	r := c.Renderer
	switch {
	case r.InstanceCapacity <= 0:
		return fieldError("renderer.instance_capacity", "must be positive")
	case r.CrossingSplitDepth < 0:
		return fieldError("renderer.crossing_split_depth", "must not be negative")
	case r.OutdoorVobDrawRadius <= 0:
		return fieldError("renderer.outdoor_vob_draw_radius", "must be positive")
	case r.CullWorkers < 1:
		return fieldError("renderer.cull_workers", "must be at least 1")
	}
	return nil
}
