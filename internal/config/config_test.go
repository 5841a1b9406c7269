package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test renderer defaults
	if !cfg.Renderer.DrawVobs {
		t.Error("expected draw_vobs to be true by default")
	}
	if cfg.Renderer.CrossingSplitDepth != 6 {
		t.Errorf("expected crossing split depth 6, got %d", cfg.Renderer.CrossingSplitDepth)
	}
	if cfg.Renderer.InstanceCapacity != 64 {
		t.Errorf("expected instance capacity 64, got %d", cfg.Renderer.InstanceCapacity)
	}
	if cfg.Renderer.TextureCacheTimeout != 0.6 {
		t.Errorf("expected texture cache timeout 0.6, got %f", cfg.Renderer.TextureCacheTimeout)
	}
	if cfg.Renderer.CullWorkers != 1 {
		t.Errorf("expected 1 cull worker, got %d", cfg.Renderer.CullWorkers)
	}

	// Test window defaults
	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("expected 1280x720, got %dx%d", cfg.Window.Width, cfg.Window.Height)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
renderer:
  draw_vobs: false
  outdoor_vob_draw_radius: 12000
  small_vob_size: 250
  crossing_split_depth: 4
  instance_capacity: 256
  cull_workers: 4

window:
  width: 1920
  height: 1080
  fullscreen: true

world:
  file: "worlds/newworld.yaml"
  grid_size: 32

logging:
  level: "debug"
  log_file: "render.log"
  max_backups: 2
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Renderer.DrawVobs {
		t.Error("expected draw_vobs to be false")
	}
	if cfg.Renderer.OutdoorVobDrawRadius != 12000 {
		t.Errorf("expected radius 12000, got %f", cfg.Renderer.OutdoorVobDrawRadius)
	}
	if cfg.Renderer.SmallVobSize != 250 {
		t.Errorf("expected small vob size 250, got %f", cfg.Renderer.SmallVobSize)
	}
	if cfg.Renderer.CrossingSplitDepth != 4 {
		t.Errorf("expected split depth 4, got %d", cfg.Renderer.CrossingSplitDepth)
	}
	if cfg.Renderer.InstanceCapacity != 256 {
		t.Errorf("expected capacity 256, got %d", cfg.Renderer.InstanceCapacity)
	}
	if cfg.Renderer.CullWorkers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Renderer.CullWorkers)
	}
	// Untouched keys keep their defaults
	if cfg.Renderer.TextureCacheTimeout != 0.6 {
		t.Errorf("expected default timeout to survive, got %f", cfg.Renderer.TextureCacheTimeout)
	}

	if !cfg.Window.Fullscreen || cfg.Window.Width != 1920 {
		t.Errorf("unexpected window config %+v", cfg.Window)
	}
	if cfg.World.File != "worlds/newworld.yaml" || cfg.World.GridSize != 32 {
		t.Errorf("unexpected world config %+v", cfg.World)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "render.log" || cfg.Logging.MaxBackups != 2 {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
renderer:
  instance_capacity: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileUnknownKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "typo.yaml")
	if err := os.WriteFile(configPath, []byte("renderer:\n  outdoor_radius: 100\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error for unknown key, got nil")
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Errorf("empty file should load, got %v", err)
	}
	if cfg.Renderer.InstanceCapacity != 64 {
		t.Errorf("empty file should keep defaults, got capacity %d", cfg.Renderer.InstanceCapacity)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero capacity", func(c *Config) { c.Renderer.InstanceCapacity = 0 }},
		{"negative split depth", func(c *Config) { c.Renderer.CrossingSplitDepth = -1 }},
		{"zero radius", func(c *Config) { c.Renderer.OutdoorVobDrawRadius = 0 }},
		{"no workers", func(c *Config) { c.Renderer.CullWorkers = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	// No config file exists - should return empty
	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("window:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find config.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "world flag",
			setup: func() { *flagWorld = "oldcamp.yaml" },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.World.File != "oldcamp.yaml" {
					t.Errorf("expected world oldcamp.yaml, got %s", cfg.World.File)
				}
			},
			teardown: func() { *flagWorld = "" },
		},
		{
			name:  "radius and workers flags",
			setup: func() { *flagRadius = 8000; *flagWorkers = 3 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Renderer.OutdoorVobDrawRadius != 8000 {
					t.Errorf("expected radius 8000, got %f", cfg.Renderer.OutdoorVobDrawRadius)
				}
				if cfg.Renderer.CullWorkers != 3 {
					t.Errorf("expected 3 workers, got %d", cfg.Renderer.CullWorkers)
				}
			},
			teardown: func() { *flagRadius = 0; *flagWorkers = 0 },
		},
		{
			name:  "novobs flag",
			setup: func() { *flagNoVobs = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Renderer.DrawVobs {
					t.Error("expected draw_vobs to be false with novobs flag")
				}
			},
			teardown: func() { *flagNoVobs = false },
		},
		{
			name:  "grid and fullscreen flags",
			setup: func() { *flagGrid = 4; *flagFullscreen = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.World.GridSize != 4 {
					t.Errorf("expected grid 4, got %d", cfg.World.GridSize)
				}
				if !cfg.Window.Fullscreen {
					t.Error("expected fullscreen with fullscreen flag")
				}
			},
			teardown: func() { *flagGrid = 0; *flagFullscreen = false },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
renderer:
  outdoor_vob_draw_radius: 15000
  small_vob_size: 300
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagRadius = 9000
	defer func() {
		*flagConfig = ""
		*flagRadius = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Radius should be from flag, not file
	if cfg.Renderer.OutdoorVobDrawRadius != 9000 {
		t.Errorf("expected radius 9000 from flag, got %f", cfg.Renderer.OutdoorVobDrawRadius)
	}
	// Small vob size should be from file since no flag override
	if cfg.Renderer.SmallVobSize != 300 {
		t.Errorf("expected small vob size 300 from file, got %f", cfg.Renderer.SmallVobSize)
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Renderer.CrossingSplitDepth = 3
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("loading saved config: %v", err)
	}
	if loaded.Renderer.CrossingSplitDepth != 3 {
		t.Errorf("expected split depth 3 after reload, got %d", loaded.Renderer.CrossingSplitDepth)
	}
}
