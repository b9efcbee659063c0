package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	r := cfg.Render
	if r.LODThreshold != 0.0001 || r.MeshBudget != 32 || r.TextureBudget != 16 {
		t.Errorf("render defaults = %+v", r)
	}
	if !r.OcclusionCulling || !r.Shaders || !r.VertexBuffers {
		t.Error("render features should default on")
	}
	if cfg.Graphics.BackgroundFPS != 5 {
		t.Errorf("BackgroundFPS = %d, want 5", cfg.Graphics.BackgroundFPS)
	}
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
graphics:
  width: 1920
  height: 1080
  background_fps: 2
render:
  lod_threshold: 0.001
  mesh_budget: 4
  occlusion_culling: false
streaming:
  mesh_timeout: 5s
  decode_cache_dir: /tmp/decoded
feed:
  url: wss://sim.example.com/scene
  max_backoff: 1m
logging:
  level: debug
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Graphics.Width != 1920 || cfg.Graphics.Height != 1080 || cfg.Graphics.BackgroundFPS != 2 {
		t.Errorf("graphics = %+v", cfg.Graphics)
	}
	if cfg.Render.LODThreshold != 0.001 || cfg.Render.MeshBudget != 4 || cfg.Render.OcclusionCulling {
		t.Errorf("render = %+v", cfg.Render)
	}
	if cfg.Render.TextureBudget != 16 || !cfg.Render.Shaders {
		t.Error("keys missing from the file should keep their defaults")
	}
	if cfg.Streaming.MeshTimeout != 5*time.Second || cfg.Streaming.DecodeCacheDir != "/tmp/decoded" {
		t.Errorf("streaming = %+v", cfg.Streaming)
	}
	if cfg.Feed.URL != "wss://sim.example.com/scene" || cfg.Feed.MaxBackoff != time.Minute {
		t.Errorf("feed = %+v", cfg.Feed)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "graphics:\n  width: [\n", "loading config"},
		{"wrong type", "graphics:\n  width: wide\n", "loading config"},
		{"unknown key", "render:\n  lod_treshold: 0.1\n", "lod_treshold"},
		{"negative budget", "render:\n  mesh_budget: -1\n", "render budgets"},
		{"http feed", "feed:\n  url: http://example.com\n", "ws or wss"},
		{"bad level", "logging:\n  level: chatty\n", "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, "config.yaml", tt.content))
			if err == nil {
				t.Fatal("LoadFile() accepted the file")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if _, err := LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() on a missing file returned nil error")
	}
}

func TestEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, "config.yaml", ""))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Render != Default().Render {
		t.Error("empty file changed render settings")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Graphics.Width = 0
	cfg.Render.DrawDistance = -1
	cfg.Render.FieldOfView = 200
	cfg.Streaming.QueueSize = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	for _, want := range []string{"graphics size", "draw_distance", "field_of_view", "queue_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %s: %v", want, err)
		}
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Render.DrawDistance = 96
	cfg.Feed.MaxBackoff = 45 * time.Second

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got.Render.DrawDistance != 96 || got.Feed.MaxBackoff != 45*time.Second {
		t.Errorf("round trip lost values: %+v %+v", got.Render, got.Feed)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" || !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir() = %q, want an absolute path", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	if path := findConfigFile(); path != "" && !filepath.IsAbs(path) {
		t.Errorf("found %q in an empty directory", path)
	}
	if err := os.WriteFile("config.yaml", []byte("graphics:\n  width: 800\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFile(); got != "config.yaml" {
		t.Errorf("findConfigFile() = %q, want config.yaml", got)
	}
	if err := os.WriteFile("gridview.yaml", []byte(""), 0644); err != nil {
		t.Fatal(err)
	}
	if got := findConfigFile(); got != "gridview.yaml" {
		t.Errorf("findConfigFile() = %q, want gridview.yaml first", got)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		set   func()
		reset func()
		check func(*Config) bool
	}{
		{"debug", func() { *flagDebug = true }, func() { *flagDebug = false },
			func(c *Config) bool { return c.Logging.Level == "debug" }},
		{"feed", func() { *flagFeed = "ws://other:7000/scene" }, func() { *flagFeed = "" },
			func(c *Config) bool { return c.Feed.URL == "ws://other:7000/scene" }},
		{"assets", func() { *flagAssets = "/srv/assets" }, func() { *flagAssets = "" },
			func(c *Config) bool { return c.Assets.Root == "/srv/assets" }},
		{"no shaders", func() { *flagNoShaders = true }, func() { *flagNoShaders = false },
			func(c *Config) bool { return !c.Render.Shaders }},
		{"fullscreen", func() { *flagFullscreen = true }, func() { *flagFullscreen = false },
			func(c *Config) bool { return c.Graphics.Fullscreen }},
		{"size", func() { *flagWidth, *flagHeight = 2560, 1440 }, func() { *flagWidth, *flagHeight = 0, 0 },
			func(c *Config) bool { return c.Graphics.Width == 2560 && c.Graphics.Height == 1440 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.set()
			defer tt.reset()
			cfg := Default()
			applyFlags(cfg)
			if !tt.check(cfg) {
				t.Errorf("flag not applied: %+v", cfg)
			}
		})
	}
}

func TestLoadPriority(t *testing.T) {
	path := writeFile(t, "config.yaml", "graphics:\n  width: 1600\n  height: 900\n")
	*flagConfig = path
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, used, err := LoadWithPath()
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if used != path {
		t.Errorf("used %q, want %q", used, path)
	}
	if cfg.Graphics.Width != 1920 {
		t.Errorf("width = %d, flag should win", cfg.Graphics.Width)
	}
	if cfg.Graphics.Height != 900 {
		t.Errorf("height = %d, file should beat the default", cfg.Graphics.Height)
	}
}
