// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Render    RenderConfig    `yaml:"render"`
	Streaming StreamingConfig `yaml:"streaming"`
	Feed      FeedConfig      `yaml:"feed"`
	Assets    AssetsConfig    `yaml:"assets"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
	// BackgroundFPS caps the frame rate while the window is hidden or unfocused.
	BackgroundFPS int `yaml:"background_fps"`
	// ScreenshotDir receives F12 captures.
	ScreenshotDir string `yaml:"screenshot_dir"`
}

// RenderConfig holds the per-frame scene tunables. These may be changed at runtime.
type RenderConfig struct {
	DrawDistance     float32 `yaml:"draw_distance"`
	LODThreshold     float32 `yaml:"lod_threshold"`
	MeshBudget       int     `yaml:"mesh_budget"`
	TextureBudget    int     `yaml:"texture_budget"`
	OcclusionCulling bool    `yaml:"occlusion_culling"`
	Shaders          bool    `yaml:"shaders"`
	VertexBuffers    bool    `yaml:"vertex_buffers"`
	Sky              bool    `yaml:"sky"`
	Water            bool    `yaml:"water"`
	NameTags         bool    `yaml:"name_tags"`
	FieldOfView      float32 `yaml:"field_of_view"`
}

// StreamingConfig holds background worker settings.
type StreamingConfig struct {
	MeshWorkers    int           `yaml:"mesh_workers"`
	TextureWorkers int           `yaml:"texture_workers"`
	QueueSize      int           `yaml:"queue_size"`
	MeshTimeout    time.Duration `yaml:"mesh_timeout"`
	TextureTimeout time.Duration `yaml:"texture_timeout"`
	JoinTimeout    time.Duration `yaml:"join_timeout"`
	DecodeCacheDir string        `yaml:"decode_cache_dir"`
}

// FeedConfig holds scene feed connection settings.
type FeedConfig struct {
	URL            string        `yaml:"url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// AssetsConfig holds the local asset store location.
type AssetsConfig struct {
	Root string `yaml:"root"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:         1280,
			Height:        720,
			Fullscreen:    false,
			VSync:         true,
			FPSLimit:      0,
			BackgroundFPS: 5,
			ScreenshotDir: "screenshots",
		},
		Render: RenderConfig{
			DrawDistance:     128,
			LODThreshold:     0.0001,
			MeshBudget:       32,
			TextureBudget:    16,
			OcclusionCulling: true,
			Shaders:          true,
			VertexBuffers:    true,
			Sky:              true,
			Water:            true,
			NameTags:         true,
			FieldOfView:      60,
		},
		Streaming: StreamingConfig{
			MeshWorkers:    1,
			TextureWorkers: 2,
			QueueSize:      256,
			MeshTimeout:    20 * time.Second,
			TextureTimeout: 30 * time.Second,
			JoinTimeout:    2 * time.Second,
			DecodeCacheDir: "",
		},
		Feed: FeedConfig{
			URL:            "ws://127.0.0.1:9000/scene",
			ConnectTimeout: 10 * time.Second,
			MaxBackoff:     30 * time.Second,
		},
		Assets: AssetsConfig{
			Root: "assets",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
