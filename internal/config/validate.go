package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate reports every setting that cannot be used as is.
func (c *Config) Validate() error {
	var errs []error
	bad := func(field string, v any, why string) {
		errs = append(errs, fmt.Errorf("%s = %v: %s", field, v, why))
	}

	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		bad("graphics size", fmt.Sprintf("%dx%d", c.Graphics.Width, c.Graphics.Height), "must be positive")
	}
	if c.Graphics.FPSLimit < 0 {
		bad("graphics.fps_limit", c.Graphics.FPSLimit, "must not be negative")
	}
	if c.Graphics.BackgroundFPS < 0 {
		bad("graphics.background_fps", c.Graphics.BackgroundFPS, "must not be negative")
	}

	r := c.Render
	if r.DrawDistance <= 0 {
		bad("render.draw_distance", r.DrawDistance, "must be positive")
	}
	if r.LODThreshold < 0 {
		bad("render.lod_threshold", r.LODThreshold, "must not be negative")
	}
	if r.MeshBudget < 0 || r.TextureBudget < 0 {
		bad("render budgets", fmt.Sprintf("%d/%d", r.MeshBudget, r.TextureBudget), "must not be negative")
	}
	if r.FieldOfView <= 0 || r.FieldOfView >= 180 {
		bad("render.field_of_view", r.FieldOfView, "must be between 0 and 180")
	}

	s := c.Streaming
	if s.QueueSize < 1 {
		bad("streaming.queue_size", s.QueueSize, "must be at least 1")
	}
	if s.MeshTimeout < 0 || s.TextureTimeout < 0 || s.JoinTimeout < 0 {
		bad("streaming timeouts", fmt.Sprintf("%v/%v/%v", s.MeshTimeout, s.TextureTimeout, s.JoinTimeout), "must not be negative")
	}

	if u, err := url.Parse(c.Feed.URL); err != nil {
		bad("feed.url", c.Feed.URL, err.Error())
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		bad("feed.url", c.Feed.URL, "scheme must be ws or wss")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		bad("logging.level", c.Logging.Level, "must be debug, info, warn or error")
	}

	return errors.Join(errs...)
}
