package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/gridview/internal/assets"
	"github.com/Faultbox/gridview/internal/config"
	"github.com/Faultbox/gridview/internal/diskcache"
	"github.com/Faultbox/gridview/internal/engine/camera"
	"github.com/Faultbox/gridview/internal/engine/debug"
	"github.com/Faultbox/gridview/internal/engine/gpu/glbackend"
	"github.com/Faultbox/gridview/internal/engine/input"
	"github.com/Faultbox/gridview/internal/engine/window"
	"github.com/Faultbox/gridview/internal/feed"
	"github.com/Faultbox/gridview/internal/feed/wsfeed"
	"github.com/Faultbox/gridview/internal/logger"
	"github.com/Faultbox/gridview/internal/profiling"
	"github.com/Faultbox/gridview/internal/streaming"
	"github.com/Faultbox/gridview/internal/viewer"
)

const (
	assetReaders    = 4
	assetCacheBytes = 64 << 20
)

// app is the host: it owns the window, the GL device and the feed connection, and paces
// frames for the viewer.
type app struct {
	cfg    *config.Config
	win    *window.Window
	dev    *glbackend.Device
	in     *input.Input
	assets *assets.Manager
	view   *viewer.Viewer
	feed   *wsfeed.Client
	cam    *camera.Camera
	limit  *limiter
	timer  *profiling.FrameTimer
	shots  *debug.ScreenshotCapture

	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
}

func newApp(cfg *config.Config, configPath string) (*app, error) {
	a := &app{
		cfg:   cfg,
		in:    input.New(),
		limit: newLimiter(),
		timer: profiling.NewFrameTimer(60),
		shots: debug.NewScreenshotCapture(cfg.Graphics.ScreenshotDir, "gridview"),
		log:   logger.Named("app"),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	var err error
	a.win, err = window.New(window.Config{
		Title:      "gridview",
		Width:      cfg.Graphics.Width,
		Height:     cfg.Graphics.Height,
		Fullscreen: cfg.Graphics.Fullscreen,
		VSync:      cfg.Graphics.VSync,
	})
	if err != nil {
		a.cancel()
		return nil, fmt.Errorf("create window: %w", err)
	}

	w, h := a.win.DrawableSize()
	a.dev, err = glbackend.New(w, h, !cfg.Render.Shaders)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create device: %w", err)
	}

	a.assets = assets.NewManager(assetReaders, assetCacheBytes)
	if err := a.assets.AddRoot(cfg.Assets.Root); err != nil {
		a.log.Warn("asset root unavailable", zap.String("root", cfg.Assets.Root), zap.Error(err))
	}

	var decoded *diskcache.Cache
	if cfg.Streaming.DecodeCacheDir != "" {
		decoded, err = diskcache.New(cfg.Streaming.DecodeCacheDir)
		if err != nil {
			a.log.Warn("decode cache disabled", zap.Error(err))
			decoded = nil
		}
	}
	stream := streaming.New(cfg.Streaming, int(a.dev.Capabilities().MaxTextureSize), a.assets, decoded)
	stream.Start()

	a.view = viewer.New(a.dev, cfg.Render, stream, nil)

	a.feed = wsfeed.New(cfg.Feed, a.view.Sink())
	a.view.SetIntentSink(a.feed)
	if err := a.feed.Start(a.ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("start feed: %w", err)
	}

	if configPath != "" {
		err := config.Watch(a.ctx, configPath, func(c *config.Config) {
			logger.SetLevel(c.Logging.Level)
			a.view.SetConfig(c.Render)
		})
		if err != nil {
			a.log.Warn("config hot reload unavailable", zap.Error(err))
		}
	}

	a.cam = camera.New()
	a.cam.FieldOfView = cfg.Render.FieldOfView
	a.cam.SetFar(cfg.Render.DrawDistance)
	a.cam.SetAspect(w, h)
	a.cam.LookAt(mgl32.Vec3{118, 128, 40}, mgl32.Vec3{128, 128, 30})
	a.cam.Snap()
	return a, nil
}

// Run drives frames until the window closes.
func (a *app) Run() {
	a.log.Info("starting frame loop")
	last := time.Now()
	statsAt := last

	for {
		a.limit.begin()
		profiling.ResetFrame()

		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now
		a.timer.Tick(now)

		if a.in.Update() || !a.handleEvents() {
			return
		}
		a.cam.HandleMovement(
			a.in.Axis(sdl.SCANCODE_W, sdl.SCANCODE_S),
			a.in.Axis(sdl.SCANCODE_D, sdl.SCANCODE_A),
			a.in.Axis(sdl.SCANCODE_E, sdl.SCANCODE_Q),
		)
		a.cam.Step(dt)

		if a.view.Frame(a.cam, dt) {
			if a.in.IsKeyPressed(sdl.SCANCODE_F12) {
				a.screenshot()
			}
			a.win.SwapBuffers()
		}

		if now.Sub(statsAt) >= time.Second {
			statsAt = now
			a.log.Debug("frame",
				zap.Float64("fps", a.timer.FPS()),
				zap.String("top", profiling.TopN(5)),
				zap.Bool("feed", a.feed.Connected()))
		}

		a.limit.wait(frameBudget(a.cfg.Graphics.FPSLimit, a.cfg.Graphics.BackgroundFPS, a.win.Background()))
	}
}

// handleEvents applies this frame's input. It returns false to quit.
func (a *app) handleEvents() bool {
	for _, e := range a.in.Events() {
		switch e.Type {
		case input.EventKeyDown:
			if e.Key == sdl.SCANCODE_ESCAPE {
				return false
			}
		case input.EventWindowResize:
			w, h := a.win.DrawableSize()
			a.dev.SetViewport(w, h)
			a.cam.SetAspect(w, h)
		case input.EventMouseMove:
			if e.Held&sdl.Button(sdl.BUTTON_RIGHT) != 0 {
				a.cam.HandleDrag(e.DeltaX, e.DeltaY)
			}
		case input.EventMouseWheel:
			a.cam.HandleZoom(e.DeltaY)
		case input.EventMouseDown:
			x, y := a.win.Scale(e.MouseX, e.MouseY)
			switch e.Button {
			case sdl.BUTTON_LEFT:
				a.view.Click(a.cam, x, y)
			case sdl.BUTTON_MIDDLE:
				a.view.Interact(a.cam, x, y, feed.IntentGrab)
			}
		}
	}
	return true
}

func (a *app) screenshot() {
	name, err := a.shots.Capture(a.dev)
	if err != nil {
		a.log.Warn("screenshot failed", zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", name))
}

// Close tears everything down in reverse order. Safe on a partially built app.
func (a *app) Close() {
	a.cancel()
	if a.feed != nil {
		a.feed.Close()
	}
	if a.view != nil {
		a.view.Dispose()
	}
	if a.assets != nil {
		a.assets.Close()
	}
	if a.dev != nil {
		a.dev.Close()
	}
	if a.win != nil {
		a.win.Close()
	}
}
