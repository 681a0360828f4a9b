// Package app wires the sensors, the gesture pipeline, the event bus
// and the output channels into one runnable unit.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/bus"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logger"
	oscout "github.com/ayusman/mudra/internal/osc"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/smoothing"
	"github.com/ayusman/mudra/internal/source"
)

const shutdownTimeout = 5 * time.Second

// actionQueueDepth bounds the drop-oldest mailboxes behind the
// gesture-actions topic.
const actionQueueDepth = 32

// App owns every pipeline component. Construct with New, drive with Run.
type App struct {
	cfg *config.Config

	bus      *bus.Bus
	tracker  *gesture.Tracker
	smoother *smoothing.Smoother
	srv      *server.Server
	sources  []source.Source
}

// New assembles the pipeline from configuration. Sensor devices are
// opened lazily when Run starts pulling samples.
func New(cfg *config.Config) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		bus:      bus.New(bus.WithBufferSize(actionQueueDepth)),
		tracker:  gesture.NewTracker(gestureConfig(cfg.Gestures)),
		smoother: smoothing.New(smootherConfig(cfg)),
	}

	frames := server.NewFrameStore()
	hub := server.NewHub()
	a.srv = server.New(cfg.Server, frames, hub)

	if err := a.subscribeSinks(frames, hub); err != nil {
		return nil, err
	}

	if cfg.Camera.Enabled {
		cam := capture.NewCamera(cfg.Camera.DeviceID, cfg.Camera.Width, cfg.Camera.Height)
		det, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("landmark detector: %w", err)
		}
		a.sources = append(a.sources, source.NewCameraSource(cfg.Camera, cam, det))
	}
	if cfg.Depth.Enabled {
		a.sources = append(a.sources, source.NewDepthSource(cfg.Depth))
	}

	return a, nil
}

// subscribeSinks attaches every output channel to the bus. Discrete
// gesture events ride bounded queues so none are lost to a newer one;
// continuous streams keep only the freshest value.
func (a *App) subscribeSinks(frames *server.FrameStore, hub *server.Hub) error {
	subs := []struct {
		topic bus.Topic
		sink  bus.Sink
		opts  []bus.SubscribeOption
	}{
		{bus.TopicGestureActions, oscout.NewActionSink(a.cfg.Outputs.ActionHost, a.cfg.Outputs.ActionPort),
			[]bus.SubscribeOption{bus.WithPolicy(bus.PolicyDropOldest)}},
		{bus.TopicSpatial, oscout.NewSpatialSink(a.cfg.Outputs.SpatialHost, a.cfg.Outputs.SpatialPort),
			[]bus.SubscribeOption{bus.WithPolicy(bus.PolicyLatest)}},
		{bus.TopicVisualization, frames,
			[]bus.SubscribeOption{bus.WithPolicy(bus.PolicyLatest)}},
		{bus.TopicVisualization, hub,
			[]bus.SubscribeOption{bus.WithPolicy(bus.PolicyLatest)}},
		{bus.TopicSpatial, hub,
			[]bus.SubscribeOption{bus.WithPolicy(bus.PolicyLatest)}},
		{bus.TopicGestureActions, hub,
			[]bus.SubscribeOption{bus.WithPolicy(bus.PolicyDropOldest)}},
	}
	for _, s := range subs {
		if _, err := a.bus.Subscribe(s.topic, s.sink, s.opts...); err != nil {
			return err
		}
	}
	return nil
}

// Run starts the HTTP server and the source pumps, then blocks until
// the context is cancelled. Shutdown order: sources first, then the
// bus, then the server, so queued output drains before the sinks die.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.srv.Run()
	}()

	p := newPipeline(a)
	p.start(ctx, a.sources)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	p.stop()
	for _, src := range a.sources {
		if err := src.Close(); err != nil {
			logger.Logger().Warnw("source close failed", "source", src.Name(), "error", err)
		}
	}
	a.bus.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger().Warnw("server shutdown failed", "error", err)
	}

	return runErr
}

func gestureConfig(cfg config.GestureConfig) gesture.Config {
	return gesture.Config{
		DebounceFrames: cfg.DebounceFrames,
		MinConfidence:  cfg.MinConfidence,
		SwipeCooldown:  cfg.SwipeCooldown,
		ShapeCooldown:  cfg.ShapeCooldown,
		HoldCooldown:   cfg.HoldCooldown,
		TrackTimeout:   cfg.TrackTimeout,
	}
}

// smootherConfig selects the coordinate space: the depth sensor's field
// of view in meters when depth drives the spatial stream, otherwise the
// camera's normalized image space with MediaPipe's relative depth on Z.
func smootherConfig(cfg *config.Config) smoothing.Config {
	bounds := smoothing.Bounds{
		XMin: 0, XMax: 1,
		YMin: 0, YMax: 1,
		ZMin: -0.5, ZMax: 0.5,
	}
	if cfg.Depth.Enabled {
		fb := cfg.Depth.Bounds
		bounds = smoothing.Bounds{
			XMin: fb.XMin, XMax: fb.XMax,
			YMin: fb.YMin, YMax: fb.YMax,
			ZMin: fb.ZMin, ZMax: fb.ZMax,
		}
	}
	return smoothing.Config{
		Alpha:            cfg.Smoothing.Alpha,
		OutlierThreshold: cfg.Smoothing.OutlierThreshold,
		MinChange:        cfg.Smoothing.MinChange,
		IdleTimeout:      cfg.Smoothing.IdleTimeout,
		Bounds:           bounds,
	}
}
