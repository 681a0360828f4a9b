package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/bus"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/source"
)

// Restart policy for lost sensors. A successful sample clears the
// restart count; exhausting it abandons the source for the rest of the
// run rather than spinning on dead hardware. Vars so tests can shrink
// the backoff.
var (
	maxRestarts       = 5
	restartBackoffMin = 500 * time.Millisecond
	restartBackoffMax = 5 * time.Second
)

// pipeline runs one goroutine per source and routes samples into the
// tracker, the smoother and the bus. Each source goroutine exclusively
// owns whichever of those its samples touch, so no locks are needed
// around them.
type pipeline struct {
	app    *App
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newPipeline(a *App) *pipeline {
	return &pipeline{app: a}
}

func (p *pipeline) start(ctx context.Context, sources []source.Source) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, src := range sources {
		p.wg.Add(1)
		go p.run(ctx, src)
	}
}

func (p *pipeline) stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

func (p *pipeline) run(ctx context.Context, src source.Source) {
	defer p.wg.Done()

	log := logger.Logger().With("source", src.Name())
	restarts := 0
	backoff := restartBackoffMin

	for {
		sample, err := src.Next(ctx)
		switch {
		case err == nil:
			restarts = 0
			backoff = restartBackoffMin
			p.process(src, sample)

		case ctx.Err() != nil:
			return

		case errors.Is(err, source.ErrSourceLost):
			restarts++
			metrics.RecordSensorRestart(src.Name())
			if restarts > maxRestarts {
				log.Errorw("sensor lost, restart budget exhausted", "restarts", restarts-1)
				return
			}
			log.Warnw("sensor lost, restarting", "attempt", restarts, "backoff", backoff)
			if err := src.Reset(); err != nil {
				log.Warnw("sensor reset failed", "error", err)
			}
			p.resetState(src)

			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}

		default:
			log.Warnw("sample read failed", "error", err)
		}
	}
}

// resetState discards in-flight pipeline state tied to a restarted
// source, so a reacquired sensor starts from a clean slate.
func (p *pipeline) resetState(src source.Source) {
	switch src.Name() {
	case "camera":
		p.app.tracker.Reset()
		if !p.app.cfg.Depth.Enabled {
			p.app.smoother.Reset()
		}
	case "depth":
		p.app.smoother.Reset()
	}
}

func (p *pipeline) process(src source.Source, sample source.Sample) {
	switch sample.Kind {
	case source.KindHands:
		p.processHands(src, sample)
	case source.KindPosition:
		p.publishCoordinate(sample.X, sample.Y, sample.Z, sample.At)
	}
}

func (p *pipeline) processHands(src source.Source, sample source.Sample) {
	a := p.app

	for _, ev := range a.tracker.Observe(sample.Hands, sample.At) {
		logger.Logger().Infow("gesture fired",
			"label", ev.Label,
			"role", ev.Role,
		)
		a.bus.Publish(bus.TopicGestureActions, ev.FiredAt, ev)
		if an, ok := src.(source.Announcer); ok {
			an.Announce(ev.Label.Description())
		}
	}

	if len(sample.Frame) > 0 {
		a.bus.Publish(bus.TopicVisualization, sample.At, sample.Frame)
	}
	if len(sample.Hands) > 0 {
		a.bus.Publish(bus.TopicVisualization, sample.At, detector.Aggregate(sample.Hands))

		// Without a depth sensor the first hand's palm drives the
		// spatial stream.
		if !a.cfg.Depth.Enabled {
			palm := sample.Hands[0].PalmCenter()
			p.publishCoordinate(palm.X, palm.Y, palm.Z, sample.At)
		}
	}
}

func (p *pipeline) publishCoordinate(x, y, z float64, at time.Time) {
	c, ok := p.app.smoother.Update(x, y, z, at)
	if !ok {
		return
	}
	p.app.bus.Publish(bus.TopicSpatial, at, c)
}
