package app

import (
	"context"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/bus"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/smoothing"
	"github.com/ayusman/mudra/internal/source"
)

func pipelineConfig() *config.Config {
	cfg := config.Default()
	cfg.Camera.Enabled = false
	cfg.Depth.Enabled = false
	return cfg
}

// testApp builds the pipeline state without opening any devices.
func testApp(cfg *config.Config) *App {
	return &App{
		cfg:      cfg,
		bus:      bus.New(),
		tracker:  gesture.NewTracker(gestureConfig(cfg.Gestures)),
		smoother: smoothing.New(smootherConfig(cfg)),
	}
}

func collectTopic(t *testing.T, b *bus.Bus, topic bus.Topic) <-chan bus.Envelope {
	t.Helper()
	ch := make(chan bus.Envelope, 256)
	_, err := b.Subscribe(topic, bus.SinkFunc("collector", func(env bus.Envelope) error {
		ch <- env
		return nil
	}), bus.WithPolicy(bus.PolicyDropOldest), bus.WithBuffer(128))
	if err != nil {
		t.Fatal(err)
	}
	return ch
}

func waitEnvelope(t *testing.T, ch <-chan bus.Envelope) bus.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope arrived")
		return bus.Envelope{}
	}
}

func handSample(at time.Time) source.Sample {
	hand := detector.ThumbsUpLandmarks()
	hand.Handedness = "Left"
	return source.Sample{
		Kind:  source.KindHands,
		At:    at,
		Hands: []detector.HandLandmarks{hand},
		Frame: []byte{0xff, 0xd8, 0xff, 0xd9},
	}
}

func TestPipelinePublishesGestureAndStreams(t *testing.T) {
	a := testApp(pipelineConfig())
	defer a.bus.Close()

	actions := collectTopic(t, a.bus, bus.TopicGestureActions)
	spatial := collectTopic(t, a.bus, bus.TopicSpatial)
	viz := collectTopic(t, a.bus, bus.TopicVisualization)

	src := source.NewMockSource("camera")
	base := time.Now()
	for i := 0; i < 5; i++ {
		src.Push(handSample(base.Add(time.Duration(i) * 50 * time.Millisecond)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(a)
	p.start(ctx, []source.Source{src})
	defer p.stop()

	env := waitEnvelope(t, actions)
	ev, ok := env.Payload.(gesture.Event)
	if !ok {
		t.Fatalf("action payload is %T", env.Payload)
	}
	if ev.Label != gesture.LabelUpScene {
		t.Errorf("label = %q, want %q", ev.Label, gesture.LabelUpScene)
	}

	// The camera drives the spatial stream when no depth sensor runs.
	env = waitEnvelope(t, spatial)
	if _, ok := env.Payload.(smoothing.Coordinate); !ok {
		t.Errorf("spatial payload is %T", env.Payload)
	}

	// The visualization topic carries both frames and hand telemetry.
	sawFrame, sawUpdate := false, false
	deadline := time.After(2 * time.Second)
	for !(sawFrame && sawUpdate) {
		select {
		case env := <-viz:
			switch env.Payload.(type) {
			case []byte:
				sawFrame = true
			case detector.HandUpdate:
				sawUpdate = true
			}
		case <-deadline:
			t.Fatalf("visualization incomplete: frame=%v update=%v", sawFrame, sawUpdate)
		}
	}
}

func TestPipelinePublishesDepthCoordinates(t *testing.T) {
	cfg := pipelineConfig()
	cfg.Depth.Enabled = true
	a := testApp(cfg)
	defer a.bus.Close()

	spatial := collectTopic(t, a.bus, bus.TopicSpatial)

	src := source.NewMockSource("depth")
	src.Push(source.Sample{Kind: source.KindPosition, At: time.Now(), X: 0.0, Y: 0.0, Z: 5.0})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(a)
	p.start(ctx, []source.Source{src})
	defer p.stop()

	env := waitEnvelope(t, spatial)
	c, ok := env.Payload.(smoothing.Coordinate)
	if !ok {
		t.Fatalf("payload is %T", env.Payload)
	}
	// Positions are normalized into the configured field of view.
	if c.X < 0 || c.X > 1 || c.Y < 0 || c.Y > 1 || c.Z < 0 || c.Z > 1 {
		t.Errorf("coordinate not normalized: %+v", c)
	}
}

func TestPipelineRestartsLostSource(t *testing.T) {
	restore := restartBackoffMin
	restartBackoffMin = time.Millisecond
	defer func() { restartBackoffMin = restore }()

	a := testApp(pipelineConfig())
	defer a.bus.Close()

	actions := collectTopic(t, a.bus, bus.TopicGestureActions)

	src := source.NewMockSource("camera")
	// Three frames of progress, then the sensor dies mid-streak.
	base := time.Now()
	for i := 0; i < 3; i++ {
		src.Push(handSample(base.Add(time.Duration(i) * 50 * time.Millisecond)))
	}
	src.Fail(source.ErrSourceLost)
	// After the restart the streak starts over: four frames stay
	// silent, the fifth fires.
	after := base.Add(time.Second)
	for i := 0; i < 5; i++ {
		src.Push(handSample(after.Add(time.Duration(i) * 50 * time.Millisecond)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(a)
	p.start(ctx, []source.Source{src})
	defer p.stop()

	env := waitEnvelope(t, actions)
	ev := env.Payload.(gesture.Event)
	if !ev.FiredAt.Equal(after.Add(4 * 50 * time.Millisecond)) {
		t.Errorf("fired at %v, want the fifth post-restart frame", ev.FiredAt)
	}
	if src.Resets() != 1 {
		t.Errorf("source resets = %d, want 1", src.Resets())
	}
}

func TestPipelineGivesUpAfterRestartBudget(t *testing.T) {
	restoreMin, restoreMax := restartBackoffMin, restartBackoffMax
	restartBackoffMin = time.Millisecond
	restartBackoffMax = 2 * time.Millisecond
	defer func() { restartBackoffMin, restartBackoffMax = restoreMin, restoreMax }()

	a := testApp(pipelineConfig())
	defer a.bus.Close()

	src := source.NewMockSource("camera")
	for i := 0; i <= maxRestarts; i++ {
		src.Fail(source.ErrSourceLost)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := newPipeline(a)
	p.start(ctx, []source.Source{src})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline goroutine did not give up")
	}
	if src.Resets() != maxRestarts {
		t.Errorf("source resets = %d, want %d", src.Resets(), maxRestarts)
	}
}

func TestRunShutsDownCleanly(t *testing.T) {
	cfg := pipelineConfig()
	cfg.Server.Addr = "127.0.0.1:0"

	a := testApp(cfg)
	a.srv = server.New(cfg.Server, server.NewFrameStore(), server.NewHub())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}
}
