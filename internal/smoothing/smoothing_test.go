package smoothing

import (
	"math"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Alpha:            0.25,
		OutlierThreshold: 0.2,
		MinChange:        0.0,
		IdleTimeout:      2 * time.Second,
		Bounds:           Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1, ZMin: 0, ZMax: 1},
	}
}

func at(ms int) time.Time {
	return time.Unix(0, 0).Add(time.Duration(ms) * time.Millisecond)
}

func TestFirstSampleInitializes(t *testing.T) {
	s := New(testConfig())

	c, ok := s.Update(0.3, 0.4, 0.5, at(0))
	if !ok {
		t.Fatal("first sample should emit")
	}
	if c.X != 0.3 || c.Y != 0.4 || c.Z != 0.5 {
		t.Errorf("first emission should equal the raw sample, got %+v", c)
	}
}

func TestOutlierRejected(t *testing.T) {
	s := New(testConfig())

	s.Update(0.50, 0.50, 0.50, at(0))
	prev, ok := s.Update(0.51, 0.49, 0.50, at(33))
	if !ok {
		t.Fatal("small move should emit")
	}

	// Third sample jumps far beyond the 0.2 threshold.
	if _, ok := s.Update(0.90, 0.10, 0.10, at(66)); ok {
		t.Error("outlier should be rejected, nothing emitted")
	}

	// The held estimate stays near (0.505, 0.495, 0.50).
	next, ok := s.Update(0.51, 0.49, 0.50, at(99))
	if !ok {
		t.Fatal("post-outlier sample should emit")
	}
	if math.Abs(next.X-prev.X) > 0.01 || math.Abs(next.Y-prev.Y) > 0.01 || math.Abs(next.Z-prev.Z) > 0.01 {
		t.Errorf("estimate drifted after rejected outlier: prev=%+v next=%+v", prev, next)
	}
	if math.Abs(prev.X-0.5025) > 0.001 || math.Abs(prev.Y-0.4975) > 0.001 {
		t.Errorf("estimate should stay near (0.5025,0.4975,0.50), got %+v", prev)
	}
}

func TestEmittedMovementBounded(t *testing.T) {
	cfg := testConfig()
	s := New(cfg)

	inputs := []struct{ x, y, z float64 }{
		{0.1, 0.1, 0.1}, {0.15, 0.12, 0.1}, {0.25, 0.18, 0.13},
		{0.28, 0.2, 0.14}, {0.9, 0.9, 0.9}, {0.3, 0.22, 0.16},
	}

	var prev *Coordinate
	for i, in := range inputs {
		c, ok := s.Update(in.x, in.y, in.z, at(i*33))
		if !ok {
			continue
		}
		if prev != nil {
			dx := c.X - prev.X
			dy := c.Y - prev.Y
			dz := c.Z - prev.Z
			move := math.Sqrt(dx*dx + dy*dy + dz*dz)
			if move > cfg.OutlierThreshold {
				t.Errorf("emission %d moved %v, beyond threshold %v", i, move, cfg.OutlierThreshold)
			}
		}
		cc := c
		prev = &cc
	}
}

func TestDeadBandHoldsEstimate(t *testing.T) {
	cfg := testConfig()
	cfg.MinChange = 0.02
	s := New(cfg)

	first, _ := s.Update(0.5, 0.5, 0.5, at(0))
	held, ok := s.Update(0.505, 0.502, 0.5, at(33))
	if !ok {
		t.Fatal("dead-band sample should still emit")
	}
	if held.X != first.X || held.Y != first.Y || held.Z != first.Z {
		t.Errorf("dead-band should re-emit held estimate: first=%+v held=%+v", first, held)
	}
}

func TestNaNRepairedNotFatal(t *testing.T) {
	s := New(testConfig())

	s.Update(0.5, 0.5, 0.5, at(0))
	c, ok := s.Update(math.NaN(), 0.5, 0.5, at(33))
	if !ok {
		t.Fatal("NaN input should be repaired, not rejected")
	}
	if math.IsNaN(c.X) {
		t.Error("NaN leaked into emitted coordinate")
	}
}

func TestOutOfRangeClamped(t *testing.T) {
	cfg := testConfig()
	// Widen the threshold so clamping, not rejection, is exercised.
	cfg.OutlierThreshold = 10
	s := New(cfg)

	s.Update(0.9, 0.9, 0.9, at(0))
	c, ok := s.Update(5.0, -3.0, 0.9, at(33))
	if !ok {
		t.Fatal("clamped sample should emit")
	}
	if c.X > 1 || c.Y < 0 {
		t.Errorf("coordinate not clamped into [0,1]: %+v", c)
	}
}

func TestTimestampsMonotonic(t *testing.T) {
	s := New(testConfig())

	c1, _ := s.Update(0.5, 0.5, 0.5, at(100))
	// Out-of-order input timestamp must not move emissions backward.
	c2, ok := s.Update(0.51, 0.5, 0.5, at(50))
	if !ok {
		t.Fatal("sample should emit")
	}
	if c2.At.Before(c1.At) {
		t.Errorf("timestamp went backward: %v then %v", c1.At, c2.At)
	}
}

func TestIdleTimeoutResets(t *testing.T) {
	s := New(testConfig())

	s.Update(0.2, 0.2, 0.2, at(0))
	// After a long gap the smoother restarts; a far-away position is a
	// new subject, not an outlier.
	c, ok := s.Update(0.9, 0.9, 0.9, at(5000))
	if !ok {
		t.Fatal("first sample after idle reset should emit")
	}
	if c.X != 0.9 {
		t.Errorf("expected fresh initialization at 0.9, got %+v", c)
	}
}

func TestNormalizationUsesBounds(t *testing.T) {
	cfg := testConfig()
	cfg.Bounds = Bounds{XMin: -2, XMax: 2, YMin: -1, YMax: 1, ZMin: 0, ZMax: 10}
	s := New(cfg)

	c, ok := s.Update(0, 0, 5, at(0))
	if !ok {
		t.Fatal("sample should emit")
	}
	if c.X != 0.5 || c.Y != 0.5 || c.Z != 0.5 {
		t.Errorf("expected center of bounds to map to 0.5 on every axis, got %+v", c)
	}
}
