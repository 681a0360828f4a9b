// Package smoothing stabilizes the raw 3D position stream from the depth
// sensor into a low-jitter coordinate stream suitable for spatial control.
// It applies exponential moving-average smoothing per axis, a dead-band
// that suppresses sub-threshold wobble, and outlier rejection so a single
// bad depth frame cannot cause an audible panning jump.
package smoothing

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
)

// Coordinate is one smoothed spatial estimate, all axes in [0,1].
// Timestamps are monotonically non-decreasing across emissions from the
// same smoother.
type Coordinate struct {
	X  float64   `json:"x"`
	Y  float64   `json:"y"`
	Z  float64   `json:"z"`
	At time.Time `json:"at"`
}

// Bounds maps raw sensor units (meters) onto the [0,1] control range.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// Config holds the smoother parameters, fixed per deployment.
type Config struct {
	// Alpha is the EMA coefficient: higher alpha means lower latency
	// and more jitter.
	Alpha float64
	// OutlierThreshold is the maximum accepted jump, in normalized
	// units, between the previous estimate and a new raw sample.
	OutlierThreshold float64
	// MinChange is the dead-band: changes smaller than this re-emit
	// the previous estimate unchanged.
	MinChange float64
	// IdleTimeout resets the smoother after a gap with no input.
	IdleTimeout time.Duration
	// Bounds is the sensor field of view used for normalization.
	Bounds Bounds
}

// Smoother converts raw positions into stabilized coordinates. Not safe
// for concurrent use; it is called synchronously from the depth source's
// delivery goroutine.
type Smoother struct {
	cfg         Config
	prev        Coordinate
	initialized bool
	lastInput   time.Time
	lastEmitted time.Time
}

// New creates a Smoother with the given configuration.
func New(cfg Config) *Smoother {
	return &Smoother{cfg: cfg}
}

// Update processes one raw position sample in sensor units. It returns
// the smoothed coordinate and true, or a zero Coordinate and false when
// the sample was rejected as a tracking glitch. Malformed input (NaN,
// out-of-range) is repaired and logged as a diagnostic, never surfaced
// as an error.
func (s *Smoother) Update(x, y, z float64, at time.Time) (Coordinate, bool) {
	// Stale state from a previous subject must not bleed into a new one.
	if s.initialized && s.cfg.IdleTimeout > 0 && at.Sub(s.lastInput) > s.cfg.IdleTimeout {
		logger.Logger().Debugw("smoother idle timeout, resetting", "gap", at.Sub(s.lastInput))
		s.Reset()
	}
	s.lastInput = at

	nx := s.repair(normalize(x, s.cfg.Bounds.XMin, s.cfg.Bounds.XMax), s.prev.X)
	ny := s.repair(normalize(y, s.cfg.Bounds.YMin, s.cfg.Bounds.YMax), s.prev.Y)
	nz := s.repair(normalize(z, s.cfg.Bounds.ZMin, s.cfg.Bounds.ZMax), s.prev.Z)

	if !s.initialized {
		s.prev = Coordinate{X: nx, Y: ny, Z: nz}
		s.initialized = true
		return s.emit(at)
	}

	dx := nx - s.prev.X
	dy := ny - s.prev.Y
	dz := nz - s.prev.Z
	change := math.Sqrt(dx*dx + dy*dy + dz*dz)

	// A jump beyond the outlier threshold is a tracking glitch: keep
	// the previous estimate and emit nothing.
	if change > s.cfg.OutlierThreshold {
		metrics.RecordCoordinateRejected()
		logger.Logger().Debugw("position outlier rejected", "change", change, "threshold", s.cfg.OutlierThreshold)
		return Coordinate{}, false
	}

	// Dead-band: ignore sub-threshold wobble, re-emit the held estimate.
	if change < s.cfg.MinChange {
		return s.emit(at)
	}

	a := s.cfg.Alpha
	s.prev.X = a*nx + (1-a)*s.prev.X
	s.prev.Y = a*ny + (1-a)*s.prev.Y
	s.prev.Z = a*nz + (1-a)*s.prev.Z

	return s.emit(at)
}

// Reset clears the smoothing state. Called when the depth source is lost
// so a new tracked subject starts fresh.
func (s *Smoother) Reset() {
	s.prev = Coordinate{}
	s.initialized = false
}

// emit stamps the current estimate, never letting timestamps go backward.
func (s *Smoother) emit(at time.Time) (Coordinate, bool) {
	if at.Before(s.lastEmitted) {
		at = s.lastEmitted
	}
	s.lastEmitted = at

	c := s.prev
	c.At = at
	return c, true
}

// repair substitutes the previous axis value for NaN input and clamps
// the rest into [0,1].
func (s *Smoother) repair(v, prev float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		logger.Logger().Debugw("malformed position axis, holding previous value")
		if s.initialized {
			return prev
		}
		return 0.5
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func normalize(v, min, max float64) float64 {
	if max <= min {
		return v
	}
	return (v - min) / (max - min)
}
