// Package source adapts the physical sensors to a single sample stream.
// Each adapter owns its device lifecycle and surfaces loss of the device
// as ErrSourceLost so the pipeline can decide whether to restart it.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Kind tags what a sample carries.
type Kind string

const (
	// KindHands is a camera sample: detected hand landmarks plus the
	// annotated JPEG frame they were found in.
	KindHands Kind = "hands"
	// KindPosition is a depth sample: a raw subject position in sensor
	// space, meters.
	KindPosition Kind = "position"
)

// ErrSourceLost means the underlying sensor is gone and the adapter
// cannot produce further samples without a Reset.
var ErrSourceLost = errors.New("source: sensor lost")

// Sample is one reading from a sensor. Hands and Frame are set for
// KindHands; X, Y, Z for KindPosition.
type Sample struct {
	Kind  Kind
	At    time.Time
	Hands []detector.HandLandmarks
	Frame []byte
	X     float64
	Y     float64
	Z     float64
}

// Announcer is implemented by sources that can overlay a short-lived
// text banner on their frames, used to echo fired gestures back onto
// the monitoring feed.
type Announcer interface {
	Announce(text string)
}

// Source is a blocking sample stream over one sensor.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Next blocks until a sample is available, the context is done, or
	// the sensor is lost.
	Next(ctx context.Context) (Sample, error)
	// Reset tears down device state so the next call to Next reopens
	// the sensor from scratch.
	Reset() error
	Close() error
}
