// Package osc sends gesture events and smoothed coordinates to the
// control surface over OSC/UDP. Both channels are fire-and-forget: a
// dropped datagram is worth less than a stalled pipeline.
package osc

import (
	"fmt"

	goosc "github.com/hypebeast/go-osc/osc"

	"github.com/ayusman/mudra/internal/bus"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/smoothing"
)

// SpatialAddress is the OSC address of the coordinate stream.
const SpatialAddress = "/spatial/xyz"

// ActionSink forwards gesture events, one OSC message per event, using
// the event's own address and integer action code.
type ActionSink struct {
	client *goosc.Client
}

// NewActionSink builds a sink for the action control channel.
func NewActionSink(host string, port int) *ActionSink {
	return &ActionSink{client: goosc.NewClient(host, port)}
}

// Name implements bus.Sink.
func (s *ActionSink) Name() string { return "osc-actions" }

// Deliver implements bus.Sink. Envelopes that do not carry a gesture
// event are ignored.
func (s *ActionSink) Deliver(env bus.Envelope) error {
	ev, ok := env.Payload.(gesture.Event)
	if !ok {
		return nil
	}

	msg := goosc.NewMessage(ev.Label.Address())
	msg.Append(ev.Code)
	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("send action %s: %w", ev.Label, err)
	}
	metrics.RecordGestureEvent(string(ev.Label))
	return nil
}

// SpatialSink forwards smoothed coordinates as float triples on
// SpatialAddress.
type SpatialSink struct {
	client *goosc.Client
}

// NewSpatialSink builds a sink for the coordinate channel.
func NewSpatialSink(host string, port int) *SpatialSink {
	return &SpatialSink{client: goosc.NewClient(host, port)}
}

// Name implements bus.Sink.
func (s *SpatialSink) Name() string { return "osc-spatial" }

// Deliver implements bus.Sink. Envelopes that do not carry a coordinate
// are ignored.
func (s *SpatialSink) Deliver(env bus.Envelope) error {
	c, ok := env.Payload.(smoothing.Coordinate)
	if !ok {
		return nil
	}

	msg := goosc.NewMessage(SpatialAddress)
	msg.Append(float32(c.X))
	msg.Append(float32(c.Y))
	msg.Append(float32(c.Z))
	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("send coordinate: %w", err)
	}
	return nil
}
