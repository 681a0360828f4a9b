package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Tracker partitions detected hands by role and feeds each role's
// classifier. The capture loop calls Observe once per frame, including
// frames with no hands, so loss-of-track timeouts advance even when the
// detector reports nothing. Not safe for concurrent use.
type Tracker struct {
	cfg         Config
	classifiers map[Role]*Classifier
	lastSeen    map[Role]time.Time
}

// NewTracker builds a tracker with the default template vocabulary for
// every role.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{
		cfg: cfg,
		classifiers: map[Role]*Classifier{
			RoleLeft:  NewClassifier(RoleLeft, cfg),
			RoleRight: NewClassifier(RoleRight, cfg),
			RoleBoth:  NewClassifier(RoleBoth, cfg),
		},
		lastSeen: make(map[Role]time.Time),
	}
}

// Classifier exposes a single role's classifier, mostly for tests and
// diagnostics.
func (t *Tracker) Classifier(role Role) *Classifier {
	return t.classifiers[role]
}

// Observe routes one frame of detections and returns any events that
// fired. Events from different roles in the same frame are all returned,
// in left, right, both order.
func (t *Tracker) Observe(hands []detector.HandLandmarks, at time.Time) []Event {
	t.expireStale(at)

	var left, right *detector.HandLandmarks
	for i := range hands {
		switch Role(hands[i].Handedness) {
		case RoleLeft:
			if left == nil {
				left = &hands[i]
			}
		case RoleRight:
			if right == nil {
				right = &hands[i]
			}
		}
	}

	var events []Event
	if ev, ok := t.observeRole(RoleLeft, Observation{Hand: left, At: at}, left != nil); ok {
		events = append(events, ev)
	}
	if ev, ok := t.observeRole(RoleRight, Observation{Hand: right, At: at}, right != nil); ok {
		events = append(events, ev)
	}
	both := len(hands) >= 2
	if ev, ok := t.observeRole(RoleBoth, Observation{Hands: hands, At: at}, both); ok {
		events = append(events, ev)
	}
	return events
}

// Reset clears every role's in-flight state.
func (t *Tracker) Reset() {
	for _, c := range t.classifiers {
		c.Reset()
	}
	t.lastSeen = make(map[Role]time.Time)
}

// observeRole classifies one role's slice of the frame and updates its
// visibility timestamp.
func (t *Tracker) observeRole(role Role, obs Observation, present bool) (Event, bool) {
	if present {
		t.lastSeen[role] = obs.At
	}
	return t.classifiers[role].Classify(obs)
}

// expireStale resets classifiers whose role has been out of view longer
// than the track timeout. Cooldowns survive the reset, only debounce
// progress is discarded.
func (t *Tracker) expireStale(at time.Time) {
	if t.cfg.TrackTimeout <= 0 {
		return
	}
	for role, seen := range t.lastSeen {
		if at.Sub(seen) > t.cfg.TrackTimeout {
			t.classifiers[role].Reset()
			delete(t.lastSeen, role)
		}
	}
}
