package gesture

import (
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// State is the classifier's debounce phase for its current candidate.
type State int

const (
	// StateIdle means no template is currently matching.
	StateIdle State = iota
	// StateCandidate means a template has matched but not yet for the
	// full debounce window.
	StateCandidate
	// StateCooldown means the last fired label is inside its refractory
	// period. Firing itself is reported through the returned Event.
	StateCooldown
)

// Config holds the classifier tuning parameters.
type Config struct {
	// DebounceFrames is the number of consecutive matching frames a
	// candidate must sustain before it fires.
	DebounceFrames int
	// MinConfidence is the shape match threshold.
	MinConfidence float64
	// SwipeCooldown, ShapeCooldown and HoldCooldown are per-kind
	// refractory periods applied after a label fires.
	SwipeCooldown time.Duration
	ShapeCooldown time.Duration
	HoldCooldown  time.Duration
	// TrackTimeout resets a role's state after its hand disappears.
	TrackTimeout time.Duration
}

// DefaultConfig returns the tuning used when no configuration is given.
func DefaultConfig() Config {
	return Config{
		DebounceFrames: 5,
		MinConfidence:  0.6,
		SwipeCooldown:  2500 * time.Millisecond,
		ShapeCooldown:  1500 * time.Millisecond,
		HoldCooldown:   2 * time.Second,
		TrackTimeout:   time.Second,
	}
}

// Observation is one frame's worth of input for a single role. Single
// hand roles populate Hand; the two-hand role populates Hands.
type Observation struct {
	Hand  *detector.HandLandmarks
	Hands []detector.HandLandmarks
	At    time.Time
}

// Classifier runs the debounce state machine for one role. It is not
// safe for concurrent use; the capture loop owns it.
type Classifier struct {
	role      Role
	cfg       Config
	templates []Template

	state     State
	candidate Label
	count     int
	lastFired map[Label]time.Time
	history   pathHistory
}

// NewClassifier builds a classifier for a role with its default
// template vocabulary.
func NewClassifier(role Role, cfg Config) *Classifier {
	return NewClassifierWithTemplates(role, cfg, DefaultTemplates(role, cfg))
}

// NewClassifierWithTemplates builds a classifier with an explicit
// template set. Template order decides ties between equal-confidence
// matches.
func NewClassifierWithTemplates(role Role, cfg Config, templates []Template) *Classifier {
	if cfg.DebounceFrames < 1 {
		cfg.DebounceFrames = 1
	}
	return &Classifier{
		role:      role,
		cfg:       cfg,
		templates: templates,
		lastFired: make(map[Label]time.Time),
	}
}

// Role returns the role this classifier tracks.
func (c *Classifier) Role() Role {
	return c.role
}

// State returns the current debounce phase.
func (c *Classifier) State() State {
	return c.state
}

// Reset discards in-flight debounce progress and trajectory history.
// Fired-label cooldowns survive so a hand dropping out of view right
// after an event cannot immediately re-fire it.
func (c *Classifier) Reset() {
	c.state = StateIdle
	c.candidate = ""
	c.count = 0
	c.history.clear()
}

// Classify consumes one observation and reports whether a gesture fired.
// A malformed or missing hand counts as a non-matching frame and breaks
// any debounce streak.
func (c *Classifier) Classify(obs Observation) (Event, bool) {
	c.recordPath(obs)

	label, tmpl, ok := c.bestMatch(obs)
	if !ok {
		c.breakStreak(obs.At)
		return Event{}, false
	}

	if label != c.candidate {
		c.candidate = label
		c.count = 0
	}
	c.count++
	c.state = StateCandidate

	window := c.cfg.DebounceFrames
	if tmpl.DebounceFrames > 0 {
		window = tmpl.DebounceFrames
	}
	if c.count < window {
		return Event{}, false
	}

	c.lastFired[label] = obs.At
	ev := newEvent(label, c.role, obs.At)

	c.candidate = ""
	c.count = 0
	c.state = StateCooldown
	if tmpl.Kind == KindSwipe {
		c.history.clear()
	}
	return ev, true
}

// recordPath appends the palm center to the trajectory history.
func (c *Classifier) recordPath(obs Observation) {
	if obs.Hand == nil || !obs.Hand.Valid() {
		return
	}
	p := obs.Hand.PalmCenter()
	c.history.push(pathPoint{X: p.X, Y: p.Y, At: obs.At})
}

// bestMatch evaluates every template outside its cooldown and returns
// the highest-confidence match. Equal confidence goes to the template
// declared first.
func (c *Classifier) bestMatch(obs Observation) (Label, Template, bool) {
	var (
		best     Template
		bestConf float64
		found    bool
	)
	for _, tmpl := range c.templates {
		if c.inCooldown(tmpl, obs.At) {
			continue
		}
		conf, ok := c.evaluate(tmpl, obs)
		if !ok {
			continue
		}
		if !found || conf > bestConf {
			best = tmpl
			bestConf = conf
			found = true
		}
	}
	if !found {
		return "", Template{}, false
	}
	return best.Label, best, true
}

// inCooldown reports whether the template's label is still refractory.
func (c *Classifier) inCooldown(tmpl Template, at time.Time) bool {
	fired, ok := c.lastFired[tmpl.Label]
	if !ok {
		return false
	}
	return at.Sub(fired) < tmpl.Cooldown
}

// evaluate scores one template against the observation.
func (c *Classifier) evaluate(tmpl Template, obs Observation) (float64, bool) {
	switch tmpl.Kind {
	case KindShape:
		conf := shapeConfidence(tmpl.Landmarks, obs.Hand)
		return conf, conf >= tmpl.MinConfidence
	case KindSwipe:
		if c.history.swipe(tmpl.Direction) {
			return 1.0, true
		}
		return 0, false
	case KindHold:
		return c.evaluateHold(tmpl, obs.Hands)
	}
	return 0, false
}

// evaluateHold requires at least two hands each matching one of the
// template's postures, and averages their best scores.
func (c *Classifier) evaluateHold(tmpl Template, hands []detector.HandLandmarks) (float64, bool) {
	matched := 0
	total := 0.0
	for i := range hands {
		best := 0.0
		for _, posture := range tmpl.Postures {
			if conf := shapeConfidence(posture, &hands[i]); conf > best {
				best = conf
			}
		}
		if best >= tmpl.MinConfidence {
			matched++
			total += best
		}
	}
	if matched < 2 {
		return 0, false
	}
	return total / float64(matched), true
}

// breakStreak handles a non-matching frame: debounce progress is lost
// and the state reflects whether a recent fire is still refractory.
func (c *Classifier) breakStreak(at time.Time) {
	c.candidate = ""
	c.count = 0
	c.state = StateIdle
	for _, tmpl := range c.templates {
		if c.inCooldown(tmpl, at) {
			c.state = StateCooldown
			return
		}
	}
}
