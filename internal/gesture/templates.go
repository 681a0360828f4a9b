package gesture

import (
	"math"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

// Kind distinguishes how a template is matched against observations.
type Kind int

const (
	// KindShape matches a static hand posture against stored landmarks.
	KindShape Kind = iota
	// KindSwipe matches a lateral palm trajectory across the frame.
	KindSwipe
	// KindHold matches a posture held by both hands at once.
	KindHold
)

// holdMinConfidence is the match threshold for two-hand hold postures.
// Curled-finger shapes score close to a fist, so holds demand a tighter
// fit than single-hand shapes.
const holdMinConfidence = 0.85

// SwipeDir is the required travel direction for swipe templates.
type SwipeDir int

const (
	SwipeLeftToRight SwipeDir = iota
	SwipeRightToLeft
)

// Template describes one recognizable gesture. Shape templates carry
// reference landmarks in normalized space; hold templates carry one or
// more alternative postures; swipe templates carry a direction instead.
type Template struct {
	Label         Label
	Kind          Kind
	Landmarks     []detector.Point3D
	Postures      [][]detector.Point3D
	Direction     SwipeDir
	MinConfidence float64
	Cooldown      time.Duration

	// DebounceFrames overrides the classifier-wide debounce window when
	// positive. Swipe templates use 1: their stability comes from the
	// trajectory history, and the palm keeps moving after the travel
	// threshold is crossed, so consecutive-frame confirmation would
	// suppress them entirely.
	DebounceFrames int
}

// shapeTemplate normalizes a reference hand and wraps it as a shape
// template.
func shapeTemplate(label Label, hand detector.HandLandmarks, minConf float64, cooldown time.Duration) Template {
	norm := hand.Normalize()
	points := make([]detector.Point3D, detector.NumLandmarks)
	copy(points, norm.Points[:])
	return Template{
		Label:         label,
		Kind:          KindShape,
		Landmarks:     points,
		MinConfidence: minConf,
		Cooldown:      cooldown,
	}
}

// holdTemplate wraps reference postures as a two-hand hold. Each hand
// matches the closest posture, so the hands may hold different ones.
func holdTemplate(label Label, cooldown time.Duration, hands ...detector.HandLandmarks) Template {
	postures := make([][]detector.Point3D, 0, len(hands))
	for _, hand := range hands {
		norm := hand.Normalize()
		points := make([]detector.Point3D, detector.NumLandmarks)
		copy(points, norm.Points[:])
		postures = append(postures, points)
	}
	return Template{
		Label:         label,
		Kind:          KindHold,
		Postures:      postures,
		MinConfidence: holdMinConfidence,
		Cooldown:      cooldown,
	}
}

// DefaultTemplates returns the built-in gesture vocabulary for a role.
// Cooldowns come from the supplied config so operators can retune them
// without touching the reference postures.
func DefaultTemplates(role Role, cfg Config) []Template {
	switch role {
	case RoleLeft:
		return []Template{
			{
				Label:          LabelRightTrack,
				Kind:           KindSwipe,
				Direction:      SwipeLeftToRight,
				Cooldown:       cfg.SwipeCooldown,
				DebounceFrames: 1,
			},
			shapeTemplate(LabelUpScene, detector.ThumbsUpLandmarks(), cfg.MinConfidence, cfg.ShapeCooldown),
			shapeTemplate(LabelDownScene, detector.ThumbsDownLandmarks(), cfg.MinConfidence, cfg.ShapeCooldown),
		}
	case RoleRight:
		return []Template{
			{
				Label:          LabelLeftTrack,
				Kind:           KindSwipe,
				Direction:      SwipeRightToLeft,
				Cooldown:       cfg.SwipeCooldown,
				DebounceFrames: 1,
			},
			shapeTemplate(LabelFireClip, detector.VictoryLandmarks(), cfg.MinConfidence, cfg.ShapeCooldown),
			shapeTemplate(LabelFireScene, detector.PointingUpLandmarks(), cfg.MinConfidence, cfg.ShapeCooldown),
		}
	case RoleBoth:
		// Either grip counts as holding, and the hands need not agree.
		return []Template{
			holdTemplate(LabelMasterTrack, cfg.HoldCooldown,
				detector.ClosedFistLandmarks(),
				detector.OpenPalmLandmarks()),
		}
	}
	return nil
}

// shapeConfidence scores a hand against reference landmarks. Both sides
// are compared in normalized space so the score is translation and scale
// invariant. An exact match scores 1.0 and the score decays with the
// mean per-landmark distance.
func shapeConfidence(tmpl []detector.Point3D, hand *detector.HandLandmarks) float64 {
	if hand == nil || !hand.Valid() || len(tmpl) != detector.NumLandmarks {
		return 0
	}
	norm := hand.Normalize()
	total := 0.0
	for i, p := range tmpl {
		q := norm.Points[i]
		dx := p.X - q.X
		dy := p.Y - q.Y
		dz := p.Z - q.Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
	}
	mean := total / float64(len(tmpl))
	return 1.0 / (1.0 + mean)
}
