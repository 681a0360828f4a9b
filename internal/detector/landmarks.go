// Package detector provides hand landmark types and detection engine
// adapters for the Mudra pipeline.
package detector

import "math"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// palmIndices are the wrist plus the base of each finger; their centroid
// is the palm center used for swipe tracking and feature extraction.
var palmIndices = [...]int{Wrist, ThumbCMC, IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// fingertipIndices are the five fingertip landmarks.
var fingertipIndices = [...]int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// Point3D is a 3D point in normalized image coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks is one detected hand: 21 landmarks, handedness and the
// engine's detection confidence.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// distance2D ignores depth; fingertip spread and pinch use image-plane
// distances only.
func distance2D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// PalmCenter returns the centroid of the wrist and finger bases.
func (h *HandLandmarks) PalmCenter() Point3D {
	var c Point3D
	for _, i := range palmIndices {
		c.X += h.Points[i].X
		c.Y += h.Points[i].Y
		c.Z += h.Points[i].Z
	}
	n := float64(len(palmIndices))
	return Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

// Valid reports whether the landmark set is geometrically usable.
// Engines occasionally emit frames with NaN points or an all-zero hand;
// such frames are treated as non-matching rather than as errors.
func (h *HandLandmarks) Valid() bool {
	if h == nil {
		return false
	}
	zero := true
	for i := 0; i < NumLandmarks; i++ {
		p := h.Points[i]
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			return false
		}
		if p.X != 0 || p.Y != 0 || p.Z != 0 {
			zero = false
		}
	}
	return !zero
}

// Normalize translates the landmarks so the wrist is at the origin and
// scales them so the wrist-to-middle-MCP distance is 1.0. Template
// matching compares normalized landmark sets, making it invariant to
// hand position and size in the frame.
func (h *HandLandmarks) Normalize() *HandLandmarks {
	if h == nil {
		return nil
	}

	normalized := &HandLandmarks{
		Handedness: h.Handedness,
		Score:      h.Score,
	}

	wrist := h.Points[Wrist]
	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: h.Points[i].X - wrist.X,
			Y: h.Points[i].Y - wrist.Y,
			Z: h.Points[i].Z - wrist.Z,
		}
	}

	scale := distance3D(Point3D{}, normalized.Points[MiddleMCP])
	if scale < 1e-10 {
		return normalized
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i].X /= scale
		normalized.Points[i].Y /= scale
		normalized.Points[i].Z /= scale
	}

	return normalized
}
