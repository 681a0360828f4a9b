package detector

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	hands []HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// The preset landmark sets below serve two purposes: they are the builtin
// shape templates for the classifier, and deterministic fixtures for
// tests. Coordinates are normalized image coordinates with Y increasing
// downward, a right hand at typical performance distance.

// curledFingers fills the four non-thumb fingers in a curled pose
// (knuckles close together, tips near the palm).
func curledFingers(lm *HandLandmarks) {
	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.70, Z: -0.02}
	lm.Points[IndexPIP] = Point3D{X: 0.55, Y: 0.68, Z: -0.05}
	lm.Points[IndexDIP] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}
	lm.Points[IndexTip] = Point3D{X: 0.50, Y: 0.72, Z: -0.02}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	lm.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	lm.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	lm.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	lm.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	lm.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	lm.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	lm.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}
}

// ThumbsUpLandmarks returns a hand with the thumb extended upward and the
// other fingers curled.
func ThumbsUpLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.65, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.50, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	curledFingers(&lm)

	return lm
}

// ThumbsDownLandmarks returns a hand with the thumb extended downward and
// the other fingers curled.
func ThumbsDownLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.45, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.50, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.58, Y: 0.60, Z: 0.0}
	lm.Points[ThumbIP] = Point3D{X: 0.58, Y: 0.75, Z: 0.0}
	lm.Points[ThumbTip] = Point3D{X: 0.58, Y: 0.90, Z: 0.0}

	curledFingers(&lm)
	// Shift curled fingers near the raised wrist.
	for i := IndexMCP; i <= PinkyTip; i++ {
		lm.Points[i].Y -= 0.25
	}

	return lm
}

// OpenPalmLandmarks returns a hand with all fingers extended.
func OpenPalmLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	lm.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	lm.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	lm.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	lm.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	lm.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	lm.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	lm.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return lm
}

// ClosedFistLandmarks returns a hand with every finger curled against the
// palm, thumb included.
func ClosedFistLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.72, Z: -0.01}
	lm.Points[ThumbIP] = Point3D{X: 0.55, Y: 0.70, Z: -0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}

	curledFingers(&lm)

	return lm
}

// VictoryLandmarks returns a hand with index and middle fingers extended
// in a V and the rest curled.
func VictoryLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.72, Z: -0.01}
	lm.Points[ThumbIP] = Point3D{X: 0.55, Y: 0.70, Z: -0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.58, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.60, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.62, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	lm.Points[MiddlePIP] = Point3D{X: 0.48, Y: 0.52, Z: 0.0}
	lm.Points[MiddleDIP] = Point3D{X: 0.46, Y: 0.40, Z: 0.0}
	lm.Points[MiddleTip] = Point3D{X: 0.44, Y: 0.30, Z: 0.0}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	lm.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	lm.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	lm.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	lm.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	lm.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return lm
}

// PointingUpLandmarks returns a hand with only the index finger extended
// upward.
func PointingUpLandmarks() HandLandmarks {
	lm := HandLandmarks{Handedness: "Right", Score: 0.95}

	lm.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	lm.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.76, Z: 0.0}
	lm.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.72, Z: -0.01}
	lm.Points[ThumbIP] = Point3D{X: 0.55, Y: 0.70, Z: -0.03}
	lm.Points[ThumbTip] = Point3D{X: 0.52, Y: 0.70, Z: -0.04}

	lm.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	lm.Points[IndexPIP] = Point3D{X: 0.56, Y: 0.55, Z: 0.0}
	lm.Points[IndexDIP] = Point3D{X: 0.56, Y: 0.45, Z: 0.0}
	lm.Points[IndexTip] = Point3D{X: 0.56, Y: 0.35, Z: 0.0}

	lm.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.68, Z: -0.02}
	lm.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.66, Z: -0.05}
	lm.Points[MiddleDIP] = Point3D{X: 0.47, Y: 0.68, Z: -0.04}
	lm.Points[MiddleTip] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}

	lm.Points[RingMCP] = Point3D{X: 0.45, Y: 0.70, Z: -0.02}
	lm.Points[RingPIP] = Point3D{X: 0.45, Y: 0.68, Z: -0.05}
	lm.Points[RingDIP] = Point3D{X: 0.42, Y: 0.70, Z: -0.04}
	lm.Points[RingTip] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}

	lm.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.72, Z: -0.02}
	lm.Points[PinkyPIP] = Point3D{X: 0.40, Y: 0.70, Z: -0.05}
	lm.Points[PinkyDIP] = Point3D{X: 0.37, Y: 0.72, Z: -0.04}
	lm.Points[PinkyTip] = Point3D{X: 0.35, Y: 0.74, Z: -0.02}

	return lm
}
