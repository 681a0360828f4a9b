package detector

import "gocv.io/x/gocv"

// Detector is the boundary to the external hand landmark engine. The
// engine is treated as an opaque producer of landmark sets per frame;
// everything downstream works only with HandLandmarks.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds detection engine options.
type Config struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int

	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the landmark service script location.
	ScriptPath string
}

// DefaultConfig returns a Config with sensible defaults: two hands,
// 0.5 confidence thresholds.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
