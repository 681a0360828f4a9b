package source

import (
	"context"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
)

// CameraSource samples the RGB camera at a motion-gated frame rate.
// While the scene is still it idles at a low FPS and skips landmark
// detection entirely; any motion switches it to the active rate until
// the scene has been quiet for the idle timeout. Not safe for
// concurrent use; the pipeline owns it.
type CameraSource struct {
	cfg    config.CameraConfig
	cam    capture.Camera
	det    detector.Detector
	motion *capture.MotionDetector

	ticker     *time.Ticker
	started    bool
	active     bool
	lastMotion time.Time
	failures   int

	banner      string
	bannerUntil time.Time
}

// bannerDuration is how long a fired gesture stays on the feed.
const bannerDuration = 1500 * time.Millisecond

// NewCameraSource wires a camera and a landmark detector into a sample
// source. The caller retains no access to either device afterwards.
func NewCameraSource(cfg config.CameraConfig, cam capture.Camera, det detector.Detector) *CameraSource {
	return &CameraSource{
		cfg:    cfg,
		cam:    cam,
		det:    det,
		motion: capture.NewMotionDetector(cfg.MotionThreshold),
	}
}

// Name implements Source.
func (s *CameraSource) Name() string { return "camera" }

// Next waits for the next frame tick, captures a frame and returns a
// hands sample. Transient read errors are retried within the failure
// budget; exhausting it returns ErrSourceLost.
func (s *CameraSource) Next(ctx context.Context) (Sample, error) {
	if !s.started {
		if err := s.open(); err != nil {
			logger.Logger().Errorw("camera open failed", "error", err)
			return Sample{}, ErrSourceLost
		}
	}

	for {
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case <-s.ticker.C:
		}

		frame, err := s.cam.ReadFrame()
		if err != nil {
			s.failures++
			logger.Logger().Debugw("frame read failed",
				"error", err,
				"consecutive", s.failures,
			)
			if s.failures >= s.cfg.MaxReadFailures {
				return Sample{}, ErrSourceLost
			}
			continue
		}
		s.failures = 0

		sample := s.process(frame, time.Now())
		frame.Close()
		metrics.RecordSample(s.Name())
		return sample, nil
	}
}

// Announce overlays text on upcoming frames until the banner duration
// lapses. Called from the goroutine that consumes Next.
func (s *CameraSource) Announce(text string) {
	s.banner = text
	s.bannerUntil = time.Now().Add(bannerDuration)
}

// Reset closes the device so the next call to Next reopens it.
func (s *CameraSource) Reset() error {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.started = false
	s.active = false
	s.failures = 0
	s.motion.Reset()
	return s.cam.Close()
}

// Close releases the camera, the detector and the motion state.
func (s *CameraSource) Close() error {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.motion.Close()
	camErr := s.cam.Close()
	if err := s.det.Close(); err != nil {
		return err
	}
	return camErr
}

func (s *CameraSource) open() error {
	if err := s.cam.Open(); err != nil {
		return err
	}
	s.cam.SetFPS(s.cfg.IdleFPS)
	s.ticker = time.NewTicker(frameInterval(s.cfg.IdleFPS))
	s.started = true
	s.active = false
	return nil
}

// process runs motion gating, landmark detection and annotation on one
// captured frame and packages the result.
func (s *CameraSource) process(frame *gocv.Mat, now time.Time) Sample {
	moving, level := s.motion.Detect(frame)
	if moving {
		s.lastMotion = now
		if !s.active {
			s.active = true
			s.cam.SetFPS(s.cfg.ActiveFPS)
			s.ticker.Reset(frameInterval(s.cfg.ActiveFPS))
			logger.Logger().Debugw("motion detected, active tracking", "level", level)
		}
	} else if s.active && now.Sub(s.lastMotion) > s.cfg.IdleTimeout {
		s.active = false
		s.cam.SetFPS(s.cfg.IdleFPS)
		s.ticker.Reset(frameInterval(s.cfg.IdleFPS))
		logger.Logger().Debugw("scene quiet, idling")
	}

	var hands []detector.HandLandmarks
	if s.active {
		var err error
		hands, err = s.det.Detect(frame)
		if err != nil {
			logger.Logger().Warnw("landmark detection failed", "error", err)
			hands = nil
		}
	}

	capture.AnnotateFrame(frame, hands)
	if s.banner != "" && now.Before(s.bannerUntil) {
		capture.AnnotateAction(frame, s.banner)
	}
	jpeg, err := capture.EncodeJPEG(frame)
	if err != nil {
		logger.Logger().Warnw("frame encode failed", "error", err)
		jpeg = nil
	}

	return Sample{
		Kind:  KindHands,
		At:    now,
		Hands: hands,
		Frame: jpeg,
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = capture.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}
