package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
)

// maxSpatialLine bounds one spatial record on the pipe.
const maxSpatialLine = 64 * 1024

// spatialRecord is one line from the depth engine: a set of measured
// regions of interest in sensor space.
type spatialRecord struct {
	Regions []spatialRegion `json:"regions"`
}

type spatialRegion struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Valid bool    `json:"valid"`
}

// DepthSource reads subject positions from a depth engine subprocess
// that emits line-oriented JSON. The engine measures several regions of
// interest per frame; the closest valid one is taken as the subject.
// Not safe for concurrent use; the pipeline owns it.
type DepthSource struct {
	cfg config.DepthConfig

	cmd     *exec.Cmd
	lines   chan []byte
	started bool
}

// NewDepthSource builds a depth adapter. The subprocess is launched on
// the first call to Next.
func NewDepthSource(cfg config.DepthConfig) *DepthSource {
	return &DepthSource{cfg: cfg}
}

// Name implements Source.
func (s *DepthSource) Name() string { return "depth" }

// Next blocks until the engine reports a frame with at least one valid
// region. Engine exit or a broken pipe returns ErrSourceLost.
func (s *DepthSource) Next(ctx context.Context) (Sample, error) {
	if !s.started {
		if err := s.start(); err != nil {
			logger.Logger().Errorw("depth engine start failed", "error", err)
			return Sample{}, ErrSourceLost
		}
	}

	for {
		select {
		case <-ctx.Done():
			return Sample{}, ctx.Err()
		case line, ok := <-s.lines:
			if !ok {
				return Sample{}, ErrSourceLost
			}
			sample, ok := decodeSpatial(line, time.Now())
			if !ok {
				continue
			}
			metrics.RecordSample(s.Name())
			return sample, nil
		}
	}
}

// Reset kills the subprocess so the next call to Next relaunches it.
func (s *DepthSource) Reset() error {
	s.stop()
	return nil
}

// Close terminates the subprocess.
func (s *DepthSource) Close() error {
	s.stop()
	return nil
}

func (s *DepthSource) start() error {
	cmd := exec.Command(s.cfg.Command, s.cfg.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", s.cfg.Command, err)
	}

	lines := make(chan []byte, 8)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 4096), maxSpatialLine)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			lines <- line
		}
	}()

	s.cmd = cmd
	s.lines = lines
	s.started = true
	logger.Logger().Infow("depth engine started",
		"command", s.cfg.Command,
		"pid", cmd.Process.Pid,
	)
	return nil
}

func (s *DepthSource) stop() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.cmd = nil
	s.lines = nil
	s.started = false
}

// decodeSpatial parses one engine line and picks the closest valid
// region. Malformed lines and frames with no usable region are skipped.
func decodeSpatial(line []byte, at time.Time) (Sample, bool) {
	var rec spatialRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		logger.Logger().Debugw("bad spatial record", "error", err)
		return Sample{}, false
	}

	best := -1
	for i, r := range rec.Regions {
		if !r.Valid || r.Z <= 0 {
			continue
		}
		if best < 0 || r.Z < rec.Regions[best].Z {
			best = i
		}
	}
	if best < 0 {
		return Sample{}, false
	}

	r := rec.Regions[best]
	return Sample{
		Kind: KindPosition,
		At:   at,
		X:    r.X,
		Y:    r.Y,
		Z:    r.Z,
	}, true
}
