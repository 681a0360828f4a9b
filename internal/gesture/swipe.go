package gesture

import "time"

// Trajectory thresholds for lateral swipes. The dominance ratio keeps
// diagonal waves from registering, the travel distance filters jitter,
// and the edge positions require the palm to actually cross the center
// of the frame.
const (
	swipeHistorySize    = 10
	swipeMinSamples     = 5
	horizontalDominance = 1.8
	swipeTravel         = 0.25
	swipeLeftEdge       = 0.45
	swipeRightEdge      = 0.55
)

// pathPoint is one palm center sample in the trajectory history.
type pathPoint struct {
	X, Y float64
	At   time.Time
}

// pathHistory is a bounded sliding window of palm positions.
type pathHistory struct {
	points []pathPoint
}

func (h *pathHistory) push(p pathPoint) {
	h.points = append(h.points, p)
	if len(h.points) > swipeHistorySize {
		h.points = h.points[len(h.points)-swipeHistorySize:]
	}
}

func (h *pathHistory) clear() {
	h.points = h.points[:0]
}

// swipe reports whether the recorded trajectory is a lateral swipe in
// the given direction.
func (h *pathHistory) swipe(dir SwipeDir) bool {
	if len(h.points) < swipeMinSamples {
		return false
	}
	start := h.points[0]
	end := h.points[len(h.points)-1]
	dx := end.X - start.X
	dy := end.Y - start.Y
	if abs(dx) <= horizontalDominance*abs(dy) {
		return false
	}
	switch dir {
	case SwipeLeftToRight:
		return start.X < swipeLeftEdge && end.X > swipeRightEdge && dx > swipeTravel
	case SwipeRightToLeft:
		return start.X > swipeRightEdge && end.X < swipeLeftEdge && dx < -swipeTravel
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
