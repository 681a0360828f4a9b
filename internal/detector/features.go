package detector

import "math"

// HandFeatures are the continuous controls derived from one hand, all in
// [0,1] except Rotation which is in [-1,1]. They drive the visualization
// feed and give downstream consumers a compact view of hand state.
type HandFeatures struct {
	PalmX     float64 `json:"palm_x"`
	PalmY     float64 `json:"palm_y"`
	PalmZ     float64 `json:"palm_z"`
	Openness  float64 `json:"openness"`   // 0 = fist, 1 = open hand
	Pinch     float64 `json:"pinch"`      // 0 = no pinch, 1 = pinched
	Rotation  float64 `json:"rotation"`   // wrist roll, -1..1
	IndexBend float64 `json:"index_bend"` // 0 = straight, 1 = bent
}

// Scaling factors mapping raw landmark distances onto the [0,1] control
// range. Tuned against a hand at typical performance distance.
const (
	opennessScale = 3.0
	pinchScale    = 4.0
)

// Features derives continuous hand controls from the landmark set.
// An unusable landmark set yields zeroed features with ok=false.
func (h *HandLandmarks) Features() (HandFeatures, bool) {
	if !h.Valid() {
		return HandFeatures{}, false
	}

	palm := h.PalmCenter()

	var spread float64
	for _, i := range fingertipIndices {
		spread += distance2D(h.Points[i], palm)
	}
	spread /= float64(len(fingertipIndices))

	pinchDist := distance3D(h.Points[ThumbTip], h.Points[IndexTip])

	handVec := Point3D{
		X: h.Points[MiddleMCP].X - h.Points[Wrist].X,
		Y: h.Points[MiddleMCP].Y - h.Points[Wrist].Y,
	}

	f := HandFeatures{
		PalmX:     clamp01(palm.X),
		PalmY:     clamp01(palm.Y),
		PalmZ:     palm.Z,
		Openness:  clamp01(spread * opennessScale),
		Pinch:     clamp01(1.0 - math.Min(pinchDist*pinchScale, 1.0)),
		Rotation:  math.Atan2(handVec.X, handVec.Y) / math.Pi,
		IndexBend: indexBend(h),
	}

	return f, true
}

// indexBend measures how far the index finger is curled, from the angle
// between its proximal and distal segments in the image plane.
func indexBend(h *HandLandmarks) float64 {
	v1x := h.Points[IndexPIP].X - h.Points[IndexMCP].X
	v1y := h.Points[IndexPIP].Y - h.Points[IndexMCP].Y
	v2x := h.Points[IndexTip].X - h.Points[IndexPIP].X
	v2y := h.Points[IndexTip].Y - h.Points[IndexPIP].Y

	n1 := math.Sqrt(v1x*v1x + v1y*v1y)
	n2 := math.Sqrt(v2x*v2x + v2y*v2y)
	if n1 < 1e-10 || n2 < 1e-10 {
		return 0
	}

	cos := (v1x*v2x + v1y*v2y) / (n1 * n2)
	return clamp01((1 - cos) / 2)
}

// HandUpdate is the per-frame feature bundle for the visualization feed:
// every usable hand's features plus scene-wide aggregates.
type HandUpdate struct {
	Hands    []HandFeatures `json:"hands"`
	Openness float64        `json:"openness"`
	Pinch    float64        `json:"pinch"`
}

// Aggregate derives features for every usable hand and averages the
// openness and pinch controls across them.
func Aggregate(hands []HandLandmarks) HandUpdate {
	var update HandUpdate
	for i := range hands {
		f, ok := hands[i].Features()
		if !ok {
			continue
		}
		update.Hands = append(update.Hands, f)
		update.Openness += f.Openness
		update.Pinch += f.Pinch
	}
	if n := float64(len(update.Hands)); n > 0 {
		update.Openness /= n
		update.Pinch /= n
	}
	return update
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
