package capture

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
)

var (
	landmarkColor = color.RGBA{R: 0, G: 255, B: 100, A: 0}
	overlayColor  = color.RGBA{R: 0, G: 200, B: 255, A: 0}
	bannerColor   = color.RGBA{R: 200, G: 0, B: 0, A: 0}
	textColor     = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

// AnnotateFrame draws landmark points and a per-hand label onto the frame
// in place. The overlay mirrors what the performer sees in the monitoring
// feed: hand skeleton dots plus handedness and confidence.
func AnnotateFrame(frame *gocv.Mat, hands []detector.HandLandmarks) {
	if frame == nil || frame.Empty() {
		return
	}

	w := float64(frame.Cols())
	h := float64(frame.Rows())

	for i := range hands {
		hand := &hands[i]
		if !hand.Valid() {
			continue
		}

		for j := 0; j < detector.NumLandmarks; j++ {
			p := hand.Points[j]
			pt := image.Point{X: int(p.X * w), Y: int(p.Y * h)}
			gocv.Circle(frame, pt, 3, landmarkColor, -1)
		}

		label := fmt.Sprintf("%s (%.2f)", hand.Handedness, hand.Score)
		org := image.Point{X: 15, Y: 30 + i*30}
		gocv.PutText(frame, label, org, gocv.FontHersheySimplex, 0.7, overlayColor, 2)
	}
}

// AnnotateAction draws the most recently fired action name as a banner,
// matching the live feedback the performer relies on to confirm a
// gesture registered.
func AnnotateAction(frame *gocv.Mat, action string) {
	if frame == nil || frame.Empty() || action == "" {
		return
	}

	size := gocv.GetTextSize(action, gocv.FontHersheySimplex, 1.0, 3)
	gocv.Rectangle(frame, image.Rect(10, 5, 20+size.X, 15+size.Y), bannerColor, -1)
	gocv.PutText(frame, action, image.Point{X: 15, Y: 10 + size.Y}, gocv.FontHersheySimplex, 1.0, textColor, 3)
}

// EncodeJPEG encodes the frame as JPEG bytes for the stream feeds.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
