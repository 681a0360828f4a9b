package gesture

import (
	"math"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
)

func testCfg() Config {
	return Config{
		DebounceFrames: 5,
		MinConfidence:  0.6,
		SwipeCooldown:  2500 * time.Millisecond,
		ShapeCooldown:  1500 * time.Millisecond,
		HoldCooldown:   2 * time.Second,
		TrackTimeout:   time.Second,
	}
}

func frameAt(ms int) time.Time {
	return time.Unix(0, 0).Add(time.Duration(ms) * time.Millisecond)
}

// handAt builds a valid hand whose every landmark sits at (x, y), so its
// palm center is exactly (x, y). Used to drive trajectory tests.
func handAt(x, y float64) detector.HandLandmarks {
	lm := detector.HandLandmarks{Handedness: "Left", Score: 0.9}
	for i := 0; i < detector.NumLandmarks; i++ {
		lm.Points[i] = detector.Point3D{X: x, Y: y}
	}
	return lm
}

func TestShapeFiresOnceAfterDebounceWindow(t *testing.T) {
	cfg := testCfg()
	cfg.ShapeCooldown = time.Second
	c := NewClassifier(RoleLeft, cfg)

	thumbsUp := detector.ThumbsUpLandmarks()
	var fired []int
	for i := 1; i <= 10; i++ {
		ev, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)})
		if ok {
			fired = append(fired, i)
			if ev.Label != LabelUpScene {
				t.Errorf("frame %d: got label %q, want %q", i, ev.Label, LabelUpScene)
			}
			if ev.Role != RoleLeft {
				t.Errorf("frame %d: got role %q, want %q", i, ev.Role, RoleLeft)
			}
		}
	}

	if len(fired) != 1 || fired[0] != 5 {
		t.Fatalf("expected exactly one event at frame 5, got fires at %v", fired)
	}
}

func TestInterruptedStreakRestartsDebounce(t *testing.T) {
	c := NewClassifier(RoleLeft, testCfg())

	thumbsUp := detector.ThumbsUpLandmarks()
	for i := 1; i <= 3; i++ {
		if _, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)}); ok {
			t.Fatalf("frame %d fired before the debounce window", i)
		}
	}

	// A frame with no hand breaks the streak.
	if _, ok := c.Classify(Observation{At: frameAt(200)}); ok {
		t.Fatal("empty frame must not fire")
	}
	if c.State() != StateIdle {
		t.Errorf("state after broken streak = %v, want %v", c.State(), StateIdle)
	}

	// Four more matches are not enough; the fifth consecutive one is.
	fired := 0
	for i := 5; i <= 9; i++ {
		if _, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)}); ok {
			fired++
			if i != 9 {
				t.Errorf("fired at frame %d, want 9", i)
			}
		}
	}
	if fired != 1 {
		t.Fatalf("got %d fires after restart, want 1", fired)
	}
}

func TestCandidateSwitchResetsProgress(t *testing.T) {
	c := NewClassifier(RoleLeft, testCfg())

	thumbsUp := detector.ThumbsUpLandmarks()
	thumbsDown := detector.ThumbsDownLandmarks()

	for i := 1; i <= 4; i++ {
		c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)})
	}
	// Switching postures on frame 5 must not fire either label.
	if _, ok := c.Classify(Observation{Hand: &thumbsDown, At: frameAt(250)}); ok {
		t.Fatal("candidate switch fired without a full window")
	}

	// The new candidate needs its own five frames.
	fired := 0
	for i := 6; i <= 9; i++ {
		if ev, ok := c.Classify(Observation{Hand: &thumbsDown, At: frameAt(i * 50)}); ok {
			fired++
			if ev.Label != LabelDownScene {
				t.Errorf("got label %q, want %q", ev.Label, LabelDownScene)
			}
			if i != 9 {
				t.Errorf("fired at frame %d, want 9", i)
			}
		}
	}
	if fired != 1 {
		t.Fatalf("got %d fires, want 1", fired)
	}
}

func TestCooldownExpiryAllowsRefire(t *testing.T) {
	cfg := testCfg()
	cfg.ShapeCooldown = time.Second
	c := NewClassifier(RoleLeft, cfg)

	thumbsUp := detector.ThumbsUpLandmarks()
	for i := 1; i <= 5; i++ {
		c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)})
	}
	if c.State() != StateCooldown {
		t.Fatalf("state after fire = %v, want %v", c.State(), StateCooldown)
	}

	// Matching frames inside the cooldown never fire.
	for i := 6; i <= 10; i++ {
		if _, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)}); ok {
			t.Fatalf("fired at frame %d inside cooldown", i)
		}
	}

	// Past the cooldown the label needs a fresh debounce window.
	base := 1500
	fired := 0
	for i := 0; i < 5; i++ {
		if _, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(base + i*50)}); ok {
			fired++
			if i != 4 {
				t.Errorf("refire at step %d, want 4", i)
			}
		}
	}
	if fired != 1 {
		t.Fatalf("got %d refires, want 1", fired)
	}
}

func TestMalformedHandIsNonMatching(t *testing.T) {
	c := NewClassifier(RoleLeft, testCfg())

	bad := detector.ThumbsUpLandmarks()
	bad.Points[detector.IndexTip] = detector.Point3D{X: math.NaN(), Y: 0.5}

	for i := 1; i <= 10; i++ {
		if _, ok := c.Classify(Observation{Hand: &bad, At: frameAt(i * 50)}); ok {
			t.Fatalf("malformed hand fired at frame %d", i)
		}
	}
	if c.State() != StateIdle {
		t.Errorf("state = %v, want %v", c.State(), StateIdle)
	}
}

func TestTieBreakPrefersDeclarationOrder(t *testing.T) {
	cfg := testCfg()
	thumbsUp := detector.ThumbsUpLandmarks()
	templates := []Template{
		shapeTemplate(LabelUpScene, thumbsUp, cfg.MinConfidence, cfg.ShapeCooldown),
		shapeTemplate(LabelDownScene, thumbsUp, cfg.MinConfidence, cfg.ShapeCooldown),
	}
	c := NewClassifierWithTemplates(RoleLeft, cfg, templates)

	var got Label
	for i := 1; i <= 5; i++ {
		if ev, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)}); ok {
			got = ev.Label
		}
	}
	if got != LabelUpScene {
		t.Fatalf("tie went to %q, want first-declared %q", got, LabelUpScene)
	}
}

func TestHigherConfidenceWinsOverOrder(t *testing.T) {
	cfg := testCfg()
	victory := detector.VictoryLandmarks()
	pointing := detector.PointingUpLandmarks()
	// Pointing is declared first but the observed hand is an exact
	// victory, so victory must win the frame.
	templates := []Template{
		shapeTemplate(LabelFireScene, pointing, cfg.MinConfidence, cfg.ShapeCooldown),
		shapeTemplate(LabelFireClip, victory, cfg.MinConfidence, cfg.ShapeCooldown),
	}
	c := NewClassifierWithTemplates(RoleRight, cfg, templates)

	var got Label
	for i := 1; i <= 5; i++ {
		if ev, ok := c.Classify(Observation{Hand: &victory, At: frameAt(i * 50)}); ok {
			got = ev.Label
		}
	}
	if got != LabelFireClip {
		t.Fatalf("got %q, want %q", got, LabelFireClip)
	}
}

func TestSwipeLeftToRightFires(t *testing.T) {
	cfg := testCfg()
	templates := []Template{{
		Label:          LabelRightTrack,
		Kind:           KindSwipe,
		Direction:      SwipeLeftToRight,
		Cooldown:       cfg.SwipeCooldown,
		DebounceFrames: 1,
	}}
	c := NewClassifierWithTemplates(RoleLeft, cfg, templates)

	xs := []float64{0.20, 0.30, 0.40, 0.52, 0.62}
	fired := 0
	for i, x := range xs {
		hand := handAt(x, 0.5)
		ev, ok := c.Classify(Observation{Hand: &hand, At: frameAt(i * 50)})
		if ok {
			fired++
			if ev.Label != LabelRightTrack {
				t.Errorf("got label %q, want %q", ev.Label, LabelRightTrack)
			}
			if i != len(xs)-1 {
				t.Errorf("swipe fired at sample %d, want %d", i, len(xs)-1)
			}
		}
	}
	if fired != 1 {
		t.Fatalf("got %d swipe fires, want 1", fired)
	}

	// The trajectory history is cleared on fire and the label is
	// refractory, so continued rightward motion stays quiet.
	for i := 5; i < 10; i++ {
		hand := handAt(0.62+float64(i-4)*0.02, 0.5)
		if _, ok := c.Classify(Observation{Hand: &hand, At: frameAt(i * 50)}); ok {
			t.Fatalf("swipe refired at sample %d inside cooldown", i)
		}
	}
}

func TestSwipeRejections(t *testing.T) {
	cfg := testCfg()

	cases := []struct {
		name string
		dir  SwipeDir
		path [][2]float64
	}{
		{
			name: "wrong direction",
			dir:  SwipeRightToLeft,
			path: [][2]float64{{0.20, 0.5}, {0.30, 0.5}, {0.40, 0.5}, {0.52, 0.5}, {0.62, 0.5}},
		},
		{
			name: "diagonal wave",
			dir:  SwipeLeftToRight,
			path: [][2]float64{{0.20, 0.20}, {0.30, 0.32}, {0.40, 0.44}, {0.52, 0.56}, {0.62, 0.65}},
		},
		{
			name: "insufficient travel",
			dir:  SwipeLeftToRight,
			path: [][2]float64{{0.40, 0.5}, {0.44, 0.5}, {0.48, 0.5}, {0.54, 0.5}, {0.58, 0.5}},
		},
		{
			name: "never crosses center",
			dir:  SwipeLeftToRight,
			path: [][2]float64{{0.02, 0.5}, {0.10, 0.5}, {0.18, 0.5}, {0.26, 0.5}, {0.34, 0.5}},
		},
		{
			name: "too few samples",
			dir:  SwipeLeftToRight,
			path: [][2]float64{{0.20, 0.5}, {0.40, 0.5}, {0.62, 0.5}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			templates := []Template{{
				Label:          LabelRightTrack,
				Kind:           KindSwipe,
				Direction:      tc.dir,
				Cooldown:       cfg.SwipeCooldown,
				DebounceFrames: 1,
			}}
			c := NewClassifierWithTemplates(RoleLeft, cfg, templates)
			for i, p := range tc.path {
				hand := handAt(p[0], p[1])
				if _, ok := c.Classify(Observation{Hand: &hand, At: frameAt(i * 50)}); ok {
					t.Fatalf("trajectory fired at sample %d", i)
				}
			}
		})
	}
}

func TestHoldRequiresTwoMatchingHands(t *testing.T) {
	c := NewClassifier(RoleBoth, testCfg())

	fist := detector.ClosedFistLandmarks()
	one := []detector.HandLandmarks{fist}
	two := []detector.HandLandmarks{fist, fist}

	for i := 1; i <= 10; i++ {
		if _, ok := c.Classify(Observation{Hands: one, At: frameAt(i * 50)}); ok {
			t.Fatalf("single fist fired at frame %d", i)
		}
	}

	fired := 0
	for i := 11; i <= 15; i++ {
		if ev, ok := c.Classify(Observation{Hands: two, At: frameAt(i * 50)}); ok {
			fired++
			if ev.Label != LabelMasterTrack {
				t.Errorf("got label %q, want %q", ev.Label, LabelMasterTrack)
			}
		}
	}
	if fired != 1 {
		t.Fatalf("got %d hold fires, want 1", fired)
	}
}

func TestHoldAcceptsOpenPalmsAndMixedGrips(t *testing.T) {
	fist := detector.ClosedFistLandmarks()
	palm := detector.OpenPalmLandmarks()

	cases := []struct {
		name  string
		hands []detector.HandLandmarks
	}{
		{"both open palms", []detector.HandLandmarks{palm, palm}},
		{"fist and open palm", []detector.HandLandmarks{fist, palm}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewClassifier(RoleBoth, testCfg())
			fired := 0
			for i := 1; i <= 20; i++ {
				if ev, ok := c.Classify(Observation{Hands: tc.hands, At: frameAt(i * 50)}); ok {
					fired++
					if ev.Label != LabelMasterTrack {
						t.Errorf("got label %q, want %q", ev.Label, LabelMasterTrack)
					}
				}
			}
			if fired != 1 {
				t.Fatalf("got %d hold fires, want 1", fired)
			}
		})
	}
}

func TestResetKeepsCooldowns(t *testing.T) {
	cfg := testCfg()
	c := NewClassifier(RoleLeft, cfg)

	thumbsUp := detector.ThumbsUpLandmarks()
	for i := 1; i <= 5; i++ {
		c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)})
	}

	c.Reset()
	if c.State() != StateIdle {
		t.Fatalf("state after reset = %v, want %v", c.State(), StateIdle)
	}

	// Inside the original cooldown the label still cannot refire even
	// though debounce state was wiped.
	for i := 6; i <= 12; i++ {
		if _, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)}); ok {
			t.Fatalf("label refired at frame %d despite surviving cooldown", i)
		}
	}
}

func TestEventCarriesCodeAndTimestamp(t *testing.T) {
	c := NewClassifier(RoleLeft, testCfg())

	thumbsUp := detector.ThumbsUpLandmarks()
	var got Event
	fired := false
	for i := 1; i <= 5; i++ {
		if ev, ok := c.Classify(Observation{Hand: &thumbsUp, At: frameAt(i * 50)}); ok {
			got, fired = ev, true
		}
	}
	if !fired {
		t.Fatal("no event fired")
	}
	if got.Code != LabelUpScene.Code() {
		t.Errorf("code = %d, want %d", got.Code, LabelUpScene.Code())
	}
	if !got.FiredAt.Equal(frameAt(250)) {
		t.Errorf("fired at %v, want %v", got.FiredAt, frameAt(250))
	}
}
