// Package gesture turns per-frame hand landmark geometry into discrete,
// debounced gesture events. Each tracked role (left hand, right hand,
// both-hands composite) runs its own state machine so simultaneous
// gestures never cross-talk, and every physical gesture fires exactly
// one event.
package gesture

import "time"

// Label identifies a recognized gesture action.
type Label string

// The fixed action vocabulary of the control surface. Declaration order
// here is also the tie-break order when two templates match with equal
// confidence.
const (
	LabelRightTrack  Label = "right_track"
	LabelLeftTrack   Label = "left_track"
	LabelUpScene     Label = "up_scene"
	LabelDownScene   Label = "down_scene"
	LabelFireClip    Label = "fire_clip"
	LabelFireScene   Label = "fire_scene"
	LabelMasterTrack Label = "master_track"
)

// actionCodes is the wire enumeration the control surface expects, one
// integer code per action.
var actionCodes = map[Label]int32{
	LabelRightTrack:  0,
	LabelLeftTrack:   1,
	LabelUpScene:     2,
	LabelDownScene:   3,
	LabelFireClip:    4,
	LabelFireScene:   5,
	LabelMasterTrack: 6,
}

// actionAddresses maps labels onto OSC addresses.
var actionAddresses = map[Label]string{
	LabelRightTrack:  "/track/right",
	LabelLeftTrack:   "/track/left",
	LabelUpScene:     "/scene/up",
	LabelDownScene:   "/scene/down",
	LabelFireClip:    "/clip/fire",
	LabelFireScene:   "/scene/fire",
	LabelMasterTrack: "/track/master",
}

// actionDescriptions are the operator-facing names shown in the
// monitoring overlay.
var actionDescriptions = map[Label]string{
	LabelRightTrack:  "Select right track",
	LabelLeftTrack:   "Select left track",
	LabelUpScene:     "Select up scene",
	LabelDownScene:   "Select down scene",
	LabelFireClip:    "Fire/Stop Clip Slot",
	LabelFireScene:   "Fire/Stop Scene",
	LabelMasterTrack: "Choose MasterTrack",
}

// Code returns the integer action code sent on the control channel.
func (l Label) Code() int32 {
	return actionCodes[l]
}

// Address returns the OSC address for the label.
func (l Label) Address() string {
	return actionAddresses[l]
}

// Description returns the operator-facing action name.
func (l Label) Description() string {
	return actionDescriptions[l]
}

// Role identifies an independently tracked subject.
type Role string

const (
	// RoleLeft and RoleRight follow the detector's handedness labels.
	RoleLeft  Role = "Left"
	RoleRight Role = "Right"
	// RoleBoth is the two-hand composite.
	RoleBoth Role = "Both"
)

// Event is the only externally visible classifier output: created exactly
// once per qualifying transition, immutable, fire-and-forget.
type Event struct {
	Label   Label     `json:"label"`
	Code    int32     `json:"code"`
	Role    Role      `json:"role"`
	FiredAt time.Time `json:"fired_at"`
}

// newEvent builds the immutable event for a fired label.
func newEvent(label Label, role Role, at time.Time) Event {
	return Event{
		Label:   label,
		Code:    label.Code(),
		Role:    role,
		FiredAt: at,
	}
}
