package session

import (
	"time"

	"github.com/google/uuid"

	"go.viam.com/cutout/components/camera"
)

// Event is something the session tells its listeners. Events are delivered on the UI dispatcher,
// in the order the session produced them.
type Event interface {
	isEvent()
}

// StateChanged reports a lifecycle transition.
type StateChanged struct {
	From, To State
}

// SetupFinished reports the outcome of authorization and configuration. It is repeated when a
// start is attempted on a session that cannot run.
type SetupFinished struct {
	Result SetupResult
	Err    error
}

// RunningChanged reports the hardware session starting or stopping.
type RunningChanged struct {
	Running bool
}

// DeviceCountChanged reports how many device positions are available. Switching cameras makes
// sense only when CanSwitch.
type DeviceCountChanged struct {
	Positions int
	CanSwitch bool
}

// DeviceSwitched reports the outcome of a device switch.
type DeviceSwitched struct {
	DeviceID string
	Position camera.Position
	Err      error
}

// InterruptionBegan reports an interruption.
type InterruptionBegan struct {
	Reason camera.InterruptionReason
	At     time.Time
}

// InterruptionEnded reports the end of an interruption.
type InterruptionEnded struct {
	At time.Time
}

// ResumeVisibilityChanged shows or hides the manual resume affordance.
type ResumeVisibilityChanged struct {
	Visible bool
}

// UnavailableChanged shows or hides the "camera unavailable" signal.
type UnavailableChanged struct {
	Unavailable bool
}

// RuntimeFault reports a hardware runtime error. Retrying is set when the session restarts
// itself.
type RuntimeFault struct {
	Err      error
	At       time.Time
	Retrying bool
}

// ResumeFailed reports a manual resume that did not get the hardware running.
type ResumeFailed struct {
	Err error
}

// ZoomChanged reports the applied zoom factor.
type ZoomChanged struct {
	Factor float64
}

// CaptureStateChanged reports a capture entering or leaving flight.
type CaptureStateChanged struct {
	ID       uuid.UUID
	InFlight bool
}

func (StateChanged) isEvent()            {}
func (SetupFinished) isEvent()           {}
func (RunningChanged) isEvent()          {}
func (DeviceCountChanged) isEvent()      {}
func (DeviceSwitched) isEvent()          {}
func (InterruptionBegan) isEvent()       {}
func (InterruptionEnded) isEvent()       {}
func (ResumeVisibilityChanged) isEvent() {}
func (UnavailableChanged) isEvent()      {}
func (RuntimeFault) isEvent()            {}
func (ResumeFailed) isEvent()            {}
func (ZoomChanged) isEvent()             {}
func (CaptureStateChanged) isEvent()     {}
