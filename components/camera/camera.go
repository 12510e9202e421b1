// Package camera defines the contracts between capture logic and the platform's camera hardware:
// devices, the hardware capture session, the photo output and its delegate callbacks.
//
// Nothing in this package talks to hardware. Platform bindings implement these interfaces and the
// capture session (see the session subpackage) drives them.
package camera

import (
	"image"

	"github.com/google/uuid"

	"go.viam.com/cutout/rimage"
)

// Position is the facing of a capture device.
type Position string

// The known positions.
const (
	PositionUnspecified Position = "unspecified"
	PositionBack        Position = "back"
	PositionFront       Position = "front"
)

// Opposite returns the other facing. Unspecified maps to back.
func (p Position) Opposite() Position {
	if p == PositionBack {
		return PositionFront
	}
	return PositionBack
}

// DeviceType is the kind of capture device. Virtual devices (triple, dual_wide, dual) combine
// several physical cameras and switch between them as the zoom factor changes.
type DeviceType string

// The known device types.
const (
	DeviceTypeTriple    DeviceType = "triple"
	DeviceTypeDualWide  DeviceType = "dual_wide"
	DeviceTypeDual      DeviceType = "dual"
	DeviceTypeWideAngle DeviceType = "wide_angle"
	DeviceTypeTrueDepth DeviceType = "true_depth"
)

// MediaType distinguishes video and audio inputs and permissions.
type MediaType string

// The media types.
const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// AuthorizationStatus is the user's capture permission for a media type.
type AuthorizationStatus int

// The authorization statuses.
const (
	AuthorizationNotDetermined AuthorizationStatus = iota
	AuthorizationRestricted
	AuthorizationDenied
	AuthorizationAuthorized
)

func (s AuthorizationStatus) String() string {
	switch s {
	case AuthorizationNotDetermined:
		return "not_determined"
	case AuthorizationRestricted:
		return "restricted"
	case AuthorizationDenied:
		return "denied"
	case AuthorizationAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Authorizer checks and requests capture permission.
type Authorizer interface {
	AuthorizationStatus(media MediaType) AuthorizationStatus
	// RequestAccess asks the user for permission. completion is called exactly once, possibly on
	// another goroutine and possibly after a long, user-controlled delay.
	RequestAccess(media MediaType, completion func(granted bool))
}

// ZoomRange is an inclusive range of zoom factors.
type ZoomRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether f lies in the range.
func (r ZoomRange) Contains(f float64) bool {
	return f >= r.Min && f <= r.Max
}

// Point is a normalized device coordinate: (0,0) is the top left of the sensor and (1,1) the
// bottom right.
type Point struct {
	X, Y float64
}

// Center is the middle of the sensor.
var Center = Point{X: 0.5, Y: 0.5}

// FocusMode is a device focus mode.
type FocusMode int

// The focus modes.
const (
	FocusModeLocked FocusMode = iota
	FocusModeAutoFocus
	FocusModeContinuousAutoFocus
)

// ExposureMode is a device exposure mode.
type ExposureMode int

// The exposure modes.
const (
	ExposureModeLocked ExposureMode = iota
	ExposureModeAutoExpose
	ExposureModeContinuousAutoExposure
)

// Device is a physical or virtual camera. Its setters may only be called between
// LockForConfiguration and UnlockForConfiguration.
type Device interface {
	ID() string
	Name() string
	Type() DeviceType
	Position() Position

	MinAvailableZoom() float64
	MaxAvailableZoom() float64
	// SwitchOverZoomFactors are the zoom factors where a virtual device changes constituent camera.
	SwitchOverZoomFactors() []float64
	// DepthZoomRanges are the zoom ranges in which depth delivery is supported.
	DepthZoomRanges() []ZoomRange
	HasFlash() bool

	LockForConfiguration() error
	UnlockForConfiguration()

	ZoomFactor() float64
	SetZoomFactor(factor float64)

	FocusPointOfInterestSupported() bool
	FocusModeSupported(mode FocusMode) bool
	SetFocusPointOfInterest(p Point)
	SetFocusMode(mode FocusMode)

	ExposurePointOfInterestSupported() bool
	ExposureModeSupported(mode ExposureMode) bool
	SetExposurePointOfInterest(p Point)
	SetExposureMode(mode ExposureMode)

	SetSubjectAreaChangeMonitoring(enabled bool)

	// SetFrameRateBounds limits the active frame rate to [minFPS, maxFPS].
	SetFrameRateBounds(minFPS, maxFPS float64)
	// ResetFrameRateBounds restores the format's default frame rate.
	ResetFrameRateBounds()
}

// Input is a device attached (or attachable) to a hardware session.
type Input interface {
	MediaType() MediaType
	// Device is nil for audio inputs.
	Device() Device
}

// Discovery finds devices and wraps them as session inputs.
type Discovery interface {
	// Devices returns the devices of the given types at the given position, in the order of
	// types. PositionUnspecified matches every position.
	Devices(types []DeviceType, position Position) []Device
	NewVideoInput(d Device) (Input, error)
	NewAudioInput() (Input, error)
}

// SessionPreset is the quality preset of a hardware session.
type SessionPreset string

// PresetPhoto is full resolution photo capture.
const PresetPhoto SessionPreset = "photo"

// HardwareSession is the platform's capture session. It forbids concurrent mutation: every call
// that changes inputs, outputs or configuration must come from one execution context.
// BeginConfiguration and CommitConfiguration must always be paired.
type HardwareSession interface {
	BeginConfiguration()
	CommitConfiguration()
	SetPreset(preset SessionPreset)

	CanAddInput(in Input) bool
	AddInput(in Input)
	RemoveInput(in Input)
	Inputs() []Input

	CanAddOutput(out PhotoOutput) bool
	AddOutput(out PhotoOutput)

	StartRunning()
	StopRunning()
	IsRunning() bool

	// SetObserver installs the receiver of asynchronous hardware notifications.
	SetObserver(o SessionObserver)
}

// SessionObserver receives hardware notifications. Calls arrive on arbitrary goroutines.
type SessionObserver interface {
	RuntimeError(err error)
	InterruptionBegan(reason InterruptionReason)
	InterruptionEnded()
	SystemPressureChanged(level PressureLevel)
	SubjectAreaChanged()
}

// VideoInputs returns the video inputs among ins.
func VideoInputs(ins []Input) []Input {
	var out []Input
	for _, in := range ins {
		if in.MediaType() == MediaTypeVideo {
			out = append(out, in)
		}
	}
	return out
}

// CapturedImage is a photo delivered by a finished capture. It is immutable once built.
type CapturedImage struct {
	ID       uuid.UUID
	Image    image.Image
	Data     []byte
	MimeType string
	Depth    *rimage.DepthMap
	Mattes   map[MatteType]image.Image
	Location *Location
}
