package camera

import (
	"fmt"
)

// RuntimeErrorCode classifies a mid-session hardware fault.
type RuntimeErrorCode int

// The runtime error codes.
const (
	RuntimeErrorUnknown RuntimeErrorCode = iota
	RuntimeErrorMediaServicesReset
	RuntimeErrorDeviceDisconnected
)

// RuntimeError is a hardware fault reported while the session exists.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string
}

func (e *RuntimeError) Error() string {
	switch e.Code {
	case RuntimeErrorMediaServicesReset:
		return fmt.Sprintf("capture runtime error: media services were reset: %s", e.Message)
	case RuntimeErrorDeviceDisconnected:
		return fmt.Sprintf("capture runtime error: device disconnected: %s", e.Message)
	default:
		return fmt.Sprintf("capture runtime error: %s", e.Message)
	}
}

// InterruptionReason is why the hardware session was interrupted.
type InterruptionReason int

// The interruption reasons.
const (
	InterruptionVideoDeviceNotAvailableInBackground InterruptionReason = iota + 1
	InterruptionAudioDeviceInUseByAnotherClient
	InterruptionVideoDeviceInUseByAnotherClient
	InterruptionVideoDeviceNotAvailableWithMultipleForegroundApps
	InterruptionVideoDeviceNotAvailableDueToSystemPressure
)

func (r InterruptionReason) String() string {
	switch r {
	case InterruptionVideoDeviceNotAvailableInBackground:
		return "video_device_not_available_in_background"
	case InterruptionAudioDeviceInUseByAnotherClient:
		return "audio_device_in_use_by_another_client"
	case InterruptionVideoDeviceInUseByAnotherClient:
		return "video_device_in_use_by_another_client"
	case InterruptionVideoDeviceNotAvailableWithMultipleForegroundApps:
		return "video_device_not_available_with_multiple_foreground_apps"
	case InterruptionVideoDeviceNotAvailableDueToSystemPressure:
		return "video_device_not_available_due_to_system_pressure"
	default:
		return "unknown"
	}
}

// Resumable reports whether the user can resume the session manually.
func (r InterruptionReason) Resumable() bool {
	return r == InterruptionAudioDeviceInUseByAnotherClient || r == InterruptionVideoDeviceInUseByAnotherClient
}

// PressureLevel is the system's thermal or power pressure.
type PressureLevel int

// The pressure levels.
const (
	PressureNominal PressureLevel = iota
	PressureFair
	PressureSerious
	PressureCritical
	PressureShutdown
)

func (l PressureLevel) String() string {
	switch l {
	case PressureNominal:
		return "nominal"
	case PressureFair:
		return "fair"
	case PressureSerious:
		return "serious"
	case PressureCritical:
		return "critical"
	case PressureShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
