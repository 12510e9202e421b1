// Package fake implements an in-process camera platform: devices, a hardware session, a photo
// output that synthesizes photos, and an authorizer. It enforces the platform's rules (configuration
// locks, paired configuration transactions, feature resets on input removal) and counts violations
// so tests can assert on them.
package fake

import (
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/cutout/components/camera"
)

// DeviceConfig describes a fake device.
type DeviceConfig struct {
	ID                    string             `json:"id"`
	Name                  string             `json:"name"`
	Type                  camera.DeviceType  `json:"type"`
	Position              camera.Position    `json:"position"`
	MinZoom               float64            `json:"min_zoom"`
	MaxZoom               float64            `json:"max_zoom"`
	SwitchOverZoomFactors []float64          `json:"switch_over_zoom_factors,omitempty"`
	DepthZoomRanges       []camera.ZoomRange `json:"depth_zoom_ranges,omitempty"`
	Flash                 bool               `json:"flash"`
	PointOfInterest       bool               `json:"point_of_interest"`
}

// Device is a fake camera.Device.
type Device struct {
	conf DeviceConfig

	mu                  sync.Mutex
	locked              bool
	lockErr             error
	lockViolations      int
	zoom                float64
	focusMode           camera.FocusMode
	focusPoint          camera.Point
	exposureMode        camera.ExposureMode
	exposurePoint       camera.Point
	subjectAreaMonitor  bool
	minFPS, maxFPS      float64
	frameRateThrottled  bool
	unlockWithoutLock   int
	configurationCounts int
}

// NewDevice returns a device at its minimum zoom.
func NewDevice(conf DeviceConfig) *Device {
	if conf.MinZoom <= 0 {
		conf.MinZoom = 1
	}
	if conf.MaxZoom < conf.MinZoom {
		conf.MaxZoom = conf.MinZoom
	}
	if conf.Name == "" {
		conf.Name = conf.ID
	}
	return &Device{
		conf:          conf,
		zoom:          conf.MinZoom,
		focusMode:     camera.FocusModeContinuousAutoFocus,
		exposureMode:  camera.ExposureModeContinuousAutoExposure,
		focusPoint:    camera.Center,
		exposurePoint: camera.Center,
	}
}

// ID returns the device ID.
func (d *Device) ID() string { return d.conf.ID }

// Name returns the human readable name.
func (d *Device) Name() string { return d.conf.Name }

// Type returns the device type.
func (d *Device) Type() camera.DeviceType { return d.conf.Type }

// Position returns the facing.
func (d *Device) Position() camera.Position { return d.conf.Position }

// MinAvailableZoom returns the minimum zoom.
func (d *Device) MinAvailableZoom() float64 { return d.conf.MinZoom }

// MaxAvailableZoom returns the maximum zoom.
func (d *Device) MaxAvailableZoom() float64 { return d.conf.MaxZoom }

// SwitchOverZoomFactors returns the configured switch-over factors.
func (d *Device) SwitchOverZoomFactors() []float64 { return d.conf.SwitchOverZoomFactors }

// DepthZoomRanges returns the configured depth ranges.
func (d *Device) DepthZoomRanges() []camera.ZoomRange { return d.conf.DepthZoomRanges }

// HasFlash reports whether the device has a flash.
func (d *Device) HasFlash() bool { return d.conf.Flash }

// FailLock makes the next LockForConfiguration calls return err. Pass nil to clear.
func (d *Device) FailLock(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lockErr = err
}

// LockForConfiguration takes the configuration lock.
func (d *Device) LockForConfiguration() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lockErr != nil {
		return d.lockErr
	}
	if d.locked {
		return errors.Errorf("device %q is already locked for configuration", d.conf.ID)
	}
	d.locked = true
	d.configurationCounts++
	return nil
}

// UnlockForConfiguration releases the configuration lock.
func (d *Device) UnlockForConfiguration() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locked {
		d.unlockWithoutLock++
	}
	d.locked = false
}

// mutate runs fn under the device mutex, recording a violation when the configuration lock is
// not held.
func (d *Device) mutate(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.locked {
		d.lockViolations++
	}
	fn()
}

// ZoomFactor returns the current zoom.
func (d *Device) ZoomFactor() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zoom
}

// SetZoomFactor sets the zoom. Out of range values are a platform error and are recorded as a
// violation, then clamped.
func (d *Device) SetZoomFactor(factor float64) {
	d.mutate(func() {
		if factor < d.conf.MinZoom || factor > d.conf.MaxZoom {
			d.lockViolations++
			factor = min(max(factor, d.conf.MinZoom), d.conf.MaxZoom)
		}
		d.zoom = factor
	})
}

// FocusPointOfInterestSupported reports point of interest support.
func (d *Device) FocusPointOfInterestSupported() bool { return d.conf.PointOfInterest }

// FocusModeSupported supports every mode.
func (d *Device) FocusModeSupported(camera.FocusMode) bool { return true }

// SetFocusPointOfInterest sets the focus point.
func (d *Device) SetFocusPointOfInterest(p camera.Point) {
	d.mutate(func() { d.focusPoint = p })
}

// SetFocusMode sets the focus mode.
func (d *Device) SetFocusMode(mode camera.FocusMode) {
	d.mutate(func() { d.focusMode = mode })
}

// ExposurePointOfInterestSupported reports point of interest support.
func (d *Device) ExposurePointOfInterestSupported() bool { return d.conf.PointOfInterest }

// ExposureModeSupported supports every mode.
func (d *Device) ExposureModeSupported(camera.ExposureMode) bool { return true }

// SetExposurePointOfInterest sets the exposure point.
func (d *Device) SetExposurePointOfInterest(p camera.Point) {
	d.mutate(func() { d.exposurePoint = p })
}

// SetExposureMode sets the exposure mode.
func (d *Device) SetExposureMode(mode camera.ExposureMode) {
	d.mutate(func() { d.exposureMode = mode })
}

// SetSubjectAreaChangeMonitoring toggles subject area monitoring.
func (d *Device) SetSubjectAreaChangeMonitoring(enabled bool) {
	d.mutate(func() { d.subjectAreaMonitor = enabled })
}

// SetFrameRateBounds throttles the frame rate.
func (d *Device) SetFrameRateBounds(minFPS, maxFPS float64) {
	d.mutate(func() {
		d.minFPS, d.maxFPS = minFPS, maxFPS
		d.frameRateThrottled = true
	})
}

// ResetFrameRateBounds removes any throttle.
func (d *Device) ResetFrameRateBounds() {
	d.mutate(func() {
		d.minFPS, d.maxFPS = 0, 0
		d.frameRateThrottled = false
	})
}

// DeviceState is a snapshot of a fake device's mutable state.
type DeviceState struct {
	Locked               bool
	LockViolations       int
	UnlockWithoutLock    int
	Configurations       int
	Zoom                 float64
	FocusMode            camera.FocusMode
	FocusPoint           camera.Point
	ExposureMode         camera.ExposureMode
	ExposurePoint        camera.Point
	SubjectAreaMonitored bool
	FrameRateThrottled   bool
	MinFPS, MaxFPS       float64
}

// State returns a snapshot of the device.
func (d *Device) State() DeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeviceState{
		Locked:               d.locked,
		LockViolations:       d.lockViolations,
		UnlockWithoutLock:    d.unlockWithoutLock,
		Configurations:       d.configurationCounts,
		Zoom:                 d.zoom,
		FocusMode:            d.focusMode,
		FocusPoint:           d.focusPoint,
		ExposureMode:         d.exposureMode,
		ExposurePoint:        d.exposurePoint,
		SubjectAreaMonitored: d.subjectAreaMonitor,
		FrameRateThrottled:   d.frameRateThrottled,
		MinFPS:               d.minFPS,
		MaxFPS:               d.maxFPS,
	}
}

// Input is a fake session input.
type Input struct {
	media  camera.MediaType
	device camera.Device
}

// MediaType returns the input's media type.
func (in *Input) MediaType() camera.MediaType { return in.media }

// Device returns the input's device, nil for audio.
func (in *Input) Device() camera.Device { return in.device }
