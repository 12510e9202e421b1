package inject

import (
	"go.viam.com/cutout/components/camera"
)

// Device is an injected capture device.
type Device struct {
	camera.Device
	LockForConfigurationFunc   func() error
	UnlockForConfigurationFunc func()
	SetZoomFactorFunc          func(factor float64)
	SetFrameRateBoundsFunc     func(minFPS, maxFPS float64)
	ResetFrameRateBoundsFunc   func()
}

// LockForConfiguration calls the injected LockForConfiguration or the real version.
func (d *Device) LockForConfiguration() error {
	if d.LockForConfigurationFunc == nil {
		return d.Device.LockForConfiguration()
	}
	return d.LockForConfigurationFunc()
}

// UnlockForConfiguration calls the injected UnlockForConfiguration or the real version.
func (d *Device) UnlockForConfiguration() {
	if d.UnlockForConfigurationFunc == nil {
		d.Device.UnlockForConfiguration()
		return
	}
	d.UnlockForConfigurationFunc()
}

// SetZoomFactor calls the injected SetZoomFactor or the real version.
func (d *Device) SetZoomFactor(factor float64) {
	if d.SetZoomFactorFunc == nil {
		d.Device.SetZoomFactor(factor)
		return
	}
	d.SetZoomFactorFunc(factor)
}

// SetFrameRateBounds calls the injected SetFrameRateBounds or the real version.
func (d *Device) SetFrameRateBounds(minFPS, maxFPS float64) {
	if d.SetFrameRateBoundsFunc == nil {
		d.Device.SetFrameRateBounds(minFPS, maxFPS)
		return
	}
	d.SetFrameRateBoundsFunc(minFPS, maxFPS)
}

// ResetFrameRateBounds calls the injected ResetFrameRateBounds or the real version.
func (d *Device) ResetFrameRateBounds() {
	if d.ResetFrameRateBoundsFunc == nil {
		d.Device.ResetFrameRateBounds()
		return
	}
	d.ResetFrameRateBoundsFunc()
}

// HardwareSession is an injected hardware capture session.
type HardwareSession struct {
	camera.HardwareSession
	CanAddInputFunc  func(in camera.Input) bool
	AddInputFunc     func(in camera.Input)
	RemoveInputFunc  func(in camera.Input)
	CanAddOutputFunc func(out camera.PhotoOutput) bool
	AddOutputFunc    func(out camera.PhotoOutput)
	StartRunningFunc func()
	IsRunningFunc    func() bool
}

// CanAddInput calls the injected CanAddInput or the real version.
func (s *HardwareSession) CanAddInput(in camera.Input) bool {
	if s.CanAddInputFunc == nil {
		return s.HardwareSession.CanAddInput(in)
	}
	return s.CanAddInputFunc(in)
}

// AddInput calls the injected AddInput or the real version.
func (s *HardwareSession) AddInput(in camera.Input) {
	if s.AddInputFunc == nil {
		s.HardwareSession.AddInput(in)
		return
	}
	s.AddInputFunc(in)
}

// RemoveInput calls the injected RemoveInput or the real version.
func (s *HardwareSession) RemoveInput(in camera.Input) {
	if s.RemoveInputFunc == nil {
		s.HardwareSession.RemoveInput(in)
		return
	}
	s.RemoveInputFunc(in)
}

// CanAddOutput calls the injected CanAddOutput or the real version.
func (s *HardwareSession) CanAddOutput(out camera.PhotoOutput) bool {
	if s.CanAddOutputFunc == nil {
		return s.HardwareSession.CanAddOutput(out)
	}
	return s.CanAddOutputFunc(out)
}

// AddOutput calls the injected AddOutput or the real version.
func (s *HardwareSession) AddOutput(out camera.PhotoOutput) {
	if s.AddOutputFunc == nil {
		s.HardwareSession.AddOutput(out)
		return
	}
	s.AddOutputFunc(out)
}

// StartRunning calls the injected StartRunning or the real version.
func (s *HardwareSession) StartRunning() {
	if s.StartRunningFunc == nil {
		s.HardwareSession.StartRunning()
		return
	}
	s.StartRunningFunc()
}

// IsRunning calls the injected IsRunning or the real version.
func (s *HardwareSession) IsRunning() bool {
	if s.IsRunningFunc == nil {
		return s.HardwareSession.IsRunning()
	}
	return s.IsRunningFunc()
}

// PhotoOutput is an injected photo output.
type PhotoOutput struct {
	camera.PhotoOutput
	SupportedFunc    func() camera.PhotoFeatures
	CodecsFunc       func() []string
	CapturePhotoFunc func(settings camera.PhotoSettings, delegate camera.PhotoCaptureDelegate)
}

// Supported calls the injected Supported or the real version.
func (o *PhotoOutput) Supported() camera.PhotoFeatures {
	if o.SupportedFunc == nil {
		return o.PhotoOutput.Supported()
	}
	return o.SupportedFunc()
}

// Codecs calls the injected Codecs or the real version.
func (o *PhotoOutput) Codecs() []string {
	if o.CodecsFunc == nil {
		return o.PhotoOutput.Codecs()
	}
	return o.CodecsFunc()
}

// CapturePhoto calls the injected CapturePhoto or the real version.
func (o *PhotoOutput) CapturePhoto(settings camera.PhotoSettings, delegate camera.PhotoCaptureDelegate) {
	if o.CapturePhotoFunc == nil {
		o.PhotoOutput.CapturePhoto(settings, delegate)
		return
	}
	o.CapturePhotoFunc(settings, delegate)
}

// Authorizer is an injected capture authorizer.
type Authorizer struct {
	camera.Authorizer
	AuthorizationStatusFunc func(media camera.MediaType) camera.AuthorizationStatus
	RequestAccessFunc       func(media camera.MediaType, completion func(granted bool))
}

// AuthorizationStatus calls the injected AuthorizationStatus or the real version.
func (a *Authorizer) AuthorizationStatus(media camera.MediaType) camera.AuthorizationStatus {
	if a.AuthorizationStatusFunc == nil {
		return a.Authorizer.AuthorizationStatus(media)
	}
	return a.AuthorizationStatusFunc(media)
}

// RequestAccess calls the injected RequestAccess or the real version.
func (a *Authorizer) RequestAccess(media camera.MediaType, completion func(granted bool)) {
	if a.RequestAccessFunc == nil {
		a.Authorizer.RequestAccess(media, completion)
		return
	}
	a.RequestAccessFunc(media, completion)
}

// Discovery is an injected device discovery.
type Discovery struct {
	camera.Discovery
	DevicesFunc       func(types []camera.DeviceType, position camera.Position) []camera.Device
	NewVideoInputFunc func(d camera.Device) (camera.Input, error)
}

// Devices calls the injected Devices or the real version.
func (d *Discovery) Devices(types []camera.DeviceType, position camera.Position) []camera.Device {
	if d.DevicesFunc == nil {
		return d.Discovery.Devices(types, position)
	}
	return d.DevicesFunc(types, position)
}

// NewVideoInput calls the injected NewVideoInput or the real version.
func (d *Discovery) NewVideoInput(dev camera.Device) (camera.Input, error) {
	if d.NewVideoInputFunc == nil {
		return d.Discovery.NewVideoInput(dev)
	}
	return d.NewVideoInputFunc(dev)
}
