package fake

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/logging"
)

// Discovery is a fake camera.Discovery over a fixed set of devices.
type Discovery struct {
	mu       sync.Mutex
	devices  []*Device
	audioErr error
	inputErr error
}

// NewDiscovery returns a discovery over devices.
func NewDiscovery(devices ...*Device) *Discovery {
	return &Discovery{devices: devices}
}

// SetDevices replaces the discoverable devices.
func (d *Discovery) SetDevices(devices ...*Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.devices = devices
}

// FailAudio makes NewAudioInput return err.
func (d *Discovery) FailAudio(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audioErr = err
}

// FailVideoInputs makes NewVideoInput return err.
func (d *Discovery) FailVideoInputs(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inputErr = err
}

// Devices returns matching devices ordered by types.
func (d *Discovery) Devices(types []camera.DeviceType, position camera.Position) []camera.Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []camera.Device
	for _, t := range types {
		for _, dev := range d.devices {
			if dev.Type() != t {
				continue
			}
			if position != camera.PositionUnspecified && dev.Position() != position {
				continue
			}
			out = append(out, dev)
		}
	}
	return out
}

// Device returns the device with the given ID.
func (d *Discovery) Device(id string) (*Device, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dev := range d.devices {
		if dev.ID() == id {
			return dev, true
		}
	}
	return nil, false
}

// NewVideoInput wraps a device.
func (d *Discovery) NewVideoInput(dev camera.Device) (camera.Input, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inputErr != nil {
		return nil, d.inputErr
	}
	if dev == nil {
		return nil, errors.New("no device")
	}
	return &Input{media: camera.MediaTypeVideo, device: dev}, nil
}

// NewAudioInput returns a microphone input.
func (d *Discovery) NewAudioInput() (camera.Input, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.audioErr != nil {
		return nil, d.audioErr
	}
	return &Input{media: camera.MediaTypeAudio}, nil
}

// Authorizer is a fake camera.Authorizer. With Defer set, RequestAccess holds the completion
// until Complete is called, like a permission dialog waiting on the user.
type Authorizer struct {
	mu       sync.Mutex
	status   camera.AuthorizationStatus
	grant    bool
	deferred bool
	pending  []func(bool)
	requests int
}

// NewAuthorizer returns an authorizer reporting status. grant is the answer to requests.
func NewAuthorizer(status camera.AuthorizationStatus, grant bool) *Authorizer {
	return &Authorizer{status: status, grant: grant}
}

// Defer holds completions until Complete.
func (a *Authorizer) Defer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deferred = true
}

// AuthorizationStatus returns the configured status.
func (a *Authorizer) AuthorizationStatus(camera.MediaType) camera.AuthorizationStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// RequestAccess answers with the configured grant on another goroutine, or holds the completion.
func (a *Authorizer) RequestAccess(_ camera.MediaType, completion func(granted bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests++
	if a.deferred {
		a.pending = append(a.pending, completion)
		return
	}
	grant := a.grant
	a.status = statusFor(grant)
	goutils.PanicCapturingGo(func() { completion(grant) })
}

// Pending returns the number of held completions.
func (a *Authorizer) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Requests returns how many times access was requested.
func (a *Authorizer) Requests() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requests
}

// Complete answers every held request.
func (a *Authorizer) Complete(granted bool) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.status = statusFor(granted)
	a.mu.Unlock()
	for _, c := range pending {
		c(granted)
	}
}

func statusFor(granted bool) camera.AuthorizationStatus {
	if granted {
		return camera.AuthorizationAuthorized
	}
	return camera.AuthorizationDenied
}

// DefaultDevices are modeled on a phone with a triple back camera and a depth-capable front
// camera.
func DefaultDevices() []*Device {
	return []*Device{
		NewDevice(DeviceConfig{
			ID: "back-triple", Name: "Back Triple Camera", Type: camera.DeviceTypeTriple, Position: camera.PositionBack,
			MinZoom: 1, MaxZoom: 123, SwitchOverZoomFactors: []float64{2, 6},
			DepthZoomRanges: []camera.ZoomRange{{Min: 2, Max: 6}}, Flash: true, PointOfInterest: true,
		}),
		NewDevice(DeviceConfig{
			ID: "back-dual-wide", Name: "Back Dual Wide Camera", Type: camera.DeviceTypeDualWide, Position: camera.PositionBack,
			MinZoom: 1, MaxZoom: 95, SwitchOverZoomFactors: []float64{2},
			DepthZoomRanges: []camera.ZoomRange{{Min: 2, Max: 95}}, Flash: true, PointOfInterest: true,
		}),
		NewDevice(DeviceConfig{
			ID: "back-wide", Name: "Back Camera", Type: camera.DeviceTypeWideAngle, Position: camera.PositionBack,
			MinZoom: 1, MaxZoom: 16, Flash: true, PointOfInterest: true,
		}),
		NewDevice(DeviceConfig{
			ID: "front-true-depth", Name: "Front TrueDepth Camera", Type: camera.DeviceTypeTrueDepth, Position: camera.PositionFront,
			MinZoom: 1, MaxZoom: 16, DepthZoomRanges: []camera.ZoomRange{{Min: 1, Max: 16}},
		}),
		NewDevice(DeviceConfig{
			ID: "front-wide", Name: "Front Camera", Type: camera.DeviceTypeWideAngle, Position: camera.PositionFront,
			MinZoom: 1, MaxZoom: 8,
		}),
	}
}

// DefaultFeatures are what DefaultPlatform's photo output advertises.
func DefaultFeatures() camera.PhotoFeatures {
	return camera.PhotoFeatures{
		DepthDelivery:  true,
		LivePhoto:      true,
		PortraitMatte:  true,
		SemanticMattes: append([]camera.MatteType(nil), camera.SemanticMatteTypes...),
		MaxQuality:     camera.QualityQuality,
	}
}

// Platform bundles a complete fake platform.
type Platform struct {
	Discovery  *Discovery
	Session    *HardwareSession
	Output     *PhotoOutput
	Authorizer *Authorizer
}

// NewPlatform returns a platform with the given devices and output, already authorized.
func NewPlatform(devices []*Device, outConf OutputConfig, logger logging.Logger) *Platform {
	return &Platform{
		Discovery:  NewDiscovery(devices...),
		Session:    NewHardwareSession(),
		Output:     NewPhotoOutput(outConf, logger),
		Authorizer: NewAuthorizer(camera.AuthorizationAuthorized, true),
	}
}

// DefaultPlatform returns a platform with DefaultDevices and DefaultFeatures.
func DefaultPlatform(logger logging.Logger) *Platform {
	return NewPlatform(DefaultDevices(), OutputConfig{Supported: DefaultFeatures()}, logger)
}

// Close stops the hardware session and any in-flight captures. It reports configuration
// transactions that were left open.
func (p *Platform) Close() error {
	var openErr error
	if n := p.Session.State().OpenTransactions; n != 0 {
		openErr = errors.Errorf("%d configuration transactions left open", n)
	}
	p.Session.StopRunning()
	return multierr.Combine(openErr, p.Output.Close())
}
