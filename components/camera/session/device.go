package session

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/components/camera/devices"
)

// withDeviceLock runs fn with the active device locked for configuration.
func (s *Session) withDeviceLock(ctx context.Context, fn func()) error {
	if err := s.checkQueue(ctx); err != nil {
		return err
	}
	if s.device == nil {
		return errors.New("no active video device")
	}
	if err := s.device.LockForConfiguration(); err != nil {
		return errors.Wrapf(err, "could not lock device %q for configuration", s.device.ID())
	}
	defer s.device.UnlockForConfiguration()
	fn()
	return nil
}

// SwitchDevice replaces the video input with the preferred device at position.
// PositionUnspecified switches to the opposite of the current position.
func (s *Session) SwitchDevice(position camera.Position) error {
	return s.enqueue(func(ctx context.Context) {
		if !s.configured || s.device == nil {
			s.logger.Warnw("cannot switch devices before configuration", "state", s.state)
			return
		}
		s.switchDevice(ctx, position)
	})
}

func (s *Session) switchDevice(ctx context.Context, position camera.Position) {
	if err := s.checkQueue(ctx); err != nil {
		s.emit(DeviceSwitched{Err: err})
		return
	}
	if position == camera.PositionUnspecified {
		position = s.device.Position().Opposite()
	}
	found := s.discovery.Devices(devices.DiscoveryTypes(), camera.PositionUnspecified)
	next, ok := devices.Select(found, position)
	if !ok {
		err := errors.Errorf("no video device at position %q", position)
		s.logger.Warnw("not switching devices", "error", err)
		s.emit(DeviceSwitched{DeviceID: s.device.ID(), Position: s.device.Position(), Err: err})
		return
	}
	if next.ID() == s.device.ID() {
		s.emit(DeviceSwitched{DeviceID: next.ID(), Position: next.Position()})
		return
	}
	in, err := s.discovery.NewVideoInput(next)
	if err != nil {
		s.logger.Errorw("could not create video input", "device", next.ID(), "error", err)
		s.emit(DeviceSwitched{DeviceID: s.device.ID(), Position: s.device.Position(), Err: err})
		return
	}

	s.hw.BeginConfiguration()
	defer s.hw.CommitConfiguration()

	// Only one video input may be attached at a time.
	s.hw.RemoveInput(s.videoInput)
	if !s.hw.CanAddInput(in) {
		s.hw.AddInput(s.videoInput)
		s.applyPhotoFeatures(ctx)
		err := errors.Errorf("could not add video input for device %q", next.ID())
		s.logger.Errorw("device switch failed, keeping current device", "error", err)
		s.emit(DeviceSwitched{DeviceID: s.device.ID(), Position: s.device.Position(), Err: err})
		return
	}
	s.hw.AddInput(in)
	prev := s.device
	s.videoInput, s.device = in, next
	s.throttled = false
	s.applyDefaultZoom(ctx)
	s.applyPhotoFeatures(ctx)
	s.logger.Infow("switched video device", "from", prev.ID(), "to", next.ID(), "position", next.Position())
	s.emit(DeviceSwitched{DeviceID: next.ID(), Position: next.Position()})
}

// applyDefaultZoom sets the zoom a freshly selected device starts at. When depth is wanted it is
// the smallest advertised factor that supports depth.
func (s *Session) applyDefaultZoom(ctx context.Context) {
	z := devices.DefaultZoom(s.device, !s.conf.DisableDepth)
	if err := s.setZoom(ctx, z); err != nil {
		s.logger.Warnw("could not apply default zoom", "device", s.device.ID(), "zoom", z, "error", err)
	}
}

// SetZoom sets the zoom factor of the active device, clamped to what it supports.
func (s *Session) SetZoom(factor float64) error {
	return s.enqueue(func(ctx context.Context) {
		if err := s.setZoom(ctx, factor); err != nil {
			s.logger.Warnw("could not set zoom", "zoom", factor, "error", err)
		}
	})
}

func (s *Session) setZoom(ctx context.Context, factor float64) error {
	if err := s.checkQueue(ctx); err != nil {
		return err
	}
	if s.device == nil {
		return errors.New("no active video device")
	}
	z := devices.ClampZoom(s.device, factor)
	if err := s.withDeviceLock(ctx, func() { s.device.SetZoomFactor(z) }); err != nil {
		return err
	}
	s.zoom = z
	s.zoomMirror.Store(z)
	s.emit(ZoomChanged{Factor: z})
	return nil
}

// FocusAndExpose points focus and exposure at p, a normalized device coordinate, using the given
// modes where the device supports them.
func (s *Session) FocusAndExpose(focus camera.FocusMode, exposure camera.ExposureMode, p camera.Point, monitorSubjectArea bool) error {
	return s.enqueue(func(ctx context.Context) {
		if err := s.focusAndExpose(ctx, focus, exposure, p, monitorSubjectArea); err != nil {
			s.logger.Warnw("could not focus and expose", "point", p, "error", err)
		}
	})
}

func (s *Session) focusAndExpose(
	ctx context.Context,
	focus camera.FocusMode,
	exposure camera.ExposureMode,
	p camera.Point,
	monitorSubjectArea bool,
) error {
	if s.device == nil {
		return errors.New("no active video device")
	}
	d := s.device
	return s.withDeviceLock(ctx, func() {
		if d.FocusPointOfInterestSupported() && d.FocusModeSupported(focus) {
			d.SetFocusPointOfInterest(p)
			d.SetFocusMode(focus)
		}
		if d.ExposurePointOfInterestSupported() && d.ExposureModeSupported(exposure) {
			d.SetExposurePointOfInterest(p)
			d.SetExposureMode(exposure)
		}
		d.SetSubjectAreaChangeMonitoring(monitorSubjectArea)
	})
}
