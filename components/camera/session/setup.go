package session

import (
	"context"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/components/camera/devices"
)

// RequestAuthorization resolves video capture permission. When the user has not decided yet the
// session queue is suspended until they do, so operations submitted afterwards (such as Configure)
// wait for the answer. A refusal moves the session to the terminal denied state; it is never
// retried.
func (s *Session) RequestAuthorization() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	status := s.auth.AuthorizationStatus(camera.MediaTypeVideo)
	s.logger.Debugw("camera authorization status", "status", status)
	switch status {
	case camera.AuthorizationAuthorized:
		return s.enqueue(func(ctx context.Context) { s.applyAuthorization(true) })
	case camera.AuthorizationNotDetermined:
		s.queue.Suspend()
		s.auth.RequestAccess(camera.MediaTypeVideo, func(granted bool) {
			s.authMu.Lock()
			s.authGranted = granted
			s.authMu.Unlock()
			s.queue.Resume()
		})
		return s.enqueue(func(ctx context.Context) {
			s.authMu.Lock()
			granted := s.authGranted
			s.authMu.Unlock()
			s.applyAuthorization(granted)
		})
	default:
		return s.enqueue(func(ctx context.Context) { s.applyAuthorization(false) })
	}
}

func (s *Session) applyAuthorization(granted bool) {
	if s.state != StateUninitialized {
		s.logger.Debugw("authorization already resolved", "state", s.state)
		return
	}
	s.logger.Infow("camera authorization resolved", "granted", granted)
	if granted {
		s.setState(StateAuthorized)
		return
	}
	s.setState(StateDenied)
	s.emit(SetupFinished{Result: SetupNotAuthorized})
}

// Configure sets up inputs and outputs inside one configuration transaction. On success the
// session returns to authorized, ready to Start; on failure it is left in the terminal
// configurationFailed state.
func (s *Session) Configure() error {
	return s.enqueue(s.configure)
}

func (s *Session) configure(ctx context.Context) {
	switch {
	case s.state == StateDenied:
		s.emit(SetupFinished{Result: SetupNotAuthorized})
		return
	case s.state != StateAuthorized || s.configured:
		s.logger.Warnw("not configuring capture session", "state", s.state, "configured", s.configured)
		return
	}

	s.setState(StateConfiguring)
	if err := s.configureInTransaction(ctx); err != nil {
		s.setState(StateConfigurationFailed)
		s.logger.Errorw("could not configure capture session", "error", err)
		s.emit(SetupFinished{Result: SetupConfigurationFailed, Err: err})
		return
	}
	s.configured = true
	s.setState(StateAuthorized)
	s.logger.Infow("capture session configured", "device", s.device.ID(), "zoom", s.zoom)
	s.emit(SetupFinished{Result: SetupSuccess})
	s.refreshPositions(ctx)
}

// configureInTransaction commits exactly once whatever happens.
func (s *Session) configureInTransaction(ctx context.Context) error {
	if err := s.checkQueue(ctx); err != nil {
		return err
	}
	s.hw.BeginConfiguration()
	defer s.hw.CommitConfiguration()

	s.hw.SetPreset(camera.PresetPhoto)

	d, ok := s.selectDevice(s.conf.Position)
	if !ok {
		return &ConfigurationError{Reason: "no video device available"}
	}
	in, err := s.discovery.NewVideoInput(d)
	if err != nil {
		return &ConfigurationError{Reason: "could not create video input", Err: err}
	}
	if !s.hw.CanAddInput(in) {
		return &ConfigurationError{Reason: "could not add video input to the session"}
	}
	s.hw.AddInput(in)
	s.videoInput, s.device = in, d
	s.applyDefaultZoom(ctx)

	s.addAudioInput()

	if !s.hw.CanAddOutput(s.output) {
		return &ConfigurationError{Reason: "could not add photo output to the session"}
	}
	s.hw.AddOutput(s.output)
	s.applyPhotoFeatures(ctx)
	return nil
}

// selectDevice prefers position but falls back to any device.
func (s *Session) selectDevice(position camera.Position) (camera.Device, bool) {
	found := s.discovery.Devices(devices.DiscoveryTypes(), camera.PositionUnspecified)
	if d, ok := devices.Select(found, position); ok {
		return d, true
	}
	return devices.Select(found, camera.PositionUnspecified)
}

// addAudioInput is best effort.
func (s *Session) addAudioInput() {
	if s.conf.DisableAudio {
		return
	}
	in, err := s.discovery.NewAudioInput()
	if err != nil {
		s.logger.Warnw("could not create audio input", "error", err)
		return
	}
	if !s.hw.CanAddInput(in) {
		s.logger.Warnw("could not add audio input to the session")
		return
	}
	s.hw.AddInput(in)
	s.audioInput = in
}

// applyPhotoFeatures enables every supported delivery feature that is not disabled. The hardware
// resets these whenever an input is removed, so this runs after every input change.
func (s *Session) applyPhotoFeatures(ctx context.Context) {
	if err := s.checkQueue(ctx); err != nil {
		s.logger.Errorw("not applying photo features", "error", err)
		return
	}
	sup := s.output.Supported()
	want := camera.PhotoFeatures{
		DepthDelivery: sup.DepthDelivery && !s.conf.DisableDepth,
		LivePhoto:     sup.LivePhoto && !s.conf.DisableLivePhoto,
		MaxQuality:    min(s.conf.quality(), sup.MaxQuality),
	}
	want.PortraitMatte = want.DepthDelivery && sup.PortraitMatte && !s.conf.DisablePortraitMatte
	if !s.conf.DisableSemanticMattes {
		want.SemanticMattes = sup.SemanticMattes
	}
	s.output.SetEnabled(want)
	s.logger.Debugw("photo output features",
		"depth", want.DepthDelivery,
		"live_photo", want.LivePhoto,
		"portrait_matte", want.PortraitMatte,
		"semantic_mattes", want.SemanticMattes,
		"max_quality", want.MaxQuality,
	)
}

// DevicesChanged tells the session the set of connected devices changed.
func (s *Session) DevicesChanged() error {
	return s.enqueue(s.refreshPositions)
}

func (s *Session) refreshPositions(ctx context.Context) {
	found := s.discovery.Devices(devices.DiscoveryTypes(), camera.PositionUnspecified)
	n := len(devices.Positions(found))
	if n == s.positions {
		return
	}
	s.positions = n
	s.emit(DeviceCountChanged{Positions: n, CanSwitch: n > 1})
}
