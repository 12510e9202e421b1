package session

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/cutout/components/camera"
)

// Start runs a configured session. Starting a denied or failed session repeats SetupFinished so
// the caller can surface it again.
func (s *Session) Start() error {
	return s.enqueue(s.start)
}

func (s *Session) start(ctx context.Context) {
	switch s.state {
	case StateAuthorized:
		if !s.configured {
			s.logger.Warnw("cannot start an unconfigured capture session")
			return
		}
	case StateStopped:
	case StateRunning:
		return
	case StateDenied:
		s.emit(SetupFinished{Result: SetupNotAuthorized})
		return
	case StateConfigurationFailed:
		s.emit(SetupFinished{Result: SetupConfigurationFailed, Err: errors.New("capture session configuration failed")})
		return
	case StateUninitialized, StateConfiguring, StateInterrupted:
		s.logger.Warnw("cannot start capture session", "state", s.state)
		return
	}
	if !s.startRunning() {
		s.handleRuntimeError(ctx, &camera.RuntimeError{Message: "capture session did not start"}, false)
	}
}

// startRunning starts the hardware and, on success, resets the automatic retry budget.
func (s *Session) startRunning() bool {
	s.hw.StartRunning()
	if !s.hw.IsRunning() {
		return false
	}
	s.setState(StateRunning)
	s.runtimeRetryUsed = false
	s.stoppedUnexpectedly = false
	s.setResumeVisible(false)
	s.emit(RunningChanged{Running: true})
	return true
}

// Pause stops a running or interrupted session.
func (s *Session) Pause() error {
	return s.enqueue(s.pause)
}

func (s *Session) pause(context.Context) {
	if s.state != StateRunning && s.state != StateInterrupted {
		s.logger.Debugw("not pausing capture session", "state", s.state)
		return
	}
	s.hw.StopRunning()
	s.setState(StateStopped)
	s.stoppedUnexpectedly = false
	s.setResumeVisible(false)
	s.emit(RunningChanged{Running: false})
}

// Resume restarts a stopped or interrupted session. If the session had stopped unexpectedly and
// the restart fails, the failure goes through runtime error handling, which retries at most once.
func (s *Session) Resume() error {
	return s.enqueue(s.resume)
}

func (s *Session) resume(ctx context.Context) {
	switch s.state {
	case StateStopped, StateInterrupted:
	case StateRunning:
		return
	case StateUninitialized, StateConfiguring, StateAuthorized, StateDenied, StateConfigurationFailed:
		s.logger.Warnw("cannot resume capture session", "state", s.state)
		return
	}
	unexpected := s.stoppedUnexpectedly
	if s.startRunning() {
		return
	}
	err := errors.New("unable to resume the capture session")
	s.logger.Warnw("resume failed", "error", err, "stopped_unexpectedly", unexpected)
	s.emit(ResumeFailed{Err: err})
	s.handleRuntimeError(ctx, &camera.RuntimeError{Message: err.Error()}, unexpected)
}

// handleRuntimeError restarts the session once if retry is allowed and unused; otherwise it
// leaves the session stopped and shows the resume affordance. The budget covers one fault: it is
// restored as soon as the restarted session is confirmed running.
func (s *Session) handleRuntimeError(ctx context.Context, err error, retry bool) {
	retry = retry && !s.runtimeRetryUsed
	s.logger.Errorw("capture session runtime error", "error", err, "retrying", retry)
	s.emit(RuntimeFault{Err: err, At: s.clock.Now(), Retrying: retry})

	if retry {
		s.runtimeRetryUsed = true
		s.hw.StartRunning()
		if s.hw.IsRunning() {
			if s.state != StateRunning {
				s.setState(StateRunning)
				s.emit(RunningChanged{Running: true})
			}
			s.stoppedUnexpectedly = false
			s.runtimeRetryUsed = false
			s.setResumeVisible(false)
			s.logger.Infow("capture session restarted after runtime error")
			return
		}
	}
	if s.state == StateRunning {
		s.setState(StateStopped)
		s.emit(RunningChanged{Running: false})
		s.stoppedUnexpectedly = true
	}
	s.setResumeVisible(true)
}

func (s *Session) runtimeError(ctx context.Context, err error) {
	s.handleRuntimeError(ctx, err, s.state == StateRunning)
}

func (s *Session) interruptionBegan(ctx context.Context, reason camera.InterruptionReason) {
	s.logger.Infow("capture session was interrupted", "reason", reason)
	s.interruption = &reason
	if s.state == StateRunning {
		s.setState(StateInterrupted)
		s.emit(RunningChanged{Running: false})
	}
	s.emit(InterruptionBegan{Reason: reason, At: s.clock.Now()})
	switch {
	case reason.Resumable():
		s.setResumeVisible(true)
	case reason == camera.InterruptionVideoDeviceNotAvailableWithMultipleForegroundApps:
		s.setUnavailable(true)
	}
}

func (s *Session) interruptionEnded(ctx context.Context) {
	s.logger.Infow("capture session interruption ended")
	s.interruption = nil
	s.setResumeVisible(false)
	s.setUnavailable(false)
	s.emit(InterruptionEnded{At: s.clock.Now()})
	if s.state == StateInterrupted && s.hw.IsRunning() {
		s.setState(StateRunning)
		s.emit(RunningChanged{Running: true})
	}
}

// systemPressureChanged throttles the frame rate under elevated pressure instead of stopping. At
// shutdown the hardware stops on its own and the interruption path handles it.
func (s *Session) systemPressureChanged(ctx context.Context, level camera.PressureLevel) {
	switch level {
	case camera.PressureSerious, camera.PressureCritical:
		if s.throttled || s.device == nil {
			return
		}
		minFPS, maxFPS := s.conf.ThrottledMinFPS, s.conf.ThrottledMaxFPS
		if err := s.withDeviceLock(ctx, func() { s.device.SetFrameRateBounds(minFPS, maxFPS) }); err != nil {
			s.logger.Errorw("could not throttle frame rate", "error", err)
			return
		}
		s.throttled = true
		s.logger.Warnw("reached elevated system pressure level, throttling frame rate",
			"level", level, "min_fps", minFPS, "max_fps", maxFPS)
	case camera.PressureNominal, camera.PressureFair:
		if !s.throttled || s.device == nil {
			return
		}
		if err := s.withDeviceLock(ctx, s.device.ResetFrameRateBounds); err != nil {
			s.logger.Errorw("could not restore frame rate", "error", err)
			return
		}
		s.throttled = false
		s.logger.Infow("system pressure returned to normal, frame rate restored", "level", level)
	case camera.PressureShutdown:
		s.logger.Errorw("session stopped running due to shutdown system pressure level")
	}
}

// observer receives hardware notifications and forwards them to the session queue.
type observer struct {
	s *Session
}

func (o *observer) forward(name string, fn func(ctx context.Context)) {
	if err := o.s.enqueue(fn); err != nil {
		o.s.logger.Debugw("dropping hardware notification", "notification", name, "error", err)
	}
}

func (o *observer) RuntimeError(err error) {
	o.forward("runtime_error", func(ctx context.Context) { o.s.runtimeError(ctx, err) })
}

func (o *observer) InterruptionBegan(reason camera.InterruptionReason) {
	o.forward("interruption_began", func(ctx context.Context) { o.s.interruptionBegan(ctx, reason) })
}

func (o *observer) InterruptionEnded() {
	o.forward("interruption_ended", o.s.interruptionEnded)
}

func (o *observer) SystemPressureChanged(level camera.PressureLevel) {
	o.forward("system_pressure", func(ctx context.Context) { o.s.systemPressureChanged(ctx, level) })
}

func (o *observer) SubjectAreaChanged() {
	o.forward("subject_area_changed", func(ctx context.Context) {
		if err := o.s.focusAndExpose(ctx, camera.FocusModeAutoFocus, camera.ExposureModeAutoExpose, camera.Center, false); err != nil {
			o.s.logger.Warnw("could not refocus after subject area change", "error", err)
		}
	})
}
