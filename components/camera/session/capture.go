package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/atomic"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/components/camera/photo"
)

// CaptureRequest are the caller's wishes for one photo. Zero values take the session defaults.
type CaptureRequest struct {
	Codec     string
	FlashMode camera.FlashMode
	Quality   camera.QualityPrioritization
	Location  *camera.Location
}

// CapturePhoto submits a capture and returns its identifier. Callbacks run on the UI dispatcher;
// Completion runs exactly once, with a photo.Failure when the session is not running.
func (s *Session) CapturePhoto(req CaptureRequest, callbacks photo.Callbacks) (uuid.UUID, error) {
	id := s.newID()
	err := s.enqueue(func(ctx context.Context) {
		if s.state != StateRunning {
			s.logger.Warnw("not capturing, session is not running", "id", id, "state", s.state)
			if callbacks.Completion != nil {
				s.deliver(func() {
					callbacks.Completion(photo.Failure{Err: &photo.CaptureError{ID: id, Err: ErrNotRunning}})
				})
			}
			return
		}
		settings := s.resolveSettings(id, req)
		wrapped, fail := s.dispatchCallbacks(id, callbacks)
		coord := photo.NewCoordinator(settings, wrapped, s.logger.Sublogger("capture"))
		s.inFlight[id] = &inFlightCapture{coord: coord, fail: fail}
		s.emit(CaptureStateChanged{ID: id, InFlight: true})
		s.logger.Debugw("capturing photo", "id", id, "codec", settings.Codec, "quality", settings.QualityPrioritization)
		s.output.CapturePhoto(settings, coord)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (s *Session) resolveSettings(id uuid.UUID, req CaptureRequest) camera.PhotoSettings {
	codecs := s.output.Codecs()
	codec := req.Codec
	if codec == "" {
		codec = s.conf.PhotoCodec
	}
	if !lo.Contains(codecs, codec) && len(codecs) > 0 {
		codec = codecs[0]
	}

	flash := req.FlashMode
	if !s.device.HasFlash() {
		flash = camera.FlashModeOff
	}

	enabled := s.output.Enabled()
	quality := req.Quality
	if quality == 0 {
		quality = s.conf.quality()
	}
	if enabled.MaxQuality != 0 {
		quality = min(quality, enabled.MaxQuality)
	}

	return camera.PhotoSettings{
		ID:                    id,
		Codec:                 codec,
		FlashMode:             flash,
		QualityPrioritization: quality,
		DepthDelivery:         enabled.DepthDelivery,
		PortraitMatte:         enabled.PortraitMatte,
		SemanticMattes:        enabled.SemanticMattes,
		Location:              req.Location,
	}
}

// inFlightCapture keeps a coordinator alive until its completion has been delivered.
type inFlightCapture struct {
	coord *photo.Coordinator
	// fail completes the capture with err unless the hardware already completed it.
	fail func(err error)
}

// dispatchCallbacks moves the caller's callbacks to the UI dispatcher. Completion first removes
// the coordinator from the in-flight set on the session queue. The returned fail function and the
// coordinator's completion share a guard, so the caller sees exactly one outcome.
func (s *Session) dispatchCallbacks(id uuid.UUID, cb photo.Callbacks) (photo.Callbacks, func(err error)) {
	var out photo.Callbacks
	if cb.WillCapture != nil {
		out.WillCapture = func() { s.ui.Dispatch(cb.WillCapture) }
	}
	if cb.ProcessingChanged != nil {
		out.ProcessingChanged = func(processing bool) {
			s.ui.Dispatch(func() { cb.ProcessingChanged(processing) })
		}
	}

	var completed atomic.Bool
	complete := func(o photo.Outcome) {
		if !completed.CompareAndSwap(false, true) {
			s.logger.Debugw("dropping second outcome for capture", "id", id)
			return
		}
		if cb.Completion != nil {
			s.deliver(func() { cb.Completion(o) })
		}
	}
	out.Completion = func(o photo.Outcome) {
		s.queue.Async(func(context.Context) {
			if _, ok := s.inFlight[id]; ok {
				delete(s.inFlight, id)
				s.emit(CaptureStateChanged{ID: id, InFlight: false})
			}
		})
		complete(o)
	}
	fail := func(err error) {
		complete(photo.Failure{Err: &photo.CaptureError{ID: id, Err: err}})
	}
	return out, fail
}

// deliver runs fn on the UI dispatcher. Once the session's own UI queue is closed, fn runs on the
// calling goroutine instead of being dropped.
func (s *Session) deliver(fn func()) {
	if s.ownedUI == nil {
		s.ui.Dispatch(fn)
		return
	}
	if !s.ownedUI.Async(func(context.Context) { fn() }) {
		fn()
	}
}
