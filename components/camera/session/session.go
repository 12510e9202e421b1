// Package session implements the capture session state machine. A Session owns the hardware
// capture session and funnels every mutation of it through one serial queue, the session queue.
// Public operations only enqueue work and return; results are reported as events to listeners,
// which run on a separate UI dispatcher.
package session

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/utils"
)

var (
	// ErrNotOnSessionQueue is returned when hardware mutation is attempted from outside the session
	// queue.
	ErrNotOnSessionQueue = errors.New("capture session mutated outside the session queue")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("capture session is closed")
	// ErrNotRunning fails captures requested while the session is not running.
	ErrNotRunning = errors.New("capture session is not running")
)

// ConfigurationError is why configuration failed. It is terminal for the session.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return "capture session configuration failed: " + e.Reason
	}
	return "capture session configuration failed: " + e.Reason + ": " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Dispatcher runs functions in order on the context that serves the UI.
type Dispatcher interface {
	Dispatch(fn func())
}

// Dependencies are the platform bindings a session drives.
type Dependencies struct {
	Hardware   camera.HardwareSession
	Discovery  camera.Discovery
	Authorizer camera.Authorizer
	Output     camera.PhotoOutput
}

func (d Dependencies) validate() error {
	switch {
	case d.Hardware == nil:
		return errors.New("missing hardware session")
	case d.Discovery == nil:
		return errors.New("missing device discovery")
	case d.Authorizer == nil:
		return errors.New("missing authorizer")
	case d.Output == nil:
		return errors.New("missing photo output")
	}
	return nil
}

type options struct {
	clock clock.Clock
	newID func() uuid.UUID
	ui    Dispatcher
}

// Option configures a Session.
type Option func(*options)

// WithClock sets the clock used to timestamp events.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator sets how capture identifiers are generated.
func WithIDGenerator(f func() uuid.UUID) Option {
	return func(o *options) { o.newID = f }
}

// WithDispatcher sets where listeners run. By default a session creates its own UI queue.
func WithDispatcher(d Dispatcher) Option {
	return func(o *options) { o.ui = d }
}

// Session is the capture session state machine.
type Session struct {
	conf      Config
	logger    logging.Logger
	hw        camera.HardwareSession
	discovery camera.Discovery
	auth      camera.Authorizer
	output    camera.PhotoOutput
	queue     *utils.SerialQueue
	ui        Dispatcher
	ownedUI   *utils.SerialQueue
	clock     clock.Clock
	newID     func() uuid.UUID

	// owned by the session queue
	state               State
	configured          bool
	device              camera.Device
	videoInput          camera.Input
	audioInput          camera.Input
	positions           int
	zoom                float64
	throttled           bool
	inFlight            map[uuid.UUID]*inFlightCapture
	runtimeRetryUsed    bool
	stoppedUnexpectedly bool
	interruption        *camera.InterruptionReason
	resumeVisible       bool
	unavailable         bool

	authMu      sync.Mutex
	authGranted bool

	stateMirror atomic.Int32
	zoomMirror  atomic.Float64
	closed      atomic.Bool

	listenersMu  sync.Mutex
	listeners    map[int]func(Event)
	nextListener int
}

// New returns an uninitialized session. Nothing touches the hardware until RequestAuthorization
// and Configure are called.
func New(conf Config, deps Dependencies, logger logging.Logger, opts ...Option) (*Session, error) {
	conf.SetDefaults()
	if err := conf.Validate("session"); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	o := options{clock: clock.New(), newID: uuid.New}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		conf:      conf,
		logger:    logger,
		hw:        deps.Hardware,
		discovery: deps.Discovery,
		auth:      deps.Authorizer,
		output:    deps.Output,
		queue:     utils.NewSerialQueue("session", logger.Sublogger("queue")),
		ui:        o.ui,
		clock:     o.clock,
		newID:     o.newID,
		inFlight:  map[uuid.UUID]*inFlightCapture{},
		listeners: map[int]func(Event){},
	}
	if s.ui == nil {
		s.ownedUI = utils.NewSerialQueue("session-ui", logger.Sublogger("ui"))
		s.ui = s.ownedUI
	}
	s.hw.SetObserver(&observer{s: s})
	return s, nil
}

// AddListener registers fn for every future event and returns a function that unregisters it.
func (s *Session) AddListener(fn func(Event)) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) emit(ev Event) {
	s.listenersMu.Lock()
	ls := make([]func(Event), 0, len(s.listeners))
	for i := 0; i < s.nextListener; i++ {
		if l, ok := s.listeners[i]; ok {
			ls = append(ls, l)
		}
	}
	s.listenersMu.Unlock()
	if len(ls) == 0 {
		return
	}
	s.ui.Dispatch(func() {
		for _, l := range ls {
			l(ev)
		}
	})
}

// enqueue submits fn to the session queue.
func (s *Session) enqueue(fn func(ctx context.Context)) error {
	if s.closed.Load() || !s.queue.Async(fn) {
		return ErrSessionClosed
	}
	return nil
}

// checkQueue fails fast when ctx does not come from the session queue.
func (s *Session) checkQueue(ctx context.Context) error {
	if !utils.OnQueue(ctx, s.queue) {
		return ErrNotOnSessionQueue
	}
	return nil
}

func (s *Session) setState(to State) bool {
	from := s.state
	if from == to {
		return true
	}
	if !from.CanTransitionTo(to) {
		s.logger.Warnw("ignoring invalid capture session transition", "from", from, "to", to)
		return false
	}
	s.state = to
	s.stateMirror.Store(int32(to))
	s.logger.Debugw("capture session state changed", "from", from, "to", to)
	s.emit(StateChanged{From: from, To: to})
	return true
}

func (s *Session) setResumeVisible(visible bool) {
	if s.resumeVisible == visible {
		return
	}
	s.resumeVisible = visible
	s.emit(ResumeVisibilityChanged{Visible: visible})
}

func (s *Session) setUnavailable(unavailable bool) {
	if s.unavailable == unavailable {
		return
	}
	s.unavailable = unavailable
	s.emit(UnavailableChanged{Unavailable: unavailable})
}

// State returns the lifecycle state as of the last completed session queue operation.
func (s *Session) State() State {
	return State(s.stateMirror.Load())
}

// Zoom returns the last applied zoom factor.
func (s *Session) Zoom() float64 {
	return s.zoomMirror.Load()
}

// Snapshot is a consistent view of the session, taken on the session queue.
type Snapshot struct {
	State         State
	Configured    bool
	DeviceID      string
	Position      camera.Position
	Zoom          float64
	Positions     int
	InFlight      int
	ResumeVisible bool
	Unavailable   bool
	Interruption  *camera.InterruptionReason
	Throttled     bool
}

// Snapshot waits for previously submitted operations and returns the resulting state.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := s.queue.Sync(ctx, func(context.Context) {
		snap = Snapshot{
			State:         s.state,
			Configured:    s.configured,
			Zoom:          s.zoom,
			Positions:     s.positions,
			InFlight:      len(s.inFlight),
			ResumeVisible: s.resumeVisible,
			Unavailable:   s.unavailable,
			Interruption:  s.interruption,
			Throttled:     s.throttled,
		}
		if s.device != nil {
			snap.DeviceID = s.device.ID()
			snap.Position = s.device.Position()
		}
	})
	if errors.Is(err, utils.ErrQueueClosed) {
		return snap, ErrSessionClosed
	}
	return snap, err
}

// Flush waits until every operation submitted before the call has run and the events they
// produced have been delivered.
func (s *Session) Flush(ctx context.Context) error {
	if err := s.queue.Flush(ctx); err != nil {
		if errors.Is(err, utils.ErrQueueClosed) {
			return ErrSessionClosed
		}
		return err
	}
	done := make(chan struct{})
	s.ui.Dispatch(func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the hardware session, runs everything already submitted and rejects later
// operations with ErrSessionClosed. Captures still in flight complete with ErrSessionClosed.
func (s *Session) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var teardownErr error
	s.queue.Async(func(ctx context.Context) {
		if s.hw.IsRunning() {
			s.hw.StopRunning()
		}
		if s.state == StateRunning || s.state == StateInterrupted {
			s.setState(StateStopped)
			s.emit(RunningChanged{Running: false})
		}
		if s.throttled {
			teardownErr = multierr.Append(teardownErr, s.withDeviceLock(ctx, s.device.ResetFrameRateBounds))
			s.throttled = false
		}
		s.hw.SetObserver(nil)
		for id, c := range s.inFlight {
			s.logger.Warnw("failing capture still in flight at close", "id", id)
			c.fail(ErrSessionClosed)
			delete(s.inFlight, id)
			s.emit(CaptureStateChanged{ID: id, InFlight: false})
		}
	})

	drained := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		defer close(drained)
		s.queue.Close()
		if s.ownedUI != nil {
			s.ownedUI.Close()
		}
	})
	select {
	case <-drained:
		return teardownErr
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "timed out closing capture session")
	}
}
