package fake

import (
	"sync"

	"go.viam.com/cutout/components/camera"
)

// HardwareSession is a fake camera.HardwareSession. It mirrors the platform's rules: removing an
// input resets the delivery features of every attached photo output.
type HardwareSession struct {
	mu sync.Mutex

	observer camera.SessionObserver
	preset   camera.SessionPreset
	inputs   []camera.Input
	outputs  []*PhotoOutput
	running  bool

	configDepth     int
	begins, commits int
	maxVideoInputs  int
	addsOutsideTxn  int
	rejectInputs    bool
	rejectOutputs   bool
	failStart       bool
	startCount      int
	stopCount       int
	removedInputs   int
}

// NewHardwareSession returns an empty session.
func NewHardwareSession() *HardwareSession {
	return &HardwareSession{}
}

// SetObserver installs the notification receiver.
func (s *HardwareSession) SetObserver(o camera.SessionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = o
}

// BeginConfiguration opens a configuration transaction.
func (s *HardwareSession) BeginConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configDepth++
	s.begins++
}

// CommitConfiguration closes a configuration transaction.
func (s *HardwareSession) CommitConfiguration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configDepth--
	s.commits++
}

// SetPreset sets the session preset.
func (s *HardwareSession) SetPreset(preset camera.SessionPreset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteMutation()
	s.preset = preset
}

// noteMutation records mutations made outside a configuration transaction. Called with mu held.
func (s *HardwareSession) noteMutation() {
	if s.configDepth == 0 {
		s.addsOutsideTxn++
	}
}

// RejectInputs makes CanAddInput return false.
func (s *HardwareSession) RejectInputs(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectInputs = reject
}

// RejectOutputs makes CanAddOutput return false.
func (s *HardwareSession) RejectOutputs(reject bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectOutputs = reject
}

// FailStart makes StartRunning leave the session stopped.
func (s *HardwareSession) FailStart(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStart = fail
}

// CanAddInput reports whether in can be added.
func (s *HardwareSession) CanAddInput(in camera.Input) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectInputs || in == nil {
		return false
	}
	for _, existing := range s.inputs {
		if existing == in {
			return false
		}
	}
	return true
}

// AddInput attaches an input.
func (s *HardwareSession) AddInput(in camera.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteMutation()
	s.inputs = append(s.inputs, in)
	if n := len(camera.VideoInputs(s.inputs)); n > s.maxVideoInputs {
		s.maxVideoInputs = n
	}
}

// RemoveInput detaches an input and resets the outputs' delivery features.
func (s *HardwareSession) RemoveInput(in camera.Input) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteMutation()
	for i, existing := range s.inputs {
		if existing == in {
			s.inputs = append(s.inputs[:i], s.inputs[i+1:]...)
			s.removedInputs++
			break
		}
	}
	for _, out := range s.outputs {
		out.resetEnabled()
	}
}

// Inputs returns the attached inputs.
func (s *HardwareSession) Inputs() []camera.Input {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]camera.Input(nil), s.inputs...)
}

// CanAddOutput reports whether out can be added.
func (s *HardwareSession) CanAddOutput(out camera.PhotoOutput) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rejectOutputs {
		return false
	}
	_, ok := out.(*PhotoOutput)
	return ok
}

// AddOutput attaches a photo output.
func (s *HardwareSession) AddOutput(out camera.PhotoOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noteMutation()
	if po, ok := out.(*PhotoOutput); ok {
		s.outputs = append(s.outputs, po)
		po.attach(s)
	}
}

// StartRunning starts the session unless FailStart is set.
func (s *HardwareSession) StartRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startCount++
	if !s.failStart {
		s.running = true
	}
}

// StopRunning stops the session.
func (s *HardwareSession) StopRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCount++
	s.running = false
}

// IsRunning reports whether the session runs.
func (s *HardwareSession) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *HardwareSession) currentVideoDevice() camera.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range camera.VideoInputs(s.inputs) {
		return in.Device()
	}
	return nil
}

func (s *HardwareSession) notify(fn func(o camera.SessionObserver)) {
	s.mu.Lock()
	o := s.observer
	s.mu.Unlock()
	if o != nil {
		fn(o)
	}
}

// EmitRuntimeError stops the session and reports err.
func (s *HardwareSession) EmitRuntimeError(err error) {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.notify(func(o camera.SessionObserver) { o.RuntimeError(err) })
}

// EmitInterruption stops the session and reports the interruption.
func (s *HardwareSession) EmitInterruption(reason camera.InterruptionReason) {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.notify(func(o camera.SessionObserver) { o.InterruptionBegan(reason) })
}

// EndInterruption reports the interruption's end. With autoResume the session is running again
// when the notification is delivered, as the platform does for most interruptions.
func (s *HardwareSession) EndInterruption(autoResume bool) {
	if autoResume {
		s.mu.Lock()
		s.running = true
		s.mu.Unlock()
	}
	s.notify(func(o camera.SessionObserver) { o.InterruptionEnded() })
}

// EmitSystemPressure reports a pressure level.
func (s *HardwareSession) EmitSystemPressure(level camera.PressureLevel) {
	s.notify(func(o camera.SessionObserver) { o.SystemPressureChanged(level) })
}

// EmitSubjectAreaChange reports a subject area change.
func (s *HardwareSession) EmitSubjectAreaChange() {
	s.notify(func(o camera.SessionObserver) { o.SubjectAreaChanged() })
}

// SessionState is a snapshot of the fake session's bookkeeping.
type SessionState struct {
	Preset              camera.SessionPreset
	Inputs              int
	VideoInputs         int
	Outputs             int
	Running             bool
	OpenTransactions    int
	Begins, Commits     int
	MaxVideoInputs      int
	MutationsOutsideTxn int
	StartCount          int
	StopCount           int
	RemovedInputs       int
}

// State returns a snapshot of the session.
func (s *HardwareSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionState{
		Preset:              s.preset,
		Inputs:              len(s.inputs),
		VideoInputs:         len(camera.VideoInputs(s.inputs)),
		Outputs:             len(s.outputs),
		Running:             s.running,
		OpenTransactions:    s.configDepth,
		Begins:              s.begins,
		Commits:             s.commits,
		MaxVideoInputs:      s.maxVideoInputs,
		MutationsOutsideTxn: s.addsOutsideTxn,
		StartCount:          s.startCount,
		StopCount:           s.stopCount,
		RemovedInputs:       s.removedInputs,
	}
}
