package fake

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/rimage"
)

type recordingDelegate struct {
	mu     sync.Mutex
	calls  []string
	photo  *camera.Photo
	err    error
	finish chan struct{}
}

func newRecordingDelegate() *recordingDelegate {
	return &recordingDelegate{finish: make(chan struct{})}
}

func (r *recordingDelegate) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordingDelegate) WillBeginCapture(camera.ResolvedSettings) { r.record("begin") }
func (r *recordingDelegate) WillCapturePhoto(camera.ResolvedSettings) { r.record("capture") }

func (r *recordingDelegate) DidFinishProcessingPhoto(p *camera.Photo, err error) {
	r.record("processed")
	r.mu.Lock()
	r.photo = p
	r.mu.Unlock()
}

func (r *recordingDelegate) DidFinishCapture(_ camera.ResolvedSettings, err error) {
	r.record("finished")
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	close(r.finish)
}

func (r *recordingDelegate) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.finish:
	case <-time.After(5 * time.Second):
		t.Fatal("capture never finished")
	}
}

func TestDiscoveryOrder(t *testing.T) {
	d := NewDiscovery(DefaultDevices()...)
	back := d.Devices([]camera.DeviceType{camera.DeviceTypeWideAngle, camera.DeviceTypeTriple}, camera.PositionBack)
	test.That(t, back, test.ShouldHaveLength, 2)
	test.That(t, back[0].ID(), test.ShouldEqual, "back-wide")
	test.That(t, back[1].ID(), test.ShouldEqual, "back-triple")

	all := d.Devices([]camera.DeviceType{camera.DeviceTypeWideAngle}, camera.PositionUnspecified)
	test.That(t, all, test.ShouldHaveLength, 2)

	d.FailAudio(errors.New("no mic"))
	_, err := d.NewAudioInput()
	test.That(t, err, test.ShouldNotBeNil)
	_, ok := d.Device("front-wide")
	test.That(t, ok, test.ShouldBeTrue)
}

func TestDeviceLockDiscipline(t *testing.T) {
	dev := NewDevice(DeviceConfig{ID: "d", MinZoom: 1, MaxZoom: 4})
	dev.SetZoomFactor(2)
	test.That(t, dev.State().LockViolations, test.ShouldEqual, 1)

	test.That(t, dev.LockForConfiguration(), test.ShouldBeNil)
	test.That(t, dev.LockForConfiguration(), test.ShouldNotBeNil)
	dev.SetZoomFactor(3)
	dev.UnlockForConfiguration()
	st := dev.State()
	test.That(t, st.LockViolations, test.ShouldEqual, 1)
	test.That(t, st.Zoom, test.ShouldEqual, 3.0)
	test.That(t, st.Locked, test.ShouldBeFalse)

	dev.FailLock(errors.New("busy"))
	test.That(t, dev.LockForConfiguration(), test.ShouldNotBeNil)
}

func TestRemoveInputResetsFeatures(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p := DefaultPlatform(logger)
	defer func() { test.That(t, p.Close(), test.ShouldBeNil) }()

	devs := p.Discovery.Devices([]camera.DeviceType{camera.DeviceTypeTriple}, camera.PositionBack)
	in, err := p.Discovery.NewVideoInput(devs[0])
	test.That(t, err, test.ShouldBeNil)

	p.Session.BeginConfiguration()
	p.Session.AddInput(in)
	p.Session.AddOutput(p.Output)
	p.Output.SetEnabled(DefaultFeatures())
	p.Session.CommitConfiguration()
	test.That(t, p.Output.Enabled().DepthDelivery, test.ShouldBeTrue)
	test.That(t, p.Output.Enabled().SemanticMattes, test.ShouldHaveLength, 4)

	p.Session.BeginConfiguration()
	p.Session.RemoveInput(in)
	p.Session.CommitConfiguration()
	test.That(t, p.Output.Enabled(), test.ShouldResemble, camera.PhotoFeatures{})
	test.That(t, p.Session.State().MutationsOutsideTxn, test.ShouldEqual, 0)
}

func TestOutputWithoutDepthDevice(t *testing.T) {
	p := DefaultPlatform(logging.NewTestLogger(t))
	defer p.Close()
	devs := p.Discovery.Devices([]camera.DeviceType{camera.DeviceTypeWideAngle}, camera.PositionBack)
	in, err := p.Discovery.NewVideoInput(devs[0])
	test.That(t, err, test.ShouldBeNil)
	p.Session.BeginConfiguration()
	p.Session.AddInput(in)
	p.Session.AddOutput(p.Output)
	p.Session.CommitConfiguration()
	sup := p.Output.Supported()
	test.That(t, sup.DepthDelivery, test.ShouldBeFalse)
	test.That(t, sup.LivePhoto, test.ShouldBeTrue)
}

func TestCapture(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p := NewPlatform(DefaultDevices(), OutputConfig{
		Width: 8, Height: 4, Orientation: rimage.OrientationRight, Supported: DefaultFeatures(),
	}, logger)
	defer p.Close()
	devs := p.Discovery.Devices([]camera.DeviceType{camera.DeviceTypeTriple}, camera.PositionBack)
	in, err := p.Discovery.NewVideoInput(devs[0])
	test.That(t, err, test.ShouldBeNil)
	p.Session.AddInput(in)
	p.Session.AddOutput(p.Output)
	p.Output.SetEnabled(DefaultFeatures())

	d := newRecordingDelegate()
	p.Output.CapturePhoto(camera.PhotoSettings{
		ID: uuid.New(), DepthDelivery: true, PortraitMatte: true, SemanticMattes: []camera.MatteType{camera.MatteHair},
	}, d)
	d.wait(t)
	test.That(t, d.calls, test.ShouldResemble, []string{"begin", "capture", "processed", "finished"})
	test.That(t, d.err, test.ShouldBeNil)
	test.That(t, d.photo.Data, test.ShouldNotBeEmpty)
	test.That(t, d.photo.Orientation, test.ShouldEqual, rimage.OrientationRight)
	test.That(t, d.photo.Depth.Width, test.ShouldEqual, 4)
	test.That(t, d.photo.PortraitMatte, test.ShouldNotBeNil)
	test.That(t, d.photo.SemanticMattes, test.ShouldHaveLength, 1)

	img, err := rimage.DecodeImage(context.Background(), d.photo.Data, d.photo.MimeType)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 4)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 8)

	failing := newRecordingDelegate()
	p.Output.FailNextCapture(errors.New("sensor fault"))
	p.Output.CapturePhoto(camera.PhotoSettings{ID: uuid.New()}, failing)
	failing.wait(t)
	test.That(t, failing.calls, test.ShouldResemble, []string{"begin", "finished"})
	test.That(t, failing.err, test.ShouldNotBeNil)
	test.That(t, p.Output.Captures(), test.ShouldHaveLength, 2)
}

func TestAuthorizerDefer(t *testing.T) {
	a := NewAuthorizer(camera.AuthorizationNotDetermined, true)
	a.Defer()
	got := make(chan bool, 1)
	a.RequestAccess(camera.MediaTypeVideo, func(granted bool) { got <- granted })
	test.That(t, a.Pending(), test.ShouldEqual, 1)
	test.That(t, a.AuthorizationStatus(camera.MediaTypeVideo), test.ShouldEqual, camera.AuthorizationNotDetermined)
	a.Complete(false)
	test.That(t, <-got, test.ShouldBeFalse)
	test.That(t, a.AuthorizationStatus(camera.MediaTypeVideo), test.ShouldEqual, camera.AuthorizationDenied)
	test.That(t, a.Requests(), test.ShouldEqual, 1)
}

func TestPlatformCloseReportsOpenTransactions(t *testing.T) {
	p := DefaultPlatform(logging.NewTestLogger(t))
	p.Session.BeginConfiguration()
	test.That(t, p.Close(), test.ShouldNotBeNil)
}
