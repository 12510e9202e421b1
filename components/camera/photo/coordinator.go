// Package photo coordinates a single photo capture, from settings submission to the delivered
// image or error.
package photo

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/rimage"
)

// ProcessingIndicatorThreshold is the advertised processing time above which the busy indicator
// is shown.
const ProcessingIndicatorThreshold = time.Second

// ErrNoImage is reported when a capture finishes without delivering a decodable image.
var ErrNoImage = errors.New("capture finished without delivering an image")

// CaptureError is the failure of one capture.
type CaptureError struct {
	ID  uuid.UUID
	Err error
}

func (e *CaptureError) Error() string {
	return "capture " + e.ID.String() + " failed: " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Outcome is the result of a capture: Success or Failure.
type Outcome interface {
	isOutcome()
}

// Success carries the delivered image.
type Success struct {
	Image *camera.CapturedImage
}

// Failure carries why no image was delivered.
type Failure struct {
	Err error
}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}

// Callbacks are how a coordinator reports to its owner. Nil callbacks are skipped.
type Callbacks struct {
	// WillCapture fires once when the shutter fires.
	WillCapture func()
	// ProcessingChanged shows or hides a busy indicator around slow processing.
	ProcessingChanged func(processing bool)
	// Completion fires exactly once.
	Completion func(Outcome)
}

// Coordinator implements camera.PhotoCaptureDelegate for one capture. It holds no reference to
// the session that created it.
type Coordinator struct {
	settings  camera.PhotoSettings
	callbacks Callbacks
	logger    logging.Logger

	mu              sync.Mutex
	image           *camera.CapturedImage
	processErr      error
	processingShown bool

	once sync.Once
	done chan struct{}
}

var _ camera.PhotoCaptureDelegate = (*Coordinator)(nil)

// NewCoordinator returns a coordinator for settings.
func NewCoordinator(settings camera.PhotoSettings, callbacks Callbacks, logger logging.Logger) *Coordinator {
	return &Coordinator{
		settings:  settings,
		callbacks: callbacks,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// ID returns the settings identifier this coordinator is keyed by.
func (c *Coordinator) ID() uuid.UUID {
	return c.settings.ID
}

// Settings returns the capture settings.
func (c *Coordinator) Settings() camera.PhotoSettings {
	return c.settings
}

// Done is closed once the completion callback has run.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// WillBeginCapture shows the processing indicator for slow captures.
func (c *Coordinator) WillBeginCapture(resolved camera.ResolvedSettings) {
	if resolved.ProcessingTime <= ProcessingIndicatorThreshold {
		return
	}
	c.mu.Lock()
	c.processingShown = true
	c.mu.Unlock()
	if c.callbacks.ProcessingChanged != nil {
		c.callbacks.ProcessingChanged(true)
	}
}

// WillCapturePhoto forwards the shutter moment.
func (c *Coordinator) WillCapturePhoto(camera.ResolvedSettings) {
	if c.callbacks.WillCapture != nil {
		c.callbacks.WillCapture()
	}
}

// DidFinishProcessingPhoto decodes the delivered photo and its auxiliary data.
func (c *Coordinator) DidFinishProcessingPhoto(p *camera.Photo, err error) {
	c.hideProcessing()
	if err != nil {
		c.logger.Warnw("error capturing photo", "id", c.settings.ID, "error", err)
		c.setResult(nil, err)
		return
	}
	if p == nil || len(p.Data) == 0 {
		c.setResult(nil, ErrNoImage)
		return
	}

	ctx := context.Background()
	img, err := rimage.DecodeImage(ctx, p.Data, p.MimeType)
	if err != nil {
		c.setResult(nil, errors.Wrap(err, "could not decode photo"))
		return
	}
	captured := &camera.CapturedImage{
		ID:       c.settings.ID,
		Image:    rimage.ApplyOrientation(img, p.Orientation),
		Data:     p.Data,
		MimeType: p.MimeType,
		Mattes:   c.decodeMattes(ctx, p),
		Location: c.settings.Location,
	}
	if p.Depth != nil {
		dm, err := rimage.NewDepthMapFromMeters(p.Depth.Width, p.Depth.Height, p.Depth.Meters)
		if err != nil {
			c.logger.Debugw("dropping depth data", "id", c.settings.ID, "error", err)
		} else {
			captured.Depth = dm.Oriented(p.Orientation)
		}
	}
	c.setResult(captured, nil)
}

// decodeMattes decodes every matte with the photo's orientation applied. Undecodable mattes are
// dropped.
func (c *Coordinator) decodeMattes(ctx context.Context, p *camera.Photo) map[camera.MatteType]image.Image {
	mattes := make([]camera.Matte, 0, len(p.SemanticMattes)+1)
	if p.PortraitMatte != nil {
		mattes = append(mattes, *p.PortraitMatte)
	}
	mattes = append(mattes, p.SemanticMattes...)
	if len(mattes) == 0 {
		return nil
	}

	out := make(map[camera.MatteType]image.Image, len(mattes))
	for _, m := range mattes {
		img, err := rimage.DecodeImage(ctx, m.Data, m.MimeType)
		if err != nil {
			c.logger.Debugw("dropping undecodable matte", "id", c.settings.ID, "matte", m.Type, "error", err)
			continue
		}
		out[m.Type] = rimage.ApplyOrientation(img, p.Orientation)
	}
	return out
}

// DidFinishCapture completes the capture.
func (c *Coordinator) DidFinishCapture(_ camera.ResolvedSettings, err error) {
	c.hideProcessing()
	if err != nil {
		c.logger.Warnw("error capturing photo", "id", c.settings.ID, "error", err)
		c.complete(Failure{Err: &CaptureError{ID: c.settings.ID, Err: err}})
		return
	}
	c.mu.Lock()
	img, processErr := c.image, c.processErr
	c.mu.Unlock()
	switch {
	case img != nil:
		c.complete(Success{Image: img})
	case processErr != nil:
		c.complete(Failure{Err: &CaptureError{ID: c.settings.ID, Err: processErr}})
	default:
		c.complete(Failure{Err: &CaptureError{ID: c.settings.ID, Err: ErrNoImage}})
	}
}

func (c *Coordinator) setResult(img *camera.CapturedImage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image, c.processErr = img, err
}

func (c *Coordinator) hideProcessing() {
	c.mu.Lock()
	shown := c.processingShown
	c.processingShown = false
	c.mu.Unlock()
	if shown && c.callbacks.ProcessingChanged != nil {
		c.callbacks.ProcessingChanged(false)
	}
}

func (c *Coordinator) complete(o Outcome) {
	c.once.Do(func() {
		defer close(c.done)
		if c.callbacks.Completion != nil {
			c.callbacks.Completion(o)
		}
	})
}
