package fake

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/rimage"
	"go.viam.com/cutout/utils"
)

// OutputConfig describes what a fake photo output supports and how it captures.
type OutputConfig struct {
	Width          int                  `json:"width"`
	Height         int                  `json:"height"`
	Orientation    rimage.Orientation   `json:"orientation"`
	ProcessingTime time.Duration        `json:"processing_time"`
	Delay          time.Duration        `json:"delay"`
	Codecs         []string             `json:"codecs"`
	Supported      camera.PhotoFeatures `json:"-"`
}

// PhotoOutput is a fake camera.PhotoOutput that synthesizes a gradient photo for every capture on
// a background worker.
type PhotoOutput struct {
	conf   OutputConfig
	logger logging.Logger

	mu          sync.Mutex
	session     *HardwareSession
	enabled     camera.PhotoFeatures
	failNext    error
	corruptNext bool
	missingNext bool
	captures    []camera.PhotoSettings

	workers *utils.StoppableWorkers
}

// NewPhotoOutput returns an output.
func NewPhotoOutput(conf OutputConfig, logger logging.Logger) *PhotoOutput {
	if conf.Width <= 0 || conf.Height <= 0 {
		conf.Width, conf.Height = 64, 48
	}
	if !conf.Orientation.Valid() {
		conf.Orientation = rimage.OrientationUp
	}
	if len(conf.Codecs) == 0 {
		conf.Codecs = []string{utils.MimeTypeJPEG, utils.MimeTypePNG}
	}
	return &PhotoOutput{
		conf:    conf,
		logger:  logger,
		workers: utils.NewStoppableWorkers(),
	}
}

func (o *PhotoOutput) attach(s *HardwareSession) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session = s
}

func (o *PhotoOutput) resetEnabled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = camera.PhotoFeatures{}
}

// Supported returns the advertised features. Depth and mattes need a device with depth ranges.
func (o *PhotoOutput) Supported() camera.PhotoFeatures {
	o.mu.Lock()
	s := o.session
	o.mu.Unlock()

	sup := o.conf.Supported
	sup.SemanticMattes = append([]camera.MatteType(nil), sup.SemanticMattes...)
	if s == nil {
		return sup
	}
	if d := s.currentVideoDevice(); d == nil || len(d.DepthZoomRanges()) == 0 {
		sup.DepthDelivery = false
		sup.PortraitMatte = false
		sup.SemanticMattes = nil
	}
	return sup
}

// Enabled returns the enabled features.
func (o *PhotoOutput) Enabled() camera.PhotoFeatures {
	o.mu.Lock()
	defer o.mu.Unlock()
	e := o.enabled
	e.SemanticMattes = append([]camera.MatteType(nil), e.SemanticMattes...)
	return e
}

// SetEnabled enables the supported subset of f.
func (o *PhotoOutput) SetEnabled(f camera.PhotoFeatures) {
	sup := o.Supported()
	var mattes []camera.MatteType
	for _, m := range f.SemanticMattes {
		for _, s := range sup.SemanticMattes {
			if m == s {
				mattes = append(mattes, m)
			}
		}
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = camera.PhotoFeatures{
		DepthDelivery:  f.DepthDelivery && sup.DepthDelivery,
		LivePhoto:      f.LivePhoto && sup.LivePhoto,
		PortraitMatte:  f.PortraitMatte && sup.PortraitMatte,
		SemanticMattes: mattes,
		MaxQuality:     min(f.MaxQuality, sup.MaxQuality),
	}
}

// Codecs returns the supported photo codecs.
func (o *PhotoOutput) Codecs() []string {
	return append([]string(nil), o.conf.Codecs...)
}

// FailNextCapture makes the next capture finish with err and no photo.
func (o *PhotoOutput) FailNextCapture(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failNext = err
}

// CorruptNextMattes makes the next capture deliver undecodable mattes.
func (o *PhotoOutput) CorruptNextMattes() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.corruptNext = true
}

// OmitNextPhotoData makes the next capture deliver a photo without image data.
func (o *PhotoOutput) OmitNextPhotoData() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.missingNext = true
}

// Captures returns the settings of every capture requested so far.
func (o *PhotoOutput) Captures() []camera.PhotoSettings {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]camera.PhotoSettings(nil), o.captures...)
}

// CapturePhoto runs the capture on a background worker, calling the delegate in platform order.
func (o *PhotoOutput) CapturePhoto(settings camera.PhotoSettings, delegate camera.PhotoCaptureDelegate) {
	o.mu.Lock()
	failErr, corrupt, missing := o.failNext, o.corruptNext, o.missingNext
	o.failNext, o.corruptNext, o.missingNext = nil, false, false
	o.captures = append(o.captures, settings)
	o.mu.Unlock()

	resolved := camera.ResolvedSettings{
		ID:             settings.ID,
		Width:          o.conf.Width,
		Height:         o.conf.Height,
		FlashEnabled:   settings.FlashMode == camera.FlashModeOn,
		ProcessingTime: o.conf.ProcessingTime,
	}
	started := o.workers.Add(func(ctx context.Context) {
		delegate.WillBeginCapture(resolved)
		if failErr != nil {
			delegate.DidFinishCapture(resolved, failErr)
			return
		}
		delegate.WillCapturePhoto(resolved)
		if o.conf.Delay > 0 && !goutils.SelectContextOrWait(ctx, o.conf.Delay) {
			delegate.DidFinishCapture(resolved, errors.Wrap(ctx.Err(), "photo output closed mid-capture"))
			return
		}
		photo, err := o.synthesize(ctx, settings, corrupt, missing)
		delegate.DidFinishProcessingPhoto(photo, err)
		delegate.DidFinishCapture(resolved, nil)
	})
	if !started {
		delegate.DidFinishCapture(resolved, errors.New("photo output is closed"))
	}
}

// synthesize builds a yellow to blue gradient photo in sensor orientation, plus whatever
// auxiliary data the settings asked for.
func (o *PhotoOutput) synthesize(
	ctx context.Context,
	settings camera.PhotoSettings,
	corrupt, missing bool,
) (*camera.Photo, error) {
	codec := settings.Codec
	if codec == "" {
		codec = o.conf.Codecs[0]
	}
	w, h := o.conf.Width, o.conf.Height
	if o.conf.Orientation.SwapsAxes() {
		w, h = h, w
	}
	photo := &camera.Photo{MimeType: codec, Orientation: o.conf.Orientation}
	if !missing {
		data, err := rimage.EncodeImage(ctx, Gradient(w, h), codec)
		if err != nil {
			return nil, err
		}
		photo.Data = data
	}

	enabled := o.Enabled()
	if settings.DepthDelivery && enabled.DepthDelivery {
		meters := make([]float32, w*h)
		for i := range meters {
			meters[i] = 0.5 + float32(i%w)/float32(w)
		}
		photo.Depth = &camera.DepthData{Width: w, Height: h, Meters: meters}
	}
	matte := func(t camera.MatteType) (camera.Matte, error) {
		if corrupt {
			return camera.Matte{Type: t, Data: []byte("not an image"), MimeType: utils.MimeTypePNG}, nil
		}
		data, err := rimage.EncodeImage(ctx, centerMatte(w, h), utils.MimeTypePNG)
		if err != nil {
			return camera.Matte{}, err
		}
		return camera.Matte{Type: t, Data: data, MimeType: utils.MimeTypePNG}, nil
	}
	if settings.PortraitMatte && enabled.PortraitMatte {
		m, err := matte(camera.MattePortrait)
		if err != nil {
			return nil, err
		}
		photo.PortraitMatte = &m
	}
	for _, t := range settings.SemanticMattes {
		if !containsMatte(enabled.SemanticMattes, t) {
			continue
		}
		m, err := matte(t)
		if err != nil {
			return nil, err
		}
		photo.SemanticMattes = append(photo.SemanticMattes, m)
	}
	return photo, nil
}

func containsMatte(ms []camera.MatteType, t camera.MatteType) bool {
	for _, m := range ms {
		if m == t {
			return true
		}
	}
	return false
}

// Close stops in-flight captures. Their delegates still receive DidFinishCapture.
func (o *PhotoOutput) Close() error {
	o.workers.Stop()
	return nil
}

// Gradient returns a yellow to blue gradient.
func Gradient(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	totalDist := math.Hypot(float64(width), float64(height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dist := math.Hypot(float64(x), float64(y)) / totalDist
			img.SetNRGBA(x, y, color.NRGBA{uint8(255 - 255*dist), uint8(255 - 255*dist), uint8(255 * dist), 255})
		}
	}
	return img
}

// centerMatte is an ellipse of foreground in the middle of the frame.
func centerMatte(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	cx, cy := float64(width)/2, float64(height)/2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx, dy := (float64(x)-cx)/cx, (float64(y)-cy)/cy
			if dx*dx+dy*dy <= 0.5 {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	return img
}
