// Package segmentation removes the background of an image with a fixed input size segmentation
// model. The model's activation map is keyed into an alpha matte, softened, and used to cut the
// foreground out of the source image.
package segmentation

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	goutils "go.viam.com/utils"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/ml"
	"go.viam.com/cutout/rimage"
	"go.viam.com/cutout/services/mlmodel"
)

// Contents selects what a segmentation returns.
type Contents uint8

// The content flags.
const (
	ContentsRawMask Contents = 1 << iota
	ContentsFinalImage

	ContentsNone Contents = 0
	ContentsAll           = ContentsRawMask | ContentsFinalImage
)

// Has reports whether c includes o.
func (c Contents) Has(o Contents) bool {
	return c&o == o && o != 0
}

func (c Contents) String() string {
	switch c {
	case ContentsNone:
		return "none"
	case ContentsRawMask:
		return "raw_mask"
	case ContentsFinalImage:
		return "final_image"
	case ContentsAll:
		return "raw_mask|final_image"
	default:
		return "invalid"
	}
}

// Response is the result of a segmentation. Fields that were not requested are nil.
type Response struct {
	// RawMask is the model's activation at the model input size. 255 is full confidence.
	RawMask *image.Gray
	// FinalImage is the source with the background made transparent, at the source size.
	FinalImage *image.NRGBA
}

// ModelFactory builds a model. Each segmentation builds its own so concurrent requests never
// share inference state.
type ModelFactory func(ctx context.Context) (mlmodel.Service, error)

// RegistryModelFactory builds the named registered backend.
func RegistryModelFactory(name string, attributes map[string]interface{}, logger logging.Logger) ModelFactory {
	return func(ctx context.Context) (mlmodel.Service, error) {
		return mlmodel.New(ctx, name, attributes, logger)
	}
}

// Pipeline runs segmentations. It is safe for concurrent use.
type Pipeline struct {
	conf     Config
	newModel ModelFactory
	logger   logging.Logger
	cube     *colorCube

	// stages, swappable in tests
	resize    func(img image.Image, width, height int) (image.Image, error)
	keyWhite  func(activation image.Image) *image.NRGBA
	blur      func(matte *image.NRGBA) *image.NRGBA
	composite func(src image.Image, matte *image.NRGBA) (*image.NRGBA, error)
}

// NewPipeline returns a pipeline using models from newModel.
func NewPipeline(conf Config, newModel ModelFactory, logger logging.Logger) (*Pipeline, error) {
	conf.SetDefaults()
	if err := conf.Validate("segmentation"); err != nil {
		return nil, err
	}
	if newModel == nil {
		return nil, errors.New("segmentation pipeline needs a model factory")
	}
	p := &Pipeline{
		conf:     conf,
		newModel: newModel,
		logger:   logger,
		cube:     newColorCube(conf.CubeDimension, conf.WhiteThreshold),
	}
	p.resize = func(img image.Image, width, height int) (image.Image, error) {
		return rimage.Resize(img, width, height, conf.Resampler)
	}
	p.keyWhite = p.cube.apply
	p.blur = func(matte *image.NRGBA) *image.NRGBA {
		return imaging.Blur(matte, conf.BlurSigma)
	}
	p.composite = sourceOut
	return p, nil
}

// Segment cuts the foreground out of img. The source is resized to the model input size without
// preserving its aspect ratio, as the model expects.
func (p *Pipeline) Segment(ctx context.Context, img image.Image, contents Contents) (*Response, error) {
	ctx, span := trace.StartSpan(ctx, "segmentation::Segment")
	defer span.End()

	if img == nil || img.Bounds().Empty() {
		return nil, &Error{Kind: KindPixelBuffer, Err: errors.New("source image is empty")}
	}

	model, err := p.newModel(ctx)
	if err != nil {
		return nil, newError(KindModelPrediction, err, "could not load model")
	}
	if c, ok := model.(io.Closer); ok {
		defer goutils.UncheckedErrorFunc(c.Close)
	}

	inName, outName, width, height, err := p.modelShape(ctx, model)
	if err != nil {
		return nil, newError(KindModelPrediction, err, "could not read model metadata")
	}

	resized, err := p.stage(ctx, "resize", func() (image.Image, error) { return p.resize(img, width, height) })
	if err != nil {
		return nil, newError(KindPixelBuffer, err, "could not resize source to model input")
	}

	activation, err := p.infer(ctx, model, inName, outName, resized)
	if err != nil {
		return nil, err
	}

	p.logger.CDebugw(ctx, "model inference done", "input_width", width, "input_height", height, "contents", contents)
	resp := &Response{}
	if contents.Has(ContentsRawMask) {
		resp.RawMask = activation
	}
	if !contents.Has(ContentsFinalImage) {
		return resp, nil
	}

	final, err := p.stage(ctx, "composite", func() (image.Image, error) {
		matte := p.keyWhite(activation)
		matte = p.blur(matte)
		cut, err := p.composite(resized, matte)
		if err != nil {
			return nil, err
		}
		if cut == nil {
			return nil, errors.New("source-out compositing produced no image")
		}
		b := img.Bounds()
		return p.resize(cut, b.Dx(), b.Dy())
	})
	if err != nil {
		return nil, newError(KindCompositing, err, "could not composite final image")
	}
	resp.FinalImage = imaging.Clone(final)
	p.logger.CDebugw(ctx, "composited final image", "width", resp.FinalImage.Bounds().Dx(), "height", resp.FinalImage.Bounds().Dy())
	return resp, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func() (image.Image, error)) (image.Image, error) {
	_, span := trace.StartSpan(ctx, "segmentation::"+name)
	defer span.End()
	img, err := fn()
	if err == nil && img == nil {
		err = errors.Errorf("%s produced no image", name)
	}
	return img, err
}

func (p *Pipeline) modelShape(ctx context.Context, model mlmodel.Service) (inName, outName string, width, height int, err error) {
	md, err := model.Metadata(ctx)
	if err != nil {
		return "", "", 0, 0, err
	}
	inName, height, width, ok := md.ImageInput()
	if !ok || height <= 0 || width <= 0 {
		height, width = DefaultInputSize, DefaultInputSize
	}
	if p.conf.InputSize > 0 {
		height, width = p.conf.InputSize, p.conf.InputSize
	}
	if inName == "" {
		return "", "", 0, 0, errors.New("model has no image input")
	}
	if len(md.Outputs) > 0 {
		outName = md.Outputs[0].Name
	}
	return inName, outName, width, height, nil
}

func (p *Pipeline) infer(ctx context.Context, model mlmodel.Service, inName, outName string, img image.Image) (*image.Gray, error) {
	ctx, span := trace.StartSpan(ctx, "segmentation::infer")
	defer span.End()

	out, err := model.Infer(ctx, ml.Tensors{inName: ml.ImageToFloatTensor(img)})
	if err != nil {
		return nil, newError(KindModelPrediction, err, "inference failed")
	}
	t, err := out.Only(outName)
	if err != nil {
		return nil, newError(KindModelPrediction, err, "unexpected model output")
	}
	activation, err := ml.TensorToGray(t)
	if err != nil {
		return nil, newError(KindModelPrediction, err, "unexpected model output")
	}
	b := img.Bounds()
	if activation.Bounds().Dx() != b.Dx() || activation.Bounds().Dy() != b.Dy() {
		return nil, &Error{Kind: KindModelPrediction, Err: errors.Errorf(
			"activation is %dx%d, expected %dx%d", activation.Bounds().Dx(), activation.Bounds().Dy(), b.Dx(), b.Dy())}
	}
	return activation, nil
}

// SegmentBatch segments every image, at most Parallelism at a time. Responses are in input order.
func (p *Pipeline) SegmentBatch(ctx context.Context, imgs []image.Image, contents Contents) ([]*Response, error) {
	ctx, span := trace.StartSpan(ctx, "segmentation::SegmentBatch")
	defer span.End()

	batch := logging.RequestFrom(ctx)
	if batch == "" {
		batch = uuid.NewString()[:8]
	}
	out := make([]*Response, len(imgs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.conf.Parallelism)
	for i, img := range imgs {
		i, img := i, img
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			resp, err := p.Segment(logging.WithRequest(ctx, fmt.Sprintf("%s/%d", batch, i)), img, contents)
			if err != nil {
				return errors.Wrapf(err, "image %d", i)
			}
			out[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// sourceOut keeps src where matte is transparent.
func sourceOut(src image.Image, matte *image.NRGBA) (*image.NRGBA, error) {
	sb, mb := src.Bounds(), matte.Bounds()
	if sb.Dx() != mb.Dx() || sb.Dy() != mb.Dy() {
		return nil, errors.Errorf("matte is %dx%d, source is %dx%d", mb.Dx(), mb.Dy(), sb.Dx(), sb.Dy())
	}
	keep := image.NewAlpha(image.Rect(0, 0, mb.Dx(), mb.Dy()))
	for y := 0; y < mb.Dy(); y++ {
		for x := 0; x < mb.Dx(); x++ {
			keep.Pix[y*keep.Stride+x] = 0xff - matte.Pix[y*matte.Stride+x*4+3]
		}
	}
	out := image.NewNRGBA(image.Rect(0, 0, sb.Dx(), sb.Dy()))
	draw.DrawMask(out, out.Bounds(), src, sb.Min, keep, image.Point{}, draw.Src)
	return out, nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

func rgb(r, g, b uint8) color.NRGBA {
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}
}
