package segmentation

import (
	"context"
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/ml"
	"go.viam.com/cutout/services/mlmodel"
	"go.viam.com/cutout/testutils/inject"
)

const stubSize = 32

// newStubModel returns a model whose activation is foreground on the left half.
func newStubModel(infers *atomic.Int32) *inject.MLModelService {
	return &inject.MLModelService{
		MetadataFunc: func(ctx context.Context) (mlmodel.MLMetadata, error) {
			return mlmodel.MLMetadata{
				Inputs:  []mlmodel.TensorInfo{{Name: "image", DataType: "float32", Shape: []int{1, stubSize, stubSize, 3}}},
				Outputs: []mlmodel.TensorInfo{{Name: "mask", DataType: "float32", Shape: []int{1, stubSize, stubSize, 1}}},
			}, nil
		},
		InferFunc: func(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
			if infers != nil {
				infers.Add(1)
			}
			in, err := tensors.Only("image")
			if err != nil {
				return nil, err
			}
			h, w, _, err := ml.TensorImageSize(in)
			if err != nil {
				return nil, err
			}
			out := make([]float32, w*h)
			for y := 0; y < h; y++ {
				for x := 0; x < w/2; x++ {
					out[y*w+x] = 1
				}
			}
			return ml.Tensors{"mask": tensor.New(tensor.WithShape(1, h, w, 1), tensor.WithBacking(out))}, nil
		},
	}
}

type stageCounts struct {
	resize, keyWhite, blur, composite atomic.Int32
}

func newCountingPipeline(t *testing.T, conf Config, factory ModelFactory) (*Pipeline, *stageCounts) {
	t.Helper()
	p, err := NewPipeline(conf, factory, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	counts := &stageCounts{}
	resize, keyWhite, blur, composite := p.resize, p.keyWhite, p.blur, p.composite
	p.resize = func(img image.Image, w, h int) (image.Image, error) {
		counts.resize.Add(1)
		return resize(img, w, h)
	}
	p.keyWhite = func(img image.Image) *image.NRGBA {
		counts.keyWhite.Add(1)
		return keyWhite(img)
	}
	p.blur = func(img *image.NRGBA) *image.NRGBA {
		counts.blur.Add(1)
		return blur(img)
	}
	p.composite = func(src image.Image, matte *image.NRGBA) (*image.NRGBA, error) {
		counts.composite.Add(1)
		return composite(src, matte)
	}
	return p, counts
}

func stubFactory(infers *atomic.Int32) ModelFactory {
	return func(context.Context) (mlmodel.Service, error) { return newStubModel(infers), nil }
}

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestRawMaskOnly(t *testing.T) {
	var infers atomic.Int32
	p, counts := newCountingPipeline(t, Config{}, stubFactory(&infers))

	resp, err := p.Segment(context.Background(), uniform(40, 20, color.NRGBA{200, 50, 50, 255}), ContentsRawMask)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.FinalImage, test.ShouldBeNil)
	test.That(t, resp.RawMask, test.ShouldNotBeNil)
	test.That(t, resp.RawMask.Bounds(), test.ShouldResemble, image.Rect(0, 0, stubSize, stubSize))
	test.That(t, resp.RawMask.GrayAt(0, 0).Y, test.ShouldEqual, 255)
	test.That(t, resp.RawMask.GrayAt(stubSize-1, 0).Y, test.ShouldEqual, 0)

	test.That(t, infers.Load(), test.ShouldEqual, 1)
	test.That(t, counts.resize.Load(), test.ShouldEqual, 1)
	test.That(t, counts.keyWhite.Load(), test.ShouldEqual, 0)
	test.That(t, counts.blur.Load(), test.ShouldEqual, 0)
	test.That(t, counts.composite.Load(), test.ShouldEqual, 0)
}

func TestFinalImageOnly(t *testing.T) {
	p, counts := newCountingPipeline(t, Config{}, stubFactory(nil))
	src := uniform(40, 20, color.NRGBA{200, 50, 50, 255})

	resp, err := p.Segment(context.Background(), src, ContentsFinalImage)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.RawMask, test.ShouldBeNil)
	test.That(t, resp.FinalImage, test.ShouldNotBeNil)
	test.That(t, resp.FinalImage.Bounds(), test.ShouldResemble, src.Bounds())

	kept := resp.FinalImage.NRGBAAt(2, 10)
	test.That(t, kept.A, test.ShouldBeGreaterThan, 250)
	test.That(t, kept.R, test.ShouldAlmostEqual, 200, 3)
	test.That(t, resp.FinalImage.NRGBAAt(37, 10).A, test.ShouldBeLessThan, 5)

	test.That(t, counts.resize.Load(), test.ShouldEqual, 2)
	test.That(t, counts.keyWhite.Load(), test.ShouldEqual, 1)
	test.That(t, counts.blur.Load(), test.ShouldEqual, 1)
	test.That(t, counts.composite.Load(), test.ShouldEqual, 1)
}

func TestBothContents(t *testing.T) {
	p, _ := newCountingPipeline(t, Config{InputSize: 16}, stubFactory(nil))
	resp, err := p.Segment(context.Background(), uniform(10, 30, color.NRGBA{0, 0, 0, 255}), ContentsAll)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.RawMask.Bounds(), test.ShouldResemble, image.Rect(0, 0, 16, 16))
	test.That(t, resp.FinalImage.Bounds(), test.ShouldResemble, image.Rect(0, 0, 10, 30))
}

func TestNoContentsStillInfers(t *testing.T) {
	var infers atomic.Int32
	p, counts := newCountingPipeline(t, Config{}, stubFactory(&infers))
	resp, err := p.Segment(context.Background(), uniform(8, 8, color.NRGBA{1, 2, 3, 255}), ContentsNone)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp, test.ShouldResemble, &Response{})
	test.That(t, infers.Load(), test.ShouldEqual, 1)
	test.That(t, counts.composite.Load(), test.ShouldEqual, 0)
}

func TestErrorKinds(t *testing.T) {
	src := uniform(8, 8, color.NRGBA{1, 2, 3, 255})
	ctx := context.Background()

	t.Run("empty source", func(t *testing.T) {
		p, _ := newCountingPipeline(t, Config{}, stubFactory(nil))
		_, err := p.Segment(ctx, image.NewNRGBA(image.Rectangle{}), ContentsAll)
		test.That(t, IsKind(err, KindPixelBuffer), test.ShouldBeTrue)
	})

	t.Run("resize", func(t *testing.T) {
		p, _ := newCountingPipeline(t, Config{}, stubFactory(nil))
		p.resize = func(image.Image, int, int) (image.Image, error) { return nil, errors.New("out of memory") }
		_, err := p.Segment(ctx, src, ContentsAll)
		test.That(t, IsKind(err, KindPixelBuffer), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "pixel buffer creation error")
	})

	t.Run("model load", func(t *testing.T) {
		p, _ := newCountingPipeline(t, Config{}, func(context.Context) (mlmodel.Service, error) {
			return nil, errors.New("no weights")
		})
		_, err := p.Segment(ctx, src, ContentsAll)
		test.That(t, IsKind(err, KindModelPrediction), test.ShouldBeTrue)
	})

	t.Run("inference", func(t *testing.T) {
		p, _ := newCountingPipeline(t, Config{}, func(context.Context) (mlmodel.Service, error) {
			m := newStubModel(nil)
			m.InferFunc = func(context.Context, ml.Tensors) (ml.Tensors, error) { return nil, errors.New("bad input") }
			return m, nil
		})
		_, err := p.Segment(ctx, src, ContentsAll)
		test.That(t, IsKind(err, KindModelPrediction), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "bad input")
	})

	t.Run("wrong output size", func(t *testing.T) {
		p, _ := newCountingPipeline(t, Config{}, func(context.Context) (mlmodel.Service, error) {
			m := newStubModel(nil)
			m.InferFunc = func(context.Context, ml.Tensors) (ml.Tensors, error) {
				return ml.Tensors{"mask": tensor.New(tensor.WithShape(1, 4, 4, 1), tensor.WithBacking(make([]float32, 16)))}, nil
			}
			return m, nil
		})
		_, err := p.Segment(ctx, src, ContentsAll)
		test.That(t, IsKind(err, KindModelPrediction), test.ShouldBeTrue)
	})

	t.Run("compositing", func(t *testing.T) {
		p, _ := newCountingPipeline(t, Config{}, stubFactory(nil))
		p.composite = func(image.Image, *image.NRGBA) (*image.NRGBA, error) { return nil, nil }
		_, err := p.Segment(ctx, src, ContentsAll)
		test.That(t, IsKind(err, KindCompositing), test.ShouldBeTrue)
		test.That(t, IsKind(err, KindModelPrediction), test.ShouldBeFalse)
	})
}

func TestSegmentBatch(t *testing.T) {
	var built atomic.Int32
	p, _ := newCountingPipeline(t, Config{Parallelism: 3}, func(context.Context) (mlmodel.Service, error) {
		built.Add(1)
		return newStubModel(nil), nil
	})
	var imgs []image.Image
	for i := 1; i <= 5; i++ {
		imgs = append(imgs, uniform(4*i, 3*i, color.NRGBA{100, 100, 100, 255}))
	}
	resps, err := p.SegmentBatch(context.Background(), imgs, ContentsFinalImage)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resps, test.ShouldHaveLength, 5)
	for i, resp := range resps {
		test.That(t, resp.FinalImage.Bounds(), test.ShouldResemble, imgs[i].Bounds())
	}
	test.That(t, built.Load(), test.ShouldEqual, 5)

	imgs[2] = nil
	_, err = p.SegmentBatch(context.Background(), imgs, ContentsFinalImage)
	test.That(t, IsKind(err, KindPixelBuffer), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "image 2")
}

func TestSegmentBatchRequestTags(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	p, err := NewPipeline(Config{Parallelism: 2}, stubFactory(nil), logger)
	test.That(t, err, test.ShouldBeNil)

	imgs := []image.Image{
		uniform(8, 8, color.NRGBA{100, 100, 100, 255}),
		uniform(8, 8, color.NRGBA{100, 100, 100, 255}),
	}
	ctx := logging.WithRequest(context.Background(), "album")
	_, err = p.SegmentBatch(ctx, imgs, ContentsFinalImage)
	test.That(t, err, test.ShouldBeNil)

	tagged := map[string]bool{}
	for _, entry := range logs.FilterMessage("composited final image").All() {
		tagged[entry.ContextMap()[logging.RequestField].(string)] = true
	}
	test.That(t, tagged, test.ShouldResemble, map[string]bool{"album/0": true, "album/1": true})
}

func TestLumakeyEndToEnd(t *testing.T) {
	logger := logging.NewTestLogger(t)
	p, err := NewPipeline(Config{}, RegistryModelFactory("lumakey", map[string]interface{}{"input_size": 64}, logger), logger)
	test.That(t, err, test.ShouldBeNil)

	src := uniform(80, 60, color.NRGBA{255, 255, 255, 255})
	for y := 15; y < 45; y++ {
		for x := 20; x < 60; x++ {
			src.SetNRGBA(x, y, color.NRGBA{20, 40, 160, 255})
		}
	}
	resp, err := p.Segment(context.Background(), src, ContentsAll)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.RawMask.Bounds().Dx(), test.ShouldEqual, 64)
	test.That(t, resp.FinalImage.Bounds(), test.ShouldResemble, src.Bounds())
	test.That(t, resp.FinalImage.NRGBAAt(40, 30).A, test.ShouldBeGreaterThan, 250)
	test.That(t, resp.FinalImage.NRGBAAt(2, 2).A, test.ShouldBeLessThan, 5)
	test.That(t, resp.FinalImage.NRGBAAt(77, 57).A, test.ShouldBeLessThan, 5)
}

func TestColorCube(t *testing.T) {
	cube := newColorCube(DefaultCubeDimension, DefaultWhiteThreshold)
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(1, 0, color.NRGBA{100, 100, 100, 255})
	img.SetNRGBA(2, 0, color.NRGBA{255, 0, 0, 255})
	out := cube.apply(img)
	test.That(t, out.NRGBAAt(0, 0).A, test.ShouldEqual, 0)
	test.That(t, out.NRGBAAt(1, 0), test.ShouldResemble, color.NRGBA{100, 100, 100, 255})
	test.That(t, out.NRGBAAt(2, 0), test.ShouldResemble, color.NRGBA{255, 0, 0, 255})
}

func TestConfig(t *testing.T) {
	var conf Config
	conf.SetDefaults()
	test.That(t, conf.Validate("segmentation"), test.ShouldBeNil)
	test.That(t, conf.Model, test.ShouldEqual, "lumakey")
	test.That(t, conf.CubeDimension, test.ShouldEqual, DefaultCubeDimension)

	for _, bad := range []Config{
		{InputSize: -1},
		{Resampler: "bogus"},
		{WhiteThreshold: 2},
		{CubeDimension: 1},
		{Parallelism: -2},
	} {
		test.That(t, bad.Validate("segmentation"), test.ShouldNotBeNil)
	}

	_, err := NewPipeline(Config{}, nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestContents(t *testing.T) {
	test.That(t, ContentsAll.Has(ContentsRawMask), test.ShouldBeTrue)
	test.That(t, ContentsRawMask.Has(ContentsFinalImage), test.ShouldBeFalse)
	test.That(t, ContentsNone.Has(ContentsNone), test.ShouldBeFalse)
	test.That(t, ContentsAll.String(), test.ShouldEqual, "raw_mask|final_image")
}
