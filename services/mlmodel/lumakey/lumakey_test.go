package lumakey

import (
	"context"
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"

	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/ml"
	"go.viam.com/cutout/services/mlmodel"
)

// a white frame with a red square in the middle
func squareOnWhite(size, inset int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x >= inset && x < size-inset && y >= inset && y < size-inset {
				img.Set(x, y, color.NRGBA{200, 20, 20, 255})
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

func TestInfer(t *testing.T) {
	logger := logging.NewTestLogger(t)
	m, err := NewModel(Config{InputSize: 16}, logger)
	test.That(t, err, test.ShouldBeNil)

	md, err := m.Metadata(context.Background())
	test.That(t, err, test.ShouldBeNil)
	name, h, w, ok := md.ImageInput()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, name, test.ShouldEqual, InputName)
	test.That(t, []int{h, w}, test.ShouldResemble, []int{16, 16})

	out, err := m.Infer(context.Background(), ml.Tensors{InputName: ml.ImageToFloatTensor(squareOnWhite(16, 5))})
	test.That(t, err, test.ShouldBeNil)
	mask, err := ml.TensorToGray(out[OutputName])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.GrayAt(0, 0).Y, test.ShouldEqual, uint8(0))
	test.That(t, mask.GrayAt(15, 15).Y, test.ShouldEqual, uint8(0))
	test.That(t, mask.GrayAt(8, 8).Y, test.ShouldEqual, uint8(255))
}

func TestInferErrors(t *testing.T) {
	m, err := NewModel(Config{}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)

	_, err = m.Infer(context.Background(), ml.Tensors{})
	test.That(t, err, test.ShouldNotBeNil)

	gray := tensor.New(tensor.WithShape(1, 2, 2, 1), tensor.WithBacking(make([]float32, 4)))
	_, err = m.Infer(context.Background(), ml.Tensors{InputName: gray})
	test.That(t, err, test.ShouldNotBeNil)

	bytesIn := tensor.New(tensor.WithShape(1, 1, 1, 3), tensor.WithBacking([]uint8{1, 2, 3}))
	_, err = m.Infer(context.Background(), ml.Tensors{InputName: bytesIn})
	test.That(t, err, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Infer(ctx, ml.Tensors{InputName: ml.ImageToFloatTensor(squareOnWhite(4, 1))})
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestConfig(t *testing.T) {
	_, err := NewModel(Config{Low: 0.5, High: 0.2}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewModel(Config{InputSize: -1}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	svc, err := mlmodel.New(context.Background(), ModelName, map[string]interface{}{
		"input_size": 32,
		"low":        0.1,
		"high":       0.3,
	}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	md, err := svc.Metadata(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, md.Outputs[0].Shape, test.ShouldResemble, []int{1, 32, 32, 1})

	_, err = mlmodel.New(context.Background(), ModelName, map[string]interface{}{"bogus": true}, logging.NewTestLogger(t))
	test.That(t, err.Error(), test.ShouldContainSubstring, "bogus")
	_, err = mlmodel.New(context.Background(), "tflite", nil, logging.NewTestLogger(t))
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown model backend")
	test.That(t, mlmodel.Backends(), test.ShouldContain, ModelName)
}
