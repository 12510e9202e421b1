package ml

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
	"gorgonia.org/tensor"
)

func TestImageTensorRoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 2, color.NRGBA{255, 128, 0, 255})

	ft := ImageToFloatTensor(img)
	test.That(t, []int(ft.Shape()), test.ShouldResemble, []int{1, 3, 4, 3})
	back, err := FloatTensorToNRGBA(ft)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.NRGBAAt(1, 2), test.ShouldResemble, color.NRGBA{255, 128, 0, 255})
	test.That(t, back.NRGBAAt(0, 0), test.ShouldResemble, color.NRGBA{0, 0, 0, 255})

	ut := ImageToUInt8Tensor(img)
	data, ok := ut.Data().([]uint8)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, data[(2*4+1)*3:(2*4+1)*3+3], test.ShouldResemble, []uint8{255, 128, 0})

	// sub-images are re-anchored at the origin
	sub := img.SubImage(image.Rect(1, 1, 3, 3))
	st := ImageToFloatTensor(sub)
	test.That(t, []int(st.Shape()), test.ShouldResemble, []int{1, 2, 2, 3})
}

func TestTensorToGray(t *testing.T) {
	probs := tensor.New(tensor.WithShape(1, 2, 2, 1), tensor.WithBacking([]float32{0, 0.5, 1, 0.25}))
	g, err := TensorToGray(probs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Bounds().Dx(), test.ShouldEqual, 2)
	test.That(t, g.GrayAt(0, 0).Y, test.ShouldEqual, uint8(0))
	test.That(t, g.GrayAt(1, 0).Y, test.ShouldEqual, uint8(128))
	test.That(t, g.GrayAt(0, 1).Y, test.ShouldEqual, uint8(255))

	logits := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float64{-20, 20}))
	g, err = TensorToGray(logits)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.GrayAt(0, 0).Y, test.ShouldEqual, uint8(0))
	test.That(t, g.GrayAt(0, 1).Y, test.ShouldEqual, uint8(255))

	quantized := tensor.New(tensor.WithShape(1, 1, 2), tensor.WithBacking([]uint8{0, 255}))
	g, err = TensorToGray(quantized)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.GrayAt(1, 0).Y, test.ShouldEqual, uint8(255))

	rgb := tensor.New(tensor.WithShape(1, 1, 1, 3), tensor.WithBacking([]float32{0, 0, 0}))
	_, err = TensorToGray(rgb)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = TensorToGray(tensor.New(tensor.WithShape(5), tensor.WithBacking(make([]float32, 5))))
	test.That(t, err, test.ShouldNotBeNil)

	back := GrayToTensor(g)
	test.That(t, []int(back.Shape()), test.ShouldResemble, []int{1, 1, 2, 1})
}

func TestTensors(t *testing.T) {
	a := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float32{1}))
	b := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float32{2}))
	ts := Tensors{"b": b, "a": a}
	test.That(t, ts.Names(), test.ShouldResemble, []string{"a", "b"})
	got, err := ts.Only("a")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, a)
	_, err = ts.Only("mask")
	test.That(t, err, test.ShouldNotBeNil)
	got, err = Tensors{"output:0": b}.Only("mask")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, b)

	test.That(t, ToProbabilities([]float64{0.1, 0.9}), test.ShouldResemble, []float64{0.1, 0.9})
	squashed := ToProbabilities([]float64{0, 3})
	test.That(t, squashed[0], test.ShouldAlmostEqual, 0.5)
	_, err = ToFloat64Slice(nil)
	test.That(t, err, test.ShouldNotBeNil)
}
