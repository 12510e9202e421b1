package ml

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"gorgonia.org/tensor"

	"go.viam.com/cutout/utils"
)

// ImageToFloatTensor packs img into a 1 x H x W x 3 float32 tensor with channels in [0, 1].
func ImageToFloatTensor(img image.Image) *tensor.Dense {
	rgba := toNRGBA(img)
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	data := make([]float32, h*w*3)
	utils.ParallelForEachRow(h, func(y int) {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		out := data[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			out[x*3] = float32(row[x*4]) / 255
			out[x*3+1] = float32(row[x*4+1]) / 255
			out[x*3+2] = float32(row[x*4+2]) / 255
		}
	})
	return tensor.New(tensor.WithShape(1, h, w, 3), tensor.WithBacking(data))
}

// ImageToUInt8Tensor packs img into a 1 x H x W x 3 uint8 tensor.
func ImageToUInt8Tensor(img image.Image) *tensor.Dense {
	rgba := toNRGBA(img)
	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	data := make([]uint8, h*w*3)
	utils.ParallelForEachRow(h, func(y int) {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		out := data[y*w*3 : (y+1)*w*3]
		for x := 0; x < w; x++ {
			copy(out[x*3:x*3+3], row[x*4:x*4+3])
		}
	})
	return tensor.New(tensor.WithShape(1, h, w, 3), tensor.WithBacking(data))
}

// TensorImageSize returns the height, width and channel count of an image-like tensor shaped
// [1, H, W, C], [H, W, C], [1, H, W] or [H, W].
func TensorImageSize(t *tensor.Dense) (int, int, int, error) {
	if t == nil {
		return 0, 0, 0, errors.New("nil tensor")
	}
	shape := t.Shape()
	switch {
	case len(shape) == 4 && shape[0] == 1:
		return shape[1], shape[2], shape[3], nil
	case len(shape) == 3 && shape[0] == 1:
		return shape[1], shape[2], 1, nil
	case len(shape) == 3:
		return shape[0], shape[1], shape[2], nil
	case len(shape) == 2:
		return shape[0], shape[1], 1, nil
	default:
		return 0, 0, 0, errors.Errorf("tensor shape %v is not image-like", shape)
	}
}

// FloatTensorToNRGBA unpacks a 1 x H x W x 3 float32 tensor with channels in [0, 1].
func FloatTensorToNRGBA(t *tensor.Dense) (*image.NRGBA, error) {
	h, w, c, err := TensorImageSize(t)
	if err != nil {
		return nil, err
	}
	if c != 3 {
		return nil, errors.Errorf("expected 3 channels, got %d", c)
	}
	data, ok := t.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("expected float32 tensor data, got %T", t.Data())
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	utils.ParallelForEachRow(h, func(y int) {
		in := data[y*w*3 : (y+1)*w*3]
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			row[x*4] = unitToByte(float64(in[x*3]))
			row[x*4+1] = unitToByte(float64(in[x*3+1]))
			row[x*4+2] = unitToByte(float64(in[x*3+2]))
			row[x*4+3] = 0xff
		}
	})
	return img, nil
}

// TensorToGray turns a single-channel activation tensor into a grayscale image where 255 means
// full confidence. Logits are squashed into probabilities first.
func TensorToGray(t *tensor.Dense) (*image.Gray, error) {
	h, w, c, err := TensorImageSize(t)
	if err != nil {
		return nil, err
	}
	if c != 1 {
		return nil, errors.Errorf("expected a single channel activation, got %d channels", c)
	}
	vals, err := ToFloat64Slice(t)
	if err != nil {
		return nil, err
	}
	if len(vals) != w*h {
		return nil, errors.Errorf("activation has %d values, expected %d", len(vals), w*h)
	}
	vals = ToProbabilities(vals)
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range vals {
		img.Pix[(i/w)*img.Stride+i%w] = unitToByte(v)
	}
	return img, nil
}

// GrayToTensor is the inverse of TensorToGray, producing a 1 x H x W x 1 float32 tensor.
func GrayToTensor(img *image.Gray) *tensor.Dense {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	data := make([]float32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			data[y*w+x] = float32(img.Pix[y*img.Stride+x]) / 255
		}
	}
	return tensor.New(tensor.WithShape(1, h, w, 1), tensor.WithBacking(data))
}

func unitToByte(v float64) uint8 {
	return uint8(math.Round(utils.ClampF64(v, 0, 1) * 255))
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Bounds().Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
