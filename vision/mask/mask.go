// Package mask implements the run-length encoded binary masks returned by remote segmentation.
//
// Counts alternate background and foreground run lengths, background first, over a column-major
// traversal of a width by height canvas: pixel index i is row i%height of column i/height.
package mask

import (
	"encoding/json"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// ErrCorruptMask is returned for masks whose run lengths do not describe their canvas.
var ErrCorruptMask = errors.New("corrupt mask")

// Size is the canvas size of a mask. Its JSON form is [width, height].
type Size struct {
	Width  int
	Height int
}

// MarshalJSON encodes the size as [width, height].
func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.Width, s.Height})
}

// UnmarshalJSON decodes a [width, height] array.
func (s *Size) UnmarshalJSON(data []byte) error {
	var wh []int
	if err := json.Unmarshal(data, &wh); err != nil {
		return errors.Wrap(err, "mask size must be a [width, height] array")
	}
	if len(wh) != 2 {
		return errors.Wrapf(ErrCorruptMask, "mask size has %d elements, expected 2", len(wh))
	}
	s.Width, s.Height = wh[0], wh[1]
	return nil
}

// Area is the number of pixels of the canvas.
func (s Size) Area() int {
	return s.Width * s.Height
}

// Mask is a run-length encoded binary mask.
type Mask struct {
	Size   Size  `json:"size"`
	Counts []int `json:"counts"`
}

// Decode parses and validates a mask from its JSON form.
func Decode(data []byte) (Mask, error) {
	var m Mask
	if err := json.Unmarshal(data, &m); err != nil {
		return Mask{}, errors.Wrap(err, "cannot decode mask")
	}
	if err := m.Validate(); err != nil {
		return Mask{}, err
	}
	return m, nil
}

// MaxArea is the largest canvas a mask may describe, 8192x8192 pixels.
const MaxArea = 1 << 26

// Validate rejects masks that would under or over paint their canvas, and canvases too large to
// allocate.
func (m Mask) Validate() error {
	w, h := m.Size.Width, m.Size.Height
	if w <= 0 || h <= 0 {
		return errors.Wrapf(ErrCorruptMask, "invalid size %dx%d", w, h)
	}
	if w > MaxArea/h {
		return errors.Wrapf(ErrCorruptMask, "size %dx%d exceeds %d pixels", w, h, MaxArea)
	}
	area := m.Size.Area()
	total := 0
	for i, c := range m.Counts {
		if c < 0 {
			return errors.Wrapf(ErrCorruptMask, "run %d has negative length %d", i, c)
		}
		if c > area-total {
			return errors.Wrapf(ErrCorruptMask, "runs cover more than the %d pixel canvas", area)
		}
		total += c
	}
	if total != area {
		return errors.Wrapf(ErrCorruptMask, "runs cover %d pixels, canvas has %d", total, area)
	}
	return nil
}

// Foreground returns the number of foreground pixels.
func (m Mask) Foreground() int {
	n := 0
	for i := 1; i < len(m.Counts); i += 2 {
		n += m.Counts[i]
	}
	return n
}

// each calls fn for every pixel of a valid mask in encoding order.
func (m Mask) each(fn func(x, y int, foreground bool)) {
	h := m.Size.Height
	idx := 0
	foreground := false
	for _, run := range m.Counts {
		for end := idx + run; idx < end; idx++ {
			fn(idx/h, idx%h, foreground)
		}
		foreground = !foreground
	}
}

// Alpha renders the mask as an alpha image: 0xff for foreground, 0 for background.
func (m Mask) Alpha() (*image.Alpha, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	a := image.NewAlpha(image.Rect(0, 0, m.Size.Width, m.Size.Height))
	m.each(func(x, y int, foreground bool) {
		if foreground {
			a.Pix[y*a.Stride+x] = 0xff
		}
	})
	return a, nil
}

// alphaFor renders the mask at the size of bounds.
func (m Mask) alphaFor(bounds image.Rectangle) (*image.Alpha, error) {
	a, err := m.Alpha()
	if err != nil {
		return nil, err
	}
	if a.Bounds().Size() == bounds.Size() {
		return a, nil
	}
	scaled := imaging.Resize(a, bounds.Dx(), bounds.Dy(), imaging.NearestNeighbor)
	out := image.NewAlpha(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for i := range out.Pix {
		// imaging resizes to NRGBA; the alpha channel carries the mask
		out.Pix[i] = scaled.Pix[4*i+3]
	}
	return out, nil
}

// Crop clears every background pixel of img. When img is not the size of the mask the mask is
// scaled to it.
func (m Mask) Crop(img image.Image) (*image.NRGBA, error) {
	a, err := m.alphaFor(img.Bounds())
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.DrawMask(out, out.Bounds(), img, b.Min, a, image.Point{}, draw.Src)
	return out, nil
}

// Paint blends c over the foreground pixels of img.
func (m Mask) Paint(img image.Image, c color.Color) (*image.NRGBA, error) {
	a, err := m.alphaFor(img.Bounds())
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	draw.DrawMask(out, out.Bounds(), image.NewUniform(c), image.Point{}, a, image.Point{}, draw.Over)
	return out, nil
}

// Encode run-length encodes img, treating pixels with alpha above threshold as foreground.
func Encode(img image.Image, threshold uint8) Mask {
	b := img.Bounds()
	m := Mask{Size: Size{Width: b.Dx(), Height: b.Dy()}}
	foreground := false
	run := 0
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			_, _, _, a := img.At(x, y).RGBA()
			if (a>>8 > uint32(threshold)) != foreground {
				m.Counts = append(m.Counts, run)
				foreground = !foreground
				run = 0
			}
			run++
		}
	}
	m.Counts = append(m.Counts, run)
	return m
}

// FromMatte run-length encodes a grayscale matte, treating pixels brighter than threshold as
// foreground.
func FromMatte(matte *image.Gray, threshold uint8) Mask {
	return Encode(&image.Alpha{Pix: matte.Pix, Stride: matte.Stride, Rect: matte.Rect}, threshold)
}
