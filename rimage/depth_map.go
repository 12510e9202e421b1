package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
)

// Depth is the depth of a single pixel in millimeters. Zero means no data.
type Depth uint16

// MaxDepth is the largest depth a DepthMap can hold.
const MaxDepth = Depth(math.MaxUint16)

// DepthMap is a row-major grid of depths. It implements image.Image as a 16-bit gray image.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns a zeroed depth map.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// NewDepthMapFromMeters builds a depth map from per-pixel distances in meters, as delivered by
// capture hardware. Non-finite and non-positive values become "no data".
func NewDepthMapFromMeters(width, height int, meters []float32) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid depth map dimensions %dx%d", width, height)
	}
	if len(meters) != width*height {
		return nil, errors.Errorf("depth data has %d values, expected %d", len(meters), width*height)
	}
	dm := NewEmptyDepthMap(width, height)
	for i, m := range meters {
		if m <= 0 || math.IsNaN(float64(m)) || math.IsInf(float64(m), 0) {
			continue
		}
		mm := float64(m) * 1000
		if mm > float64(MaxDepth) {
			mm = float64(MaxDepth)
		}
		dm.data[i] = Depth(math.Round(mm))
	}
	return dm, nil
}

// HasData reports whether the map holds any pixels.
func (dm *DepthMap) HasData() bool {
	return dm.width > 0 && dm.data != nil
}

// Width returns the horizontal dimension.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical dimension.
func (dm *DepthMap) Height() int {
	return dm.height
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// GetDepth returns the depth at (x, y).
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// Set sets the depth at (x, y).
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// MinMax returns the smallest and largest non-zero depths.
func (dm *DepthMap) MinMax() (Depth, Depth) {
	min, max := MaxDepth, Depth(0)
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	return min, max
}

// ColorModel is Gray16.
func (dm *DepthMap) ColorModel() color.Model {
	return color.Gray16Model
}

// Bounds returns the map's rectangle anchored at the origin.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// At returns the depth at (x, y) as a 16-bit gray value.
func (dm *DepthMap) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= dm.width || y >= dm.height {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(dm.GetDepth(x, y))}
}

// Oriented returns a copy of the map transformed by the EXIF orientation o.
func (dm *DepthMap) Oriented(o Orientation) *DepthMap {
	w, h := dm.width, dm.height
	if o.SwapsAxes() {
		w, h = h, w
	}
	out := NewEmptyDepthMap(w, h)
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			nx, ny := orientPoint(o, x, y, dm.width, dm.height)
			out.Set(nx, ny, dm.GetDepth(x, y))
		}
	}
	return out
}
