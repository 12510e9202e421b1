package rimage

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// HSV returns the hue (degrees), saturation and value of c. ok is false for fully transparent
// colors, which have no meaningful hue or value.
func HSV(c color.Color) (h, s, v float64, ok bool) {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return 0, 0, 0, false
	}
	h, s, v = cc.Hsv()
	return h, s, v, true
}

// IsNearWhite reports whether c is bright and unsaturated enough to count as white. threshold is
// the minimum HSV value; the allowed saturation is 1-threshold.
func IsNearWhite(c color.Color, threshold float64) bool {
	_, s, v, ok := HSV(c)
	if !ok {
		return false
	}
	return v >= threshold && s <= 1-threshold
}
