package rimage

import (
	"image"

	"github.com/disintegration/imaging"
)

// Orientation is an EXIF orientation tag value (1-8).
type Orientation int

// The EXIF orientations.
const (
	OrientationUp            Orientation = 1
	OrientationUpMirrored    Orientation = 2
	OrientationDown          Orientation = 3
	OrientationDownMirrored  Orientation = 4
	OrientationLeftMirrored  Orientation = 5
	OrientationRight         Orientation = 6
	OrientationRightMirrored Orientation = 7
	OrientationLeft          Orientation = 8
)

// Valid reports whether o is one of the eight EXIF orientations.
func (o Orientation) Valid() bool {
	return o >= OrientationUp && o <= OrientationLeft
}

// SwapsAxes reports whether applying o exchanges width and height.
func (o Orientation) SwapsAxes() bool {
	return o >= OrientationLeftMirrored && o <= OrientationLeft
}

// ApplyOrientation returns img transformed so that it displays upright. Unknown orientations are
// treated as OrientationUp.
func ApplyOrientation(img image.Image, o Orientation) image.Image {
	switch o {
	case OrientationUpMirrored:
		return imaging.FlipH(img)
	case OrientationDown:
		return imaging.Rotate180(img)
	case OrientationDownMirrored:
		return imaging.FlipV(img)
	case OrientationLeftMirrored:
		return imaging.Transpose(img)
	case OrientationRight:
		return imaging.Rotate270(img)
	case OrientationRightMirrored:
		return imaging.Transverse(img)
	case OrientationLeft:
		return imaging.Rotate90(img)
	case OrientationUp:
		return img
	default:
		return img
	}
}

// orientPoint maps (x, y) in a width x height raster to where ApplyOrientation moves it.
func orientPoint(o Orientation, x, y, width, height int) (int, int) {
	switch o {
	case OrientationUpMirrored:
		return width - 1 - x, y
	case OrientationDown:
		return width - 1 - x, height - 1 - y
	case OrientationDownMirrored:
		return x, height - 1 - y
	case OrientationLeftMirrored:
		return y, x
	case OrientationRight:
		return height - 1 - y, x
	case OrientationRightMirrored:
		return height - 1 - y, width - 1 - x
	case OrientationLeft:
		return y, width - 1 - x
	case OrientationUp:
		return x, y
	default:
		return x, y
	}
}
