package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Resampler names a resampling filter.
type Resampler string

// The supported resamplers. The nfnt variants match what model-input pipelines have historically
// used; the default is imaging's Lanczos filter.
const (
	ResamplerLanczos      Resampler = "lanczos"
	ResamplerCatmullRom   Resampler = "catmull_rom"
	ResamplerLinear       Resampler = "linear"
	ResamplerNearest      Resampler = "nearest"
	ResamplerNfntBilinear Resampler = "nfnt_bilinear"
	ResamplerNfntBicubic  Resampler = "nfnt_bicubic"
	ResamplerNfntLanczos3 Resampler = "nfnt_lanczos3"
)

// Validate returns an error for unknown resamplers. The empty value means the default.
func (r Resampler) Validate() error {
	switch r {
	case "", ResamplerLanczos, ResamplerCatmullRom, ResamplerLinear, ResamplerNearest,
		ResamplerNfntBilinear, ResamplerNfntBicubic, ResamplerNfntLanczos3:
		return nil
	default:
		return errors.Errorf("unknown resampler %q", r)
	}
}

// Resize scales img to exactly width x height; the aspect ratio is not preserved.
func Resize(img image.Image, width, height int, r Resampler) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("cannot resize to %dx%d", width, height)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("cannot resize an empty image")
	}
	switch r {
	case "", ResamplerLanczos:
		return imaging.Resize(img, width, height, imaging.Lanczos), nil
	case ResamplerCatmullRom:
		return imaging.Resize(img, width, height, imaging.CatmullRom), nil
	case ResamplerLinear:
		return imaging.Resize(img, width, height, imaging.Linear), nil
	case ResamplerNearest:
		return imaging.Resize(img, width, height, imaging.NearestNeighbor), nil
	case ResamplerNfntBilinear:
		return resize.Resize(uint(width), uint(height), img, resize.Bilinear), nil
	case ResamplerNfntBicubic:
		return resize.Resize(uint(width), uint(height), img, resize.Bicubic), nil
	case ResamplerNfntLanczos3:
		return resize.Resize(uint(width), uint(height), img, resize.Lanczos3), nil
	default:
		return nil, errors.Errorf("unknown resampler %q", r)
	}
}
