// Package rimage holds the image helpers shared by capture and segmentation: codecs keyed by mime
// type, EXIF orientation, resampling, colour classification and depth maps.
package rimage

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.opencensus.io/trace"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"go.viam.com/cutout/utils"
)

// jpegQuality is used for every JPEG encode.
const jpegQuality = 90

// DecodeImage decodes image bytes of the given mime type.
func DecodeImage(ctx context.Context, imgBytes []byte, mimeType string) (image.Image, error) {
	_, span := trace.StartSpan(ctx, "rimage::DecodeImage::"+mimeType)
	defer span.End()

	if len(imgBytes) == 0 {
		return nil, errors.New("cannot decode empty image bytes")
	}
	r := bytes.NewReader(imgBytes)
	var (
		img image.Image
		err error
	)
	switch mimeType {
	case utils.MimeTypeJPEG:
		img, err = jpeg.Decode(r)
	case utils.MimeTypePNG:
		img, err = png.Decode(r)
	case utils.MimeTypeQOI:
		img, err = qoi.Decode(r)
	case utils.MimeTypeTIFF:
		img, err = tiff.Decode(r)
	case utils.MimeTypePPM:
		img, err = ppm.Decode(r)
	case "":
		img, _, err = image.Decode(r)
	default:
		return nil, errors.Errorf("do not know how to decode %q", mimeType)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not decode %s image", mimeType)
	}
	return img, nil
}

// EncodeImage encodes an image into bytes of the given mime type.
func EncodeImage(ctx context.Context, img image.Image, mimeType string) ([]byte, error) {
	_, span := trace.StartSpan(ctx, "rimage::EncodeImage::"+mimeType)
	defer span.End()

	if img == nil {
		return nil, errors.New("cannot encode nil image")
	}
	var buf bytes.Buffer
	var err error
	switch mimeType {
	case utils.MimeTypeJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case utils.MimeTypePNG, "":
		err = png.Encode(&buf, img)
	case utils.MimeTypeQOI:
		err = qoi.Encode(&buf, img)
	case utils.MimeTypeTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	case utils.MimeTypePPM:
		err = ppm.Encode(&buf, toRGBA(img))
	default:
		return nil, errors.Errorf("do not know how to encode %q", mimeType)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode %s image", mimeType)
	}
	return buf.Bytes(), nil
}

// toRGBA returns img as an *image.RGBA, the only layout the ppm encoder accepts. Transparent
// pixels come out black since PPM has no alpha.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// SupportedMimeTypes are the mime types DecodeImage and EncodeImage understand.
func SupportedMimeTypes() []string {
	return []string{utils.MimeTypeJPEG, utils.MimeTypePNG, utils.MimeTypeQOI, utils.MimeTypeTIFF, utils.MimeTypePPM}
}
