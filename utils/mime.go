package utils

import (
	"path/filepath"
	"strings"
)

const (
	// MimeTypeJPEG is regular jpgs.
	MimeTypeJPEG = "image/jpeg"

	// MimeTypePNG is regular pngs.
	MimeTypePNG = "image/png"

	// MimeTypeQOI is for .qoi "Quite OK Image" for lossless, fast encoding/decoding.
	MimeTypeQOI = "image/qoi"

	// MimeTypeTIFF is for .tiff files.
	MimeTypeTIFF = "image/tiff"

	// MimeTypePPM is for binary netpbm .ppm files.
	MimeTypePPM = "image/x-portable-pixmap"

	// MimeTypeJSON is for run-length encoded masks serialized as JSON.
	MimeTypeJSON = "application/json"
)

// MimeTypeFromPath guesses a mime type from a file extension, defaulting to PNG.
func MimeTypeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return MimeTypeJPEG
	case ".qoi":
		return MimeTypeQOI
	case ".tif", ".tiff":
		return MimeTypeTIFF
	case ".ppm":
		return MimeTypePPM
	case ".json":
		return MimeTypeJSON
	default:
		return MimeTypePNG
	}
}
