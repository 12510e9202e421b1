package segmentation

import (
	"github.com/pkg/errors"
)

// ErrorKind is which stage of the pipeline failed.
type ErrorKind int

// The failure kinds.
const (
	// KindPixelBuffer is a failure to build the model input from the source image.
	KindPixelBuffer ErrorKind = iota + 1
	// KindModelPrediction is a failure to load the model, run it, or read its output.
	KindModelPrediction
	// KindCompositing is a failure while building the final image.
	KindCompositing
)

func (k ErrorKind) String() string {
	switch k {
	case KindPixelBuffer:
		return "pixel_buffer"
	case KindModelPrediction:
		return "model_prediction"
	case KindCompositing:
		return "compositing"
	default:
		return "unknown"
	}
}

// Error is a segmentation failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPixelBuffer:
		return "pixel buffer creation error: " + e.Err.Error()
	case KindModelPrediction:
		return "model prediction error: " + e.Err.Error()
	case KindCompositing:
		return "compositing error: " + e.Err.Error()
	default:
		return "segmentation error: " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a segmentation error of kind k.
func IsKind(err error, k ErrorKind) bool {
	var segErr *Error
	return errors.As(err, &segErr) && segErr.Kind == k
}

func newError(k ErrorKind, err error, msg string) error {
	return &Error{Kind: k, Err: errors.Wrap(err, msg)}
}
