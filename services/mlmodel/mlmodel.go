// Package mlmodel defines the interface for a service that takes in a map of input tensors, passes
// them through an inference engine, and returns a map of output tensors.
package mlmodel

import (
	"context"

	"go.viam.com/cutout/ml"
)

// Service is an inference engine. Implementations are not required to be safe for concurrent
// use; callers wanting parallelism construct one per request.
type Service interface {
	Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error)
	Metadata(ctx context.Context) (MLMetadata, error)
}

// MLMetadata describes a model's inputs and outputs.
type MLMetadata struct {
	ModelName        string
	ModelType        string // e.g. image_segmenter
	ModelDescription string
	Inputs           []TensorInfo
	Outputs          []TensorInfo
}

// TensorInfo describes one input or output tensor.
type TensorInfo struct {
	Name        string // e.g. image
	Description string
	DataType    string // e.g. uint8, float32
	Shape       []int  // -1 for a dimension of any size
	Extra       map[string]interface{}
}

// ImageInput returns the first input's name and expected height and width. Channel-first shapes
// ([1, 3, H, W]) are recognized.
func (mm MLMetadata) ImageInput() (name string, height, width int, ok bool) {
	if len(mm.Inputs) == 0 {
		return "", 0, 0, false
	}
	in := mm.Inputs[0]
	switch shape := in.Shape; {
	case len(shape) == 4 && shape[1] == 3:
		return in.Name, shape[2], shape[3], true
	case len(shape) == 4:
		return in.Name, shape[1], shape[2], true
	default:
		return in.Name, 0, 0, false
	}
}
