package inject

import (
	"context"

	"go.viam.com/cutout/ml"
	"go.viam.com/cutout/services/mlmodel"
)

// MLModelService represents a fake instance of an MLModel service.
type MLModelService struct {
	mlmodel.Service
	InferFunc    func(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error)
	MetadataFunc func(ctx context.Context) (mlmodel.MLMetadata, error)
}

// Infer calls the injected Infer or the real variant.
func (s *MLModelService) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	if s.InferFunc == nil {
		return s.Service.Infer(ctx, tensors)
	}
	return s.InferFunc(ctx, tensors)
}

// Metadata calls the injected Metadata or the real variant.
func (s *MLModelService) Metadata(ctx context.Context) (mlmodel.MLMetadata, error) {
	if s.MetadataFunc == nil {
		return s.Service.Metadata(ctx)
	}
	return s.MetadataFunc(ctx)
}
