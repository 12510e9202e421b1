// Package ml provides the tensor primitives shared by model backends and the segmentation pipeline.
package ml

import (
	"sort"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
	"gorgonia.org/tensor"
)

// Tensors are a map of named tensors, the currency of model inputs and outputs.
type Tensors map[string]*tensor.Dense

// Names returns the sorted names of the tensors.
func (ts Tensors) Names() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Only returns the single tensor in ts, or the one named name when there are several.
func (ts Tensors) Only(name string) (*tensor.Dense, error) {
	if t, ok := ts[name]; ok {
		return t, nil
	}
	if len(ts) == 1 {
		for _, t := range ts {
			return t, nil
		}
	}
	return nil, errors.Errorf("no tensor named %q among output tensors %v", name, ts.Names())
}

// number interface for converting between numbers.
type number interface {
	constraints.Integer | constraints.Float
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

// ToFloat64Slice flattens a tensor's backing data into float64s.
func ToFloat64Slice(t *tensor.Dense) ([]float64, error) {
	if t == nil {
		return nil, errors.New("nil tensor")
	}
	switch v := t.Data().(type) {
	case []float64:
		return v, nil
	case float64:
		return []float64{v}, nil
	case []float32:
		return convertNumberSlice[float32, float64](v), nil
	case float32:
		return []float64{float64(v)}, nil
	case []uint8:
		return scaleUint8(v), nil
	case uint8:
		return scaleUint8([]uint8{v}), nil
	case []int32:
		return convertNumberSlice[int32, float64](v), nil
	case []int64:
		return convertNumberSlice[int64, float64](v), nil
	case []int:
		return convertNumberSlice[int, float64](v), nil
	default:
		return nil, errors.Errorf("dont know how to convert tensor data of %T into a []float64", v)
	}
}

// quantized activations are normalized to [0, 1].
func scaleUint8(in []uint8) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v) / 255
	}
	return out
}

// ToProbabilities makes sure scores lie in [0, 1]; any score outside that range means the model
// emitted logits, and a sigmoid is applied to all of them.
func ToProbabilities(in []float64) []float64 {
	for _, p := range in {
		if p < 0 || p > 1 {
			out, err := stats.Sigmoid(in)
			if err != nil {
				return in
			}
			return out
		}
	}
	return in
}
