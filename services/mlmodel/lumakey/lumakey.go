// Package lumakey is a pure-Go foreground segmenter implementing the ML model service. It keys out
// the dominant border colour of the frame: pixels far from it in RGB are foreground.
package lumakey

import (
	"context"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"gorgonia.org/tensor"

	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/ml"
	"go.viam.com/cutout/services/mlmodel"
	"go.viam.com/cutout/utils"
)

// ModelName is the name this backend registers under.
const ModelName = "lumakey"

// Tensor names.
const (
	InputName  = "image"
	OutputName = "mask"
)

func init() {
	mlmodel.RegisterBackend(ModelName, func(
		ctx context.Context,
		attributes map[string]interface{},
		logger logging.Logger,
	) (mlmodel.Service, error) {
		conf, err := mlmodel.DecodeAttributes[Config](attributes)
		if err != nil {
			return nil, err
		}
		return NewModel(conf, logger)
	})
}

// Config contains the parameters of the keyer.
type Config struct {
	InputSize   int     `json:"input_size"`
	BorderWidth int     `json:"border_width"`
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
}

func (c *Config) setDefaults() {
	if c.InputSize == 0 {
		c.InputSize = 1024
	}
	if c.BorderWidth == 0 {
		c.BorderWidth = 4
	}
	if c.Low == 0 && c.High == 0 {
		c.Low, c.High = 0.08, 0.25
	}
}

// Validate ensures all parts of the config are valid.
func (c Config) Validate() error {
	if c.InputSize < 0 {
		return errors.Errorf("input_size must be positive, got %d", c.InputSize)
	}
	if c.BorderWidth < 0 {
		return errors.Errorf("border_width must be positive, got %d", c.BorderWidth)
	}
	if c.Low < 0 || c.High <= c.Low {
		return errors.Errorf("need 0 <= low < high, got low=%v high=%v", c.Low, c.High)
	}
	return nil
}

// Model keys frames against their border colour.
type Model struct {
	conf   Config
	logger logging.Logger
}

// NewModel returns a keyer.
func NewModel(conf Config, logger logging.Logger) (*Model, error) {
	conf.setDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &Model{conf: conf, logger: logger}, nil
}

// Metadata describes the single float32 image input and mask output.
func (m *Model) Metadata(ctx context.Context) (mlmodel.MLMetadata, error) {
	_, span := trace.StartSpan(ctx, "service::mlmodel::lumakey::Metadata")
	defer span.End()

	size := m.conf.InputSize
	return mlmodel.MLMetadata{
		ModelName:        ModelName,
		ModelType:        "image_segmenter",
		ModelDescription: "keys out the dominant border colour of the frame",
		Inputs: []mlmodel.TensorInfo{{
			Name:     InputName,
			DataType: "float32",
			Shape:    []int{1, size, size, 3},
		}},
		Outputs: []mlmodel.TensorInfo{{
			Name:        OutputName,
			Description: "per-pixel foreground probability",
			DataType:    "float32",
			Shape:       []int{1, size, size, 1},
		}},
	}, nil
}

// Infer produces a mask tensor for the image tensor.
func (m *Model) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	_, span := trace.StartSpan(ctx, "service::mlmodel::lumakey::Infer")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, err := tensors.Only(InputName)
	if err != nil {
		return nil, err
	}
	h, w, c, err := ml.TensorImageSize(in)
	if err != nil {
		return nil, err
	}
	if c != 3 {
		return nil, errors.Errorf("expected 3 channel input, got %d", c)
	}
	data, ok := in.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("expected float32 input, got %T", in.Data())
	}
	if len(data) != w*h*3 {
		return nil, errors.Errorf("input has %d values, expected %d", len(data), w*h*3)
	}

	bg, err := m.borderColor(data, w, h)
	if err != nil {
		return nil, err
	}
	m.logger.Debugw("keying against border colour", "hex", bg.Hex(), "width", w, "height", h)

	out := make([]float32, w*h)
	// distances are normalized so the RGB cube diagonal is 1
	norm := math.Sqrt(3)
	utils.ParallelForEachRow(h, func(y int) {
		for x := 0; x < w; x++ {
			i := y*w + x
			px := colorful.Color{R: float64(data[i*3]), G: float64(data[i*3+1]), B: float64(data[i*3+2])}
			out[i] = float32(smoothstep(m.conf.Low, m.conf.High, px.DistanceRgb(bg)/norm))
		}
	})
	return ml.Tensors{
		OutputName: tensor.New(tensor.WithShape(1, h, w, 1), tensor.WithBacking(out)),
	}, nil
}

// borderColor is the per-channel median of the pixels within BorderWidth of the frame edge.
func (m *Model) borderColor(data []float32, w, h int) (colorful.Color, error) {
	bw := m.conf.BorderWidth
	var rs, gs, bs stats.Float64Data
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x >= bw && x < w-bw && y >= bw && y < h-bw {
				continue
			}
			i := (y*w + x) * 3
			rs = append(rs, float64(data[i]))
			gs = append(gs, float64(data[i+1]))
			bs = append(bs, float64(data[i+2]))
		}
	}
	r, err := rs.Median()
	if err != nil {
		return colorful.Color{}, errors.Wrap(err, "could not sample border")
	}
	g, err := gs.Median()
	if err != nil {
		return colorful.Color{}, errors.Wrap(err, "could not sample border")
	}
	b, err := bs.Median()
	if err != nil {
		return colorful.Color{}, errors.Wrap(err, "could not sample border")
	}
	return colorful.Color{R: r, G: g, B: b}, nil
}

func smoothstep(edge0, edge1, x float64) float64 {
	t := utils.ClampF64((x-edge0)/(edge1-edge0), 0, 1)
	return t * t * (3 - 2*t)
}
