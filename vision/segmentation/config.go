package segmentation

import (
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/cutout/rimage"
	"go.viam.com/cutout/services/mlmodel/lumakey"
)

// Defaults used by SetDefaults.
const (
	DefaultInputSize      = 1024
	DefaultBlurSigma      = 2.0
	DefaultWhiteThreshold = 0.9
	DefaultCubeDimension  = 64
	DefaultParallelism    = 2
)

// Config are the pipeline settings.
type Config struct {
	// InputSize forces a square model input size. When zero the model's metadata decides, falling
	// back to DefaultInputSize.
	InputSize       int                    `json:"input_size,omitempty"`
	Resampler       rimage.Resampler       `json:"resampler,omitempty"`
	BlurSigma       float64                `json:"blur_sigma,omitempty"`
	WhiteThreshold  float64                `json:"white_threshold,omitempty"`
	CubeDimension   int                    `json:"cube_dimension,omitempty"`
	Parallelism     int                    `json:"parallelism,omitempty"`
	Model           string                 `json:"model,omitempty"`
	ModelAttributes map[string]interface{} `json:"model_attributes,omitempty"`
}

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() {
	if c.Resampler == "" {
		c.Resampler = rimage.ResamplerLanczos
	}
	if c.BlurSigma == 0 {
		c.BlurSigma = DefaultBlurSigma
	}
	if c.WhiteThreshold == 0 {
		c.WhiteThreshold = DefaultWhiteThreshold
	}
	if c.CubeDimension == 0 {
		c.CubeDimension = DefaultCubeDimension
	}
	if c.Parallelism == 0 {
		c.Parallelism = DefaultParallelism
	}
	if c.Model == "" {
		c.Model = lumakey.ModelName
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.InputSize < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("input_size must not be negative, got %d", c.InputSize))
	}
	if err := c.Resampler.Validate(); err != nil {
		return goutils.NewConfigValidationError(path, err)
	}
	if c.BlurSigma < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("blur_sigma must not be negative, got %v", c.BlurSigma))
	}
	if c.WhiteThreshold < 0 || c.WhiteThreshold > 1 {
		return goutils.NewConfigValidationError(path, errors.Errorf("white_threshold must be in [0, 1], got %v", c.WhiteThreshold))
	}
	if c.CubeDimension != 0 && (c.CubeDimension < 2 || c.CubeDimension > 256) {
		return goutils.NewConfigValidationError(path, errors.Errorf("cube_dimension must be in [2, 256], got %d", c.CubeDimension))
	}
	if c.Parallelism < 0 {
		return goutils.NewConfigValidationError(path, errors.Errorf("parallelism must not be negative, got %d", c.Parallelism))
	}
	return nil
}
