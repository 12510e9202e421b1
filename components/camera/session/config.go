package session

import (
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/utils"
)

// Config are the capture session settings. Auxiliary delivery features are enabled whenever the
// hardware supports them unless disabled here.
type Config struct {
	Position              camera.Position `json:"position,omitempty"`
	DisableAudio          bool            `json:"disable_audio,omitempty"`
	DisableDepth          bool            `json:"disable_depth,omitempty"`
	DisableLivePhoto      bool            `json:"disable_live_photo,omitempty"`
	DisablePortraitMatte  bool            `json:"disable_portrait_matte,omitempty"`
	DisableSemanticMattes bool            `json:"disable_semantic_mattes,omitempty"`
	Quality               string          `json:"quality,omitempty"`
	ThrottledMinFPS       float64         `json:"throttled_min_fps,omitempty"`
	ThrottledMaxFPS       float64         `json:"throttled_max_fps,omitempty"`
	PhotoCodec            string          `json:"photo_codec,omitempty"`
}

// Defaults used by SetDefaults.
const (
	DefaultQuality         = "balanced"
	DefaultThrottledMinFPS = 15
	DefaultThrottledMaxFPS = 20
	DefaultPhotoCodec      = utils.MimeTypeJPEG
)

// SetDefaults fills in unset fields.
func (c *Config) SetDefaults() {
	if c.Position == "" {
		c.Position = camera.PositionUnspecified
	}
	if c.Quality == "" {
		c.Quality = DefaultQuality
	}
	if c.ThrottledMinFPS == 0 && c.ThrottledMaxFPS == 0 {
		c.ThrottledMinFPS, c.ThrottledMaxFPS = DefaultThrottledMinFPS, DefaultThrottledMaxFPS
	}
	if c.PhotoCodec == "" {
		c.PhotoCodec = DefaultPhotoCodec
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	switch c.Position {
	case "", camera.PositionUnspecified, camera.PositionBack, camera.PositionFront:
	default:
		return goutils.NewConfigValidationError(path, errors.Errorf("unknown position %q", c.Position))
	}
	if c.Quality != "" {
		if _, err := parseQuality(c.Quality); err != nil {
			return goutils.NewConfigValidationError(path, err)
		}
	}
	if c.ThrottledMinFPS < 0 || c.ThrottledMaxFPS < c.ThrottledMinFPS {
		return goutils.NewConfigValidationError(path,
			errors.Errorf("throttled frame rate bounds [%v, %v] are invalid", c.ThrottledMinFPS, c.ThrottledMaxFPS))
	}
	return nil
}

func (c *Config) quality() camera.QualityPrioritization {
	q, err := parseQuality(c.Quality)
	if err != nil {
		return camera.QualityBalanced
	}
	return q
}

func parseQuality(s string) (camera.QualityPrioritization, error) {
	for _, q := range []camera.QualityPrioritization{camera.QualitySpeed, camera.QualityBalanced, camera.QualityQuality} {
		if q.String() == s {
			return q, nil
		}
	}
	return 0, errors.Errorf("unknown quality prioritization %q", s)
}
