// Package config reads the cutout configuration file: capture session settings, segmentation
// pipeline settings, logging levels and the simulated camera platform the CLI drives.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/cutout/components/camera/fake"
	"go.viam.com/cutout/components/camera/session"
	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/vision/segmentation"
)

// DefaultLogLevel is used when no log_level is configured.
const DefaultLogLevel = "info"

// Config is the top level configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	LogLevel     string                        `json:"log_level,omitempty"`
	LogConfig    []logging.LoggerPatternConfig `json:"log,omitempty"`
	Session      session.Config                `json:"session"`
	Segmentation segmentation.Config           `json:"segmentation"`
	Platform     PlatformConfig                `json:"platform"`
}

// PlatformConfig describes the simulated camera platform. With no devices the default catalog of
// a triple back camera phone is used.
type PlatformConfig struct {
	Devices []fake.DeviceConfig `json:"devices,omitempty"`
	Output  fake.OutputConfig   `json:"output"`
}

// Default returns a config with every section defaulted.
func Default() *Config {
	conf := &Config{}
	conf.SetDefaults()
	return conf
}

// SetDefaults fills in unset fields in every section.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Session.SetDefaults()
	c.Segmentation.SetDefaults()
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return goutils.NewConfigValidationError("log_level", err)
		}
	}
	for idx, lpc := range c.LogConfig {
		if err := lpc.Validate(); err != nil {
			return goutils.NewConfigValidationError(fmt.Sprintf("log.%d", idx), err)
		}
	}
	if err := c.Session.Validate("session"); err != nil {
		return err
	}
	if err := c.Segmentation.Validate("segmentation"); err != nil {
		return err
	}
	return c.Platform.Validate("platform")
}

// Level is the configured log level, INFO when unset or invalid.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// Validate ensures all parts of the config are valid.
func (pc *PlatformConfig) Validate(path string) error {
	seen := make(map[string]struct{}, len(pc.Devices))
	for idx, d := range pc.Devices {
		devicePath := fmt.Sprintf("%s.devices.%d", path, idx)
		if d.ID == "" {
			return goutils.NewConfigValidationFieldRequiredError(devicePath, "id")
		}
		if _, ok := seen[d.ID]; ok {
			return goutils.NewConfigValidationError(devicePath, errors.Errorf("duplicate device id %q", d.ID))
		}
		seen[d.ID] = struct{}{}
		if d.MinZoom <= 0 || d.MaxZoom < d.MinZoom {
			return goutils.NewConfigValidationError(devicePath,
				errors.Errorf("zoom range [%v, %v] is invalid", d.MinZoom, d.MaxZoom))
		}
	}
	if pc.Output.Width < 0 || pc.Output.Height < 0 {
		return goutils.NewConfigValidationError(path+".output",
			errors.Errorf("output dimensions %dx%d are invalid", pc.Output.Width, pc.Output.Height))
	}
	return nil
}

// NewDevices builds the configured fake devices, or the default catalog when none are configured.
func (pc *PlatformConfig) NewDevices() []*fake.Device {
	if len(pc.Devices) == 0 {
		return fake.DefaultDevices()
	}
	ds := make([]*fake.Device, 0, len(pc.Devices))
	for _, d := range pc.Devices {
		ds = append(ds, fake.NewDevice(d))
	}
	return ds
}

// NewPlatform builds the configured fake platform. The output supports every photo feature.
func (pc *PlatformConfig) NewPlatform(logger logging.Logger) *fake.Platform {
	out := pc.Output
	out.Supported = fake.DefaultFeatures()
	return fake.NewPlatform(pc.NewDevices(), out, logger)
}
