package config

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"

	"go.viam.com/cutout/logging"
)

// Read reads a config from the given file, substituting environment variables first. The result
// is defaulted and validated.
func Read(filePath string, logger logging.Logger) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", filePath)
	}
	conf, err := FromReader(filePath, bytes.NewReader(buf), logger)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse config file %q", filePath)
	}
	return conf, nil
}

// FromReader reads a config from the given reader and specifies where, if applicable, the file
// the reader originated from. Keys that map to no setting are logged and ignored.
func FromReader(originalPath string, r io.Reader, logger logging.Logger) (*Config, error) {
	var attrs map[string]interface{}
	if err := json.NewDecoder(r).Decode(&attrs); err != nil {
		return nil, errors.Wrap(err, "cannot decode JSON")
	}
	conf := &Config{ConfigFilePath: originalPath}
	unused, err := decode(attrs, conf)
	if err != nil {
		return nil, err
	}
	for _, key := range unused {
		logger.Warnw("ignoring unknown config attribute", "attribute", key)
	}
	conf.SetDefaults()
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// decode converts attrs into result using its json tags. Durations may be given as strings like
// "250ms". It returns the keys that matched no field.
func decode(attrs map[string]interface{}, result interface{}) ([]string, error) {
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     result,
		Metadata:   &md,
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, err
	}
	sort.Strings(md.Unused)
	return md.Unused, nil
}
