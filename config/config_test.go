package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/rimage"
	"go.viam.com/cutout/services/mlmodel/lumakey"
	"go.viam.com/cutout/vision/segmentation"
)

func TestReadDataFile(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("CUTOUT_LOG_LEVEL", "warn")

	conf, err := Read("data/cutout.json", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, "data/cutout.json")
	test.That(t, conf.LogLevel, test.ShouldEqual, "warn")
	test.That(t, conf.Level(), test.ShouldEqual, logging.WARN)
	test.That(t, conf.LogConfig, test.ShouldResemble, []logging.LoggerPatternConfig{{Pattern: "cutout.session", Level: "debug"}})

	test.That(t, conf.Session.Position, test.ShouldEqual, camera.PositionBack)
	test.That(t, conf.Session.Quality, test.ShouldEqual, "quality")
	test.That(t, conf.Session.ThrottledMaxFPS, test.ShouldEqual, 20.)

	test.That(t, conf.Segmentation.Resampler, test.ShouldEqual, rimage.ResamplerLanczos)
	test.That(t, conf.Segmentation.Model, test.ShouldEqual, lumakey.ModelName)
	test.That(t, conf.Segmentation.CubeDimension, test.ShouldEqual, segmentation.DefaultCubeDimension)

	test.That(t, conf.Platform.Output.Width, test.ShouldEqual, 96)
	test.That(t, conf.Platform.Output.Orientation, test.ShouldEqual, rimage.OrientationRight)
	test.That(t, conf.Platform.Output.ProcessingTime, test.ShouldEqual, 20*time.Millisecond)
	test.That(t, conf.Platform.NewDevices(), test.ShouldHaveLength, 5)
}

func TestReadDefaultsEnvironment(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("CUTOUT_LOG_LEVEL", "")

	conf, err := Read("data/cutout.json", logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.LogLevel, test.ShouldEqual, "info")
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot read config file")
}

func TestFromReaderUnknownAttributes(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)

	conf, err := FromReader("", strings.NewReader(`{"session": {"position": "front", "bogus": 1}, "extra": true}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Session.Position, test.ShouldEqual, camera.PositionFront)

	warnings := logs.FilterMessage("ignoring unknown config attribute").All()
	test.That(t, warnings, test.ShouldHaveLength, 2)
	test.That(t, warnings[0].ContextMap()["attribute"], test.ShouldEqual, "extra")
	test.That(t, warnings[1].ContextMap()["attribute"], test.ShouldEqual, "session.bogus")
}

func TestFromReaderErrors(t *testing.T) {
	logger := logging.NewTestLogger(t)
	for _, tc := range []struct {
		name     string
		input    string
		contains string
	}{
		{"malformed", `{"session": `, "cannot decode JSON"},
		{"wrong type", `{"session": {"position": 3}}`, "position"},
		{"log level", `{"log_level": "loud"}`, "log_level"},
		{"log pattern", `{"log": [{"pattern": "a..b", "level": "info"}]}`, "log.0"},
		{"session", `{"session": {"position": "sideways"}}`, "session"},
		{"segmentation", `{"segmentation": {"white_threshold": 2}}`, "segmentation"},
		{"device id", `{"platform": {"devices": [{"min_zoom": 1, "max_zoom": 2}]}}`, "platform.devices.0"},
		{"duplicate device", `{"platform": {"devices": [
			{"id": "a", "min_zoom": 1, "max_zoom": 2},
			{"id": "a", "min_zoom": 1, "max_zoom": 2}]}}`, "duplicate device id"},
		{"zoom range", `{"platform": {"devices": [{"id": "a", "min_zoom": 3, "max_zoom": 2}]}}`, "zoom range"},
		{"output", `{"platform": {"output": {"width": -1}}}`, "platform.output"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader("", strings.NewReader(tc.input), logger)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.contains)
		})
	}
}

func TestDefault(t *testing.T) {
	conf := Default()
	test.That(t, conf.Validate(), test.ShouldBeNil)
	test.That(t, conf.Level(), test.ShouldEqual, logging.INFO)
	test.That(t, conf.Session.Position, test.ShouldEqual, camera.PositionUnspecified)
	test.That(t, conf.Segmentation.Parallelism, test.ShouldEqual, segmentation.DefaultParallelism)
}

func TestPlatformDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cutout.json")
	test.That(t, os.WriteFile(path, []byte(`{
		"platform": {
			"devices": [{
				"id": "only", "name": "Only Camera", "type": "wide_angle", "position": "back",
				"min_zoom": 1, "max_zoom": 4, "depth_zoom_ranges": [{"min": 1, "max": 2}]
			}]
		}
	}`), 0o600), test.ShouldBeNil)

	conf, err := Read(path, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ds := conf.Platform.NewDevices()
	test.That(t, ds, test.ShouldHaveLength, 1)
	test.That(t, ds[0].ID(), test.ShouldEqual, "only")
	test.That(t, ds[0].DepthZoomRanges(), test.ShouldResemble, []camera.ZoomRange{{Min: 1, Max: 2}})

	p := conf.Platform.NewPlatform(logging.NewTestLogger(t))
	defer func() { test.That(t, p.Close(), test.ShouldBeNil) }()
	test.That(t, p.Output.Supported().LivePhoto, test.ShouldBeTrue)
}
