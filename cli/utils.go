package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"go.viam.com/cutout/config"
	"go.viam.com/cutout/logging"
	"go.viam.com/cutout/rimage"
	"go.viam.com/cutout/utils"
	"go.viam.com/cutout/vision/mask"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// infof prints a message prefixed with a bold cyan "Info: ".
func infof(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgCyan).Fprint(w, "Info: ")
	printf(w, format, a...)
}

// warningf prints a message prefixed with a bold yellow "Warning: ".
func warningf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.Bold, color.FgYellow).Fprint(w, "Warning: ")
	printf(w, format, a...)
}

// successf prints a green message.
func successf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	color.New(color.FgGreen).Fprintf(w, format+"\n", a...)
}

// runner is what every action needs: the loaded config and loggers leveled from it.
type runner struct {
	conf     *config.Config
	logger   logging.Logger
	registry *logging.Registry
	logFile  *lumberjack.Logger
}

func newRunner(c *cli.Context) (*runner, error) {
	logger := logging.NewBlankLogger("cutout")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	var logFile *lumberjack.Logger
	if path := c.String(logFileFlag); path != "" {
		logFile = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
		}
		logger.AddAppender(logging.NewWriterAppender(logFile))
	}

	conf := config.Default()
	if path := c.String(configFlag); path != "" {
		var err error
		if conf, err = config.Read(path, logger); err != nil {
			if logFile != nil {
				//nolint:errcheck
				logFile.Close()
			}
			return nil, err
		}
	}

	level := conf.Level()
	if c.Bool(debugFlag) {
		level = logging.DEBUG
	}
	logger.SetLevel(level)

	registry := logging.NewRegistry(level)
	registry.GetOrRegister("cutout", logger)
	if !c.Bool(debugFlag) {
		registry.UpdateConfig(conf.LogConfig, logger)
	}
	return &runner{conf: conf, logger: logger, registry: registry, logFile: logFile}, nil
}

// Close flushes and closes the log file, if any.
func (r *runner) Close() error {
	if r.logFile == nil {
		return nil
	}
	return r.logFile.Close()
}

// sublogger returns a registered sublogger of the root logger so that configured logger patterns
// apply to it.
func (r *runner) sublogger(name string) logging.Logger {
	sub := r.logger.Sublogger(name)
	return r.registry.GetOrRegister("cutout."+name, sub)
}

func readImage(ctx context.Context, path string) (image.Image, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := rimage.DecodeImage(ctx, data, utils.MimeTypeFromPath(path))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode image %q", path)
	}
	return img, nil
}

func writeImage(ctx context.Context, path string, img image.Image) error {
	data, err := rimage.EncodeImage(ctx, img, utils.MimeTypeFromPath(path))
	if err != nil {
		return errors.Wrapf(err, "cannot encode image %q", path)
	}
	return os.WriteFile(path, data, 0o600)
}

func readMask(path string) (mask.Mask, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return mask.Mask{}, err
	}
	m, err := mask.Decode(data)
	if err != nil {
		return mask.Mask{}, errors.Wrapf(err, "cannot read mask %q", path)
	}
	return m, nil
}

func writeMask(path string, m mask.Mask) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// derivedPath is path's base name in dir with its extension replaced by suffix.
func derivedPath(dir, path, suffix string) string {
	base := filepath.Base(path)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+suffix)
}
