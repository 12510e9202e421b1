// Package cli contains the cutout command line: segmenting images, working with run-length
// encoded masks, and driving a capture session on the simulated camera platform.
package cli

import (
	"io"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	configFlag  = "config"
	debugFlag   = "debug"
	logFileFlag = "log-file"

	inputFlag     = "input"
	outputFlag    = "output"
	outputDirFlag = "output-dir"
	maskFlag      = "mask"
	contentsFlag  = "contents"
	thresholdFlag = "threshold"
	colorFlag     = "color"
	alphaFlag     = "alpha"
	positionFlag  = "position"
	zoomFlag      = "zoom"
	codecFlag     = "codec"
	flashFlag     = "flash"
	segmentFlag   = "segment"
	timeoutFlag   = "timeout"
)

var app = &cli.App{
	Name:            "cutout",
	Usage:           "capture photos and cut out their subjects",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  logFileFlag,
			Usage: "also write logs to `FILE`, rotated at 10MB",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "segment",
			Usage:     "cut the subject out of one or more images",
			ArgsUsage: "IMAGE...",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  outputDirFlag,
					Usage: "directory to write results to",
					Value: ".",
				},
				&cli.StringFlag{
					Name:  contentsFlag,
					Usage: "what to write: the cutout (final), the run-length mask (mask) or both (all)",
					Value: "final",
				},
				&cli.UintFlag{
					Name:  thresholdFlag,
					Usage: "mask values above this are foreground",
					Value: 127,
				},
			},
			Action: SegmentAction,
		},
		{
			Name:            "mask",
			Usage:           "work with run-length encoded masks",
			HideHelpCommand: true,
			Subcommands: []*cli.Command{
				{
					Name:  "crop",
					Usage: "keep only the masked pixels of an image",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: maskFlag, Required: true, Usage: "mask `FILE`"},
						&cli.StringFlag{Name: inputFlag, Required: true, Usage: "image `FILE` to crop"},
						&cli.StringFlag{Name: outputFlag, Required: true, Usage: "where to write the cropped image"},
					},
					Action: MaskCropAction,
				},
				{
					Name:  "paint",
					Usage: "tint the masked pixels of an image",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: maskFlag, Required: true, Usage: "mask `FILE`"},
						&cli.StringFlag{Name: inputFlag, Required: true, Usage: "image `FILE` to paint"},
						&cli.StringFlag{Name: outputFlag, Required: true, Usage: "where to write the painted image"},
						&cli.StringFlag{Name: colorFlag, Value: "#ff2d55", Usage: "tint color as hex"},
						&cli.Float64Flag{Name: alphaFlag, Value: 0.5, Usage: "tint opacity in [0, 1]"},
					},
					Action: MaskPaintAction,
				},
				{
					Name:  "encode",
					Usage: "run-length encode the alpha channel of an image",
					Flags: []cli.Flag{
						&cli.StringFlag{Name: inputFlag, Required: true, Usage: "image `FILE` whose alpha is the mask"},
						&cli.StringFlag{Name: outputFlag, Required: true, Usage: "where to write the mask JSON"},
						&cli.UintFlag{Name: thresholdFlag, Value: 127, Usage: "alpha values above this are foreground"},
					},
					Action: MaskEncodeAction,
				},
				{
					Name:      "info",
					Usage:     "describe a mask",
					ArgsUsage: "MASK",
					Action:    MaskInfoAction,
				},
			},
		},
		{
			Name:  "devices",
			Usage: "list the capture devices of the simulated platform",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: positionFlag, Usage: "only list devices at this position (back, front)"},
			},
			Action: DevicesAction,
		},
		{
			Name:  "capture",
			Usage: "capture a photo on the simulated platform",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: outputFlag, Required: true, Usage: "where to write the photo"},
				&cli.StringFlag{Name: positionFlag, Usage: "camera position to capture with (back, front)"},
				&cli.Float64Flag{Name: zoomFlag, Usage: "zoom factor, clamped to the device's range"},
				&cli.StringFlag{Name: codecFlag, Usage: "photo codec mime type"},
				&cli.StringFlag{Name: flashFlag, Value: "off", Usage: "flash mode (off, on, auto)"},
				&cli.BoolFlag{Name: segmentFlag, Usage: "also write a cutout of the photo's subject"},
				&cli.DurationFlag{Name: timeoutFlag, Value: 10 * time.Second, Usage: "how long to wait for the photo"},
			},
			Action: CaptureAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
