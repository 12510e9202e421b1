package cli

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/cutout/vision/mask"
)

// MaskCropAction is the corresponding Action for 'mask crop'.
func MaskCropAction(c *cli.Context) error {
	m, err := readMask(c.String(maskFlag))
	if err != nil {
		return err
	}
	img, err := readImage(c.Context, c.String(inputFlag))
	if err != nil {
		return err
	}
	cropped, err := m.Crop(img)
	if err != nil {
		return err
	}
	if err := writeImage(c.Context, c.String(outputFlag), cropped); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s", c.String(outputFlag))
	return nil
}

func parseTint(hex string, alpha float64) (color.NRGBA, error) {
	if alpha < 0 || alpha > 1 {
		return color.NRGBA{}, errors.Errorf("alpha must be in [0, 1], got %v", alpha)
	}
	col, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, errors.Wrapf(err, "invalid color %q", hex)
	}
	r, g, b := col.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: uint8(alpha*255 + 0.5)}, nil
}

// MaskPaintAction is the corresponding Action for 'mask paint'.
func MaskPaintAction(c *cli.Context) error {
	tint, err := parseTint(c.String(colorFlag), c.Float64(alphaFlag))
	if err != nil {
		return err
	}
	m, err := readMask(c.String(maskFlag))
	if err != nil {
		return err
	}
	img, err := readImage(c.Context, c.String(inputFlag))
	if err != nil {
		return err
	}
	painted, err := m.Paint(img, tint)
	if err != nil {
		return err
	}
	if err := writeImage(c.Context, c.String(outputFlag), painted); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s", c.String(outputFlag))
	return nil
}

// MaskEncodeAction is the corresponding Action for 'mask encode'.
func MaskEncodeAction(c *cli.Context) error {
	threshold := c.Uint(thresholdFlag)
	if threshold > 255 {
		return errors.Errorf("threshold must be at most 255, got %d", threshold)
	}
	img, err := readImage(c.Context, c.String(inputFlag))
	if err != nil {
		return err
	}
	m := mask.Encode(img, uint8(threshold))
	if err := writeMask(c.String(outputFlag), m); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s with %d runs", c.String(outputFlag), len(m.Counts))
	return nil
}

// MaskInfoAction is the corresponding Action for 'mask info'.
func MaskInfoAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one mask file")
	}
	m, err := readMask(c.Args().First())
	if err != nil {
		return err
	}

	fg := m.Foreground()
	printf(c.App.Writer, "size: %dx%d", m.Size.Width, m.Size.Height)
	printf(c.App.Writer, "runs: %d", len(m.Counts))
	printf(c.App.Writer, "foreground: %d pixels (%.1f%%)", fg, 100*float64(fg)/float64(m.Size.Area()))

	data := stats.LoadRawData(m.Counts)
	mean, err := data.Mean()
	if err != nil {
		return err
	}
	median, err := data.Median()
	if err != nil {
		return err
	}
	longest, err := data.Max()
	if err != nil {
		return err
	}
	printf(c.App.Writer, "run length: mean %.1f, median %.1f, max %.0f", mean, median, longest)
	if fg == 0 {
		warningf(c.App.ErrWriter, "mask has no foreground")
	}
	return nil
}
