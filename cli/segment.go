package cli

import (
	"image"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/cutout/vision/mask"
	"go.viam.com/cutout/vision/segmentation"
)

func parseContents(s string) (segmentation.Contents, error) {
	switch s {
	case "final":
		return segmentation.ContentsFinalImage, nil
	case "mask":
		return segmentation.ContentsRawMask, nil
	case "all":
		return segmentation.ContentsAll, nil
	default:
		return segmentation.ContentsNone, errors.Errorf("unknown contents %q, expected final, mask or all", s)
	}
}

func (r *runner) newPipeline() (*segmentation.Pipeline, error) {
	logger := r.sublogger("segmentation")
	conf := r.conf.Segmentation
	return segmentation.NewPipeline(conf, segmentation.RegistryModelFactory(conf.Model, conf.ModelAttributes, logger), logger)
}

// SegmentAction is the corresponding Action for 'segment'.
func SegmentAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no images given")
	}
	contents, err := parseContents(c.String(contentsFlag))
	if err != nil {
		return err
	}
	threshold := c.Uint(thresholdFlag)
	if threshold > 255 {
		return errors.Errorf("threshold must be at most 255, got %d", threshold)
	}
	outDir := c.String(outputDirFlag)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}

	r, err := newRunner(c)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			warningf(c.App.ErrWriter, "closing log file: %v", err)
		}
	}()
	pipeline, err := r.newPipeline()
	if err != nil {
		return err
	}

	paths := c.Args().Slice()
	imgs := make([]image.Image, 0, len(paths))
	for _, path := range paths {
		img, err := readImage(c.Context, path)
		if err != nil {
			return err
		}
		imgs = append(imgs, img)
	}

	resps, err := pipeline.SegmentBatch(c.Context, imgs, contents)
	if err != nil {
		return err
	}
	for i, resp := range resps {
		if resp.FinalImage != nil {
			out := derivedPath(outDir, paths[i], ".cutout.png")
			if err := writeImage(c.Context, out, resp.FinalImage); err != nil {
				return err
			}
			printf(c.App.Writer, "wrote %s", out)
		}
		if resp.RawMask != nil {
			out := derivedPath(outDir, paths[i], ".mask.json")
			m := mask.FromMatte(resp.RawMask, uint8(threshold))
			if m.Foreground() == 0 {
				warningf(c.App.ErrWriter, "no subject found in %s", paths[i])
			}
			if err := writeMask(out, m); err != nil {
				return err
			}
			printf(c.App.Writer, "wrote %s", out)
		}
	}
	successf(c.App.Writer, "segmented %d images", len(resps))
	return nil
}
