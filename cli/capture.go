package cli

import (
	"context"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/components/camera/photo"
	"go.viam.com/cutout/components/camera/session"
	"go.viam.com/cutout/vision/segmentation"
)

func parseFlash(s string) (camera.FlashMode, error) {
	switch s {
	case "", "off":
		return camera.FlashModeOff, nil
	case "on":
		return camera.FlashModeOn, nil
	case "auto":
		return camera.FlashModeAuto, nil
	default:
		return camera.FlashModeOff, errors.Errorf("unknown flash mode %q, expected off, on or auto", s)
	}
}

// CaptureAction is the corresponding Action for 'capture'.
func CaptureAction(c *cli.Context) error {
	position, err := parsePosition(c.String(positionFlag))
	if err != nil {
		return err
	}
	flash, err := parseFlash(c.String(flashFlag))
	if err != nil {
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

	ctx, cancel := context.WithTimeout(c.Context, c.Duration(timeoutFlag))
	defer cancel()

	platform := r.conf.Platform.NewPlatform(r.sublogger("platform"))
	defer func() {
		if closeErr := platform.Close(); closeErr != nil {
			warningf(c.App.ErrWriter, "closing platform: %v", closeErr)
		}
	}()

	conf := r.conf.Session
	if position != camera.PositionUnspecified {
		conf.Position = position
	}
	s, err := session.New(conf, session.Dependencies{
		Hardware:   platform.Session,
		Discovery:  platform.Discovery,
		Authorizer: platform.Authorizer,
		Output:     platform.Output,
	}, r.sublogger("session"))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Close(context.Background()); closeErr != nil {
			warningf(c.App.ErrWriter, "closing session: %v", closeErr)
		}
	}()

	setup := make(chan session.SetupFinished, 1)
	removeListener := s.AddListener(func(ev session.Event) {
		switch ev := ev.(type) {
		case session.SetupFinished:
			select {
			case setup <- ev:
			default:
			}
		case session.RuntimeFault:
			warningf(c.App.ErrWriter, "camera runtime error: %v", ev.Err)
		case session.ZoomChanged:
			r.logger.Debugw("zoom changed", "factor", ev.Factor)
		}
	})
	defer removeListener()

	for _, op := range []func() error{s.RequestAuthorization, s.Configure, s.Start} {
		if err := op(); err != nil {
			return err
		}
	}
	select {
	case res := <-setup:
		if res.Result != session.SetupSuccess {
			if res.Err != nil {
				return errors.Wrapf(res.Err, "camera setup failed: %s", res.Result)
			}
			return errors.Errorf("camera setup failed: %s", res.Result)
		}
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "timed out setting up the camera")
	}

	if zoom := c.Float64(zoomFlag); zoom > 0 {
		if err := s.SetZoom(zoom); err != nil {
			return err
		}
	}
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if snap.State != session.StateRunning {
		return errors.Errorf("camera is %s, not running", snap.State)
	}
	infof(c.App.Writer, "capturing with %s at %gx", snap.DeviceID, snap.Zoom)

	outcome := make(chan photo.Outcome, 1)
	id, err := s.CapturePhoto(session.CaptureRequest{Codec: c.String(codecFlag), FlashMode: flash}, photo.Callbacks{
		WillCapture: func() { r.logger.Debug("shutter fired") },
		Completion:  func(o photo.Outcome) { outcome <- o },
	})
	if err != nil {
		return err
	}

	var captured *camera.CapturedImage
	select {
	case o := <-outcome:
		switch o := o.(type) {
		case photo.Failure:
			return o.Err
		case photo.Success:
			captured = o.Image
		}
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "timed out waiting for photo %s", id)
	}

	out := c.String(outputFlag)
	if err := writeImage(ctx, out, captured.Image); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s", out)

	if c.Bool(segmentFlag) {
		pipeline, err := r.newPipeline()
		if err != nil {
			return err
		}
		resp, err := pipeline.Segment(ctx, captured.Image, segmentation.ContentsFinalImage)
		if err != nil {
			return err
		}
		cutout := derivedPath(filepath.Dir(out), out, ".cutout.png")
		if err := writeImage(ctx, cutout, resp.FinalImage); err != nil {
			return err
		}
		printf(c.App.Writer, "wrote %s", cutout)
	}
	successf(c.App.Writer, "captured photo %s", id)
	return nil
}
