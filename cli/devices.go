package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"go.viam.com/cutout/components/camera"
	"go.viam.com/cutout/components/camera/devices"
	"go.viam.com/cutout/components/camera/fake"
)

func parsePosition(s string) (camera.Position, error) {
	switch p := camera.Position(s); p {
	case "":
		return camera.PositionUnspecified, nil
	case camera.PositionUnspecified, camera.PositionBack, camera.PositionFront:
		return p, nil
	default:
		return "", errors.Errorf("unknown position %q, expected back or front", s)
	}
}

func formatFactors(fs []float64) string {
	return strings.Join(lo.Map(fs, func(f float64, _ int) string { return fmt.Sprintf("%gx", f) }), ", ")
}

// devicesTable renders ds, marking the device a session would pick for position.
func devicesTable(ds []camera.Device, position camera.Position, requireDepth bool) string {
	preferred, _ := devices.Select(ds, position)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"", "ID", "Name", "Type", "Position", "Zoom", "Factors", "Default", "Depth", "Flash"})
	for _, d := range ds {
		mark := ""
		if preferred != nil && d.ID() == preferred.ID() {
			mark = "*"
		}
		t.AppendRow(table.Row{
			mark,
			d.ID(),
			d.Name(),
			d.Type(),
			d.Position(),
			fmt.Sprintf("%g-%gx", d.MinAvailableZoom(), d.MaxAvailableZoom()),
			formatFactors(devices.ZoomFactors(d)),
			fmt.Sprintf("%gx", devices.DefaultZoom(d, requireDepth)),
			len(d.DepthZoomRanges()) > 0,
			d.HasFlash(),
		})
	}
	return t.Render()
}

// DevicesAction is the corresponding Action for 'devices'.
func DevicesAction(c *cli.Context) error {
	position, err := parsePosition(c.String(positionFlag))
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

	all := lo.Map(r.conf.Platform.NewDevices(), func(d *fake.Device, _ int) camera.Device { return d })
	ds := lo.Filter(all, func(d camera.Device, _ int) bool {
		return position == camera.PositionUnspecified || d.Position() == position
	})
	if len(ds) == 0 {
		warningf(c.App.ErrWriter, "no devices at position %q", position)
		return nil
	}
	printf(c.App.Writer, "%s", devicesTable(ds, position, !r.conf.Session.DisableDepth))
	return nil
}
