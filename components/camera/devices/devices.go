// Package devices is the zoom and device catalog: which capture device to prefer, the discrete
// zoom factors each device advertises, and the default zoom for a device.
package devices

import (
	"sort"

	"github.com/samber/lo"

	"go.viam.com/cutout/components/camera"
)

// Candidate is a device type at a position.
type Candidate struct {
	Type     camera.DeviceType
	Position camera.Position
}

// Priority is the fixed order in which devices are preferred: multi-camera back devices, then the
// single back camera, then front cameras.
var Priority = []Candidate{
	{camera.DeviceTypeTriple, camera.PositionBack},
	{camera.DeviceTypeDualWide, camera.PositionBack},
	{camera.DeviceTypeDual, camera.PositionBack},
	{camera.DeviceTypeWideAngle, camera.PositionBack},
	{camera.DeviceTypeTrueDepth, camera.PositionFront},
	{camera.DeviceTypeWideAngle, camera.PositionFront},
}

// DiscoveryTypes are the device types to discover, in priority order.
func DiscoveryTypes() []camera.DeviceType {
	return lo.Uniq(lo.Map(Priority, func(c Candidate, _ int) camera.DeviceType { return c.Type }))
}

// Select returns the most preferred device among ds. With a specified position only devices
// facing that way are considered.
func Select(ds []camera.Device, position camera.Position) (camera.Device, bool) {
	candidates := lo.Filter(Priority, func(c Candidate, _ int) bool {
		return position == camera.PositionUnspecified || c.Position == position
	})
	for _, c := range candidates {
		if d, ok := lo.Find(ds, func(d camera.Device) bool {
			return d.Type() == c.Type && d.Position() == c.Position
		}); ok {
			return d, true
		}
	}
	return nil, false
}

// Positions returns the distinct positions among ds, back first.
func Positions(ds []camera.Device) []camera.Position {
	ps := lo.Uniq(lo.Map(ds, func(d camera.Device, _ int) camera.Position { return d.Position() }))
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return ps
}

// ZoomEntry is a device and the discrete zoom factors it supports. It is an immutable snapshot.
type ZoomEntry struct {
	DeviceID string    `json:"device_id"`
	Factors  []float64 `json:"factors"`
}

// ZoomFactors are the device's minimum zoom followed by its switch-over factors, ascending and
// within the device's zoom range.
func ZoomFactors(d camera.Device) []float64 {
	minZoom, maxZoom := d.MinAvailableZoom(), d.MaxAvailableZoom()
	factors := append([]float64{minZoom}, d.SwitchOverZoomFactors()...)
	factors = lo.Filter(factors, func(f float64, _ int) bool { return f >= minZoom && f <= maxZoom })
	factors = lo.Uniq(factors)
	sort.Float64s(factors)
	return factors
}

// Catalog snapshots the zoom entries of ds.
func Catalog(ds []camera.Device) []ZoomEntry {
	return lo.Map(ds, func(d camera.Device, _ int) ZoomEntry {
		return ZoomEntry{DeviceID: d.ID(), Factors: ZoomFactors(d)}
	})
}

// DefaultZoom is the smallest advertised zoom factor of d. When depth is required it is the
// smallest advertised factor inside one of the device's depth ranges. It falls back to the minimum
// zoom when there is no such factor, including for devices reporting an inverted zoom range.
func DefaultZoom(d camera.Device, requireDepth bool) float64 {
	factors := ZoomFactors(d)
	if len(factors) == 0 {
		return d.MinAvailableZoom()
	}
	if !requireDepth {
		return factors[0]
	}
	for _, f := range factors {
		if lo.SomeBy(d.DepthZoomRanges(), func(r camera.ZoomRange) bool { return r.Contains(f) }) {
			return f
		}
	}
	return d.MinAvailableZoom()
}

// ClampZoom clamps factor to the device's zoom range.
func ClampZoom(d camera.Device, factor float64) float64 {
	return lo.Clamp(factor, d.MinAvailableZoom(), d.MaxAvailableZoom())
}
