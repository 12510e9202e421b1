package utils

import (
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestParallelForEachRow(t *testing.T) {
	for _, height := range []int{0, 1, 7, 64, 1000} {
		var mu sync.Mutex
		seen := map[int]int{}
		ParallelForEachRow(height, func(y int) {
			mu.Lock()
			seen[y]++
			mu.Unlock()
		})
		test.That(t, len(seen), test.ShouldEqual, height)
		for y := 0; y < height; y++ {
			test.That(t, seen[y], test.ShouldEqual, 1)
		}
	}
}

func TestParallelForEachRowSingleWorker(t *testing.T) {
	old := ParallelFactor
	ParallelFactor = 1
	defer func() { ParallelFactor = old }()

	var rows []int
	ParallelForEachRow(5, func(y int) { rows = append(rows, y) })
	test.That(t, rows, test.ShouldResemble, []int{0, 1, 2, 3, 4})
}

func TestClamp(t *testing.T) {
	test.That(t, Clamp(5, 1, 3), test.ShouldEqual, 3)
	test.That(t, Clamp(-1, 1, 3), test.ShouldEqual, 1)
	test.That(t, Clamp("b", "a", "c"), test.ShouldEqual, "b")
	test.That(t, ClampF64(0.5, 1, 123), test.ShouldEqual, 1.)
}

func TestMimeTypeFromPath(t *testing.T) {
	for path, expected := range map[string]string{
		"photo.JPG":  MimeTypeJPEG,
		"photo.jpeg": MimeTypeJPEG,
		"cutout.png": MimeTypePNG,
		"frame.qoi":  MimeTypeQOI,
		"scan.tiff":  MimeTypeTIFF,
		"raw.ppm":    MimeTypePPM,
		"mask.json":  MimeTypeJSON,
		"noext":      MimeTypePNG,
	} {
		test.That(t, MimeTypeFromPath(path), test.ShouldEqual, expected)
	}
}
