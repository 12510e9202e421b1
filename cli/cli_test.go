package cli

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/cutout/vision/mask"
)

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"cutout"}, args...))
	return out.String(), errOut.String(), err
}

func writeTestImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	test.That(t, writeImage(context.Background(), path, img), test.ShouldBeNil)
}

func readTestImage(t *testing.T, path string) image.Image {
	t.Helper()
	img, err := readImage(context.Background(), path)
	test.That(t, err, test.ShouldBeNil)
	return img
}

// subjectImage is a dark square on a white background.
func subjectImage(w, h, margin int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if x >= margin && x < w-margin && y >= margin && y < h-margin {
				c = color.NRGBA{R: 20, G: 40, B: 160, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writeConfig(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "cutout.json")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestMaskCommands(t *testing.T) {
	dir := t.TempDir()

	// left half opaque
	matte := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 2; x++ {
			matte.SetNRGBA(x, y, color.NRGBA{A: 255})
		}
	}
	mattePath := filepath.Join(dir, "matte.png")
	writeTestImage(t, mattePath, matte)
	maskPath := filepath.Join(dir, "mask.json")

	out, _, err := runApp(t, "mask", "encode", "--input", mattePath, "--output", maskPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "with 3 runs")
	m, err := readMask(maskPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Counts, test.ShouldResemble, []int{0, 8, 8})

	out, errOut, err := runApp(t, "mask", "info", maskPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "size: 4x4")
	test.That(t, out, test.ShouldContainSubstring, "foreground: 8 pixels (50.0%)")
	test.That(t, out, test.ShouldContainSubstring, "max 8")
	test.That(t, errOut, test.ShouldBeEmpty)

	photoPath := filepath.Join(dir, "photo.png")
	writeTestImage(t, photoPath, subjectImage(8, 8, 2))

	croppedPath := filepath.Join(dir, "cropped.png")
	_, _, err = runApp(t, "mask", "crop", "--mask", maskPath, "--input", photoPath, "--output", croppedPath)
	test.That(t, err, test.ShouldBeNil)
	cropped := readTestImage(t, croppedPath)
	test.That(t, cropped.Bounds().Dx(), test.ShouldEqual, 8)
	_, _, _, a := cropped.At(1, 1).RGBA()
	test.That(t, a, test.ShouldEqual, 0xffff)
	_, _, _, a = cropped.At(6, 1).RGBA()
	test.That(t, a, test.ShouldEqual, 0)

	ppmPath := filepath.Join(dir, "cropped.ppm")
	_, _, err = runApp(t, "mask", "crop", "--mask", maskPath, "--input", photoPath, "--output", ppmPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, readTestImage(t, ppmPath).Bounds(), test.ShouldResemble, cropped.Bounds())

	paintedPath := filepath.Join(dir, "painted.png")
	_, _, err = runApp(t, "mask", "paint", "--mask", maskPath, "--input", photoPath, "--output", paintedPath,
		"--color", "#ff0000", "--alpha", "1")
	test.That(t, err, test.ShouldBeNil)
	painted := readTestImage(t, paintedPath)
	test.That(t, color.NRGBAModel.Convert(painted.At(0, 0)), test.ShouldResemble, color.NRGBA{R: 255, A: 255})
	test.That(t, color.NRGBAModel.Convert(painted.At(7, 0)), test.ShouldResemble, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
}

func TestMaskInfoEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.json")
	test.That(t, writeMask(path, mask.Mask{Size: mask.Size{Width: 2, Height: 2}, Counts: []int{4}}), test.ShouldBeNil)

	_, errOut, err := runApp(t, "mask", "info", path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "mask has no foreground")

	_, _, err = runApp(t, "mask", "info")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMaskCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.json")
	test.That(t, os.WriteFile(path, []byte(`{"size": [2, 2], "counts": [1, 1]}`), 0o600), test.ShouldBeNil)

	_, _, err := runApp(t, "mask", "info", path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "corrupt mask")
}

func TestParseTint(t *testing.T) {
	c, err := parseTint("#336699", 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 128})

	_, err = parseTint("blue", 0.5)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseTint("#336699", 1.5)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSegmentAction(t *testing.T) {
	dir := t.TempDir()
	conf := writeConfig(t, dir, `{"segmentation": {"input_size": 32, "model": "lumakey"}}`)
	inputs := []string{filepath.Join(dir, "first.png"), filepath.Join(dir, "second.qoi")}
	writeTestImage(t, inputs[0], subjectImage(40, 30, 10))
	writeTestImage(t, inputs[1], subjectImage(30, 30, 8))
	outDir := filepath.Join(dir, "out")

	out, _, err := runApp(t, "--config", conf, "segment", "--output-dir", outDir, "--contents", "all", inputs[0], inputs[1])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "segmented 2 images")

	cutout := readTestImage(t, filepath.Join(outDir, "first.cutout.png"))
	test.That(t, cutout.Bounds().Dx(), test.ShouldEqual, 40)
	test.That(t, cutout.Bounds().Dy(), test.ShouldEqual, 30)
	_, _, _, corner := cutout.At(0, 0).RGBA()
	test.That(t, corner, test.ShouldEqual, 0)
	_, _, _, center := cutout.At(20, 15).RGBA()
	test.That(t, center, test.ShouldBeGreaterThan, 0xc000)

	m, err := readMask(filepath.Join(outDir, "second.mask.json"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Size, test.ShouldResemble, mask.Size{Width: 32, Height: 32})
	test.That(t, m.Foreground(), test.ShouldBeGreaterThan, 0)
	test.That(t, m.Foreground(), test.ShouldBeLessThan, m.Size.Area())
}

func TestSegmentActionErrors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := runApp(t, "segment")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no images given")

	_, _, err = runApp(t, "segment", "--contents", "everything", "x.png")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown contents")

	_, _, err = runApp(t, "segment", "--output-dir", dir, filepath.Join(dir, "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)

	bad := writeConfig(t, dir, `{"segmentation": {"white_threshold": 3}}`)
	_, _, err = runApp(t, "--config", bad, "segment", "--output-dir", dir, "x.png")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "segmentation")
}

func TestDevicesAction(t *testing.T) {
	out, _, err := runApp(t, "devices")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "back-triple")
	test.That(t, out, test.ShouldContainSubstring, "front-true-depth")
	test.That(t, out, test.ShouldContainSubstring, "1x, 2x, 6x")

	out, _, err = runApp(t, "devices", "--position", "front")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldNotContainSubstring, "back-triple")
	test.That(t, out, test.ShouldContainSubstring, "front-wide")

	_, _, err = runApp(t, "devices", "--position", "sideways")
	test.That(t, err, test.ShouldNotBeNil)

	dir := t.TempDir()
	conf := writeConfig(t, dir, `{"platform": {"devices": [
		{"id": "solo", "name": "Solo", "type": "wide_angle", "position": "back", "min_zoom": 1, "max_zoom": 4}
	]}}`)
	_, errOut, err := runApp(t, "--config", conf, "devices", "--position", "front")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "no devices at position")
}

func TestDevicesTable(t *testing.T) {
	rendered := devicesTable(nil, "", true)
	test.That(t, rendered, test.ShouldContainSubstring, "DEFAULT")
}

func TestCaptureAction(t *testing.T) {
	dir := t.TempDir()
	conf := writeConfig(t, dir, `{
		"segmentation": {"input_size": 32},
		"platform": {"output": {"width": 48, "height": 32}}
	}`)
	photoPath := filepath.Join(dir, "photo.png")

	out, _, err := runApp(t, "--config", conf, "capture", "--output", photoPath, "--zoom", "3", "--segment")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "capturing with back-triple at 3x")
	test.That(t, out, test.ShouldContainSubstring, "captured photo")

	photo := readTestImage(t, photoPath)
	test.That(t, photo.Bounds().Dx(), test.ShouldEqual, 48)
	cutout := readTestImage(t, filepath.Join(dir, "photo.cutout.png"))
	test.That(t, cutout.Bounds(), test.ShouldResemble, photo.Bounds())
}

func TestLogFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cutout.log")

	_, errOut, err := runApp(t, "--debug", "--log-file", logPath, "capture", "--output", filepath.Join(dir, "photo.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "capture session configured")

	logged, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logged), test.ShouldContainSubstring, "capture session configured")
	test.That(t, string(logged), test.ShouldContainSubstring, "cutout.session")
}

func TestCaptureActionFront(t *testing.T) {
	dir := t.TempDir()
	photoPath := filepath.Join(dir, "front.jpg")

	out, _, err := runApp(t, "capture", "--output", photoPath, "--position", "front", "--flash", "on")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "capturing with front-true-depth at 1x")
	_, err = os.Stat(photoPath)
	test.That(t, err, test.ShouldBeNil)
}

func TestCaptureActionErrors(t *testing.T) {
	dir := t.TempDir()
	photoPath := filepath.Join(dir, "photo.png")

	_, _, err := runApp(t, "capture", "--output", photoPath, "--flash", "strobe")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown flash mode")

	_, _, err = runApp(t, "capture", "--output", photoPath, "--position", "up")
	test.That(t, err, test.ShouldNotBeNil)

	conf := writeConfig(t, dir, `{"platform": {"devices": [
		{"id": "ultra", "name": "Ultra Wide", "type": "ultra_wide", "position": "back", "min_zoom": 1, "max_zoom": 2}
	]}}`)
	_, _, err = runApp(t, "--config", conf, "capture", "--output", photoPath)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "camera setup failed")
}

func TestVersionAction(t *testing.T) {
	out, _, err := runApp(t, "version")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "Version (dev)")
}

func TestDerivedPath(t *testing.T) {
	test.That(t, derivedPath("out", "in/photo.jpg", ".cutout.png"), test.ShouldEqual, filepath.Join("out", "photo.cutout.png"))
	test.That(t, derivedPath(".", "mask", ".json"), test.ShouldEqual, "mask.json")
}
