package segmentation

import (
	"image"

	"go.viam.com/cutout/rimage"
	"go.viam.com/cutout/utils"
)

// colorCube is a dim^3 lookup table over RGB. Entries marked clear map to transparent; every other
// colour keeps its value and becomes fully opaque.
type colorCube struct {
	dim   int
	clear []bool
}

func newColorCube(dim int, whiteThreshold float64) *colorCube {
	c := &colorCube{dim: dim, clear: make([]bool, dim*dim*dim)}
	step := 255 / float64(dim-1)
	for r := 0; r < dim; r++ {
		for g := 0; g < dim; g++ {
			for b := 0; b < dim; b++ {
				col := rgb(uint8(float64(r)*step+.5), uint8(float64(g)*step+.5), uint8(float64(b)*step+.5))
				c.clear[c.index(r, g, b)] = rimage.IsNearWhite(col, whiteThreshold)
			}
		}
	}
	return c
}

func (c *colorCube) index(r, g, b int) int {
	return (b*c.dim+g)*c.dim + r
}

func (c *colorCube) cell(v uint8) int {
	return (int(v)*(c.dim-1) + 127) / 255
}

// apply filters img through the cube.
func (c *colorCube) apply(img image.Image) *image.NRGBA {
	src := toNRGBA(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	utils.ParallelForEachRow(h, func(y int) {
		in := src.Pix[y*src.Stride : y*src.Stride+w*4]
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for x := 0; x < w; x++ {
			p := in[x*4 : x*4+4]
			if c.clear[c.index(c.cell(p[0]), c.cell(p[1]), c.cell(p[2]))] {
				continue
			}
			row[x*4], row[x*4+1], row[x*4+2], row[x*4+3] = p[0], p[1], p[2], 0xff
		}
	})
	return out
}
