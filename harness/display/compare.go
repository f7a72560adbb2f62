package display

import (
	"image"
	"math"
)

// diffRMS computes the root-mean-square pixel difference between two images
// over the R, G and B channels. Differently sized images never match.
func diffRMS(a, b *image.RGBA) float64 {
	if a.Bounds().Dx() != b.Bounds().Dx() || a.Bounds().Dy() != b.Bounds().Dy() {
		return math.Inf(1)
	}

	w := a.Bounds().Dx()
	h := a.Bounds().Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var sum uint64
	for y := 0; y < h; y++ {
		ao := a.PixOffset(a.Bounds().Min.X, a.Bounds().Min.Y+y)
		bo := b.PixOffset(b.Bounds().Min.X, b.Bounds().Min.Y+y)
		for x := 0; x < w; x++ {
			for ch := 0; ch < 3; ch++ {
				d := int(a.Pix[ao+ch]) - int(b.Pix[bo+ch])
				sum += uint64(d * d)
			}
			ao += 4
			bo += 4
		}
	}
	return math.Sqrt(float64(sum) / float64(w*h*3))
}
