package preprocess

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// ball is the rolling ball structuring element on the shrunken grid.
type ball struct {
	shrink int
	half   int
	z      []float64
}

// newBall builds the ball for radius. Large radii work on a shrunken image
// and trim the ball rim, as ImageJ's Subtract Background does.
func newBall(radius float64) ball {
	var shrink, arcTrimPer int
	switch {
	case radius <= 10:
		shrink, arcTrimPer = 1, 24
	case radius <= 30:
		shrink, arcTrimPer = 2, 24
	case radius <= 100:
		shrink, arcTrimPer = 4, 32
	default:
		shrink, arcTrimPer = 8, 40
	}

	small := radius / float64(shrink)
	if small < 1 {
		small = 1
	}
	rsq := small * small
	xtrim := int(float64(arcTrimPer)*small) / 100
	half := int(math.Round(small - float64(xtrim)))
	width := 2*half + 1

	z := make([]float64, width*width)
	p := 0
	for y := -half; y <= half; y++ {
		for x := -half; x <= half; x++ {
			if d := rsq - float64(x*x) - float64(y*y); d > 0 {
				z[p] = math.Sqrt(d)
			}
			p++
		}
	}
	return ball{shrink: shrink, half: half, z: z}
}

// SubtractBackground removes a smooth dark background from a single-channel
// 8-bit image with a rolling ball of the given radius. The input is smoothed
// with a 3x3 mean before the ball is rolled; the background never exceeds
// the original pixel value.
func SubtractBackground(src gocv.Mat, radius float64) (gocv.Mat, error) {
	if src.Empty() || src.Channels() != 1 {
		return gocv.NewMat(), fmt.Errorf("background subtraction needs a non-empty single-channel image")
	}
	w, h := src.Cols(), src.Rows()

	orig := src.Clone()
	defer orig.Close()
	pix := orig.ToBytes()

	floats := gocv.NewMat()
	defer floats.Close()
	orig.ConvertTo(&floats, gocv.MatTypeCV32F)

	smoothed := gocv.NewMat()
	defer smoothed.Close()
	gocv.Blur(floats, &smoothed, image.Pt(3, 3))

	b := newBall(radius)
	sw, sh := (w+b.shrink-1)/b.shrink, (h+b.shrink-1)/b.shrink
	small := shrinkMin(smoothed, b.shrink, sw, sh)
	bgSmall := rollBall(b, small, sw, sh)

	bg := make([]float64, w*h)
	if b.shrink == 1 {
		copy(bg, bgSmall)
	} else {
		enlarged, err := enlarge(bgSmall, sw, sh, w, h)
		if err != nil {
			return gocv.NewMat(), err
		}
		bg = enlarged
	}

	out := make([]byte, w*h)
	for i, v := range pix {
		background := bg[i]
		if background > float64(v) {
			background = float64(v)
		}
		out[i] = clampByte(float64(v) - background + 0.5)
	}
	return gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, out)
}

// shrinkMin reduces the image by taking the minimum of each factor x factor block.
func shrinkMin(src gocv.Mat, factor, sw, sh int) []float64 {
	w, h := src.Cols(), src.Rows()
	out := make([]float64, sw*sh)
	for sy := 0; sy < sh; sy++ {
		for sx := 0; sx < sw; sx++ {
			minV := math.Inf(1)
			for y := sy * factor; y < (sy+1)*factor && y < h; y++ {
				for x := sx * factor; x < (sx+1)*factor && x < w; x++ {
					if v := float64(src.GetFloatAt(y, x)); v < minV {
						minV = v
					}
				}
			}
			out[sy*sw+sx] = minV
		}
	}
	return out
}

// rollBall computes the grey-level opening of img by the ball: each ball
// position is lowered until it touches the surface, and the background is
// the upper envelope of all placed balls.
func rollBall(b ball, img []float64, w, h int) []float64 {
	width := 2*b.half + 1
	bg := make([]float64, w*h)
	for i := range bg {
		bg[i] = math.Inf(-1)
	}

	for cy := 0; cy < h; cy++ {
		for cx := 0; cx < w; cx++ {
			zmin := math.Inf(1)
			for by := -b.half; by <= b.half; by++ {
				y := cy + by
				if y < 0 || y >= h {
					continue
				}
				for bx := -b.half; bx <= b.half; bx++ {
					x := cx + bx
					if x < 0 || x >= w {
						continue
					}
					if v := img[y*w+x] - b.z[(by+b.half)*width+bx+b.half]; v < zmin {
						zmin = v
					}
				}
			}
			for by := -b.half; by <= b.half; by++ {
				y := cy + by
				if y < 0 || y >= h {
					continue
				}
				for bx := -b.half; bx <= b.half; bx++ {
					x := cx + bx
					if x < 0 || x >= w {
						continue
					}
					if v := zmin + b.z[(by+b.half)*width+bx+b.half]; v > bg[y*w+x] {
						bg[y*w+x] = v
					}
				}
			}
		}
	}
	return bg
}

// enlarge scales the shrunken background back to full size with bilinear
// interpolation.
func enlarge(small []float64, sw, sh, w, h int) ([]float64, error) {
	src := gocv.NewMatWithSize(sh, sw, gocv.MatTypeCV32F)
	defer src.Close()
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			src.SetFloatAt(y, x, float32(small[y*sw+x]))
		}
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(src, &dst, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
	if dst.Cols() != w || dst.Rows() != h {
		return nil, fmt.Errorf("resize produced %dx%d, want %dx%d", dst.Cols(), dst.Rows(), w, h)
	}

	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = float64(dst.GetFloatAt(y, x))
		}
	}
	return out, nil
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}
