package stats

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"cytocv/internal/logger"
	"cytocv/pkg/colorutil"
	"cytocv/pkg/geometry"
)

// fillMask returns a single-channel mask with the interior of c set.
// A nil contour covers the whole image.
func fillMask(width, height int, c geometry.Contour) gocv.Mat {
	if len(c) == 0 {
		return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	}
	mask := blankMask(width, height)
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{c})
	defer pv.Close()
	gocv.DrawContours(&mask, pv, -1, colorutil.Mask, -1)
	return mask
}

// lineMask returns a mask with a line of the given width from a to b.
func lineMask(width, height int, a, b image.Point, thickness int) gocv.Mat {
	mask := blankMask(width, height)
	gocv.Line(&mask, a, b, colorutil.Mask, thickness)
	return mask
}

func blankMask(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8U)
}

// maskedSum sums src over the nonzero pixels of mask and returns the sum and
// the pixel count.
func maskedSum(src, mask gocv.Mat) (float64, int, error) {
	if src.Rows() != mask.Rows() || src.Cols() != mask.Cols() {
		return 0, 0, fmt.Errorf("mask %dx%d does not match image %dx%d", mask.Cols(), mask.Rows(), src.Cols(), src.Rows())
	}
	if src.Channels() != 1 || src.Type() != gocv.MatTypeCV8U {
		return 0, 0, fmt.Errorf("expected an 8-bit single-channel image")
	}

	masked := gocv.NewMat()
	defer masked.Close()
	src.CopyToWithMask(&masked, mask)
	return masked.Sum().Val1, gocv.CountNonZero(mask), nil
}

// regionSum sums src inside contour c (whole image for nil c).
func regionSum(src gocv.Mat, c geometry.Contour) (float64, int, error) {
	mask := fillMask(src.Cols(), src.Rows(), c)
	defer mask.Close()
	return maskedSum(src, mask)
}

// redPair returns the centers of the first two red dots. ok is false when
// there are fewer than two dots or either has a zero moment.
func redPair(in *Input, comp string) (a, b image.Point, ok bool) {
	dots := dotContours(in)
	if len(dots) < minRedDotsForGFPDotStat {
		return a, b, false
	}
	a, okA := dots[0].Center()
	b, okB := dots[1].Center()
	if !okA || !okB {
		logger.OrNop(in.Log).Warning(comp, "red dot has no center", map[string]interface{}{"cell": in.CellID})
		return a, b, false
	}
	return a, b, true
}

// centers returns the moment centers of contours, skipping contours with a
// zero moment.
func centers(contours []geometry.Contour, log logger.Logger, comp string) []image.Point {
	out := make([]image.Point, 0, len(contours))
	for i, c := range contours {
		p, ok := c.Center()
		if !ok {
			logger.OrNop(log).Warning(comp, "skipping contour with zero area moment", map[string]interface{}{"index": i})
			continue
		}
		out = append(out, p)
	}
	return out
}
