package geometry

import (
	"image"
	"math"
)

// Moments holds the spatial moments of a closed polygon up to first order.
type Moments struct {
	M00, M10, M01 float64
}

// Moments computes polygon moments with Green's theorem, the same way
// OpenCV evaluates moments for a point contour. Degenerate contours (lines,
// single points) yield all-zero moments.
func (c Contour) Moments() Moments {
	n := len(c)
	if n == 0 {
		return Moments{}
	}
	var a00, a10, a01 float64
	prev := c[n-1]
	for _, p := range c {
		xi, yi := float64(p.X), float64(p.Y)
		xp, yp := float64(prev.X), float64(prev.Y)
		dxy := xp*yi - xi*yp
		a00 += dxy
		a10 += dxy * (xp + xi)
		a01 += dxy * (yp + yi)
		prev = p
	}
	if math.Abs(a00) <= 1.1920929e-07 {
		return Moments{}
	}
	if a00 < 0 {
		a00, a10, a01 = -a00, -a10, -a01
	}
	return Moments{M00: a00 / 2, M10: a10 / 6, M01: a01 / 6}
}

// Center returns the moment centroid truncated to integer pixel coordinates.
// ok is false when the contour has a zero zeroth moment.
func (c Contour) Center() (center image.Point, ok bool) {
	m := c.Moments()
	if m.M00 == 0 {
		return image.Point{}, false
	}
	return image.Pt(int(m.M10/m.M00), int(m.M01/m.M00)), true
}

// ClosestPair returns the indices of the globally closest pair of points
// between a and b, scanning a in order and b in order for each point of a.
// The first strict minimum wins ties. Both contours must be non-empty.
func ClosestPair(a, b Contour) (ia, ib int, dist float64) {
	best := math.Inf(1)
	for i, p := range a {
		for j, q := range b {
			d := PixelDistance(p, q)
			if d < best {
				best = d
				ia, ib = i, j
			}
		}
	}
	return ia, ib, best
}
