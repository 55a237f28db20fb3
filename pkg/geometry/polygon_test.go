package geometry

import (
	"image"
	"math"
	"testing"
)

func square(x, y, size int) Contour {
	return Contour{
		image.Pt(x, y),
		image.Pt(x+size, y),
		image.Pt(x+size, y+size),
		image.Pt(x, y+size),
	}
}

func TestCenter(t *testing.T) {
	c, ok := square(10, 20, 4).Center()
	if !ok {
		t.Fatal("expected non-degenerate contour")
	}
	if c != image.Pt(12, 22) {
		t.Errorf("Center() = %v, want (12,22)", c)
	}

	// Orientation must not change the centroid.
	rev := Contour{image.Pt(10, 20), image.Pt(10, 24), image.Pt(14, 24), image.Pt(14, 20)}
	if c2, _ := rev.Center(); c2 != c {
		t.Errorf("reversed Center() = %v, want %v", c2, c)
	}
}

func TestCenterZeroMoment(t *testing.T) {
	line := Contour{image.Pt(0, 0), image.Pt(5, 0), image.Pt(10, 0)}
	if _, ok := line.Center(); ok {
		t.Error("expected a line contour to have no center")
	}
	if m := line.Moments(); m != (Moments{}) {
		t.Errorf("Moments() = %+v, want zero", m)
	}
}

func TestClosestPairNearCorners(t *testing.T) {
	a := square(0, 0, 10)
	b := square(12, 12, 10)

	ia, ib, d := ClosestPair(a, b)
	if a[ia] != image.Pt(10, 10) || b[ib] != image.Pt(12, 12) {
		t.Fatalf("closest pair = %v,%v; want (10,10),(12,12)", a[ia], b[ib])
	}
	for _, p := range a {
		for _, q := range b {
			if PixelDistance(p, q) < d {
				t.Fatalf("pair %v,%v is closer than reported %v", p, q, d)
			}
		}
	}
	if math.Abs(d-math.Sqrt(8)) > 1e-12 {
		t.Errorf("distance = %v, want sqrt(8)", d)
	}
}
