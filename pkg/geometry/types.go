// Package geometry provides the contour and point types shared by the analysis packages.
package geometry

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FromPoint converts an integer pixel coordinate to a Point2D.
func FromPoint(p image.Point) Point2D {
	return Point2D{X: float64(p.X), Y: float64(p.Y)}
}

// Vec returns the point as a gonum r2 vector.
func (p Point2D) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// PixelDistance returns the Euclidean distance between two pixel coordinates.
func PixelDistance(a, b image.Point) float64 {
	return FromPoint(a).Distance(FromPoint(b))
}

// Contour is an ordered sequence of pixel coordinates describing a closed
// polygon boundary, as produced by boundary tracing over a binary mask.
type Contour []image.Point

// Clone returns an independent copy of the contour.
func (c Contour) Clone() Contour {
	if c == nil {
		return nil
	}
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// Contours converts a slice of raw point slices into Contours.
func Contours(raw [][]image.Point) []Contour {
	out := make([]Contour, len(raw))
	for i, pts := range raw {
		out[i] = Contour(pts)
	}
	return out
}

// Points converts contours back into raw point slices, the form gocv drawing
// functions accept.
func Points(contours []Contour) [][]image.Point {
	out := make([][]image.Point, len(contours))
	for i, c := range contours {
		out[i] = []image.Point(c)
	}
	return out
}
