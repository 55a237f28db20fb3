package stats

import (
	"image"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/spatial/r2"

	"cytocv/internal/logger"
	"cytocv/pkg/colorutil"
	"cytocv/pkg/geometry"
)

// GFP dot categories.
const (
	CategoryBothAttached    = 1 // a green dot near each red dot
	CategoryOneAttached     = 2 // one green dot near one red dot
	CategoryBothOnOne       = 3 // two green dots near the same red dot
	CategoryUnclassified    = 4
	defaultGFPDistance      = 37
	collinearTolerance      = 50
	biorientationSingle     = 1
	biorientationMultiple   = 2
	biorientationNone       = 0
	minRedDotsForGFPDotStat = 2
)

// GFPDot classifies green dots relative to the first two red dots. When the
// red dots are far apart it counts green centers near each one; otherwise it
// counts green centers lying on the segment between them.
type GFPDot struct{}

func (GFPDot) ID() string { return "GFPDot" }

func (GFPDot) Fields() []Field {
	return []Field{FieldCategoryGFPDot, FieldBiorientation, FieldRedDotDistance, FieldGFPDotCount}
}

func (GFPDot) Fallback() Patch {
	return Patch{FieldCategoryGFPDot: CategoryUnclassified, FieldBiorientation: biorientationNone}
}

func (g GFPDot) Compute(in *Input) (Patch, error) {
	comp := component + "." + g.ID()
	log := logger.OrNop(in.Log)

	c1, c2, ok := redPair(in, comp)
	if !ok {
		return g.Fallback(), nil
	}
	red := []image.Point{c1, c2}

	greens := centers(in.Contours.ContoursGFP, log, comp)
	d := geometry.PixelDistance(c1, c2)

	patch := Patch{
		FieldRedDotDistance: d,
		FieldGFPDotCount:    float64(len(greens)),
	}

	limit := in.Params.GFPDistance
	if limit < 0 {
		limit = defaultGFPDistance
	}

	if d > limit {
		radius := in.Params.ProximityRadius
		counts := make([]int, len(red))
		for i, rc := range red {
			for _, gc := range greens {
				if geometry.PixelDistance(rc, gc) <= radius {
					counts[i]++
				}
			}
		}
		drawProximity(in, red, radius)
		patch[FieldCategoryGFPDot] = float64(category(counts[0], counts[1]))
		return patch, nil
	}

	between := 0
	for _, gc := range greens {
		if pointBetween(gc, c1, c2, collinearTolerance) {
			between++
		}
	}
	switch {
	case between == 1:
		patch[FieldBiorientation] = biorientationSingle
	case between > 1:
		patch[FieldBiorientation] = biorientationMultiple
	default:
		patch[FieldBiorientation] = biorientationNone
	}
	return patch, nil
}

// category maps green-dot counts near the two red dots to a GFP dot category.
func category(n1, n2 int) int {
	switch {
	case n1 >= 1 && n2 >= 1:
		return CategoryBothAttached
	case (n1 == 1 && n2 == 0) || (n1 == 0 && n2 == 1):
		return CategoryOneAttached
	case (n1 == 2 && n2 == 0) || (n1 == 0 && n2 == 2):
		return CategoryBothOnOne
	default:
		return CategoryUnclassified
	}
}

// pointBetween reports whether p is within eps of collinear with e1 and e2
// (by the cross product) and projects onto the closed segment between them.
func pointBetween(p, e1, e2 image.Point, eps float64) bool {
	a := geometry.FromPoint(e1).Vec()
	axis := r2.Sub(geometry.FromPoint(e2).Vec(), a)
	v := r2.Sub(geometry.FromPoint(p).Vec(), a)

	if math.Abs(r2.Cross(v, axis)) > eps {
		return false
	}
	dot := r2.Dot(v, axis)
	return dot >= 0 && dot <= r2.Norm2(axis)
}

func drawProximity(in *Input, red []image.Point, radius float64) {
	if in.Debug == nil || in.Debug.Empty() {
		return
	}
	width := in.Params.MCherryLineWidth
	if width < 1 {
		width = 1
	}
	for _, c := range red {
		gocv.Circle(in.Debug, c, int(radius), colorutil.White, width)
	}
}
