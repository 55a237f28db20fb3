package contour

import (
	"gocv.io/x/gocv"

	"cytocv/pkg/geometry"
)

// Area returns the OpenCV contour area of c. Empty contours have zero area.
func Area(c geometry.Contour) float64 {
	if len(c) == 0 {
		return 0
	}
	pv := gocv.NewPointVectorFromPoints(c)
	defer pv.Close()
	return gocv.ContourArea(pv)
}

// Areas returns the area of every contour.
func Areas(contours []geometry.Contour) []float64 {
	out := make([]float64, len(contours))
	for i, c := range contours {
		out[i] = Area(c)
	}
	return out
}

// traced is a contour list with each contour's area, measured once when the
// contours were traced.
type traced struct {
	contours []geometry.Contour
	areas    []float64
}

func newTraced(contours []geometry.Contour) traced {
	return traced{contours: contours, areas: Areas(contours)}
}

func (t traced) keep(ok func(area float64) bool) traced {
	var out traced
	for i, c := range t.contours {
		if ok(t.areas[i]) {
			out.contours = append(out.contours, c)
			out.areas = append(out.areas, t.areas[i])
		}
	}
	return out
}
