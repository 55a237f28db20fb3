package contour

import "cytocv/pkg/geometry"

// Merge joins the shortlisted contours into one closed boundary.
//
// With no shortlist it returns nil and with one entry it returns that
// contour unchanged. With two entries A and B it splices B into A at the
// globally closest pair (i, j): A[0..i], then B from j around to j-1, then
// the rest of A. The result has len(A)+len(B) points and is not guaranteed
// to be a simple polygon.
func Merge(best []int, contours []geometry.Contour) geometry.Contour {
	picked := Select(contours, best)
	switch {
	case len(picked) == 0:
		return nil
	case len(picked) == 1 || len(picked[1]) == 0:
		return picked[0].Clone()
	case len(picked[0]) == 0:
		return picked[1].Clone()
	}

	a, b := picked[0], picked[1]
	i, j, _ := geometry.ClosestPair(a, b)

	merged := make(geometry.Contour, 0, len(a)+len(b))
	merged = append(merged, a[:i+1]...)
	for k := 0; k < len(b); k++ {
		merged = append(merged, b[(j+k)%len(b)])
	}
	merged = append(merged, a[i+1:]...)
	return merged
}
