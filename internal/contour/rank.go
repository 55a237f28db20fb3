package contour

import (
	"sort"

	"cytocv/pkg/geometry"
)

// ShortlistSize is the number of boundary candidates kept per contour set.
const ShortlistSize = 2

// Largest returns the indices of up to two contours with the greatest area,
// largest first. Equal areas keep detection order. Empty contours are never
// selected.
func Largest(contours []geometry.Contour) []int {
	return rank(contours, Areas(contours))
}

// rank shortlists contours by precomputed areas.
func rank(contours []geometry.Contour, areas []float64) []int {
	idx := make([]int, 0, len(contours))
	for i, c := range contours {
		if len(c) == 0 || i >= len(areas) {
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return areas[idx[a]] > areas[idx[b]]
	})
	if len(idx) > ShortlistSize {
		idx = idx[:ShortlistSize]
	}
	return idx
}

// Select returns the contours at the given indices, skipping indices out of range.
func Select(contours []geometry.Contour, best []int) []geometry.Contour {
	out := make([]geometry.Contour, 0, len(best))
	for _, i := range best {
		if i >= 0 && i < len(contours) {
			out = append(out, contours[i])
		}
	}
	return out
}

// selectAreas returns the areas at the given indices, matching Select.
func selectAreas(areas []float64, best []int) []float64 {
	out := make([]float64, 0, len(best))
	for _, i := range best {
		if i >= 0 && i < len(areas) {
			out = append(out, areas[i])
		}
	}
	return out
}
