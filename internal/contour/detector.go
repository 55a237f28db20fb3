package contour

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"cytocv/internal/logger"
	"cytocv/internal/preprocess"
	"cytocv/pkg/geometry"
)

const component = "contour"

// Detection constants.
const (
	// MaxDotArea bounds red dot candidates; anything larger is a boundary.
	MaxDotArea = 100

	// Fine DAPI contours outside (MinNucleusArea, MaxNucleusArea) are dropped
	// by the current method.
	MinNucleusArea = 100
	MaxNucleusArea = 1000

	dotOtsuPivot = 0.65
)

// legacyOtsu is the threshold flag combination the legacy Otsu pipeline
// passes. OpenCV reads the low bit as an inverted binary threshold.
const legacyOtsu = gocv.ThresholdBinaryInv | gocv.ThresholdOtsu

// Bundle holds every contour set found for one cell.
type Bundle struct {
	Method Method

	// Each Areas slice parallels its contour list and holds the OpenCV
	// contour area measured when the contours were traced.

	// Coarse (ksize blur) and fine (3x3 blur) mCherry boundaries.
	Contours        []geometry.Contour
	Areas           []float64
	Best            []int
	ContoursMCherry []geometry.Contour
	AreasMCherry    []float64
	BestMCherry     []int

	// Coarse and fine DAPI nuclei.
	ContoursDAPI  []geometry.Contour
	AreasDAPI     []float64
	BestDAPI      []int
	ContoursDAPI3 []geometry.Contour
	AreasDAPI3    []float64
	BestDAPI3     []int

	// Dots are the red dot candidates in detection order.
	Dots     []geometry.Contour
	DotAreas []float64

	// ContoursGFP are all green contours; there is no shortlist.
	ContoursGFP []geometry.Contour
	AreasGFP    []float64

	// Provenance.
	LegacyGFPOtsuBias      float64
	LegacyGFPThreshold     float64
	LegacyGFPAdjusted      float64
	BoundaryOtsuFallback   bool
	LegacyDotsFromBoundary bool
}

// Detect finds all contour sets in gray. Derivatives missing from gray leave
// the matching sets empty; no contours is never an error.
func Detect(gray *preprocess.GrayImageSet, p Params, log logger.Logger) *Bundle {
	log = logger.OrNop(log)
	b := &Bundle{Method: p.Method}

	if p.Method == MethodLegacy {
		detectLegacy(gray, p, b)
	} else {
		detectCurrent(gray, b)
	}

	b.Best = rank(b.Contours, b.Areas)
	b.BestMCherry = rank(b.ContoursMCherry, b.AreasMCherry)
	b.BestDAPI = rank(b.ContoursDAPI, b.AreasDAPI)
	b.BestDAPI3 = rank(b.ContoursDAPI3, b.AreasDAPI3)

	if b.BoundaryOtsuFallback {
		log.Warning(component, "no edges in coarse mCherry, boundary taken from Otsu threshold", nil)
	}
	if p.Method == MethodLegacy && len(b.BestMCherry) > 0 {
		b.Dots = Select(b.ContoursMCherry, b.BestMCherry)
		b.DotAreas = selectAreas(b.AreasMCherry, b.BestMCherry)
		b.LegacyDotsFromBoundary = true
	}

	log.Debug(component, "contours detected", map[string]interface{}{
		"method":   p.Method.String(),
		"boundary": len(b.Contours),
		"mcherry":  len(b.ContoursMCherry),
		"dapi":     len(b.ContoursDAPI),
		"dapi3":    len(b.ContoursDAPI3),
		"dots":     len(b.Dots),
		"gfp":      len(b.ContoursGFP),
		"fallback": b.BoundaryOtsuFallback,
	})
	return b
}

func detectCurrent(gray *preprocess.GrayImageSet, b *Bundle) {
	fine, hasFine := gray.Get(preprocess.KeyMCherryFine)
	coarse, hasCoarse := gray.Get(preprocess.KeyMCherry)

	if hasFine {
		mask := gocv.NewMat()
		gocv.Threshold(fine, &mask, dotOtsuPivot, 1, gocv.ThresholdBinaryInv|gocv.ThresholdOtsu)
		b.Dots, b.DotAreas = unpack(filterArea(findContours(mask, gocv.RetrievalList), 0, MaxDotArea))
		mask.Close()
	}

	edgesFine := cannyOrEmpty(fine, hasFine, 50, 150)
	defer edgesFine.Close()
	edges := cannyOrEmpty(coarse, hasCoarse, 50, 150)
	defer edges.Close()

	if hasCoarse && gocv.CountNonZero(edges) == 0 {
		b.BoundaryOtsuFallback = true
		if hasFine {
			gocv.Threshold(fine, &edgesFine, 0, 1, legacyOtsu)
		}
		gocv.Threshold(coarse, &edges, 0, 1, legacyOtsu)
	}
	if hasCoarse {
		b.Contours, b.Areas = unpack(findContours(edges, gocv.RetrievalList))
	}
	if hasFine {
		b.ContoursMCherry, b.AreasMCherry = unpack(findContours(edgesFine, gocv.RetrievalList))
	}

	square := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer square.Close()
	if m, ok := gray.Get(preprocess.KeyDAPIFine); ok {
		b.ContoursDAPI3, b.AreasDAPI3 = unpack(filterArea(closedEdges(m, 60, 70, square, gocv.RetrievalExternal), MinNucleusArea, MaxNucleusArea))
	}
	if m, ok := gray.Get(preprocess.KeyDAPI); ok {
		b.ContoursDAPI, b.AreasDAPI = unpack(closedEdges(m, 60, 70, square, gocv.RetrievalExternal))
	}

	cross := gocv.GetStructuringElement(gocv.MorphCross, image.Pt(3, 3))
	defer cross.Close()
	if m, ok := gray.Get(preprocess.KeyGFP); ok {
		b.ContoursGFP, b.AreasGFP = unpack(closedEdges(m, 50, 150, cross, gocv.RetrievalList))
	}
}

func detectLegacy(gray *preprocess.GrayImageSet, p Params, b *Bundle) {
	if m, ok := gray.Get(preprocess.KeyMCherryFine); ok {
		fine := legacyContours(m)
		b.ContoursMCherry, b.AreasMCherry = unpack(fine)
		b.Dots, b.DotAreas = unpack(filterArea(fine, 0, MaxDotArea))
	}
	if m, ok := gray.Get(preprocess.KeyMCherry); ok {
		b.Contours, b.Areas = unpack(legacyContours(m))
	}
	if m, ok := gray.Get(preprocess.KeyDAPIFine); ok {
		b.ContoursDAPI3, b.AreasDAPI3 = unpack(legacyContours(m))
	}
	if m, ok := gray.Get(preprocess.KeyDAPI); ok {
		b.ContoursDAPI, b.AreasDAPI = unpack(legacyContours(m))
	}

	b.LegacyGFPOtsuBias = p.LegacyGFPOtsuBias
	if m, ok := gray.Get(preprocess.KeyGFP); ok {
		scratch := gocv.NewMat()
		otsu := float64(gocv.Threshold(m, &scratch, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu))
		scratch.Close()

		adjusted := math.Trunc(math.Max(0, math.Min(255, otsu-p.LegacyGFPOtsuBias)))
		b.LegacyGFPThreshold = otsu
		b.LegacyGFPAdjusted = adjusted

		mask := gocv.NewMat()
		gocv.Threshold(m, &mask, float32(adjusted), 1, gocv.ThresholdBinary)
		b.ContoursGFP, b.AreasGFP = unpack(limitLargest(filterMinArea(findContours(mask, gocv.RetrievalList), p.LegacyGFPMinArea), p.LegacyGFPMaxCount))
		mask.Close()
	}
}

// legacyContours thresholds with the legacy Otsu flags and lists every contour.
func legacyContours(src gocv.Mat) traced {
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(src, &mask, 0, 1, legacyOtsu)
	return findContours(mask, gocv.RetrievalList)
}

// closedEdges runs Canny, closes gaps with kernel and traces the result.
func closedEdges(src gocv.Mat, t1, t2 float32, kernel gocv.Mat, mode gocv.RetrievalMode) traced {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(src, &edges, t1, t2)
	gocv.MorphologyEx(edges, &edges, gocv.MorphClose, kernel)
	return findContours(edges, mode)
}

func cannyOrEmpty(src gocv.Mat, ok bool, t1, t2 float32) gocv.Mat {
	edges := gocv.NewMat()
	if ok {
		gocv.Canny(src, &edges, t1, t2)
	}
	return edges
}

// findContours traces mask and measures each contour with ContourArea.
func findContours(mask gocv.Mat, mode gocv.RetrievalMode) traced {
	if mask.Empty() {
		return traced{}
	}
	pv := gocv.FindContours(mask, mode, gocv.ChainApproxSimple)
	defer pv.Close()

	t := traced{
		contours: geometry.Contours(pv.ToPoints()),
		areas:    make([]float64, pv.Size()),
	}
	for i := range t.areas {
		t.areas[i] = gocv.ContourArea(pv.At(i))
	}
	return t
}

func unpack(t traced) ([]geometry.Contour, []float64) {
	return t.contours, t.areas
}

// filterArea keeps contours with lo < area < hi. A zero lo keeps
// everything below hi.
func filterArea(t traced, lo, hi float64) traced {
	return t.keep(func(a float64) bool {
		return a < hi && (lo == 0 || a > lo)
	})
}

func filterMinArea(t traced, lo float64) traced {
	if lo <= 0 {
		return t
	}
	return t.keep(func(a float64) bool { return a >= lo })
}

// limitLargest keeps the n largest contours in their original order.
func limitLargest(t traced, n int) traced {
	if n <= 0 || len(t.contours) <= n {
		return t
	}
	idx := make([]int, len(t.contours))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return t.areas[idx[a]] > t.areas[idx[b]]
	})
	keep := idx[:n]
	sort.Ints(keep)

	out := traced{
		contours: make([]geometry.Contour, 0, n),
		areas:    make([]float64, 0, n),
	}
	for _, i := range keep {
		out.contours = append(out.contours, t.contours[i])
		out.areas = append(out.areas, t.areas[i])
	}
	return out
}
