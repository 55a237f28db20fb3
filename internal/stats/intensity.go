package stats

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"cytocv/internal/contour"
	"cytocv/internal/preprocess"
	"cytocv/pkg/geometry"
)

// maxDotStats is the number of red dots the per-dot intensity plugins report.
const maxDotStats = 3

var errNoImage = errors.New("derivative image not available")

func source(in *Input, key string) (gocv.Mat, error) {
	m, ok := in.Gray.Get(key)
	if !ok {
		return gocv.Mat{}, fmt.Errorf("%s: %w", key, errNoImage)
	}
	return m, nil
}

func dotContours(in *Input) []geometry.Contour {
	if in.Contours == nil {
		return nil
	}
	return in.Contours.Dots
}

// dotArea returns the traced area of red dot i, measuring it when the
// bundle carries no areas.
func dotArea(in *Input, i int) float64 {
	if areas := in.Contours.DotAreas; i < len(areas) {
		return areas[i]
	}
	return contour.Area(in.Contours.Dots[i])
}

// regions measures src inside the nucleus and inside the cell region.
type regions struct {
	nucleus, cell          float64
	nucleusPts, cellPoints int
}

func measureRegions(in *Input, src gocv.Mat) (regions, error) {
	var r regions
	var err error
	if len(in.Nucleus) > 0 {
		if r.nucleus, r.nucleusPts, err = regionSum(src, in.Nucleus); err != nil {
			return r, err
		}
	}
	if r.cell, r.cellPoints, err = regionSum(src, in.Cell); err != nil {
		return r, err
	}
	return r, nil
}

// NucleusIntensity measures GFP inside the nucleus and the whole cell.
type NucleusIntensity struct{}

func (NucleusIntensity) ID() string { return "NucleusIntensity" }

func (NucleusIntensity) Fields() []Field {
	return []Field{
		FieldNucleusIntensitySum, FieldCellularIntensitySum, FieldCytoplasmicIntensity,
		FieldBlueContourSize, FieldNucleusTotalPoints, FieldCellTotalPoints, FieldNucleiCount,
	}
}

func (n NucleusIntensity) Fallback() Patch { return zeroPatch(n.Fields()) }

func (NucleusIntensity) Compute(in *Input) (Patch, error) {
	src, err := source(in, preprocess.KeyGFPNoBG)
	if err != nil {
		return nil, err
	}
	r, err := measureRegions(in, src)
	if err != nil {
		return nil, err
	}
	nuclei := 0
	if in.Contours != nil {
		nuclei = len(in.Contours.ContoursDAPI3)
	}
	return Patch{
		FieldNucleusIntensitySum:  r.nucleus,
		FieldCellularIntensitySum: r.cell,
		FieldCytoplasmicIntensity: r.cell - r.nucleus,
		FieldBlueContourSize:      contour.Area(in.Nucleus),
		FieldNucleusTotalPoints:   float64(r.nucleusPts),
		FieldCellTotalPoints:      float64(r.cellPoints),
		FieldNucleiCount:          float64(nuclei),
	}, nil
}

// DAPINucleusIntensity measures DAPI inside the nucleus and the whole cell.
type DAPINucleusIntensity struct{}

func (DAPINucleusIntensity) ID() string { return "DAPI_NucleusIntensity" }

func (DAPINucleusIntensity) Fields() []Field {
	return []Field{FieldNucleusIntensitySumDAPI, FieldCellularIntensitySumDAPI, FieldCytoplasmicIntensityDAPI}
}

func (d DAPINucleusIntensity) Fallback() Patch { return zeroPatch(d.Fields()) }

func (DAPINucleusIntensity) Compute(in *Input) (Patch, error) {
	src, err := source(in, preprocess.KeyDAPIFine)
	if err != nil {
		return nil, err
	}
	r, err := measureRegions(in, src)
	if err != nil {
		return nil, err
	}
	return Patch{
		FieldNucleusIntensitySumDAPI:  r.nucleus,
		FieldCellularIntensitySumDAPI: r.cell,
		FieldCytoplasmicIntensityDAPI: r.cell - r.nucleus,
	}, nil
}

// GreenRedIntensity measures red and green intensity inside each of the
// first three red dots.
type GreenRedIntensity struct{}

func (GreenRedIntensity) ID() string { return "GreenRedIntensity" }

func (GreenRedIntensity) Fields() []Field {
	var out []Field
	for i := 1; i <= maxDotStats; i++ {
		out = append(out, FieldRedContourSize(i), FieldRedIntensity(i), FieldGreenIntensity(i), FieldGreenRedIntensity(i))
	}
	return out
}

func (g GreenRedIntensity) Fallback() Patch { return zeroPatch(g.Fields()) }

func (g GreenRedIntensity) Compute(in *Input) (Patch, error) {
	red, err := source(in, preprocess.KeyMCherryFine)
	if err != nil {
		return nil, err
	}
	green, err := source(in, preprocess.KeyGFPNoBG)
	if err != nil {
		return nil, err
	}

	patch := g.Fallback()
	for i, dot := range dotContours(in) {
		if i >= maxDotStats {
			break
		}
		n := i + 1
		r, _, err := regionSum(red, dot)
		if err != nil {
			return nil, err
		}
		gr, _, err := regionSum(green, dot)
		if err != nil {
			return nil, err
		}
		patch[FieldRedContourSize(n)] = dotArea(in, i)
		patch[FieldRedIntensity(n)] = r
		patch[FieldGreenIntensity(n)] = gr
		if r != 0 {
			patch[FieldGreenRedIntensity(n)] = gr / r
		}
	}
	return patch, nil
}

// RedBlueIntensity measures DAPI intensity inside each of the first three red dots.
type RedBlueIntensity struct{}

func (RedBlueIntensity) ID() string { return "RedBlueIntensity" }

func (RedBlueIntensity) Fields() []Field {
	out := make([]Field, 0, maxDotStats)
	for i := 1; i <= maxDotStats; i++ {
		out = append(out, FieldRedBlueIntensity(i))
	}
	return out
}

func (r RedBlueIntensity) Fallback() Patch { return zeroPatch(r.Fields()) }

func (r RedBlueIntensity) Compute(in *Input) (Patch, error) {
	blue, err := source(in, preprocess.KeyDAPIFine)
	if err != nil {
		return nil, err
	}
	patch := r.Fallback()
	for i, dot := range dotContours(in) {
		if i >= maxDotStats {
			break
		}
		sum, _, err := regionSum(blue, dot)
		if err != nil {
			return nil, err
		}
		patch[FieldRedBlueIntensity(i+1)] = sum
	}
	return patch, nil
}
