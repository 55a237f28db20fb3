package stats

import (
	"cytocv/internal/logger"
	"cytocv/internal/preprocess"
	"cytocv/pkg/geometry"
)

// MCherryLine measures the distance between the first two red dots and the
// GFP signal along the line joining them.
type MCherryLine struct{}

func (MCherryLine) ID() string { return "MCherryLine" }

func (MCherryLine) Fields() []Field {
	return []Field{FieldDistance, FieldLineGFPIntensity, FieldMCherryLineGFPIntensity}
}

func (m MCherryLine) Fallback() Patch { return zeroPatch(m.Fields()) }

func (m MCherryLine) Compute(in *Input) (Patch, error) {
	green, err := source(in, preprocess.KeyGFPNoBG)
	if err != nil {
		return nil, err
	}

	comp := component + "." + m.ID()
	c1, c2, ok := redPair(in, comp)
	if !ok {
		logger.OrNop(in.Log).Debug(comp, "no red dot pair", map[string]interface{}{"cell": in.CellID})
		return m.Fallback(), nil
	}

	width := in.Params.MCherryLineWidth
	if width < 1 {
		width = 1
	}
	mask := lineMask(green.Cols(), green.Rows(), c1, c2, width)
	defer mask.Close()

	sum, n, err := maskedSum(green, mask)
	if err != nil {
		return nil, err
	}
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	return Patch{
		FieldDistance:                geometry.PixelDistance(c1, c2),
		FieldLineGFPIntensity:        sum,
		FieldMCherryLineGFPIntensity: mean,
	}, nil
}
