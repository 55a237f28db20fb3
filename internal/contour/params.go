package contour

// Params tunes contour detection.
type Params struct {
	Method Method

	// LegacyGFPOtsuBias is subtracted from the computed Otsu threshold on the
	// GFP derivative before binarization. Positive values make the legacy
	// detector more sensitive.
	LegacyGFPOtsuBias float64

	// Legacy GFP candidates smaller than LegacyGFPMinArea are dropped and at
	// most LegacyGFPMaxCount of the largest are kept. Zero disables a limit.
	LegacyGFPMinArea  float64
	LegacyGFPMaxCount int
}

// DefaultParams returns the default detection parameters.
func DefaultParams() Params {
	return Params{
		Method:            MethodCurrent,
		LegacyGFPOtsuBias: 0,
		LegacyGFPMinArea:  14,
		LegacyGFPMaxCount: 8,
	}
}

// WithMethod returns a copy of params using method.
func (p Params) WithMethod(method Method) Params {
	p.Method = method
	return p
}

// WithLegacyGFP returns a copy of params with custom legacy GFP tuning.
func (p Params) WithLegacyGFP(bias, minArea float64, maxCount int) Params {
	p.LegacyGFPOtsuBias = bias
	p.LegacyGFPMinArea = minArea
	p.LegacyGFPMaxCount = maxCount
	return p
}
