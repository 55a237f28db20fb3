package stats

import (
	"fmt"

	"gocv.io/x/gocv"

	"cytocv/internal/contour"
	"cytocv/internal/logger"
	"cytocv/internal/preprocess"
	"cytocv/pkg/geometry"
)

const component = "stats"

// Params tunes the statistics plugins.
type Params struct {
	// GFPDistance is the red dot separation (pixels) above which GFPDot
	// classifies proximity instead of biorientation. Negative means default.
	GFPDistance float64

	// ProximityRadius is the radius (pixels) within which a green center
	// counts as attached to a red center.
	ProximityRadius float64

	// MCherryLineWidth is the stroke width for line sampling and debug circles.
	MCherryLineWidth int
}

// DefaultParams returns the default plugin parameters.
func DefaultParams() Params {
	return Params{
		GFPDistance:      37,
		ProximityRadius:  13,
		MCherryLineWidth: 1,
	}
}

// WithGFPDistance returns a copy of params with a custom red dot separation limit.
func (p Params) WithGFPDistance(d float64) Params {
	p.GFPDistance = d
	return p
}

// WithProximityRadius returns a copy of params with a custom proximity radius.
func (p Params) WithProximityRadius(r float64) Params {
	p.ProximityRadius = r
	return p
}

// Input is everything a plugin may read for one cell.
type Input struct {
	CellID   string
	Gray     *preprocess.GrayImageSet
	Contours *contour.Bundle

	// Cell is the merged coarse boundary; nil means the whole crop.
	Cell geometry.Contour
	// Nucleus is the merged coarse DAPI contour, or nil.
	Nucleus geometry.Contour

	Params Params

	// Debug is an optional 3-channel canvas plugins may annotate.
	Debug *gocv.Mat

	Log logger.Logger
}

// Plugin computes a fixed set of record fields for a cell.
type Plugin interface {
	ID() string
	Fields() []Field
	Compute(in *Input) (Patch, error)
	// Fallback is applied when Compute fails.
	Fallback() Patch
}

// Run computes every plugin in order and applies the results to rec. A
// plugin that errors or panics is logged and its fallback applied instead;
// it never stops the remaining plugins.
func Run(plugins []Plugin, in *Input, rec *Record) {
	log := logger.OrNop(in.Log)
	for _, p := range plugins {
		patch, err := compute(p, in)
		if err != nil {
			log.Error(component+"."+p.ID(), err, map[string]interface{}{"cell": in.CellID})
			patch = p.Fallback()
		}
		if err := rec.Apply(p.ID(), p.Fields(), patch); err != nil {
			log.Error(component+"."+p.ID(), err, map[string]interface{}{"cell": in.CellID})
			if err := rec.Apply(p.ID(), p.Fields(), p.Fallback()); err != nil {
				log.Error(component+"."+p.ID(), err, map[string]interface{}{"cell": in.CellID})
			}
		}
	}
}

func compute(p Plugin, in *Input) (patch Patch, err error) {
	defer func() {
		if r := recover(); r != nil {
			patch = nil
			err = fmt.Errorf("plugin %s panicked: %v", p.ID(), r)
		}
	}()
	return p.Compute(in)
}

// zeroPatch returns a patch setting every field to zero.
func zeroPatch(fields []Field) Patch {
	p := make(Patch, len(fields))
	for _, f := range fields {
		p[f] = 0
	}
	return p
}
