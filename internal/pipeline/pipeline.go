// Package pipeline runs the per-cell analysis: grayscale derivatives,
// contour detection, merging and statistics.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"cytocv/internal/channel"
	"cytocv/internal/config"
	"cytocv/internal/contour"
	"cytocv/internal/logger"
	"cytocv/internal/preprocess"
	"cytocv/internal/stats"
	"cytocv/pkg/geometry"
)

const component = "pipeline"

// Options configures a Processor.
type Options struct {
	KernelSize      int
	KernelDeviation float64

	Detect contour.Params
	Stats  stats.Params

	// Plugins run in order for every cell.
	Plugins []stats.Plugin

	// DebugDir receives one overlay PNG per cell when non-empty.
	DebugDir string
}

// DefaultOptions returns options running every registered plugin with
// default tuning.
func DefaultOptions() Options {
	plugins, err := stats.DefaultRegistry().Build(nil)
	if err != nil {
		panic(err)
	}
	return Options{
		KernelSize:      config.DefaultKernelSize,
		KernelDeviation: config.DefaultKernelDeviation,
		Detect:          contour.DefaultParams(),
		Stats:           stats.DefaultParams(),
		Plugins:         plugins,
	}
}

// FromConfig builds options from a normalized configuration. A nil registry
// uses the default plugin table.
func FromConfig(cfg *config.Config, reg *stats.Registry) (Options, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if reg == nil {
		reg = stats.DefaultRegistry()
	}
	plugins, err := reg.Build(cfg.Plugins.Enabled)
	if err != nil {
		return Options{}, fmt.Errorf("failed to build plugins: %w", err)
	}

	pr := cfg.Processing
	return Options{
		KernelSize:      pr.KernelSize,
		KernelDeviation: pr.KernelDeviation,
		Detect: contour.DefaultParams().
			WithMethod(contour.ParseMethod(pr.DotMethod)).
			WithLegacyGFP(pr.LegacyGFPOtsuBias, float64(pr.LegacyGFPMinArea), pr.LegacyGFPMaxCount),
		Stats: stats.Params{
			GFPDistance:      pr.GFPDistance,
			ProximityRadius:  pr.GFPProximityRadius,
			MCherryLineWidth: pr.MCherryLineWidth,
		},
		Plugins:  plugins,
		DebugDir: cfg.Output.DebugDir,
	}, nil
}

// Result is the outcome of analysing one cell.
type Result struct {
	CellID string
	Record *stats.Record

	// Merged is the cell boundary, MergedMCherry the fine mCherry boundary
	// and MergedDAPI the nucleus. Each may be nil.
	Merged        geometry.Contour
	MergedMCherry geometry.Contour
	MergedDAPI    geometry.Contour

	Bundle *contour.Bundle

	// DebugPath is the written overlay, or "".
	DebugPath string

	// Err is set by RunCells when the cell could not be processed.
	Err error
}

// Processor analyses cells. It holds no per-cell state and is safe for
// concurrent use.
type Processor struct {
	loader channel.Loader
	opts   Options
	log    logger.Logger
}

// New returns a Processor reading channels through loader.
func New(loader channel.Loader, opts Options, log logger.Logger) *Processor {
	return &Processor{
		loader: loader,
		opts:   opts,
		log:    logger.OrNop(log),
	}
}

// Process loads the channels of cellID from outputDir and analyses them.
// Missing channels are not an error; their statistics fall back to defaults.
func (p *Processor) Process(cellID, outputDir string) (*Result, error) {
	if p.loader == nil {
		return nil, fmt.Errorf("no channel loader configured")
	}
	mats, err := p.loader.Load(cellID, outputDir, channel.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to load cell %s: %w", cellID, err)
	}
	defer channel.CloseAll(mats)

	return p.ProcessChannels(cellID, mats)
}

// ProcessChannels analyses already loaded channel images. The mats are not
// modified or closed.
func (p *Processor) ProcessChannels(cellID string, mats map[channel.Name]gocv.Mat) (*Result, error) {
	log := logger.ForCell(p.log, cellID)
	gray, err := preprocess.ToGray(mats, p.opts.KernelSize, p.opts.KernelDeviation, log)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess cell %s: %w", cellID, err)
	}
	defer gray.Close()

	bundle := contour.Detect(gray, p.opts.Detect, log)
	res := &Result{
		CellID:        cellID,
		Record:        stats.NewRecord(cellID),
		Merged:        contour.Merge(bundle.Best, bundle.Contours),
		MergedMCherry: contour.Merge(bundle.BestMCherry, bundle.ContoursMCherry),
		MergedDAPI:    contour.Merge(bundle.BestDAPI, bundle.ContoursDAPI),
		Bundle:        bundle,
	}

	var debug *gocv.Mat
	if p.opts.DebugDir != "" {
		if canvas, ok := debugCanvas(gray); ok {
			defer canvas.Close()
			debug = &canvas
		}
	}

	in := &stats.Input{
		CellID:   cellID,
		Gray:     gray,
		Contours: bundle,
		Cell:     res.Merged,
		Nucleus:  res.MergedDAPI,
		Params:   p.opts.Stats,
		Debug:    debug,
		Log:      log,
	}
	stats.Run(p.opts.Plugins, in, res.Record)

	if debug != nil {
		path, err := writeOverlay(p.opts.DebugDir, res, debug)
		if err != nil {
			log.Error(component, err, nil)
		} else {
			res.DebugPath = path
		}
	}

	log.Debug(component, "cell processed", map[string]interface{}{
		"method":   bundle.Method.String(),
		"dots":     len(bundle.Dots),
		"gfp":      len(bundle.ContoursGFP),
		"category": res.Record.CategoryGFPDot(),
	})
	return res, nil
}

// Cell identifies one cell crop to process.
type Cell struct {
	ID        string
	OutputDir string
}

// RunCells processes cells with up to workers goroutines and returns one
// result per cell in input order. Failures are reported on Result.Err and
// never stop the batch. Cancelling ctx skips the cells not yet started.
func (p *Processor) RunCells(ctx context.Context, cells []Cell, workers int) []Result {
	results := make([]Result, len(cells))
	if len(cells) == 0 {
		return results
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(cells) {
		workers = len(cells)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.runCell(ctx, cells[i])
			}
		}()
	}
	for i := range cells {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	p.log.Info(component, "batch complete", map[string]interface{}{
		"cells":   len(cells),
		"failed":  failed,
		"workers": workers,
	})
	return results
}

func (p *Processor) runCell(ctx context.Context, c Cell) Result {
	if err := ctx.Err(); err != nil {
		return Result{CellID: c.ID, Err: err}
	}
	res, err := p.Process(c.ID, c.OutputDir)
	if err != nil {
		p.log.Error(component, err, map[string]interface{}{"cell": c.ID})
		return Result{CellID: c.ID, Err: err}
	}
	return *res
}
