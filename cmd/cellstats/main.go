// Command cellstats runs contour detection and statistics on segmented cell
// crops and prints one JSON record per cell.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"

	"cytocv/internal/channel"
	"cytocv/internal/config"
	"cytocv/internal/logger"
	"cytocv/internal/pipeline"
	"cytocv/internal/stats"
	"cytocv/internal/validation"
	"cytocv/internal/version"
)

func main() {
	dir := flag.String("dir", "", "Output directory containing segmented/<cell>-<channel> crops")
	cellList := flag.String("cells", "", "Comma separated cell IDs (default: every cell found)")
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	pluginList := flag.String("plugins", "", "Comma separated plugin IDs (overrides config)")
	method := flag.String("method", "", "Dot method: current or legacy (overrides config)")
	workers := flag.Int("workers", 0, "Cells processed in parallel (overrides config)")
	debugDir := flag.String("debug-dir", "", "Write per-cell overlay PNGs here")
	listPlugins := flag.Bool("list-plugins", false, "List plugins with their channel requirements and exit")
	validate := flag.Bool("validate", false, "Check the configured channel layout against the selected plugins before processing")
	verbose := flag.Bool("verbose", false, "Debug logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("cellstats"))
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *pluginList != "" {
		cfg.Plugins.Enabled = splitList(*pluginList)
	}
	if *method != "" {
		cfg.Processing.DotMethod = *method
	}
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	if *debugDir != "" {
		cfg.Output.DebugDir = *debugDir
	}

	level := zerolog.InfoLevel
	if *verbose || cfg.Output.Verbose {
		level = zerolog.DebugLevel
	}
	log := logger.NewConsoleLogger(level)
	cfg.Normalize(log)

	reg := stats.DefaultRegistry()
	if *listPlugins {
		printPlugins(reg, cfg)
		return
	}

	if *validate {
		res := validation.CheckLayout(cfg.Channels, reg.Summary(selectedPlugins(reg, cfg)).RequiredChannels)
		if !res.Valid {
			if res.Err != "" {
				fmt.Fprintf(os.Stderr, "Channel layout rejected: %s\n", res.Err)
			} else {
				fmt.Fprintf(os.Stderr, "Channel layout is missing %s\n", channel.Join(res.Missing()))
			}
			os.Exit(1)
		}
		log.Info("cellstats", "channel layout valid", map[string]interface{}{"layers": res.LayerCount})
		if *dir == "" {
			return
		}
	}

	if *dir == "" {
		fmt.Println("Usage: cellstats -dir <output dir> [-cells a,b] [-config cfg.yaml] [-plugins GFPDot,...] [-workers N] [-debug-dir dir] [-validate]")
		os.Exit(1)
	}

	opts, err := pipeline.FromConfig(cfg, reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	loader := channel.NewDirLoader()
	ids := splitList(*cellList)
	if len(ids) == 0 {
		ids, err = loader.Cells(*dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to find cells: %v\n", err)
			os.Exit(1)
		}
	}
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "No cells found in %s\n", *dir)
		os.Exit(1)
	}

	cells := make([]pipeline.Cell, len(ids))
	for i, id := range ids {
		cells[i] = pipeline.Cell{ID: id, OutputDir: *dir}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("cellstats", "processing cells", map[string]interface{}{
		"cells":   len(cells),
		"method":  opts.Detect.Method.String(),
		"plugins": len(opts.Plugins),
		"workers": cfg.Processing.Workers,
	})
	results := pipeline.New(loader, opts, log).RunCells(ctx, cells, cfg.Processing.Workers)

	enc := json.NewEncoder(os.Stdout)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if err := enc.Encode(r.Record); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write record %s: %v\n", r.CellID, err)
			os.Exit(1)
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d cells failed\n", failed, len(results))
		os.Exit(2)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// selectedPlugins returns the enabled plugin IDs, or every registered plugin
// when none are configured.
func selectedPlugins(reg *stats.Registry, cfg *config.Config) []string {
	if len(cfg.Plugins.Enabled) > 0 {
		return cfg.Plugins.Enabled
	}
	var ids []string
	for _, d := range reg.Definitions() {
		ids = append(ids, d.ID)
	}
	return ids
}

func printPlugins(reg *stats.Registry, cfg *config.Config) {
	layout := channel.Normalize(cfg.Channels)
	selected := selectedPlugins(reg, cfg)
	for _, d := range reg.Definitions() {
		fmt.Printf("%-22s %s\n", d.ID, d.Label)
		fmt.Printf("  %s\n", d.Description)
		fmt.Printf("  channels: %s\n", channel.Join(d.RequiredChannels))
	}

	summary := reg.Summary(selected)
	fmt.Printf("\nSelected: %s\n", strings.Join(summary.SelectedPlugins, ", "))
	fmt.Println("Required channels:")
	for _, n := range summary.RequiredChannels {
		layer := "?"
		if idx, ok := layout.Index(n); ok {
			layer = fmt.Sprint(idx)
		}
		fmt.Printf("  %-8s layer %-2s needed by %s\n", n, layer, strings.Join(summary.RequiredSources[n], ", "))
	}
}
