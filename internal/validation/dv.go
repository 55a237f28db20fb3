// Package validation gates multi-layer microscopy files on their channel metadata
// before any per-cell analysis runs.
package validation

import (
	"fmt"

	"cytocv/internal/channel"
)

// ExpectedLayerCount is the number of layers a complete four-channel file carries.
const ExpectedLayerCount = 4

// errNotRecognized is the user-facing reason for unreadable files.
const errNotRecognized = "not a recognized DV file"

// MetadataReader exposes the header fields validation needs. Parsing the
// container format itself lives outside this module.
type MetadataReader interface {
	IsRecognized(path string) bool
	LayerCount(path string) (int, error)
	// ChannelConfig returns the raw channel label → layer index mapping.
	ChannelConfig(path string) (map[string]int, error)
}

// Options controls which metadata checks run before preprocessing.
type Options struct {
	EnforceLayerCount  bool
	EnforceWavelengths bool
	// RequiredChannels is the channel set the selected statistics need.
	// Empty means DIC only.
	RequiredChannels map[channel.Name]bool
}

// DefaultOptions enforces the full four-channel layout.
func DefaultOptions() Options {
	return Options{EnforceLayerCount: true, EnforceWavelengths: true}
}

// Result holds the validation outcome for one file.
type Result struct {
	Valid            bool
	LayerCount       int // -1 when unknown
	MissingChannels  map[channel.Name]bool
	RequiredChannels map[channel.Name]bool
	// Err is a user-facing reason for files that could not be read at all.
	Err string
	// Channels is the resolved canonical channel → layer mapping.
	Channels channel.Config
}

// Missing returns the missing channels in canonical order.
func (r Result) Missing() []channel.Name { return channel.Sorted(r.MissingChannels) }

// wavelengthCheck reports whether the full-wavelength requirement applies;
// it is only meaningful together with the layer-count check.
func wavelengthCheck(opts Options) bool {
	return opts.EnforceLayerCount && opts.EnforceWavelengths
}

// EffectiveRequiredChannels returns the channel set a file must provide.
func EffectiveRequiredChannels(opts Options) map[channel.Name]bool {
	out := map[channel.Name]bool{}
	if wavelengthCheck(opts) {
		for _, n := range channel.Order {
			out[n] = true
		}
		return out
	}
	for n, ok := range opts.RequiredChannels {
		if ok {
			out[n] = true
		}
	}
	if len(out) == 0 {
		out[channel.DIC] = true
	}
	return out
}

// Validate runs the metadata checks for one file.
func Validate(path string, opts Options, reader MetadataReader) Result {
	required := EffectiveRequiredChannels(opts)
	fail := func(layers int, reason string) Result {
		return Result{
			LayerCount:       layers,
			MissingChannels:  map[channel.Name]bool{},
			RequiredChannels: required,
			Err:              reason,
		}
	}

	if !reader.IsRecognized(path) {
		return fail(-1, errNotRecognized)
	}

	layers, err := reader.LayerCount(path)
	if err != nil {
		return fail(-1, errNotRecognized)
	}
	if opts.EnforceLayerCount && layers != ExpectedLayerCount {
		return fail(layers, "")
	}

	raw, err := reader.ChannelConfig(path)
	if err != nil {
		return fail(layers, errNotRecognized)
	}
	cfg := channel.Normalize(raw)

	missing := map[channel.Name]bool{}
	for n := range required {
		idx, ok := cfg.Index(n)
		if !ok || idx < 0 || idx >= layers {
			missing[n] = true
		}
	}

	return Result{
		Valid:            len(missing) == 0,
		LayerCount:       layers,
		MissingChannels:  missing,
		RequiredChannels: required,
		Channels:         cfg,
	}
}

// Failure pairs a file stem with its validation result.
type Failure struct {
	Name   string
	Result Result
}

func (f Failure) String() string {
	return fmt.Sprintf("%s.dv", f.Name)
}
