// Package channel names the microscope channels and loads per-cell channel images.
package channel

import (
	"math"
	"sort"
	"strings"
)

// Name identifies a fluorescence or transmitted-light channel.
type Name string

const (
	DIC     Name = "DIC"
	DAPI    Name = "DAPI"
	MCherry Name = "mCherry"
	GFP     Name = "GFP"
)

// Order is the canonical channel ordering used for sorting and messages.
var Order = []Name{DIC, DAPI, MCherry, GFP}

// Description explains what each channel is used for.
var Description = map[Name]string{
	DIC:     "Differential Interference Contrast channel used for segmentation/CNN preprocessing.",
	DAPI:    "Blue fluorescence channel used for nucleus-related contours and intensity metrics.",
	MCherry: "Red fluorescence channel used for spindle pole body/dot contour detection.",
	GFP:     "Green fluorescence channel used for GFP intensity and GFP-dot related measurements.",
}

// Config maps a channel to its layer index inside a multi-layer image file.
type Config map[Name]int

// DefaultConfig returns the layer layout used when a file carries no mapping.
func DefaultConfig() Config {
	return Config{
		MCherry: 3,
		GFP:     2,
		DAPI:    1,
		DIC:     0,
	}
}

// Index returns the layer index for the channel.
func (c Config) Index(n Name) (int, bool) {
	idx, ok := c[n]
	return idx, ok
}

// rank returns the sort position of a channel; unknown names sort last.
func rank(n Name) int {
	for i, o := range Order {
		if o == n {
			return i
		}
	}
	return len(Order)
}

// Sort orders names by the canonical channel order, unknown names last
// in lexical order.
func Sort(names []Name) {
	sort.SliceStable(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
}

// Sorted returns the members of set in canonical order.
func Sorted(set map[Name]bool) []Name {
	out := make([]Name, 0, len(set))
	for n, ok := range set {
		if ok {
			out = append(out, n)
		}
	}
	Sort(out)
	return out
}

// Join renders names as a comma separated list.
func Join(names []Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// Canonical maps a channel label and/or emission wavelength (nm) to a
// canonical channel name. The wavelength wins when it matches a known band;
// DIC is frequently encoded as a negative or tiny positive wavelength.
// Unrecognized labels are returned trimmed and unchanged.
func Canonical(label string, wavelength *float64) Name {
	if wavelength != nil {
		wl := *wavelength
		switch {
		case math.Abs(wl-625) < 12:
			return MCherry
		case math.Abs(wl-525) < 12:
			return GFP
		case math.Abs(wl-435) < 12:
			return DAPI
		case wl < 0 || (wl >= 1 && wl < 200):
			return DIC
		}
	}

	name := strings.TrimSpace(label)
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	compact := b.String()

	switch {
	case strings.Contains(compact, "dic") || strings.Contains(compact, "brightfield") ||
		strings.Contains(compact, "transmission") || compact == "bf":
		return DIC
	case strings.Contains(compact, "dapi") || strings.Contains(compact, "hoechst"):
		return DAPI
	case strings.Contains(compact, "gfp"):
		return GFP
	case strings.Contains(compact, "mcherry") || strings.Contains(compact, "cherry"):
		return MCherry
	}
	return Name(name)
}

// ConfigFromWavelengths builds a channel mapping from per-layer emission
// wavelengths in file order. Layers that map to no known channel are skipped.
func ConfigFromWavelengths(waves []float64) Config {
	cfg := Config{}
	for idx := range waves {
		wl := waves[idx]
		n := Canonical("", &wl)
		if rank(n) < len(Order) {
			cfg[n] = idx
		}
	}
	return cfg
}

// Normalize rewrites a raw label → index mapping onto canonical channel
// names. When two labels collapse onto one channel the first in sorted label
// order wins so the result does not depend on map iteration.
func Normalize(raw map[string]int) Config {
	labels := make([]string, 0, len(raw))
	for l := range raw {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	cfg := Config{}
	for _, l := range labels {
		n := Canonical(l, nil)
		if _, seen := cfg[n]; !seen {
			cfg[n] = raw[l]
		}
	}
	return cfg
}
