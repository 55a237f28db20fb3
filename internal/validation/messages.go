package validation

import (
	"fmt"
	"strings"

	"cytocv/internal/channel"
)

// ErrorMessages builds user-facing messages for failed files, grouped by
// failure kind. Files missing the same channel set share one line.
func ErrorMessages(failures []Failure, opts Options) []string {
	var invalid, layers []string

	type group struct {
		files []string
		label string
	}
	var groups []*group
	byKey := map[string]*group{}
	var required []channel.Name

	for _, f := range failures {
		r := f.Result
		if r.Err != "" {
			invalid = append(invalid, fmt.Sprintf("- %s is %s", f, r.Err))
			continue
		}

		if opts.EnforceLayerCount && r.LayerCount >= 0 && r.LayerCount != ExpectedLayerCount {
			suffix := "s"
			if r.LayerCount == 1 {
				suffix = ""
			}
			layers = append(layers, fmt.Sprintf("- %s has %d layer%s (expected %d)", f, r.LayerCount, suffix, ExpectedLayerCount))
			continue
		}

		if len(r.MissingChannels) == 0 {
			continue
		}
		req := r.RequiredChannels
		if len(req) == 0 {
			req = EffectiveRequiredChannels(opts)
		}
		if required == nil {
			required = channel.Sorted(req)
		}

		missing := r.Missing()
		label := "missing " + channel.Join(missing)
		if len(req) > 1 && len(missing) == len(req) {
			label = "missing all required wavelengths"
		}
		g, ok := byKey[label]
		if !ok {
			g = &group{label: label}
			byKey[label] = g
			groups = append(groups, g)
		}
		g.files = append(g.files, f.String())
	}

	var wavelengths []string
	if len(groups) > 0 {
		wavelengths = append(wavelengths, fmt.Sprintf("The following wavelengths are required: %s.", channel.Join(required)))
		for _, g := range groups {
			wavelengths = append(wavelengths, fmt.Sprintf("- %s: %s", strings.Join(g.files, ", "), g.label))
		}
	}

	var messages []string
	appendSection := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		if len(messages) > 0 {
			messages = append(messages, "")
		}
		messages = append(messages, title)
		messages = append(messages, items...)
	}

	appendSection("Could not process the following files because they are not recognized DV files:", invalid)
	appendSection(fmt.Sprintf("Could not process the following files due to invalid layer counts (expected %d layers):", ExpectedLayerCount), layers)
	appendSection("Could not process the following files due to missing required wavelengths:", wavelengths)

	return messages
}
