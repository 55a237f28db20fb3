package stats

import (
	"errors"
	"fmt"

	"cytocv/internal/channel"
)

// ErrUnknownPlugin is returned for plugin IDs that are not registered.
var ErrUnknownPlugin = errors.New("unknown statistics plugin")

// SegmentationRequirement labels channels required by segmentation rather
// than by a plugin.
const SegmentationRequirement = "Segmentation/CNN"

// AlwaysRequired lists the channels every run needs.
var AlwaysRequired = []channel.Name{channel.DIC}

// Definition describes a registered plugin.
type Definition struct {
	ID               string
	Label            string
	Description      string
	RequiredChannels []channel.Name
	RequiredPlugins  []string
	New              func() Plugin
}

// definitions is the plugin table in display and execution order.
var definitions = []Definition{
	{
		ID:               "MCherryLine",
		Label:            "MCherry Line Intensity",
		Description:      "Draws a line between red dot centers and measures GFP intensity along that line.",
		RequiredChannels: []channel.Name{channel.MCherry, channel.GFP},
		New:              func() Plugin { return MCherryLine{} },
	},
	{
		ID:               "GFPDot",
		Label:            "GFP Dot Classification",
		Description:      "Classifies GFP-dot category/biorientation relative to paired red dots.",
		RequiredChannels: []channel.Name{channel.MCherry, channel.GFP},
		New:              func() Plugin { return GFPDot{} },
	},
	{
		ID:               "GreenRedIntensity",
		Label:            "Green/Red Intensity Ratio",
		Description:      "Computes GFP-to-mCherry intensity ratios around detected red dots.",
		RequiredChannels: []channel.Name{channel.MCherry, channel.GFP},
		New:              func() Plugin { return GreenRedIntensity{} },
	},
	{
		ID:               "NucleusIntensity",
		Label:            "Nucleus GFP Intensity",
		Description:      "Measures GFP intensity in nuclear vs cellular regions using DAPI contour reference.",
		RequiredChannels: []channel.Name{channel.DAPI, channel.GFP},
		New:              func() Plugin { return NucleusIntensity{} },
	},
	{
		ID:               "DAPI_NucleusIntensity",
		Label:            "Nucleus DAPI Intensity",
		Description:      "Measures DAPI intensity in nucleus/cytoplasm using DAPI contour reference.",
		RequiredChannels: []channel.Name{channel.DAPI},
		New:              func() Plugin { return DAPINucleusIntensity{} },
	},
	{
		ID:               "RedBlueIntensity",
		Label:            "Red-in-Blue Intensity",
		Description:      "Measures DAPI intensity around red-dot contour locations.",
		RequiredChannels: []channel.Name{channel.MCherry, channel.DAPI},
		New:              func() Plugin { return RedBlueIntensity{} },
	},
}

// Registry is a static, ordered table of plugins.
type Registry struct {
	defs []Definition
	byID map[string]int
}

// NewRegistry builds a registry from defs. Duplicate IDs or two plugins
// declaring the same field are rejected.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{defs: defs, byID: make(map[string]int, len(defs))}
	owners := map[Field]string{}
	for i, d := range defs {
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate plugin %q", d.ID)
		}
		r.byID[d.ID] = i
		if d.New == nil {
			continue
		}
		for _, f := range d.New().Fields() {
			if prev, ok := owners[f]; ok {
				return nil, fmt.Errorf("field %s declared by %s and %s: %w", f, prev, d.ID, ErrFieldNotOwned)
			}
			owners[f] = d.ID
		}
	}
	return r, nil
}

// DefaultRegistry returns the built-in plugin table.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(definitions)
	if err != nil {
		panic(err)
	}
	return r
}

// Definitions returns the registered definitions in order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Lookup returns the definition for id.
func (r *Registry) Lookup(id string) (Definition, error) {
	i, ok := r.byID[id]
	if !ok {
		return Definition{}, fmt.Errorf("%q: %w", id, ErrUnknownPlugin)
	}
	return r.defs[i], nil
}

// Build instantiates the plugins for ids, in registry order, with their
// dependencies. Empty ids selects every plugin.
func (r *Registry) Build(ids []string) ([]Plugin, error) {
	for _, id := range ids {
		if _, err := r.Lookup(id); err != nil {
			return nil, err
		}
	}
	selected := r.ExpandSelected(ids)
	if len(ids) == 0 {
		selected = selected[:0]
		for _, d := range r.defs {
			selected = append(selected, d.ID)
		}
	}
	out := make([]Plugin, 0, len(selected))
	for _, id := range selected {
		d, _ := r.Lookup(id)
		if d.New == nil {
			return nil, fmt.Errorf("plugin %q has no implementation", id)
		}
		out = append(out, d.New())
	}
	return out, nil
}

// NormalizeSelected filters ids to known plugins in registry order.
func (r *Registry) NormalizeSelected(ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := []string{}
	for _, d := range r.defs {
		if want[d.ID] {
			out = append(out, d.ID)
		}
	}
	return out
}

// ExpandSelected adds the plugins the selection depends on, transitively.
func (r *Registry) ExpandSelected(ids []string) []string {
	queue := r.NormalizeSelected(ids)
	resolved := make(map[string]bool, len(queue))
	for _, id := range queue {
		resolved[id] = true
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		d, _ := r.Lookup(id)
		for _, dep := range d.RequiredPlugins {
			if _, known := r.byID[dep]; known && !resolved[dep] {
				resolved[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	out := []string{}
	for _, d := range r.defs {
		if resolved[d.ID] {
			out = append(out, d.ID)
		}
	}
	return out
}

// RequiredChannels returns the channels the selection needs, in canonical
// order, and the expanded plugin list.
func (r *Registry) RequiredChannels(ids []string) ([]channel.Name, []string) {
	expanded := r.ExpandSelected(ids)
	set := map[channel.Name]bool{}
	for _, n := range AlwaysRequired {
		set[n] = true
	}
	for _, id := range expanded {
		d, _ := r.Lookup(id)
		for _, n := range d.RequiredChannels {
			set[n] = true
		}
	}
	return channel.Sorted(set), expanded
}

// RequirementSummary explains which channels a selection needs and why.
type RequirementSummary struct {
	SelectedPlugins    []string
	RequiredChannels   []channel.Name
	RequiredChannelSet map[channel.Name]bool
	// RequiredSources lists, per channel, the plugins (or segmentation)
	// that need it.
	RequiredSources map[channel.Name][]string
}

// Summary builds the requirement summary for ids.
func (r *Registry) Summary(ids []string) RequirementSummary {
	required, expanded := r.RequiredChannels(ids)
	s := RequirementSummary{
		SelectedPlugins:    expanded,
		RequiredChannels:   required,
		RequiredChannelSet: make(map[channel.Name]bool, len(required)),
		RequiredSources:    make(map[channel.Name][]string, len(channel.Order)),
	}
	for _, n := range required {
		s.RequiredChannelSet[n] = true
	}
	for _, n := range channel.Order {
		s.RequiredSources[n] = []string{}
	}
	for _, n := range AlwaysRequired {
		s.RequiredSources[n] = append(s.RequiredSources[n], SegmentationRequirement)
	}
	for _, id := range expanded {
		d, _ := r.Lookup(id)
		for _, n := range d.RequiredChannels {
			s.RequiredSources[n] = append(s.RequiredSources[n], id)
		}
	}
	return s
}
