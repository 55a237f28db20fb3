package validation

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"cytocv/internal/channel"
)

type fakeReader struct {
	recognized bool
	layers     int
	layerErr   error
	config     map[string]int
}

func (f fakeReader) IsRecognized(string) bool { return f.recognized }
func (f fakeReader) LayerCount(string) (int, error) { return f.layers, f.layerErr }
func (f fakeReader) ChannelConfig(string) (map[string]int, error) { return f.config, nil }

func set(names ...channel.Name) map[channel.Name]bool {
	out := map[channel.Name]bool{}
	for _, n := range names {
		out[n] = true
	}
	return out
}

func TestEffectiveRequiredChannels(t *testing.T) {
	full := Options{EnforceLayerCount: true, EnforceWavelengths: true, RequiredChannels: set(channel.DIC)}
	if got := EffectiveRequiredChannels(full); !reflect.DeepEqual(got, set(channel.DIC, channel.DAPI, channel.MCherry, channel.GFP)) {
		t.Errorf("full enforcement = %v", got)
	}

	// Wavelength enforcement alone does not apply without the layer check.
	partial := Options{EnforceWavelengths: true, RequiredChannels: set(channel.GFP)}
	if got := EffectiveRequiredChannels(partial); !reflect.DeepEqual(got, set(channel.GFP)) {
		t.Errorf("partial enforcement = %v", got)
	}

	if got := EffectiveRequiredChannels(Options{}); !reflect.DeepEqual(got, set(channel.DIC)) {
		t.Errorf("empty options = %v", got)
	}
}

func TestValidateRequiresIndexWithinLayerCount(t *testing.T) {
	r := fakeReader{recognized: true, layers: 1, config: map[string]int{"DIC": 0, "mCherry": 1, "GFP": 2}}
	opts := Options{RequiredChannels: set(channel.DIC, channel.MCherry, channel.GFP)}

	res := Validate("dummy.dv", opts, r)
	if res.Valid {
		t.Fatal("expected invalid result")
	}
	if !reflect.DeepEqual(res.MissingChannels, set(channel.MCherry, channel.GFP)) {
		t.Errorf("missing = %v, want mCherry, GFP", res.MissingChannels)
	}
}

func TestValidateAcceptsAliases(t *testing.T) {
	tests := []struct {
		name   string
		layers int
		config map[string]int
		req    map[channel.Name]bool
	}{
		{"lowercase mcherry", 3, map[string]int{"DIC": 0, "mcherry": 1, "GFP": 2}, set(channel.DIC, channel.MCherry, channel.GFP)},
		{"DIC variant", 1, map[string]int{"w1DIC": 0}, set(channel.DIC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fakeReader{recognized: true, layers: tt.layers, config: tt.config}
			res := Validate("dummy.dv", Options{RequiredChannels: tt.req}, r)
			if !res.Valid || len(res.MissingChannels) != 0 {
				t.Errorf("got valid=%v missing=%v", res.Valid, res.MissingChannels)
			}
		})
	}
}

func TestValidateRejections(t *testing.T) {
	if res := Validate("x", DefaultOptions(), fakeReader{}); res.Valid || res.Err != errNotRecognized {
		t.Errorf("unrecognized file: %+v", res)
	}
	if res := Validate("x", DefaultOptions(), fakeReader{recognized: true, layerErr: errors.New("bad header")}); res.Valid || res.Err != errNotRecognized {
		t.Errorf("layer read error: %+v", res)
	}
	res := Validate("x", DefaultOptions(), fakeReader{recognized: true, layers: 3})
	if res.Valid || res.LayerCount != 3 || res.Err != "" {
		t.Errorf("wrong layer count: %+v", res)
	}
}

func TestValidateFullLayout(t *testing.T) {
	r := fakeReader{recognized: true, layers: 4, config: map[string]int{"DIC": 0, "DAPI": 1, "GFP": 2, "mCherry": 3}}
	res := Validate("ok.dv", DefaultOptions(), r)
	if !res.Valid {
		t.Fatalf("expected valid, missing %v", res.Missing())
	}
	if idx, _ := res.Channels.Index(channel.MCherry); idx != 3 {
		t.Errorf("mCherry index = %d, want 3", idx)
	}
}

func TestErrorMessagesGroupsMissingChannels(t *testing.T) {
	req := set(channel.DIC, channel.DAPI)
	opts := Options{EnforceLayerCount: true, RequiredChannels: req}
	failures := []Failure{
		{"file_a", Result{LayerCount: 4, MissingChannels: set(channel.DAPI), RequiredChannels: req}},
		{"file_b", Result{LayerCount: 4, MissingChannels: set(channel.DAPI), RequiredChannels: req}},
		{"file_c", Result{LayerCount: 4, MissingChannels: set(channel.DIC, channel.DAPI), RequiredChannels: req}},
	}

	blob := strings.Join(ErrorMessages(failures, opts), "\n")
	for _, want := range []string{
		"The following wavelengths are required: DIC, DAPI.",
		"- file_a.dv, file_b.dv: missing DAPI",
		"- file_c.dv: missing all required wavelengths",
	} {
		if !strings.Contains(blob, want) {
			t.Errorf("messages missing %q:\n%s", want, blob)
		}
	}
}

func TestErrorMessagesSkipLayerCountWhenNotEnforced(t *testing.T) {
	req := set(channel.DIC, channel.GFP)
	failures := []Failure{{"file_a", Result{LayerCount: 1, MissingChannels: set(channel.GFP), RequiredChannels: req}}}

	blob := strings.Join(ErrorMessages(failures, Options{RequiredChannels: req}), "\n")
	if !strings.Contains(blob, "missing required wavelengths") {
		t.Errorf("expected wavelength section:\n%s", blob)
	}
	if strings.Contains(blob, "invalid layer counts") {
		t.Errorf("unexpected layer section:\n%s", blob)
	}
}

func TestErrorMessagesSingleRequiredChannel(t *testing.T) {
	req := set(channel.DIC)
	failures := []Failure{{"file_a", Result{LayerCount: 1, MissingChannels: set(channel.DIC), RequiredChannels: req}}}

	blob := strings.Join(ErrorMessages(failures, Options{RequiredChannels: req}), "\n")
	if !strings.Contains(blob, "- file_a.dv: missing DIC") {
		t.Errorf("expected per-channel line:\n%s", blob)
	}
	if strings.Contains(blob, "missing all required wavelengths") {
		t.Errorf("single channel must not use the all-required phrase:\n%s", blob)
	}
}

func TestErrorMessagesSections(t *testing.T) {
	failures := []Failure{
		{"bad", Result{LayerCount: -1, Err: errNotRecognized}},
		{"short", Result{LayerCount: 1}},
	}
	lines := ErrorMessages(failures, DefaultOptions())
	want := []string{
		"Could not process the following files because they are not recognized DV files:",
		"- bad.dv is not a recognized DV file",
		"",
		"Could not process the following files due to invalid layer counts (expected 4 layers):",
		"- short.dv has 1 layer (expected 4)",
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("ErrorMessages =\n%q\nwant\n%q", lines, want)
	}
}

func TestStaticReader(t *testing.T) {
	r := NewStaticReader(map[string]int{"DIC": 0, "DAPI": 1, "mCherry": 3})
	if n, err := r.LayerCount("any.dv"); err != nil || n != 4 {
		t.Errorf("LayerCount = %d, %v; want 4", n, err)
	}
	if _, err := NewStaticReader(nil).LayerCount(""); err == nil {
		t.Error("expected an error for an empty layout")
	}
}

func TestCheckLayout(t *testing.T) {
	layout := map[string]int{"DIC": 0, "DAPI": 1, "mCherry": 2}

	res := CheckLayout(layout, []channel.Name{channel.DIC, channel.MCherry})
	if !res.Valid || res.LayerCount != 3 {
		t.Errorf("DIC+mCherry: valid %v layers %d", res.Valid, res.LayerCount)
	}

	res = CheckLayout(layout, []channel.Name{channel.MCherry, channel.GFP})
	if res.Valid {
		t.Fatal("expected GFP to be missing")
	}
	if got := res.Missing(); !reflect.DeepEqual(got, []channel.Name{channel.GFP}) {
		t.Errorf("missing = %v", got)
	}

	// An index past the configured layers still counts as present because
	// the layer count follows the layout.
	if res := CheckLayout(map[string]int{"GFP": 5}, []channel.Name{channel.GFP}); !res.Valid {
		t.Errorf("GFP at 5: %+v", res)
	}
}
