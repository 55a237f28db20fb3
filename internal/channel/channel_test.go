package channel

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func wl(v float64) *float64 { return &v }

func TestCanonical(t *testing.T) {
	tests := []struct {
		label string
		wave  *float64
		want  Name
	}{
		{"", wl(625), MCherry},
		{"", wl(530), GFP},
		{"", wl(435), DAPI},
		{"", wl(-50), DIC},
		{"", wl(100), DIC},
		{"w1DIC", nil, DIC},
		{"Brightfield", nil, DIC},
		{"BF", nil, DIC},
		{"mcherry", nil, MCherry},
		{"Cherry-red", nil, MCherry},
		{"Hoechst 33342", nil, DAPI},
		{"EGFP", nil, GFP},
		{" Cy5 ", nil, Name("Cy5")},
		// An unknown wavelength falls back to the label.
		{"GFP", wl(700), GFP},
	}
	for _, tt := range tests {
		if got := Canonical(tt.label, tt.wave); got != tt.want {
			t.Errorf("Canonical(%q, %v) = %q, want %q", tt.label, tt.wave, got, tt.want)
		}
	}
}

func TestConfigFromWavelengths(t *testing.T) {
	got := ConfigFromWavelengths([]float64{525, 625, 435, -50})
	want := Config{GFP: 0, MCherry: 1, DAPI: 2, DIC: 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ConfigFromWavelengths = %v, want %v", got, want)
	}

	if got := ConfigFromWavelengths([]float64{-50}); !reflect.DeepEqual(got, Config{DIC: 0}) {
		t.Errorf("single DIC layer = %v", got)
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(map[string]int{"w1DIC": 0, "mcherry": 1, "GFP": 2})
	want := Config{DIC: 0, MCherry: 1, GFP: 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Normalize = %v, want %v", got, want)
	}
}

func TestSort(t *testing.T) {
	names := []Name{GFP, "zzz", MCherry, DIC, DAPI}
	Sort(names)
	want := []Name{DIC, DAPI, MCherry, GFP, "zzz"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Sort = %v, want %v", names, want)
	}
	if got := Join(want[:2]); got != "DIC, DAPI" {
		t.Errorf("Join = %q", got)
	}
}

func TestDirLoaderSkipsMissingChannels(t *testing.T) {
	dir := t.TempDir()
	seg := filepath.Join(dir, "segmented")
	if err := os.MkdirAll(seg, 0755); err != nil {
		t.Fatal(err)
	}

	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 200, G: 10, B: 20, A: 255})
	f, err := os.Create(filepath.Join(seg, "cell7-GFP.png"))
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	l := NewDirLoader()
	mats, err := l.Load("cell7", dir, []Name{GFP, MCherry, DAPI, "bogus"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer CloseAll(mats)

	if len(mats) != 1 {
		t.Fatalf("loaded %d channels, want 1", len(mats))
	}
	m, ok := mats[GFP]
	if !ok {
		t.Fatal("GFP not loaded")
	}
	if m.Rows() != 3 || m.Cols() != 4 || m.Channels() != 3 {
		t.Errorf("mat shape %dx%dx%d, want 3x4x3", m.Rows(), m.Cols(), m.Channels())
	}
	// RGB order is preserved.
	if r := m.GetUCharAt(1, 1*3+0); r != 200 {
		t.Errorf("red byte = %d, want 200", r)
	}
	if b := m.GetUCharAt(1, 1*3+2); b != 20 {
		t.Errorf("blue byte = %d, want 20", b)
	}
}

func TestDirLoaderCells(t *testing.T) {
	dir := t.TempDir()
	seg := filepath.Join(dir, "segmented")
	if err := os.MkdirAll(seg, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"b2-GFP.png", "b2-DIC.tif", "a1-mCherry.tiff", "a1-DAPI.png",
		"notes.txt", "c3-Unknown.png", "-GFP.png", "d4-GFP.jpg",
	} {
		if err := os.WriteFile(filepath.Join(seg, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := NewDirLoader().Cells(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"a1", "b2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Cells = %v, want %v", got, want)
	}

	none, err := NewDirLoader().Cells(t.TempDir())
	if err != nil || len(none) != 0 {
		t.Errorf("empty dir: %v, %v", none, err)
	}
}
