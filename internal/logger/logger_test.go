package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestZerologAdapterWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, zerolog.DebugLevel)

	l.Warning("preprocess", "kernel size adjusted", map[string]interface{}{"ksize": 13})
	l.Error("stats.GFPDot", errors.New("boom"), nil)

	out := buf.String()
	for _, want := range []string{`"component":"preprocess"`, `"ksize":13`, `"error":"boom"`, "kernel size adjusted"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
}

func TestZerologAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerolog(&buf, zerolog.WarnLevel)
	l.Debug("contour", "hidden", nil)
	l.Info("contour", "hidden too", nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn level, got %q", buf.String())
	}
}

func TestMemoryCount(t *testing.T) {
	m := &Memory{}
	m.Warning("a", "one", nil)
	m.Warning("b", "two", nil)
	m.Info("c", "three", nil)
	if got := m.Count("warn"); got != 2 {
		t.Errorf("Count(warn) = %d, want 2", got)
	}
	if OrNop(nil) == nil {
		t.Error("OrNop(nil) returned nil")
	}
}

func TestZerologWithCellTagsOnce(t *testing.T) {
	var buf bytes.Buffer
	l := ForCell(NewZerolog(&buf, zerolog.DebugLevel), "7")

	l.Warning("stats.GFPDot", "red dot has no center", map[string]interface{}{"cell": "7"})
	l.Debug("pipeline", "cell processed", map[string]interface{}{"dots": 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		if n := strings.Count(line, `"cell":"7"`); n != 1 {
			t.Errorf("cell tagged %d times in %s", n, line)
		}
	}
}

func TestForCellWrapsOtherLoggers(t *testing.T) {
	m := &Memory{}
	l := ForCell(m, "3")
	l.Info("a", "one", nil)
	l.Warning("b", "two", map[string]interface{}{"index": 1})
	l.Error("c", errors.New("boom"), map[string]interface{}{"cell": "other"})

	entries := m.Entries()
	want := []string{"3", "3", "other"}
	for i, e := range entries {
		if e.Fields["cell"] != want[i] {
			t.Errorf("entry %d cell = %v, want %s", i, e.Fields["cell"], want[i])
		}
	}
	if entries[1].Fields["index"] != 1 {
		t.Error("existing fields dropped")
	}
	if ForCell(nil, "3") == nil {
		t.Error("ForCell(nil) returned nil")
	}
}
