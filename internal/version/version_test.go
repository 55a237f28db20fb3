package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	defer func() { Version, GitCommit, BuildTime = oldV, oldC, oldB }()

	Version, GitCommit, BuildTime = "1.2.3", "abc123", "2026-01-02"
	want := "cellstats 1.2.3 (commit abc123, built 2026-01-02)"
	if got := String("cellstats"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
