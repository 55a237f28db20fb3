// Package contour finds cell, nucleus and dot contours in the grayscale
// derivatives and merges two-piece boundaries into one closed outline.
package contour

import "strings"

// Method selects the detection strategy.
type Method int

const (
	// MethodCurrent uses Canny edges for boundaries and inverted Otsu for red dots.
	MethodCurrent Method = iota
	// MethodLegacy is the older Otsu-threshold pipeline.
	MethodLegacy
)

func (m Method) String() string {
	switch m {
	case MethodCurrent:
		return "current"
	case MethodLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseMethod maps a user-supplied name to a Method. Matching is
// case-insensitive; empty or unknown names select MethodCurrent.
func ParseMethod(s string) Method {
	if strings.ToLower(strings.TrimSpace(s)) == "legacy" {
		return MethodLegacy
	}
	return MethodCurrent
}
