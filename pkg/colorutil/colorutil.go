// Package colorutil provides shared overlay colors for debug artifacts.
package colorutil

import (
	"image/color"
)

// Overlay colors used by debug drawing.
var (
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	Blue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// Mask is the fill value for single-channel region masks.
var Mask = White
