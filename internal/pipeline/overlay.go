package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"cytocv/internal/preprocess"
	"cytocv/pkg/colorutil"
	"cytocv/pkg/geometry"
)

// debugCanvas returns a 3-channel copy of the GFP detection image, or a
// black canvas of the crop size when GFP is absent.
func debugCanvas(gray *preprocess.GrayImageSet) (gocv.Mat, bool) {
	if src, ok := gray.Get(preprocess.KeyGFP); ok {
		canvas := gocv.NewMat()
		gocv.CvtColor(src, &canvas, gocv.ColorGrayToBGR)
		return canvas, true
	}
	w, h, ok := gray.Size()
	if !ok {
		return gocv.Mat{}, false
	}
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3), true
}

func drawContours(canvas *gocv.Mat, contours []geometry.Contour, c color.RGBA) {
	kept := make([]geometry.Contour, 0, len(contours))
	for _, ct := range contours {
		if len(ct) > 0 {
			kept = append(kept, ct)
		}
	}
	if len(kept) == 0 {
		return
	}
	pv := gocv.NewPointsVectorFromPoints(geometry.Points(kept))
	defer pv.Close()
	gocv.DrawContours(canvas, pv, -1, c, 1)
}

// writeOverlay draws the merged contours and dots on canvas, labels it with
// the cell classification and saves it as <dir>/<cell>-debug.png.
func writeOverlay(dir string, res *Result, canvas *gocv.Mat) (string, error) {
	drawContours(canvas, []geometry.Contour{res.Merged}, colorutil.Yellow)
	drawContours(canvas, []geometry.Contour{res.MergedDAPI}, colorutil.Blue)
	if res.Bundle != nil {
		drawContours(canvas, res.Bundle.Dots, colorutil.Red)
		drawContours(canvas, res.Bundle.ContoursGFP, colorutil.Green)
	}

	img, err := canvas.ToImage()
	if err != nil {
		return "", fmt.Errorf("failed to convert overlay: %w", err)
	}
	out := imaging.Clone(img)
	label := fmt.Sprintf("%s cat=%d bio=%d", res.CellID, res.Record.CategoryGFPDot(), res.Record.Biorientation())
	drawText(out, basicfont.Face7x13, label, 2, 11, colorutil.Yellow)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create debug dir: %w", err)
	}
	path := filepath.Join(dir, res.CellID+"-debug.png")
	if err := imaging.Save(out, path); err != nil {
		return "", fmt.Errorf("failed to save overlay %s: %w", path, err)
	}
	return path, nil
}

// drawText draws s with its baseline at (x, y).
func drawText(img draw.Image, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
