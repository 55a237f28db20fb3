package channel

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ImageToMat converts a Go image.Image to a 3-channel gocv.Mat in RGB order,
// the layout the preprocessor converts to grayscale.
func ImageToMat(img image.Image) (gocv.Mat, error) {
	if img == nil {
		return gocv.NewMat(), fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image bounds %v", bounds)
	}

	data := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			data = append(data, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to build mat: %w", err)
	}
	return mat, nil
}

// GrayToRGB builds a 3-channel RGB mat whose channels all carry the given
// row-major 8-bit intensities. It is the inverse of a grayscale conversion
// for synthetic inputs.
func GrayToRGB(width, height int, pix []uint8) (gocv.Mat, error) {
	if len(pix) != width*height {
		return gocv.NewMat(), fmt.Errorf("pixel count %d does not match %dx%d", len(pix), width, height)
	}
	data := make([]byte, 0, len(pix)*3)
	for _, v := range pix {
		data = append(data, v, v, v)
	}
	return gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, data)
}

// CloseAll releases every mat in the map.
func CloseAll(mats map[Name]gocv.Mat) {
	for n, m := range mats {
		m.Close()
		delete(mats, n)
	}
}
