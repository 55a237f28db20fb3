// Package preprocess turns raw per-cell channel images into the grayscale
// derivatives the contour detector and statistics plugins consume.
package preprocess

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"cytocv/internal/channel"
	"cytocv/internal/logger"
)

const component = "preprocess"

// Derivative keys.
const (
	KeyMCherry       = "gray_mcherry"
	KeyMCherryFine   = "gray_mcherry_3"
	KeyDAPI          = "gray_dapi"
	KeyDAPIFine      = "gray_dapi_3"
	KeyGFP           = "GFP"
	KeyGFPNoBG       = "GFP_no_bg"
	BackgroundRadius = 50
)

// GrayImageSet holds the single-channel 8-bit derivatives for one cell.
// The set owns its mats; callers must not close individual entries.
type GrayImageSet struct {
	mats map[string]gocv.Mat
}

// NewGrayImageSet wraps mats. Ownership transfers to the set.
func NewGrayImageSet(mats map[string]gocv.Mat) *GrayImageSet {
	if mats == nil {
		mats = map[string]gocv.Mat{}
	}
	return &GrayImageSet{mats: mats}
}

// Get returns the derivative stored under key.
func (s *GrayImageSet) Get(key string) (gocv.Mat, bool) {
	if s == nil {
		return gocv.Mat{}, false
	}
	m, ok := s.mats[key]
	if !ok || m.Empty() {
		return gocv.Mat{}, false
	}
	return m, true
}

// Has reports whether key is present.
func (s *GrayImageSet) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Keys returns the stored keys in sorted order.
func (s *GrayImageSet) Keys() []string {
	if s == nil {
		return nil
	}
	keys := make([]string, 0, len(s.mats))
	for k := range s.mats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Size returns the image size of any stored derivative.
func (s *GrayImageSet) Size() (width, height int, ok bool) {
	for _, k := range s.Keys() {
		m := s.mats[k]
		if !m.Empty() {
			return m.Cols(), m.Rows(), true
		}
	}
	return 0, 0, false
}

// Close releases all derivatives.
func (s *GrayImageSet) Close() {
	if s == nil {
		return
	}
	for k, m := range s.mats {
		m.Close()
		delete(s.mats, k)
	}
}

// NormalizeKernelSize bumps an even kernel size to the next odd value.
func NormalizeKernelSize(ksize int, log logger.Logger) int {
	if ksize < 1 {
		logger.OrNop(log).Warning(component, "kernel size must be positive, using 1", map[string]interface{}{"ksize": ksize})
		return 1
	}
	if ksize%2 == 0 {
		logger.OrNop(log).Warning(component, "kernel size must be odd, incrementing", map[string]interface{}{
			"ksize":    ksize,
			"adjusted": ksize + 1,
		})
		return ksize + 1
	}
	return ksize
}

// ToGray builds the derivative set from the channels that are present.
// Absent channels produce no keys. Inputs are not modified.
func ToGray(channels map[channel.Name]gocv.Mat, ksize int, kdev float64, log logger.Logger) (*GrayImageSet, error) {
	ksize = NormalizeKernelSize(ksize, log)
	out := map[string]gocv.Mat{}
	fail := func(err error) (*GrayImageSet, error) {
		NewGrayImageSet(out).Close()
		return nil, err
	}

	if src, ok := present(channels, channel.MCherry); ok {
		if err := blurPair(src, ksize, kdev, KeyMCherryFine, KeyMCherry, out); err != nil {
			return fail(fmt.Errorf("mCherry: %w", err))
		}
	}

	if src, ok := present(channels, channel.DAPI); ok {
		if err := blurPair(src, ksize, kdev, KeyDAPIFine, KeyDAPI, out); err != nil {
			return fail(fmt.Errorf("DAPI: %w", err))
		}
	}

	if src, ok := present(channels, channel.GFP); ok {
		gray, err := toGray(src)
		if err != nil {
			return fail(fmt.Errorf("GFP: %w", err))
		}

		blurred := gocv.NewMat()
		gocv.GaussianBlur(gray, &blurred, image.Pt(3, 3), 1, 0, gocv.BorderDefault)
		out[KeyGFP] = blurred

		noBG, err := SubtractBackground(gray, BackgroundRadius)
		gray.Close()
		if err != nil {
			return fail(fmt.Errorf("GFP background: %w", err))
		}
		out[KeyGFPNoBG] = noBG
	}

	logger.OrNop(log).Debug(component, "grayscale derivatives ready", map[string]interface{}{"count": len(out)})
	return NewGrayImageSet(out), nil
}

func present(channels map[channel.Name]gocv.Mat, n channel.Name) (gocv.Mat, bool) {
	m, ok := channels[n]
	if !ok || m.Empty() {
		return gocv.Mat{}, false
	}
	return m, true
}

// blurPair writes the 3x3 fine and ksize coarse Gaussian derivatives.
func blurPair(src gocv.Mat, ksize int, kdev float64, fineKey, coarseKey string, out map[string]gocv.Mat) error {
	gray, err := toGray(src)
	if err != nil {
		return err
	}
	defer gray.Close()

	fine := gocv.NewMat()
	gocv.GaussianBlur(gray, &fine, image.Pt(3, 3), 1, 0, gocv.BorderDefault)
	out[fineKey] = fine

	coarse := gocv.NewMat()
	gocv.GaussianBlur(gray, &coarse, image.Pt(ksize, ksize), kdev, 0, gocv.BorderDefault)
	out[coarseKey] = coarse
	return nil
}

// toGray converts an RGB, RGBA or single-channel 8-bit mat to a new gray mat.
func toGray(src gocv.Mat) (gocv.Mat, error) {
	gray := gocv.NewMat()
	switch src.Channels() {
	case 1:
		src.CopyTo(&gray)
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)
	case 4:
		gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)
	default:
		gray.Close()
		return gocv.NewMat(), fmt.Errorf("unsupported channel count %d", src.Channels())
	}
	if gray.Type() != gocv.MatTypeCV8U {
		conv := gocv.NewMat()
		gray.ConvertTo(&conv, gocv.MatTypeCV8U)
		gray.Close()
		gray = conv
	}
	return gray, nil
}
