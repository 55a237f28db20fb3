package channel

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/tiff"
)

// Loader resolves the per-cell channel images for a cell. Channels whose
// file is missing are left out of the result; that is not an error.
type Loader interface {
	Load(cellID, outputDir string, names []Name) (map[Name]gocv.Mat, error)
}

// DirLoader reads per-cell crops written by the segmentation step from
// <outputDir>/<Subdir>/<cellID>-<channel><ext>.
type DirLoader struct {
	Subdir     string
	Extensions []string
}

// NewDirLoader returns a DirLoader with the default segmented layout.
func NewDirLoader() *DirLoader {
	return &DirLoader{
		Subdir:     "segmented",
		Extensions: []string{".tif", ".tiff", ".png"},
	}
}

// Path returns the first existing file for the channel, or "" if none exists.
func (l *DirLoader) Path(cellID, outputDir string, n Name) string {
	base := filepath.Join(outputDir, l.Subdir, fmt.Sprintf("%s-%s", cellID, n))
	for _, ext := range l.Extensions {
		p := base + ext
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load loads every requested channel that exists on disk. Unknown channel
// names are skipped. On a decode error all mats loaded so far are released.
func (l *DirLoader) Load(cellID, outputDir string, names []Name) (map[Name]gocv.Mat, error) {
	loaded := make(map[Name]gocv.Mat, len(names))
	for _, n := range names {
		if rank(n) == len(Order) {
			continue
		}
		if _, dup := loaded[n]; dup {
			continue
		}
		path := l.Path(cellID, outputDir, n)
		if path == "" {
			continue
		}
		img, err := decodeFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			CloseAll(loaded)
			return nil, fmt.Errorf("channel %s: %w", n, err)
		}
		mat, err := ImageToMat(img)
		if err != nil {
			CloseAll(loaded)
			return nil, fmt.Errorf("channel %s: %w", n, err)
		}
		loaded[n] = mat
	}
	return loaded, nil
}

// Cells lists the cell IDs with at least one channel file under outputDir,
// in sorted order. A missing segmented directory yields no cells.
func (l *DirLoader) Cells(outputDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(outputDir, l.Subdir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list cells: %w", err)
	}

	seen := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := l.cellID(e.Name()); ok {
			seen[id] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// cellID splits "<cellID>-<channel><ext>" for a known channel and extension.
func (l *DirLoader) cellID(file string) (string, bool) {
	ext := filepath.Ext(file)
	known := false
	for _, e := range l.Extensions {
		if strings.EqualFold(e, ext) {
			known = true
			break
		}
	}
	if !known {
		return "", false
	}
	stem := strings.TrimSuffix(file, ext)
	for _, n := range Order {
		suffix := "-" + string(n)
		if strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
			return strings.TrimSuffix(stem, suffix), true
		}
	}
	return "", false
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}
