package stack

import (
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "golang.org/x/image/tiff"
)

// Source is an ordered multi-page frame container plus its acquisition
// metadata. Pages are decoded on demand.
type Source struct {
	dir   string
	files []string
	meta  Metadata
}

// MetadataFileName is the sidecar file OpenDir looks for when no explicit
// metadata path is given.
const MetadataFileName = "metadata.json"

var pageExtensions = map[string]bool{
	".png": true, ".tif": true, ".tiff": true, ".jpg": true, ".jpeg": true,
}

// OpenDir opens a directory of per-frame image files as a Source. Pages are
// ordered by filename. metaPath points at the acquisition-metadata sidecar;
// if empty, dir/metadata.json is used.
func OpenDir(dir, metaPath string) (*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read stack directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image pages found in %s", dir)
	}
	sort.Strings(files)

	if metaPath == "" {
		metaPath = filepath.Join(dir, MetadataFileName)
	}
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata sidecar: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata sidecar: %w", err)
	}

	return &Source{dir: dir, files: files, meta: meta}, nil
}

// Pages returns the number of pages in the container.
func (s *Source) Pages() int {
	return len(s.files)
}

// Metadata returns the acquisition metadata for the container.
func (s *Source) Metadata() *Metadata {
	return &s.meta
}

// Plane decodes page i into a float32 sample plane.
func (s *Source) Plane(i int) ([]float32, int, int, error) {
	if i < 0 || i >= len(s.files) {
		return nil, 0, 0, fmt.Errorf("page %d out of range [0,%d)", i, len(s.files))
	}

	f, err := os.Open(s.files[i])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("open page %d: %w", i, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode page %d: %w", i, err)
	}

	return planeFromImage(img)
}

// planeFromImage flattens a decoded image into float32 samples. Gray and
// Gray16 keep their native sample values; color images are reduced to
// luminance.
func planeFromImage(img image.Image) ([]float32, int, int, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, 0, 0, fmt.Errorf("empty image plane")
	}
	out := make([]float32, h*w)

	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := im.Pix[y*im.Stride : y*im.Stride+w]
			for x, v := range row {
				out[y*w+x] = float32(v)
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				o := y*im.Stride + x*2
				out[y*w+x] = float32(uint16(im.Pix[o])<<8 | uint16(im.Pix[o+1]))
			}
		}
	default:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
				out[y*w+x] = float32(lum)
			}
		}
	}

	return out, h, w, nil
}
