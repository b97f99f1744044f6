package render

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"cellflow/internal/stack"
)

// SaveFrames writes every frame of an 8-bit cube as numbered PNG files
// under dir, creating the directory if needed.
func SaveFrames(dir, prefix string, frames *stack.Cube8) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for t := 0; t < frames.Frames; t++ {
		img := image.NewGray(image.Rect(0, 0, frames.Width, frames.Height))
		copy(img.Pix, frames.Frame(t))

		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.png", prefix, t))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create frame file: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return fmt.Errorf("encode frame %d: %w", t, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	return nil
}
