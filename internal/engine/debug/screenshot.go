// Package debug holds viewer diagnostics.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Screenshots writes framebuffer captures as PNG files.
type Screenshots struct {
	Dir    string
	Prefix string

	// now is replaced in tests.
	now func() time.Time
	// taken disambiguates captures within the same second.
	taken int
}

// NewScreenshots returns a writer saving to dir with names like
// prefix_2006-01-02_15-04-05.png.
func NewScreenshots(dir, prefix string) *Screenshots {
	return &Screenshots{Dir: dir, Prefix: prefix, now: time.Now}
}

// SaveRGBA encodes width*height RGBA pixels read from OpenGL. Rows are
// flipped since GL's origin is bottom-left.
func (s *Screenshots) SaveRGBA(pixels []byte, width, height int) (string, error) {
	if len(pixels) != width*height*4 {
		return "", fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}
	return s.save(img)
}

func (s *Screenshots) save(img image.Image) (path string, err error) {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	path = s.filename()

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	s.taken++
	return path, nil
}

func (s *Screenshots) filename() string {
	name := fmt.Sprintf("%s_%s_%03d.png", s.Prefix, s.now().Format("2006-01-02_15-04-05"), s.taken)
	if s.Dir != "" {
		name = filepath.Join(s.Dir, name)
	}
	return name
}
