package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/roach88/integrator/internal/model"
)

// Default normalization parameters for cached photographs.
const (
	DefaultMaxWidth  = 200
	DefaultMaxHeight = 200
	DefaultQuality   = 0.9
)

// Options bound the output of Normalize.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64 // JPEG quality in (0, 1]
}

// DefaultOptions returns the 200x200 / 0.9 parameters used for cached images.
func DefaultOptions() Options {
	return Options{MaxWidth: DefaultMaxWidth, MaxHeight: DefaultMaxHeight, Quality: DefaultQuality}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.MaxWidth <= 0 {
		return model.NewValidationError("max_width", "must be positive, got %d", o.MaxWidth)
	}
	if o.MaxHeight <= 0 {
		return model.NewValidationError("max_height", "must be positive, got %d", o.MaxHeight)
	}
	if !(o.Quality > 0 && o.Quality <= 1) {
		return model.NewValidationError("quality", "must be in (0, 1], got %g", o.Quality)
	}
	return nil
}

// DecodeError reports input bytes that no registered decoder accepts.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Normalize decodes raw in any registered raster format, shrinks it to fit
// within the option bounds preserving aspect ratio, and re-encodes it as
// JPEG. Images already inside the bounds keep their size. The result is a
// pure function of raw and opts.
func Normalize(raw []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(opts.Quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// TargetSize computes the output dimensions for a srcW x srcH image:
// scale = min(1, maxW/srcW, maxH/srcH), each side rounded and at least 1.
func TargetSize(srcW, srcH, maxW, maxH int) (int, int) {
	if srcW <= 0 || srcH <= 0 {
		return 1, 1
	}
	scale := math.Min(1, math.Min(float64(maxW)/float64(srcW), float64(maxH)/float64(srcH)))
	if scale >= 1 {
		return srcW, srcH
	}
	w := max(1, int(math.Round(float64(srcW)*scale)))
	h := max(1, int(math.Round(float64(srcH)*scale)))
	return min(w, maxW), min(h, maxH)
}

// Info describes a decoded image.
type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Inspect reads the header of raw and reports its dimensions and format.
func Inspect(raw []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Info{}, &DecodeError{Err: err}
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

func jpegQuality(q float64) int {
	return min(100, max(1, int(math.Round(q*100))))
}
