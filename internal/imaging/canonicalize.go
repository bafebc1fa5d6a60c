package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	// Decoders for the formats generators return.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Output defaults
const (
	DefaultSize    = 1000
	DefaultQuality = 95
	OutputMIMEType = "image/jpeg"
)

// Errors returned by Canonicalize
var (
	ErrDecode = errors.New("failed to decode image")
	ErrEncode = errors.New("failed to encode image")
)

// Canonicalizer produces Size x Size JPEG images at Quality.
type Canonicalizer struct {
	Size    int
	Quality int
}

// NewCanonicalizer validates the output geometry and quality.
func NewCanonicalizer(size, quality int) (*Canonicalizer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("output size must be positive, got %d", size)
	}
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("jpeg quality must be within 1..100, got %d", quality)
	}
	return &Canonicalizer{Size: size, Quality: quality}, nil
}

// Canonicalize decodes raw, stretches it onto a Size x Size canvas and
// re-encodes it as JPEG. It does not retain raw.
func (c *Canonicalizer) Canonicalize(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s image has no pixels", ErrDecode, format)
	}

	dst := image.NewRGBA(image.Rect(0, 0, c.Size, c.Size))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	buf.Grow(c.Size * c.Size / 4)
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.Quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return buf.Bytes(), nil
}
