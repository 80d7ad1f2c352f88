// Package imaging normalizes uploaded pictures: every accepted image is
// flattened to opaque RGB, downscaled to fit MaxDimension and re-encoded as JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
)

const (
	MaxDimension = 1920
	JPEGQuality  = 85

	// MaxPixels caps width*height as read from the image header, checked
	// before any pixel buffer is allocated.
	MaxPixels = 89_478_485

	OutputFormat    = "JPEG"
	OutputExtension = "jpg"
	OutputMimeType  = "image/jpeg"
)

// ErrDecode is returned when the input cannot be decoded as an image.
var ErrDecode = errors.New("failed to decode image")

var allowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
}

// AllowedExtension reports whether filename carries one of the accepted
// image suffixes. Only the name is checked; content is validated on decode.
func AllowedExtension(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return allowedExtensions[strings.ToLower(ext)]
}

// Result is the re-encoded image together with the source dimensions.
type Result struct {
	Data           []byte
	OriginalWidth  int
	OriginalHeight int
	Width          int
	Height         int
	CompressedSize int64
	Format         string
}

// Transcode decodes r, flattens transparency over white, downsizes when
// either side exceeds MaxDimension and encodes the result as JPEG.
// Images whose header claims more than MaxPixels are rejected with ErrDecode.
func Transcode(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bounds := src.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW == 0 || origH == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	img := flatten(src)

	newW, newH := FitWithin(origW, origH, MaxDimension)
	if newW != origW || newH != origH {
		img = resize.Resize(uint(newW), uint(newH), img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &Result{
		Data:           buf.Bytes(),
		OriginalWidth:  origW,
		OriginalHeight: origH,
		Width:          newW,
		Height:         newH,
		CompressedSize: int64(buf.Len()),
		Format:         OutputFormat,
	}, nil
}

// FitWithin returns the dimensions of a w×h image scaled so that neither side
// exceeds limit. The larger side becomes exactly limit; the other is rounded down.
// Images already within bounds are returned unchanged.
func FitWithin(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, atLeastOne(h * limit / w)
	}
	return atLeastOne(w * limit / h), limit
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// flatten converts anything that is not already opaque RGB onto a white
// background. YCbCr and Gray sources (plain JPEGs) pass through untouched.
func flatten(src image.Image) image.Image {
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		return src
	}

	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}
