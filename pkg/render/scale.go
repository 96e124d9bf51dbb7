package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/anthonynsimon/bild/transform"
)

// FitSize returns the dimensions of a w x h image scaled so its long edge is edge.
// Landscape and square images are fit by width, portrait images by height.
func FitSize(w, h, edge int) (int, int) {
	if w <= 0 || h <= 0 || edge <= 0 {
		return w, h
	}
	if w >= h {
		return edge, max(1, int(math.Round(float64(h)*float64(edge)/float64(w))))
	}
	return max(1, int(math.Round(float64(w)*float64(edge)/float64(h)))), edge
}

// ScaleToFit resizes img so its long edge is edge, preserving aspect ratio.
func ScaleToFit(img image.Image, edge int) *image.RGBA {
	w, h := FitSize(img.Bounds().Dx(), img.Bounds().Dy(), edge)
	return transform.Resize(img, w, h, transform.Lanczos)
}

// IsJPEG reports whether a file name or extension denotes a JPEG.
func IsJPEG(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// ExportExt returns the extension a rendered copy of name is written with:
// the original one for JPEGs, .png for everything else.
func ExportExt(name string) string {
	if IsJPEG(name) {
		return filepath.Ext(name)
	}
	return ".png"
}

// Encode writes img as JPEG if name has a JPEG extension, otherwise as PNG.
// quality applies to JPEG only; zero selects the encoder default.
func Encode(w io.Writer, img image.Image, name string, quality int) error {
	enc := imgio.PNGEncoder()
	if IsJPEG(name) {
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		enc = imgio.JPEGEncoder(quality)
	}
	if err := enc(w, img); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
