// Package render applies non-destructive photo edits and encodes the result.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/metrics"
)

// Config sizes the named pipelines.
type Config struct {
	ThumbEdge       int
	AnalysisEdge    int
	AnalysisQuality int
}

// Options alter how Transformed filters an image.
type Options struct {
	// EdgeDetect replaces the brightness/contrast/saturate filter with a
	// fixed high-contrast inverted grayscale, as used by the editor.
	EdgeDetect bool
}

// DecodeError is returned when a source image cannot be read or decoded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Renderer renders photos. It holds no mutable state and is safe for concurrent use.
type Renderer struct {
	c Config
}

// New returns a Renderer for the given pipeline sizes.
func New(c Config) *Renderer {
	return &Renderer{c: c}
}

// Transformed decodes path and returns it at native resolution with edits applied.
func (r *Renderer) Transformed(path string, e Edits, o Options) (*image.RGBA, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return warp(filter(src, e, o), e), nil
}

// Thumbnail renders a preview scaled to ThumbEdge, encoded per the source extension.
func (r *Renderer) Thumbnail(path string, e Edits) ([]byte, error) {
	defer observe("thumbnail", time.Now())
	img, err := r.Transformed(path, e, Options{})
	if err != nil {
		return nil, err
	}
	return encodeBytes(ScaleToFit(img, r.c.ThumbEdge), path, 0)
}

// Analysis renders a small JPEG suitable for upload to the matching service.
func (r *Renderer) Analysis(path string, e Edits) ([]byte, error) {
	defer observe("analysis", time.Now())
	img, err := r.Transformed(path, e, Options{})
	if err != nil {
		return nil, err
	}
	return encodeBytes(ScaleToFit(img, r.c.AnalysisEdge), ".jpg", r.c.AnalysisQuality)
}

// Full renders at native resolution, encoded per the source extension.
func (r *Renderer) Full(path string, e Edits) ([]byte, error) {
	defer observe("full", time.Now())
	img, err := r.Transformed(path, e, Options{})
	if err != nil {
		return nil, err
	}
	return encodeBytes(img, path, 0)
}

func observe(pipeline string, start time.Time) {
	metrics.Renders.WithLabelValues(pipeline).Inc()
	metrics.RenderDuration.WithLabelValues(pipeline).Observe(time.Since(start).Seconds())
}

func encodeBytes(img image.Image, path string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, path, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// filter applies the color adjustments. Steps at their neutral value are skipped.
func filter(src image.Image, e Edits, o Options) image.Image {
	if o.EdgeDetect {
		g := effect.Grayscale(src)
		return effect.Invert(adjust.Contrast(g, 1.0))
	}

	img := src
	if e.Brightness != DefaultPercent {
		img = adjust.Brightness(img, e.Brightness/100-1)
	}
	if e.Contrast != DefaultPercent {
		img = adjust.Contrast(img, e.Contrast/100-1)
	}
	if e.Saturate != DefaultPercent {
		img = saturate(img, e.Saturate/100)
	}
	return img
}

// saturate uses the same color matrix as the CSS saturate() filter.
func saturate(src image.Image, s float64) image.Image {
	m := [3][3]float64{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
	return adjust.Apply(src, func(c color.RGBA) color.RGBA {
		r, g, b := float64(c.R), float64(c.G), float64(c.B)
		return color.RGBA{
			R: clamp8(m[0][0]*r+m[0][1]*g+m[0][2]*b, c.A),
			G: clamp8(m[1][0]*r+m[1][1]*g+m[1][2]*b, c.A),
			B: clamp8(m[2][0]*r+m[2][1]*g+m[2][2]*b, c.A),
			A: c.A,
		}
	})
}

// clamp8 rounds v into [0, limit]; color.RGBA is alpha-premultiplied.
func clamp8(v float64, limit uint8) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= float64(limit):
		return limit
	}
	return uint8(v + 0.5)
}

// warp draws src onto a transparent canvas of the same size. The canvas is
// translated to its center plus the pan offset, scaled by zoom, then translated
// back, so zoom stays anchored on the center after panning.
func warp(src image.Image, e Edits) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if e.Zoom == DefaultZoom && e.Pan == (Point{}) {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}

	cx := float64(b.Dx()) / 2
	cy := float64(b.Dy()) / 2
	z := e.Zoom
	s2d := f64.Aff3{
		z, 0, cx + e.Pan.X - z*(cx+float64(b.Min.X)),
		0, z, cy + e.Pan.Y - z*(cy+float64(b.Min.Y)),
	}
	klog.V(2).Infof("warp %v with %v", b, s2d)
	draw.CatmullRom.Transform(dst, s2d, src, b, draw.Over, nil)
	return dst
}
