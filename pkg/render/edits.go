package render

import (
	"fmt"
	"math"
)

const (
	// DefaultPercent is the neutral value for brightness, contrast and saturate.
	DefaultPercent = 100.0
	// MaxPercent is the upper bound for brightness, contrast and saturate.
	MaxPercent = 200.0
	// DefaultZoom is the neutral zoom factor; zoom never goes below it.
	DefaultZoom = 1.0
)

// Point is a pan offset in original image pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edits is the non-destructive edit state for one photo.
//
// Edits holds no references, so assignment always copies.
type Edits struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturate   float64 `json:"saturate"`
	Zoom       float64 `json:"zoom"`
	Pan        Point   `json:"pan"`
}

// DefaultEdits returns the unedited state.
func DefaultEdits() Edits {
	return Edits{
		Brightness: DefaultPercent,
		Contrast:   DefaultPercent,
		Saturate:   DefaultPercent,
		Zoom:       DefaultZoom,
	}
}

// IsEdited reports whether any field differs from DefaultEdits.
func (e Edits) IsEdited() bool {
	return e != DefaultEdits()
}

// Normalize clamps every field into its domain and returns a description of each fix.
func (e Edits) Normalize() (Edits, []string) {
	var fixes []string

	percent := func(name string, v float64) float64 {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			fixes = append(fixes, fmt.Sprintf("%s %v reset to %v", name, v, DefaultPercent))
			return DefaultPercent
		case v < 0:
			fixes = append(fixes, fmt.Sprintf("%s %v clamped to 0", name, v))
			return 0
		case v > MaxPercent:
			fixes = append(fixes, fmt.Sprintf("%s %v clamped to %v", name, v, MaxPercent))
			return MaxPercent
		}
		return v
	}

	e.Brightness = percent("brightness", e.Brightness)
	e.Contrast = percent("contrast", e.Contrast)
	e.Saturate = percent("saturate", e.Saturate)

	if math.IsNaN(e.Zoom) || math.IsInf(e.Zoom, 0) || e.Zoom < DefaultZoom {
		fixes = append(fixes, fmt.Sprintf("zoom %v reset to %v", e.Zoom, DefaultZoom))
		e.Zoom = DefaultZoom
	}

	for _, c := range []*float64{&e.Pan.X, &e.Pan.Y} {
		if math.IsNaN(*c) || math.IsInf(*c, 0) {
			fixes = append(fixes, fmt.Sprintf("pan %v reset to 0", *c))
			*c = 0
		}
	}

	return e, fixes
}

// Validate returns an error if Normalize would change anything.
func (e Edits) Validate() error {
	if _, fixes := e.Normalize(); len(fixes) > 0 {
		return fmt.Errorf("invalid edits: %v", fixes)
	}
	return nil
}

func (e Edits) String() string {
	return fmt.Sprintf("brightness=%g%% contrast=%g%% saturate=%g%% zoom=%gx pan=(%g,%g)",
		e.Brightness, e.Contrast, e.Saturate, e.Zoom, e.Pan.X, e.Pan.Y)
}
