// Package tvilling organizes photos into unassigned, discarded, and matched left/right pairs.
package tvilling

import (
	"runtime"

	"github.com/tstromberg/tvilling/pkg/render"
)

// Config holds configuration for a tvilling project.
type Config struct {
	// ProjectFile is the name of the project file inside the photo directory.
	ProjectFile string
	// ThumbDir is the hidden thumbnail directory, relative to the photo directory.
	ThumbDir string
	// ExportDir is the export directory, relative to the photo directory.
	ExportDir string

	MatchSlots      int
	ThumbEdge       int
	AnalysisEdge    int
	AnalysisQuality int
	Workers         int
}

// DefaultConfig returns the standard project layout and render sizes.
func DefaultConfig() Config {
	return Config{
		ProjectFile:     "tvilling.json",
		ThumbDir:        ".thumbnails",
		ExportDir:       "export",
		MatchSlots:      50,
		ThumbEdge:       1000,
		AnalysisEdge:    512,
		AnalysisQuality: 70,
		Workers:         runtime.NumCPU(),
	}
}

// Renderer returns a renderer sized for this configuration.
func (c Config) Renderer() *render.Renderer {
	return render.New(render.Config{
		ThumbEdge:       c.ThumbEdge,
		AnalysisEdge:    c.AnalysisEdge,
		AnalysisQuality: c.AnalysisQuality,
	})
}
