package tvilling

import (
	"image"
	"image/color"
	"path/filepath"
	"sync"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/tvilling/pkg/render"
)

// memStore records every snapshot instead of writing it.
type memStore struct {
	mu    sync.Mutex
	saved []*ProjectBody
}

func (m *memStore) Save(b *ProjectBody) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, b)
	return nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

func (m *memStore) last() *ProjectBody {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}

// writePhoto saves a w x h gradient image into dir.
func writePhoto(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x * 255 / w), uint8(y * 255 / h), 90, 255})
		}
	}
	path := filepath.Join(dir, name)
	enc := imgio.PNGEncoder()
	if render.IsJPEG(name) {
		enc = imgio.JPEGEncoder(90)
	}
	require.NoError(t, imgio.Save(path, img, enc))
	return path
}

func testConfig() Config {
	c := DefaultConfig()
	c.MatchSlots = 3
	c.ThumbEdge = 40
	c.AnalysisEdge = 20
	c.Workers = 2
	return c
}

// testProject returns a project in dir with the named photos unassigned.
func testProject(t *testing.T, dir string, names ...string) (*Project, *memStore) {
	t.Helper()
	var photos []*Photo
	for _, n := range names {
		photos = append(photos, NewPhoto(dir, n, filepath.Join(".thumbnails", n)))
	}
	s := &memStore{}
	return New(dir, photos, testConfig(), s), s
}
