package manage

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/tvilling/pkg/session"
	"github.com/tstromberg/tvilling/pkg/tvilling"
)

func testServer(t *testing.T, open bool) *httptest.Server {
	t.Helper()
	cfg := tvilling.DefaultConfig()
	cfg.MatchSlots = 1
	cfg.ThumbEdge = 16
	s := session.New(cfg, cfg.Renderer(), nil, nil)

	if open {
		dir := t.TempDir()
		img := image.NewRGBA(image.Rect(0, 0, 20, 10))
		for i := range img.Pix {
			img.Pix[i] = 200
		}
		img.SetRGBA(1, 1, color.RGBA{0, 0, 0, 255})
		require.NoError(t, imgio.Save(filepath.Join(dir, "a.png"), img, imgio.PNGEncoder()))
		require.NoError(t, s.Create(context.Background(), dir))
	}

	srv := httptest.NewServer(New(s).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestProjectHandler(t *testing.T) {
	srv := testServer(t, true)

	resp, err := http.Get(srv.URL + "/project")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	b := &tvilling.ProjectBody{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(b))
	assert.Equal(t, tvilling.SchemaVersion, b.Version)
	require.Len(t, b.Unassigned.Photos, 1)
	assert.Equal(t, "a.png", b.Unassigned.Photos[0].Name)
}

func TestProjectHandlerNoProject(t *testing.T) {
	srv := testServer(t, false)

	resp, err := http.Get(srv.URL + "/project")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestThumbnailHandler(t *testing.T) {
	srv := testServer(t, true)

	resp, err := http.Get(srv.URL + "/thumbnails/a.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, format, err := image.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())

	missing, err := http.Get(srv.URL + "/thumbnails/b.png")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestDiscardHandler(t *testing.T) {
	srv := testServer(t, true)

	for _, want := range []bool{true, false} {
		resp, err := http.Post(srv.URL+"/discard/a.png", "", nil)
		require.NoError(t, err)
		var got map[string]bool
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		resp.Body.Close()
		assert.Equal(t, want, got["moved"])
	}

	resp, err := http.Post(srv.URL+"/discard/zzz.png", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsHandler(t *testing.T) {
	srv := testServer(t, true)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	bs, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(bs), "tvilling_project_saves_total")
}
