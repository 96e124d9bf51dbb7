// Package manage provides HTTP handlers for inspecting an open project.
package manage

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/session"
	"github.com/tstromberg/tvilling/pkg/tvilling"
)

// Server serves the state of a session.
type Server struct {
	s *session.Session
}

// New creates a new server.
func New(s *session.Session) *Server {
	return &Server{s: s}
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /project", s.ProjectHandler())
	mux.HandleFunc("GET /thumbnails/{name}", s.ThumbnailHandler())
	mux.HandleFunc("POST /discard/{name}", s.DiscardHandler())
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNoProject):
		code = http.StatusServiceUnavailable
	case tvilling.IsNotFound(err):
		code = http.StatusNotFound
	}
	klog.V(1).Infof("%d: %v", code, err)
	http.Error(w, err.Error(), code)
}

// ProjectHandler returns the project snapshot as JSON.
func (s *Server) ProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b, err := s.s.Snapshot()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(b); err != nil {
			klog.Errorf("encode project: %v", err)
		}
	}
}

// ThumbnailHandler serves the current thumbnail of a photo.
func (s *Server) ThumbnailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		b, err := s.s.Snapshot()
		if err != nil {
			writeError(w, err)
			return
		}

		for _, pb := range b.Photos() {
			if pb.Name == name {
				w.Header().Set("Cache-Control", "no-cache")
				http.ServeFile(w, r, filepath.Join(b.Directory, pb.Thumbnail))
				return
			}
		}
		writeError(w, &tvilling.NotFoundError{Kind: "photo", Name: name})
	}
}

// DiscardHandler moves a photo to the discarded pile.
func (s *Server) DiscardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("name")
		klog.Infof("discard %s", name)
		moved, err := s.s.Move("", "discarded", name)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"moved": moved})
	}
}
