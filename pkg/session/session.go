// Package session holds the state of one open project: the project itself,
// the services that act on it, and the in-flight analysis request.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/analysis"
	"github.com/tstromberg/tvilling/pkg/render"
	"github.com/tstromberg/tvilling/pkg/settings"
	"github.com/tstromberg/tvilling/pkg/tvilling"
)

var (
	// ErrNoProject is returned by operations that need an open project.
	ErrNoProject = errors.New("no project is open")
	// ErrNoAnalyzer is returned by Analyze when no matching service is configured.
	ErrNoAnalyzer = errors.New("no analysis endpoint configured")
)

// Session serializes every mutation of the open project.
type Session struct {
	mu sync.Mutex

	cfg      tvilling.Config
	r        *render.Renderer
	project  *tvilling.Project
	thumbs   *tvilling.Thumbnailer
	exporter *tvilling.Exporter
	analyzer *analysis.Client
	recents  *settings.Recents
}

// New returns a session with no open project. analyzer and recents may be nil.
func New(cfg tvilling.Config, r *render.Renderer, analyzer *analysis.Client, recents *settings.Recents) *Session {
	return &Session{
		cfg:      cfg,
		r:        r,
		thumbs:   tvilling.NewThumbnailer(cfg, r),
		exporter: tvilling.NewExporter(cfg, r),
		analyzer: analyzer,
		recents:  recents,
	}
}

// Create scans dir, creates a new project there, and opens it.
func (s *Session) Create(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := tvilling.Create(ctx, dir, s.cfg, s.r)
	if err != nil {
		return err
	}
	s.project = p
	s.remember(p)
	return nil
}

// Open loads the project in dir. A project that no longer exists is dropped
// from the recent list.
func (s *Session) Open(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := tvilling.Load(dir, s.cfg)
	if err != nil {
		if tvilling.IsNotFound(err) && s.recents != nil {
			abs, _ := filepath.Abs(dir)
			if _, rerr := s.recents.Remove(abs); rerr != nil {
				klog.Warningf("update recents: %v", rerr)
			}
		}
		return err
	}
	s.project = p
	s.remember(p)
	return nil
}

func (s *Session) remember(p *tvilling.Project) {
	if s.recents == nil {
		return
	}
	if _, err := s.recents.Add(p.Directory(), filepath.Base(p.Directory()), time.Now()); err != nil {
		klog.Warningf("update recents: %v", err)
	}
}

// Close forgets the open project and cancels any analysis.
func (s *Session) Close() {
	s.CancelAnalysis()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = nil
}

func (s *Session) open() (*tvilling.Project, error) {
	if s.project == nil {
		return nil, ErrNoProject
	}
	return s.project, nil
}

func (s *Session) photo(p *tvilling.Project, name string) (*tvilling.Photo, error) {
	photo := p.Photo(name)
	if photo == nil {
		return nil, &tvilling.NotFoundError{Kind: "photo", Name: name}
	}
	return photo, nil
}

// Snapshot returns the serialized state of the open project.
func (s *Session) Snapshot() (*tvilling.ProjectBody, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return nil, err
	}
	return p.Body(), nil
}

// Move moves the named photo into the collection referenced by to. If from is
// empty, the photo's current collection is used.
func (s *Session) Move(from, to, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return false, err
	}
	photo, err := s.photo(p, name)
	if err != nil {
		return false, err
	}
	dst, err := p.Collection(to)
	if err != nil {
		return false, err
	}

	var src *tvilling.Collection
	if from == "" {
		src = p.FindCollectionOf(photo)
	} else if src, err = p.Collection(from); err != nil {
		return false, err
	}
	if src == nil || !src.Has(photo) {
		return false, &tvilling.NotFoundError{Kind: "photo in " + from, Name: name}
	}

	moved, err := p.MovePhoto(src, dst, photo)
	if moved {
		klog.Infof("moved %s: %s -> %s", name, p.RefOf(src), p.RefOf(dst))
	}
	return moved, err
}

// SetName labels the referenced collection.
func (s *Session) SetName(ref, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return err
	}
	c, err := p.Collection(ref)
	if err != nil {
		return err
	}
	return c.SetName(name)
}

// Next advances the referenced collection's cursor and returns the new current photo.
func (s *Session) Next(ref string) (*tvilling.PhotoBody, error) {
	return s.step(ref, (*tvilling.Collection).SetNext)
}

// Previous moves the referenced collection's cursor back and returns the new current photo.
func (s *Session) Previous(ref string) (*tvilling.PhotoBody, error) {
	return s.step(ref, (*tvilling.Collection).SetPrevious)
}

func (s *Session) step(ref string, move func(*tvilling.Collection) error) (*tvilling.PhotoBody, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return nil, err
	}
	c, err := p.Collection(ref)
	if err != nil {
		return nil, err
	}
	if c.Len() <= 1 {
		return current(c), nil
	}
	if err := move(c); err != nil {
		return nil, err
	}
	return current(c), nil
}

func current(c *tvilling.Collection) *tvilling.PhotoBody {
	photo := c.Current()
	if photo == nil {
		return nil
	}
	b := photo.Body()
	return &b
}

// CommitEdits stores new edits for the named photo and regenerates its thumbnail.
func (s *Session) CommitEdits(ctx context.Context, name string, e render.Edits) (tvilling.PhotoBody, error) {
	if err := e.Validate(); err != nil {
		return tvilling.PhotoBody{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return tvilling.PhotoBody{}, err
	}
	photo, err := s.photo(p, name)
	if err != nil {
		return tvilling.PhotoBody{}, err
	}

	b := photo.Body()
	b.Edits = e
	b.IsEdited = e.IsEdited()
	rel, err := s.thumbs.Regenerate(ctx, b)
	if err != nil {
		return tvilling.PhotoBody{}, fmt.Errorf("thumbnail: %w", err)
	}
	b.Thumbnail = rel

	if err := p.UpdatePhoto(b); err != nil {
		return tvilling.PhotoBody{}, err
	}
	return photo.Body(), nil
}

// Revert resets the named photo to its original appearance.
func (s *Session) Revert(ctx context.Context, name string) (tvilling.PhotoBody, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return tvilling.PhotoBody{}, err
	}
	photo, err := s.photo(p, name)
	if err != nil {
		return tvilling.PhotoBody{}, err
	}

	b, err := s.thumbs.RevertToOriginal(ctx, photo.Body())
	if err != nil {
		return tvilling.PhotoBody{}, fmt.Errorf("revert: %w", err)
	}
	if err := p.UpdatePhoto(b); err != nil {
		return tvilling.PhotoBody{}, err
	}
	return photo.Body(), nil
}

// Duplicate copies the named photo and places the copy right after it.
func (s *Session) Duplicate(name string) (tvilling.PhotoBody, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return tvilling.PhotoBody{}, err
	}
	photo, err := s.photo(p, name)
	if err != nil {
		return tvilling.PhotoBody{}, err
	}
	c := p.FindCollectionOf(photo)
	if c == nil {
		return tvilling.PhotoBody{}, &tvilling.NotFoundError{Kind: "collection of photo", Name: name}
	}

	dup, err := p.DuplicatePhoto(photo)
	if err != nil {
		return tvilling.PhotoBody{}, err
	}
	if err := c.InsertAfter(photo, dup); err != nil {
		return tvilling.PhotoBody{}, err
	}
	klog.Infof("duplicated %s as %s in %s", name, dup.Name(), p.RefOf(c))
	return dup.Body(), nil
}

// AddNew adds image files that appeared in the project directory to Unassigned.
func (s *Session) AddNew(ctx context.Context, names []string) ([]tvilling.PhotoBody, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.open()
	if err != nil {
		return nil, err
	}

	var fresh []string
	for _, n := range names {
		if tvilling.IsImage(n) && p.Photo(n) == nil {
			fresh = append(fresh, filepath.Base(n))
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	thumbs, failed, err := s.thumbs.GenerateAll(ctx, p.Directory(), fresh)
	if err != nil {
		return nil, err
	}
	for n := range failed {
		klog.Warningf("not adding %s yet: unreadable", n)
	}
	var photos []*tvilling.Photo
	for _, n := range fresh {
		if rel, ok := thumbs[n]; ok {
			photos = append(photos, tvilling.NewPhoto(p.Directory(), n, rel))
		}
	}
	if len(photos) == 0 {
		return nil, nil
	}
	added, err := p.AddNew(photos)
	if err != nil {
		return nil, err
	}

	var out []tvilling.PhotoBody
	for _, a := range added {
		out = append(out, a.Body())
	}
	return out, nil
}

// Export writes every matched photo to the export directory. The project is
// not locked while files are written.
func (s *Session) Export(ctx context.Context, progress func(done, total int)) (*tvilling.ExportReport, error) {
	s.mu.Lock()
	p, err := s.open()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	b := p.Body()
	s.mu.Unlock()

	x := *s.exporter
	x.Progress = progress
	return x.Export(ctx, b)
}

// Analyze asks the matching service about the named photos. Starting a new
// analysis cancels the one in flight.
func (s *Session) Analyze(ctx context.Context, names []string) (*analysis.Result, error) {
	if s.analyzer == nil {
		return nil, ErrNoAnalyzer
	}

	s.mu.Lock()
	p, err := s.open()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	var bodies []tvilling.PhotoBody
	for _, n := range names {
		photo, err := s.photo(p, n)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		bodies = append(bodies, photo.Body())
	}
	s.mu.Unlock()

	return s.analyzer.Match(ctx, bodies)
}

// CancelAnalysis aborts the analysis in flight, if any.
func (s *Session) CancelAnalysis() {
	if s.analyzer != nil {
		s.analyzer.Cancel()
	}
}
