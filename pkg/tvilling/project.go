package tvilling

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/metrics"
)

// SchemaVersion tags the project file format.
const SchemaVersion = "v1"

// ProjectBody is the serialized form of a Project.
type ProjectBody struct {
	Version      string         `json:"version"`
	ID           string         `json:"id"`
	Directory    string         `json:"directory"`
	Unassigned   CollectionBody `json:"unassigned"`
	Discarded    CollectionBody `json:"discarded"`
	Matched      []MatchBody    `json:"matched"`
	Created      time.Time      `json:"created"`
	LastModified time.Time      `json:"lastModified"`
}

// Photos returns every photo in the body, in collection order.
func (b *ProjectBody) Photos() []PhotoBody {
	ps := append([]PhotoBody{}, b.Unassigned.Photos...)
	ps = append(ps, b.Discarded.Photos...)
	for _, m := range b.Matched {
		ps = append(ps, m.Left.Photos...)
		ps = append(ps, m.Right.Photos...)
	}
	return ps
}

// Store persists project snapshots.
type Store interface {
	Save(b *ProjectBody) error
}

// Project is the aggregate root: every photo lives in exactly one of its collections.
type Project struct {
	id           uuid.UUID
	directory    string
	unassigned   *Collection
	discarded    *Collection
	matched      []*Match
	created      time.Time
	lastModified time.Time

	cfg    Config
	store  Store
	photos map[string]*Photo
	now    func() time.Time
}

// New returns a project with every photo unassigned and cfg.MatchSlots empty matches.
func New(dir string, photos []*Photo, cfg Config, store Store) *Project {
	p := newProject(dir, cfg, store)
	p.id = uuid.New()
	p.created = p.now()
	p.lastModified = p.created

	p.unassigned.photos = append(p.unassigned.photos, photos...)
	for i := 1; i <= cfg.MatchSlots; i++ {
		p.matched = append(p.matched, &Match{ID: i, Left: newCollection(p), Right: newCollection(p)})
	}
	p.reindex()
	return p
}

// FromBody restores a project from its serialized form.
func FromBody(b *ProjectBody, cfg Config, store Store) (*Project, error) {
	if b.Version != SchemaVersion {
		return nil, fmt.Errorf("unsupported project version %q", b.Version)
	}
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}

	p := newProject(b.Directory, cfg, store)
	p.id = id
	p.created = b.Created
	p.lastModified = b.LastModified
	p.unassigned = collectionFromBody(p, b.Unassigned)
	p.discarded = collectionFromBody(p, b.Discarded)
	for _, mb := range b.Matched {
		p.matched = append(p.matched, &Match{
			ID:    mb.ID,
			Left:  collectionFromBody(p, mb.Left),
			Right: collectionFromBody(p, mb.Right),
		})
	}
	p.reindex()
	return p, nil
}

func newProject(dir string, cfg Config, store Store) *Project {
	p := &Project{
		directory: dir,
		cfg:       cfg,
		store:     store,
		now:       time.Now,
		matched:   []*Match{},
	}
	p.unassigned = newCollection(p)
	p.discarded = newCollection(p)
	return p
}

func (p *Project) ID() string              { return p.id.String() }
func (p *Project) Directory() string       { return p.directory }
func (p *Project) Created() time.Time      { return p.created }
func (p *Project) LastModified() time.Time { return p.lastModified }
func (p *Project) Unassigned() *Collection { return p.unassigned }
func (p *Project) Discarded() *Collection  { return p.discarded }
func (p *Project) Config() Config          { return p.cfg }

// Matches returns the matches in page order.
func (p *Project) Matches() []*Match {
	return append([]*Match(nil), p.matched...)
}

// Match returns the match with the given id, or nil.
func (p *Project) Match(id int) *Match {
	for _, m := range p.matched {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// collections returns every collection in lookup order.
func (p *Project) collections() []*Collection {
	cs := []*Collection{p.unassigned, p.discarded}
	for _, m := range p.matched {
		cs = append(cs, m.Left, m.Right)
	}
	return cs
}

// Photos returns every photo in collection order.
func (p *Project) Photos() []*Photo {
	var ps []*Photo
	for _, c := range p.collections() {
		ps = append(ps, c.photos...)
	}
	return ps
}

// Photo returns the photo with the given file name, or nil.
func (p *Project) Photo(name string) *Photo {
	return p.photos[filepath.Base(name)]
}

func (p *Project) track(photo *Photo) {
	p.photos[photo.name] = photo
}

// reindex rebuilds the photo index from collection membership, dropping photos
// that no collection holds anymore.
func (p *Project) reindex() {
	p.photos = map[string]*Photo{}
	for _, photo := range p.Photos() {
		p.photos[photo.name] = photo
	}
}

// FindCollectionOf returns the first collection holding a photo with the same
// name, searching unassigned, discarded, then each match left before right.
func (p *Project) FindCollectionOf(photo *Photo) *Collection {
	for _, c := range p.collections() {
		if c.Has(photo) {
			return c
		}
	}
	return nil
}

// MovePhoto moves photo between collections. It returns false without changes
// if the destination already holds the photo, and a NotFoundError if the
// source does not.
func (p *Project) MovePhoto(from, to *Collection, photo *Photo) (bool, error) {
	if to.Has(photo) {
		klog.V(1).Infof("move %s: already at destination", photo.name)
		return false, nil
	}
	if known := p.photos[photo.name]; known != nil {
		photo = known
	}
	if !from.Remove(photo) {
		return false, &NotFoundError{Kind: "photo in " + p.RefOf(from), Name: photo.name}
	}
	return true, to.Add(photo)
}

// DuplicatePhoto copies the photo's files and returns a new photo with the same
// edits. The caller adds it to a collection.
func (p *Project) DuplicatePhoto(photo *Photo) (*Photo, error) {
	name, thumb, err := DuplicateFiles(p.directory, photo.name, photo.thumbnail, p.now())
	if err != nil {
		return nil, fmt.Errorf("duplicate files: %w", err)
	}
	dup := NewPhoto(p.directory, name, thumb)
	dup.edits = photo.edits
	return dup, nil
}

// UpdatePhoto overwrites the edits and thumbnail of the photo named by b and saves.
func (p *Project) UpdatePhoto(b PhotoBody) error {
	photo := p.Photo(b.Name)
	if photo == nil {
		return &NotFoundError{Kind: "photo", Name: b.Name}
	}
	photo.Apply(b)
	return p.Save()
}

// AddNew appends photos that are not yet part of the project to unassigned.
func (p *Project) AddNew(photos []*Photo) ([]*Photo, error) {
	var added []*Photo
	for _, photo := range photos {
		if p.photos[photo.name] != nil {
			continue
		}
		p.unassigned.photos = append(p.unassigned.photos, photo)
		p.track(photo)
		added = append(added, photo)
	}
	if len(added) == 0 {
		return nil, nil
	}
	p.unassigned.index = len(p.unassigned.photos) - 1
	return added, p.Save()
}

// Collection resolves a reference such as "unassigned", "discarded", "3L" or "3R".
func (p *Project) Collection(ref string) (*Collection, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	switch r.Kind {
	case RefUnassigned:
		return p.unassigned, nil
	case RefDiscarded:
		return p.discarded, nil
	}
	m := p.Match(r.MatchID)
	if m == nil {
		return nil, &NotFoundError{Kind: "match", Name: fmt.Sprint(r.MatchID)}
	}
	if r.Side == SideLeft {
		return m.Left, nil
	}
	return m.Right, nil
}

// RefOf returns the reference string for c, or "" if c is not part of the project.
func (p *Project) RefOf(c *Collection) string {
	switch c {
	case p.unassigned:
		return string(RefUnassigned)
	case p.discarded:
		return string(RefDiscarded)
	}
	for _, m := range p.matched {
		if c == m.Left {
			return Ref{Kind: RefMatch, MatchID: m.ID, Side: SideLeft}.String()
		}
		if c == m.Right {
			return Ref{Kind: RefMatch, MatchID: m.ID, Side: SideRight}.String()
		}
	}
	return ""
}

// Body returns a complete snapshot.
func (p *Project) Body() *ProjectBody {
	b := &ProjectBody{
		Version:      SchemaVersion,
		ID:           p.id.String(),
		Directory:    p.directory,
		Unassigned:   p.unassigned.Body(),
		Discarded:    p.discarded.Body(),
		Matched:      []MatchBody{},
		Created:      p.created,
		LastModified: p.lastModified,
	}
	for _, m := range p.matched {
		b.Matched = append(b.Matched, m.Body())
	}
	return b
}

// Save stamps the modification time and writes a full snapshot.
func (p *Project) Save() error {
	p.lastModified = p.now()
	p.reindex()
	if p.store == nil {
		return nil
	}
	if err := p.store.Save(p.Body()); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	metrics.ProjectSaves.Inc()
	return nil
}
