package tvilling

import (
	"path/filepath"

	"github.com/tstromberg/tvilling/pkg/render"
)

// PhotoBody is the serialized form of a Photo.
type PhotoBody struct {
	Directory string       `json:"directory"`
	Name      string       `json:"name"`
	Thumbnail string       `json:"thumbnail"`
	Edits     render.Edits `json:"edits"`
	IsEdited  bool         `json:"isEdited"`
}

// Path is the absolute path of the original file.
func (b PhotoBody) Path() string {
	return filepath.Join(b.Directory, b.Name)
}

// Photo is one photo in a project, identified by directory and file name.
type Photo struct {
	directory string
	name      string
	thumbnail string
	edits     render.Edits
	version   int
}

// NewPhoto returns an unedited photo.
func NewPhoto(directory, name, thumbnail string) *Photo {
	return &Photo{
		directory: directory,
		name:      name,
		thumbnail: thumbnail,
		edits:     render.DefaultEdits(),
		version:   1,
	}
}

// PhotoFromBody restores a photo from its serialized form.
func PhotoFromBody(b PhotoBody) *Photo {
	p := NewPhoto(b.Directory, b.Name, b.Thumbnail)
	p.edits = b.Edits
	return p
}

func (p *Photo) Directory() string { return p.directory }
func (p *Photo) Name() string      { return p.name }
func (p *Photo) Thumbnail() string { return p.thumbnail }
func (p *Photo) Edits() render.Edits {
	return p.edits
}

// Version increments whenever the edits or thumbnail change. It only exists to
// bust preview caches.
func (p *Photo) Version() int { return p.version }

func (p *Photo) IsEdited() bool { return p.edits.IsEdited() }

// Path is the absolute path of the original file.
func (p *Photo) Path() string {
	return filepath.Join(p.directory, p.name)
}

// Same reports whether o refers to the same file as p.
func (p *Photo) Same(o *Photo) bool {
	return p != nil && o != nil && p.directory == o.directory && p.name == o.name
}

// SetEdits replaces the edits.
func (p *Photo) SetEdits(e render.Edits) {
	p.edits = e
	p.version++
}

// SetThumbnail replaces the thumbnail path.
func (p *Photo) SetThumbnail(rel string) {
	p.thumbnail = rel
	p.version++
}

// Apply copies the edits and thumbnail from b.
func (p *Photo) Apply(b PhotoBody) {
	p.edits = b.Edits
	p.thumbnail = b.Thumbnail
	p.version++
}

// Body returns the serialized form, with IsEdited derived from the edits.
func (p *Photo) Body() PhotoBody {
	return PhotoBody{
		Directory: p.directory,
		Name:      p.name,
		Thumbnail: p.thumbnail,
		Edits:     p.edits,
		IsEdited:  p.edits.IsEdited(),
	}
}
