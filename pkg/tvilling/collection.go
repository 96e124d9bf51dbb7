package tvilling

import (
	"slices"
	"sort"
)

// CollectionBody is the serialized form of a Collection.
type CollectionBody struct {
	Name   string      `json:"name,omitempty"`
	Index  int         `json:"index"`
	Photos []PhotoBody `json:"photos"`
}

// Collection is an ordered group of photos with a cursor on the current one.
//
// Add never checks for duplicates; Project.MovePhoto does.
type Collection struct {
	name   string
	index  int
	photos []*Photo

	project *Project
}

func newCollection(p *Project) *Collection {
	return &Collection{project: p, photos: []*Photo{}}
}

func collectionFromBody(p *Project, b CollectionBody) *Collection {
	c := newCollection(p)
	c.name = b.Name
	for _, pb := range b.Photos {
		c.photos = append(c.photos, PhotoFromBody(pb))
	}
	c.index = max(0, min(b.Index, len(c.photos)-1))
	return c
}

func (c *Collection) save() error {
	if c.project == nil {
		return nil
	}
	return c.project.Save()
}

// Add appends photo and makes it current.
func (c *Collection) Add(photo *Photo) error {
	c.photos = append(c.photos, photo)
	c.index = len(c.photos) - 1
	if c.project != nil {
		c.project.track(photo)
	}
	return c.save()
}

// InsertAfter places photo right behind anchor and makes it current. If anchor
// is not present, photo is appended.
func (c *Collection) InsertAfter(anchor, photo *Photo) error {
	i := slices.IndexFunc(c.photos, anchor.Same)
	if i < 0 {
		return c.Add(photo)
	}
	c.photos = slices.Insert(c.photos, i+1, photo)
	c.index = i + 1
	if c.project != nil {
		c.project.track(photo)
	}
	return c.save()
}

// Remove deletes photo if present, pulling the cursor back when it falls off the end.
// It does not persist; the caller saves once the surrounding operation completes.
func (c *Collection) Remove(photo *Photo) bool {
	i := slices.IndexFunc(c.photos, photo.Same)
	if i < 0 {
		return false
	}
	c.photos = slices.Delete(c.photos, i, i+1)
	if c.index >= len(c.photos) && c.index > 0 {
		c.index--
	}
	return true
}

// Has reports whether a photo with the same directory and name is present.
func (c *Collection) Has(photo *Photo) bool {
	return slices.ContainsFunc(c.photos, photo.Same)
}

// Current returns the photo at the cursor, or nil if the collection is empty.
func (c *Collection) Current() *Photo {
	if len(c.photos) == 0 {
		return nil
	}
	return c.photos[c.index]
}

// SetNext advances the cursor, wrapping to the first photo.
func (c *Collection) SetNext() error {
	if len(c.photos) == 0 {
		return nil
	}
	c.index = (c.index + 1) % len(c.photos)
	return c.save()
}

// SetPrevious moves the cursor back, wrapping to the last photo.
func (c *Collection) SetPrevious() error {
	if len(c.photos) == 0 {
		return nil
	}
	c.index = (c.index - 1 + len(c.photos)) % len(c.photos)
	return c.save()
}

// SetName sets the label used for export naming.
func (c *Collection) SetName(name string) error {
	c.name = name
	return c.save()
}

// SortBy reorders the photos, keeping the cursor on the same photo.
func (c *Collection) SortBy(less func(a, b *Photo) bool) error {
	cur := c.Current()
	sort.SliceStable(c.photos, func(i, j int) bool {
		return less(c.photos[i], c.photos[j])
	})
	if cur != nil {
		c.index = slices.IndexFunc(c.photos, cur.Same)
	}
	return c.save()
}

func (c *Collection) Name() string { return c.name }
func (c *Collection) Index() int   { return c.index }
func (c *Collection) Len() int     { return len(c.photos) }

// Photos returns the photos in order. The slice is a copy.
func (c *Collection) Photos() []*Photo {
	return slices.Clone(c.photos)
}

// Body returns the serialized form.
func (c *Collection) Body() CollectionBody {
	b := CollectionBody{Name: c.name, Index: c.index, Photos: []PhotoBody{}}
	for _, p := range c.photos {
		b.Photos = append(b.Photos, p.Body())
	}
	return b
}
