package tvilling

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/tvilling/pkg/render"
)

func TestNewProject(t *testing.T) {
	p, s := testProject(t, "/photos", "a.jpg", "b.jpg")

	assert.NotEmpty(t, p.ID())
	assert.Equal(t, 2, p.Unassigned().Len())
	assert.Equal(t, 0, p.Discarded().Len())
	require.Len(t, p.Matches(), 3)
	for i, m := range p.Matches() {
		assert.Equal(t, i+1, m.ID)
	}
	assert.Equal(t, p.Created(), p.LastModified())
	assert.Equal(t, 0, s.count())
}

func TestFindCollectionOf(t *testing.T) {
	p, _ := testProject(t, "/photos", "a.jpg", "b.jpg", "c.jpg")
	b := p.Photo("b.jpg")
	c := p.Photo("c.jpg")

	_, err := p.MovePhoto(p.Unassigned(), p.Match(2).Right, b)
	require.NoError(t, err)
	_, err = p.MovePhoto(p.Unassigned(), p.Discarded(), c)
	require.NoError(t, err)

	assert.Same(t, p.Unassigned(), p.FindCollectionOf(p.Photo("a.jpg")))
	assert.Same(t, p.Match(2).Right, p.FindCollectionOf(b))
	assert.Same(t, p.Discarded(), p.FindCollectionOf(NewPhoto("/photos", "c.jpg", "")))
	assert.Nil(t, p.FindCollectionOf(NewPhoto("/photos", "missing.jpg", "")))
}

func TestMovePhoto(t *testing.T) {
	p, s := testProject(t, "/photos", "a.jpg", "b.jpg")
	a := p.Photo("a.jpg")

	moved, err := p.MovePhoto(p.Unassigned(), p.Discarded(), a)
	require.NoError(t, err)
	assert.True(t, moved)
	assert.False(t, p.Unassigned().Has(a))
	assert.True(t, p.Discarded().Has(a))
	assert.Equal(t, 1, s.count(), "a move saves once")

	moved, err = p.MovePhoto(p.Unassigned(), p.Discarded(), a)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Equal(t, 1, p.Unassigned().Len())
	assert.Equal(t, 1, p.Discarded().Len())
	assert.Equal(t, 1, s.count())
}

func TestMovePhotoWrongSource(t *testing.T) {
	p, s := testProject(t, "/photos", "a.jpg", "b.jpg")
	a := p.Photo("a.jpg")

	moved, err := p.MovePhoto(p.Discarded(), p.Match(1).Left, a)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, moved)
	assert.True(t, p.Unassigned().Has(a))
	assert.False(t, p.Match(1).Left.Has(a))
	assert.Len(t, p.Photos(), 2)
	assert.Equal(t, 0, s.count())
}

func TestMovePhotoKeepsEveryPhotoOnce(t *testing.T) {
	p, _ := testProject(t, "/photos", "a.jpg", "b.jpg", "c.jpg", "d.jpg")
	steps := []struct{ from, to, name string }{
		{"unassigned", "1L", "a.jpg"},
		{"unassigned", "1R", "b.jpg"},
		{"1L", "discarded", "a.jpg"},
		{"discarded", "2R", "a.jpg"},
		{"unassigned", "2R", "c.jpg"},
		{"2R", "unassigned", "c.jpg"},
	}
	for _, st := range steps {
		from, err := p.Collection(st.from)
		require.NoError(t, err)
		to, err := p.Collection(st.to)
		require.NoError(t, err)
		_, err = p.MovePhoto(from, to, p.Photo(st.name))
		require.NoError(t, err)
	}

	seen := map[string]int{}
	for _, photo := range p.Photos() {
		seen[photo.Name()]++
	}
	assert.Equal(t, map[string]int{"a.jpg": 1, "b.jpg": 1, "c.jpg": 1, "d.jpg": 1}, seen)
	assert.Equal(t, "2R", p.RefOf(p.FindCollectionOf(p.Photo("a.jpg"))))
}

func TestUpdatePhoto(t *testing.T) {
	p, s := testProject(t, "/photos", "a.jpg")
	before := p.Photo("a.jpg").Version()

	e := render.DefaultEdits()
	e.Brightness = 150
	err := p.UpdatePhoto(PhotoBody{Directory: "/photos", Name: "a.jpg", Thumbnail: ".thumbnails/a.jpg", Edits: e})
	require.NoError(t, err)

	photo := p.Photo("a.jpg")
	assert.Equal(t, before+1, photo.Version())
	assert.True(t, photo.IsEdited())
	assert.Equal(t, 150.0, photo.Edits().Brightness)
	assert.True(t, s.last().Unassigned.Photos[0].IsEdited)
}

func TestUpdatePhotoMatchesByFileName(t *testing.T) {
	p, _ := testProject(t, "/photos", "a.jpg")
	err := p.UpdatePhoto(PhotoBody{Directory: "/somewhere/else", Name: "a.jpg", Edits: render.DefaultEdits()})
	assert.NoError(t, err)
}

func TestUpdatePhotoNotFound(t *testing.T) {
	p, s := testProject(t, "/photos", "a.jpg")
	err := p.UpdatePhoto(PhotoBody{Directory: "/photos", Name: "nope.jpg"})
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, s.count())
}

func TestDuplicatePhoto(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "a.jpg", 8, 8)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".thumbnails"), 0o755))
	writePhoto(t, filepath.Join(dir, ".thumbnails"), "a.jpg", 4, 4)

	p, _ := testProject(t, dir, "a.jpg")
	p.now = func() time.Time { return time.UnixMilli(1700000000123) }
	e := render.DefaultEdits()
	e.Zoom = 2
	p.Photo("a.jpg").SetEdits(e)

	dup, err := p.DuplicatePhoto(p.Photo("a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "a_duplicate_1700000000123.jpg", dup.Name())
	assert.Equal(t, filepath.Join(".thumbnails", "a_duplicate_1700000000123.jpg"), dup.Thumbnail())
	assert.Equal(t, e, dup.Edits())
	assert.True(t, dup.IsEdited())
	assert.FileExists(t, dup.Path())
	assert.FileExists(t, filepath.Join(dir, dup.Thumbnail()))
	assert.Nil(t, p.FindCollectionOf(dup), "the caller decides where the duplicate goes")
}

func TestAddNew(t *testing.T) {
	p, s := testProject(t, "/photos", "a.jpg")

	added, err := p.AddNew([]*Photo{NewPhoto("/photos", "a.jpg", ""), NewPhoto("/photos", "b.jpg", "")})
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "b.jpg", added[0].Name())
	assert.Equal(t, "b.jpg", p.Unassigned().Current().Name())
	assert.Equal(t, 1, s.count())

	added, err = p.AddNew([]*Photo{NewPhoto("/photos", "b.jpg", "")})
	require.NoError(t, err)
	assert.Empty(t, added)
	assert.Equal(t, 1, s.count())
}

func TestCollectionRefs(t *testing.T) {
	p, _ := testProject(t, "/photos")

	for _, ref := range []string{"unassigned", "discarded", "1L", "3R"} {
		c, err := p.Collection(ref)
		require.NoError(t, err, ref)
		assert.Equal(t, ref, p.RefOf(c))
	}

	_, err := p.Collection("4L")
	assert.True(t, IsNotFound(err))
	_, err = p.Collection("bogus")
	assert.Error(t, err)
	assert.Equal(t, "", p.RefOf(&Collection{}))
}

func TestSaveStampsLastModified(t *testing.T) {
	p, s := testProject(t, "/photos", "a.jpg")
	created := p.Created()
	later := created.Add(time.Hour)
	p.now = func() time.Time { return later }

	require.NoError(t, p.Save())
	assert.Equal(t, later, p.LastModified())
	assert.Equal(t, created, p.Created())
	assert.Equal(t, later, s.last().LastModified)
}

func TestProjectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	photos := []*Photo{
		NewPhoto(dir, "a.jpg", ".thumbnails/a.jpg"),
		NewPhoto(dir, "b.png", ".thumbnails/b.png"),
		NewPhoto(dir, "c.tiff", ".thumbnails/c.tiff"),
		NewPhoto(dir, "d.jpg", ".thumbnails/d.jpg"),
	}
	p := New(dir, photos, cfg, &FileStore{Path: ProjectPath(dir, cfg)})

	_, err := p.MovePhoto(p.Unassigned(), p.Match(1).Left, p.Photo("a.jpg"))
	require.NoError(t, err)
	_, err = p.MovePhoto(p.Unassigned(), p.Match(1).Right, p.Photo("b.png"))
	require.NoError(t, err)
	_, err = p.MovePhoto(p.Unassigned(), p.Discarded(), p.Photo("c.tiff"))
	require.NoError(t, err)
	require.NoError(t, p.Match(1).Left.SetName("42"))

	e := render.Edits{Brightness: 120, Contrast: 80, Saturate: 0, Zoom: 1.5, Pan: render.Point{X: -12.5, Y: 3}}
	require.NoError(t, p.UpdatePhoto(PhotoBody{Name: "b.png", Thumbnail: ".thumbnails/b.png", Edits: e}))

	want := p.Body()
	got, err := Load(dir, cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got.Body()); diff != "" {
		t.Errorf("reloaded project mismatch (-want +got):\n%s", diff)
	}
}

func TestFromBodyRejectsUnknownVersion(t *testing.T) {
	p, _ := testProject(t, "/photos")
	b := p.Body()
	b.Version = "v9"
	_, err := FromBody(b, testConfig(), nil)
	assert.Error(t, err)
}

func TestFromBodyClampsIndex(t *testing.T) {
	p, _ := testProject(t, "/photos", "a.jpg")
	b := p.Body()
	b.Unassigned.Index = 5
	b.Discarded.Index = -3

	got, err := FromBody(b, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Unassigned().Index())
	assert.Equal(t, "a.jpg", got.Unassigned().Current().Name())
	assert.Equal(t, 0, got.Discarded().Index())
	assert.Nil(t, got.Discarded().Current())
}

func TestProjectBodyPhotos(t *testing.T) {
	p, _ := testProject(t, "/photos", "a.jpg", "b.jpg", "c.jpg", "d.jpg")
	_, err := p.MovePhoto(p.Unassigned(), p.Match(2).Right, p.Photo("a.jpg"))
	require.NoError(t, err)
	_, err = p.MovePhoto(p.Unassigned(), p.Match(1).Left, p.Photo("b.jpg"))
	require.NoError(t, err)
	_, err = p.MovePhoto(p.Unassigned(), p.Discarded(), p.Photo("c.jpg"))
	require.NoError(t, err)

	var got []string
	for _, pb := range p.Body().Photos() {
		got = append(got, pb.Name)
	}
	assert.Equal(t, []string{"d.jpg", "c.jpg", "b.jpg", "a.jpg"}, got)
}
