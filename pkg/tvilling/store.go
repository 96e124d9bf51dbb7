package tvilling

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/render"
)

// FileStore writes project snapshots as indented JSON.
type FileStore struct {
	Path string
}

// Save writes b to a temporary file and renames it into place, so readers never
// see a partial snapshot.
func (s *FileStore) Save(b *ProjectBody) error {
	bs, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(bs); err != nil {
		tmp.Close()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	klog.V(1).Infof("saved %s (%d bytes)", s.Path, len(bs))
	return nil
}

// ProjectPath returns the location of the project file for dir.
func ProjectPath(dir string, cfg Config) string {
	return filepath.Join(dir, cfg.ProjectFile)
}

// Load opens the project stored in dir. Problems that can be repaired are
// repaired, logged, and written back.
func Load(dir string, cfg Config) (*Project, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}
	path := ProjectPath(dir, cfg)
	bs, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Kind: "project", Name: path}
	}
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	b := &ProjectBody{}
	if err := json.Unmarshal(bs, b); err != nil {
		return nil, &ValidationError{Path: path, Err: err}
	}

	fixes := heal(b, dir, cfg, time.Now())
	p, err := FromBody(b, cfg, &FileStore{Path: path})
	if err != nil {
		return nil, &ValidationError{Path: path, Problems: fixes, Err: err}
	}

	if len(fixes) == 0 {
		return p, nil
	}
	for _, f := range fixes {
		klog.Warningf("%s: %s", path, f)
	}
	if err := p.Save(); err != nil {
		return nil, fmt.Errorf("save repaired project: %w", err)
	}
	return p, nil
}

// heal repairs b in place and describes each repair.
func heal(b *ProjectBody, dir string, cfg Config, now time.Time) []string {
	var fixes []string
	fix := func(format string, args ...any) {
		fixes = append(fixes, fmt.Sprintf(format, args...))
	}

	if b.Version == "" {
		fix("missing version set to %s", SchemaVersion)
		b.Version = SchemaVersion
	}
	if _, err := uuid.Parse(b.ID); err != nil {
		id := uuid.New().String()
		fix("invalid id %q replaced with %s", b.ID, id)
		b.ID = id
	}
	if b.Directory != dir {
		fix("directory %q updated to %q", b.Directory, dir)
		b.Directory = dir
	}
	if b.Created.IsZero() {
		fix("missing created time set to now")
		b.Created = now
	}
	if b.LastModified.IsZero() {
		fix("missing lastModified set to created")
		b.LastModified = b.Created
	}
	if b.Matched == nil {
		b.Matched = []MatchBody{}
	}

	seenIDs := map[int]bool{}
	maxID := 0
	for _, m := range b.Matched {
		maxID = max(maxID, m.ID)
	}
	for i := range b.Matched {
		m := &b.Matched[i]
		if m.ID <= 0 || seenIDs[m.ID] {
			maxID++
			fix("match id %d reassigned to %d", m.ID, maxID)
			m.ID = maxID
		}
		seenIDs[m.ID] = true
	}

	seen := map[string]bool{}
	healCollection := func(label string, c *CollectionBody) {
		kept := []PhotoBody{}
		for _, pb := range c.Photos {
			if pb.Name == "" {
				fix("%s: dropped photo without a name", label)
				continue
			}
			if seen[pb.Name] {
				fix("%s: dropped second copy of %s", label, pb.Name)
				continue
			}
			seen[pb.Name] = true

			if pb.Directory != dir {
				pb.Directory = dir
			}
			if pb.Thumbnail == "" {
				pb.Thumbnail = filepath.Join(cfg.ThumbDir, pb.Name)
				fix("%s: %s thumbnail set to %s", label, pb.Name, pb.Thumbnail)
			}
			if pb.Edits == (render.Edits{}) {
				pb.Edits = render.DefaultEdits()
				fix("%s: %s missing edits reset to defaults", label, pb.Name)
			}
			e, efixes := pb.Edits.Normalize()
			for _, f := range efixes {
				fix("%s: %s %s", label, pb.Name, f)
			}
			pb.Edits = e
			if pb.IsEdited != e.IsEdited() {
				fix("%s: %s isEdited corrected to %v", label, pb.Name, e.IsEdited())
				pb.IsEdited = e.IsEdited()
			}
			kept = append(kept, pb)
		}
		c.Photos = kept

		switch {
		case len(c.Photos) == 0 && c.Index != 0:
			fix("%s: index %d reset to 0", label, c.Index)
			c.Index = 0
		case len(c.Photos) > 0 && (c.Index < 0 || c.Index >= len(c.Photos)):
			idx := min(max(c.Index, 0), len(c.Photos)-1)
			fix("%s: index %d clamped to %d", label, c.Index, idx)
			c.Index = idx
		}
	}

	healCollection("unassigned", &b.Unassigned)
	healCollection("discarded", &b.Discarded)
	for i := range b.Matched {
		m := &b.Matched[i]
		healCollection(fmt.Sprintf("%dL", m.ID), &m.Left)
		healCollection(fmt.Sprintf("%dR", m.ID), &m.Right)
	}

	return fixes
}
