package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// DefaultRecentLimit is how many recent projects are remembered.
const DefaultRecentLimit = 10

// Recent is one recently opened project.
type Recent struct {
	Path   string    `yaml:"path"`
	Name   string    `yaml:"name,omitempty"`
	Opened time.Time `yaml:"opened"`
}

// Dedupe returns at most limit entries, keeping the first entry for each path
// and the relative order of the survivors.
func Dedupe(entries []Recent, limit int) []Recent {
	seen := map[string]bool{}
	out := []Recent{}
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		if seen[e.Path] {
			continue
		}
		seen[e.Path] = true
		out = append(out, e)
	}
	return out
}

// Recents is a most-recent-first list of projects stored as YAML.
type Recents struct {
	Path  string
	Limit int
}

func (r *Recents) limit() int {
	if r.Limit <= 0 {
		return DefaultRecentLimit
	}
	return r.Limit
}

// Load returns the list. A missing or corrupt file yields an empty list; a
// corrupt one is rewritten.
func (r *Recents) Load() ([]Recent, error) {
	bs, err := os.ReadFile(r.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Recent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	var entries []Recent
	if err := yaml.Unmarshal(bs, &entries); err != nil {
		klog.Warningf("resetting corrupt recents file %s: %v", r.Path, err)
		return []Recent{}, r.save([]Recent{})
	}

	kept := []Recent{}
	for _, e := range entries {
		if e.Path != "" {
			kept = append(kept, e)
		}
	}
	deduped := Dedupe(kept, r.limit())
	if len(deduped) != len(entries) {
		klog.Warningf("%s: dropped %d invalid or duplicate entries", r.Path, len(entries)-len(deduped))
		return deduped, r.save(deduped)
	}
	return deduped, nil
}

// Add puts path at the front of the list and persists it.
func (r *Recents) Add(path, name string, opened time.Time) ([]Recent, error) {
	entries, err := r.Load()
	if err != nil {
		return nil, err
	}
	entries = Dedupe(append([]Recent{{Path: path, Name: name, Opened: opened}}, entries...), r.limit())
	return entries, r.save(entries)
}

// Remove drops path from the list, as when a recent project no longer exists.
func (r *Recents) Remove(path string) ([]Recent, error) {
	entries, err := r.Load()
	if err != nil {
		return nil, err
	}
	kept := []Recent{}
	for _, e := range entries {
		if e.Path != path {
			kept = append(kept, e)
		}
	}
	return kept, r.save(kept)
}

func (r *Recents) save(entries []Recent) error {
	bs, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(r.Path, bs, 0o644)
}
