package tvilling

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/render"
)

// Create scans dir for images, renders a thumbnail for each, and writes a new
// project with every photo unassigned.
func Create(ctx context.Context, dir string, cfg Config, r *render.Renderer) (*Project, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}

	path := ProjectPath(dir, cfg)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%s already exists", path)
	}

	names, err := Find(dir)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	klog.Infof("found %d images in %s", len(names), dir)

	thumbs, failed, err := NewThumbnailer(cfg, r).GenerateAll(ctx, dir, names)
	if err != nil {
		return nil, fmt.Errorf("thumbnails: %w", err)
	}
	if len(failed) > 0 {
		klog.Warningf("leaving %d unreadable images out of the project", len(failed))
	}

	photos := make([]*Photo, 0, len(thumbs))
	for _, n := range names {
		if rel, ok := thumbs[n]; ok {
			photos = append(photos, NewPhoto(dir, n, rel))
		}
	}

	p := New(dir, photos, cfg, &FileStore{Path: path})
	if err := p.Save(); err != nil {
		return nil, err
	}
	klog.Infof("created project %s with %d photos and %d matches", p.ID(), len(photos), len(p.matched))
	return p, nil
}
