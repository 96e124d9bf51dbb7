package tvilling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/render"
)

// Thumbnailer writes preview files into the project's thumbnail directory.
type Thumbnailer struct {
	cfg Config
	r   *render.Renderer
}

// NewThumbnailer returns a Thumbnailer for cfg.
func NewThumbnailer(cfg Config, r *render.Renderer) *Thumbnailer {
	return &Thumbnailer{cfg: cfg, r: r}
}

// RelPath returns the thumbnail path for name, relative to the photo directory.
func (t *Thumbnailer) RelPath(name string) string {
	return filepath.Join(t.cfg.ThumbDir, name)
}

// Regenerate renders a preview of b with its current edits, overwriting any
// existing one, and returns its relative path.
func (t *Thumbnailer) Regenerate(ctx context.Context, b PhotoBody) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := t.RelPath(b.Name)
	fullPath := filepath.Join(b.Directory, rel)
	klog.V(1).Infof("creating thumb for %s: %s (%s)", b.Name, fullPath, b.Edits)

	bs, err := t.r.Thumbnail(b.Path(), b.Edits)
	if err != nil {
		return "", fmt.Errorf("render thumb: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(fullPath, bs, 0o644); err != nil {
		return "", fmt.Errorf("write thumb: %w", err)
	}
	return rel, nil
}

// RevertToOriginal returns a copy of b with default edits and a thumbnail
// regenerated from them. The original file is never touched.
func (t *Thumbnailer) RevertToOriginal(ctx context.Context, b PhotoBody) (PhotoBody, error) {
	b.Edits = render.DefaultEdits()
	b.IsEdited = false

	rel, err := t.Regenerate(ctx, b)
	if err != nil {
		return PhotoBody{}, err
	}
	b.Thumbnail = rel
	return b, nil
}

// GenerateAll creates unedited thumbnails for names in dir, using up to
// cfg.Workers goroutines. It returns the relative thumbnail path per name.
// Sources that cannot be decoded are left out of the result and reported in
// failed; any other error stops the batch.
func (t *Thumbnailer) GenerateAll(ctx context.Context, dir string, names []string) (thumbs map[string]string, failed map[string]error, err error) {
	rels := make([]string, len(names))
	errs := make([]error, len(names))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, t.cfg.Workers))
	for i, name := range names {
		g.Go(func() error {
			rel, err := t.Regenerate(ctx, PhotoBody{Directory: dir, Name: name, Edits: render.DefaultEdits()})
			var de *render.DecodeError
			if errors.As(err, &de) {
				klog.Errorf("skipping %s: %v", name, err)
				errs[i] = err
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			rels[i] = rel
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	thumbs = map[string]string{}
	failed = map[string]error{}
	for i, name := range names {
		if errs[i] != nil {
			failed[name] = errs[i]
			continue
		}
		thumbs[name] = rels[i]
	}
	klog.Infof("created %d thumbnails in %s (%d failed)", len(thumbs), filepath.Join(dir, t.cfg.ThumbDir), len(failed))
	return thumbs, failed, nil
}
