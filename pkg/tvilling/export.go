package tvilling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/otiai10/copy"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/metrics"
	"github.com/tstromberg/tvilling/pkg/render"
)

// Exporter writes every matched photo into the project's export directory.
type Exporter struct {
	cfg Config
	r   *render.Renderer

	// Progress, if set, is called after each photo with the running count.
	Progress func(done, total int)
}

// NewExporter returns an Exporter for cfg.
func NewExporter(cfg Config, r *render.Renderer) *Exporter {
	return &Exporter{cfg: cfg, r: r}
}

// ExportReport describes the outcome of an export run.
type ExportReport struct {
	Dir     string
	Written []string
	Failed  map[string]error
}

// ExportName returns the file name a matched photo is exported as:
// <prefix><side>_<base><ext>. The prefix is the side's name padded to three
// digits, or the match label when the side is unnamed.
func ExportName(matchID int, sideName string, side Side, photoName string, edited bool) string {
	prefix := Label(matchID)
	if sideName != "" {
		prefix = padStart(sideName, 3, '0')
	}

	ext := filepath.Ext(photoName)
	base := strings.TrimSuffix(photoName, ext)
	if edited {
		ext = render.ExportExt(photoName)
	}
	return fmt.Sprintf("%s%s_%s%s", prefix, side, base, ext)
}

func padStart(s string, n int, pad byte) string {
	if len(s) >= n {
		return s
	}
	return strings.Repeat(string(pad), n-len(s)) + s
}

// Export clears the export directory and writes every photo of every match into
// it. Each photo is independent: failures are logged and collected, and the run
// continues. The returned error joins all failures.
func (x *Exporter) Export(ctx context.Context, b *ProjectBody) (*ExportReport, error) {
	dir := filepath.Join(b.Directory, x.cfg.ExportDir)
	if err := clean(dir); err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	total := 0
	for _, m := range b.Matched {
		total += len(m.Left.Photos) + len(m.Right.Photos)
	}
	klog.Infof("exporting %d photos from %d matches to %s", total, len(b.Matched), dir)

	rep := &ExportReport{Dir: dir, Written: []string{}, Failed: map[string]error{}}
	var mu sync.Mutex
	done := 0

	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if err != nil {
			klog.Errorf("export %s: %v", name, err)
			rep.Failed[name] = err
			metrics.ExportPhotos.WithLabelValues("failed").Inc()
		} else {
			rep.Written = append(rep.Written, name)
			metrics.ExportPhotos.WithLabelValues("written").Inc()
		}
		if x.Progress != nil {
			x.Progress(done, total)
		}
	}

	for _, m := range b.Matched {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		// Left and right are independent, so they export side by side.
		var g errgroup.Group
		for _, s := range []struct {
			side Side
			c    CollectionBody
		}{{SideLeft, m.Left}, {SideRight, m.Right}} {
			g.Go(func() error {
				for _, pb := range s.c.Photos {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					name := ExportName(m.ID, s.c.Name, s.side, pb.Name, pb.Edits.IsEdited())
					record(name, x.exportPhoto(pb, filepath.Join(dir, name)))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return rep, err
		}
	}

	sort.Strings(rep.Written)
	if len(rep.Failed) == 0 {
		klog.Infof("exported %d photos to %s", len(rep.Written), dir)
		return rep, nil
	}

	names := make([]string, 0, len(rep.Failed))
	for n := range rep.Failed {
		names = append(names, n)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, n := range names {
		errs = append(errs, fmt.Errorf("%s: %w", n, rep.Failed[n]))
	}
	return rep, errors.Join(errs...)
}

func (x *Exporter) exportPhoto(pb PhotoBody, dst string) error {
	if !pb.Edits.IsEdited() {
		klog.V(1).Infof("copying %s -> %s", pb.Path(), dst)
		return copy.Copy(pb.Path(), dst)
	}

	klog.V(1).Infof("rendering %s -> %s (%s)", pb.Path(), dst, pb.Edits)
	bs, err := x.r.Full(pb.Path(), pb.Edits)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, bs, 0o644)
}

// clean removes the regular files directly inside dir, creating dir if needed.
func clean(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	des, err := godirwalk.ReadDirents(dir, nil)
	if err != nil {
		return err
	}
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(dir, de.Name())); err != nil {
			return err
		}
	}
	klog.V(1).Infof("cleaned %d entries from %s", len(des), dir)
	return nil
}
