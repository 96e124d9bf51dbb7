package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/tvilling/pkg/manage"
	"github.com/tstromberg/tvilling/pkg/session"
	"github.com/tstromberg/tvilling/pkg/tvilling"
)

// settle is how long a new file must stay quiet before it is imported.
const settle = 750 * time.Millisecond

// watch adds image files that appear in the project directory until ctx is done.
func watch(ctx context.Context, s *session.Session, cfg tvilling.Config) error {
	b, err := s.Snapshot()
	if err != nil {
		return err
	}

	if *listen {
		srv := &http.Server{Addr: *addr, Handler: manage.New(s).Handler()}
		go func() {
			klog.Infof("Listening on %s...", *addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				klog.Exitf("listen failed: %v", err)
			}
		}()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				klog.Errorf("shutdown: %v", err)
			}
		}()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(b.Directory); err != nil {
		return fmt.Errorf("watch %s: %w", b.Directory, err)
	}
	klog.Infof("watching %s for new photos ...", b.Directory)

	pending := map[string]bool{}
	timer := time.NewTimer(settle)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %s", event)
			name := filepath.Base(event.Name)
			if !tvilling.IsImage(name) || name == cfg.ProjectFile {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				pending[name] = true
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		case <-timer.C:
			names := make([]string, 0, len(pending))
			for n := range pending {
				if _, err := os.Stat(filepath.Join(b.Directory, n)); err == nil {
					names = append(names, n)
				}
			}
			pending = map[string]bool{}

			added, err := s.AddNew(ctx, names)
			if err != nil {
				klog.Errorf("add new photos: %v", err)
				continue
			}
			for _, a := range added {
				klog.Infof("added %s to unassigned", a.Name)
			}
		}
	}
}
