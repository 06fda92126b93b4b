package chimux

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

func (w *watcher) close() error {
	var err error
	w.once.Do(func() {
		err = w.fs.Close()
		<-w.done
	})
	return err
}

// Watch invalidates the routes whenever the routing resource changes, until
// ctx is done or the router is closed. The resource's directory is watched
// so that editors replacing the file are noticed.
func (r *Router) Watch(ctx context.Context) error {
	resource := r.Resource()
	if resource == "" {
		return fmt.Errorf("%w: no routing resource to watch", ErrRoutesUnreadable)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create route watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(resource)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %q: %w", resource, err)
	}

	w := &watcher{fs: fsw, done: make(chan struct{})}
	r.mu.Lock()
	previous := r.watcher
	r.watcher = w
	r.mu.Unlock()
	if previous != nil {
		_ = previous.close()
	}

	target := filepath.Clean(resource)
	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				_ = fsw.Close()
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				r.logger.Debug("Routing resource changed", "resource", resource, "op", ev.Op.String())
				r.Invalidate()
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				r.logger.Warn("Route watcher error", "resource", resource, "error", err)
			}
		}
	}()

	r.logger.Debug("Watching routing resource", "resource", resource)
	return nil
}
