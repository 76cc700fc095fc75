// Package watch reports changes to CSV files under a directory.
//
// The cache never invalidates itself; a consumer that wants freshness
// runs a Watcher and rebuilds its cache when the callback fires. Bursts
// of events (editors save in several steps) are debounced into one
// callback, and a rate limiter spaces callbacks out so a save storm
// cannot trigger a rebuild storm.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/reedcms/reedbase/internal/reed"
)

const (
	debounceDelay = 200 * time.Millisecond
	// At most one callback per second, however fast files change.
	minInterval = time.Second
)

// Watcher invokes a callback with the distinct CSV paths that changed.
type Watcher struct {
	dir      string
	notify   func(changed []string)
	debounce time.Duration
	limiter  *rate.Limiter

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// New returns a Watcher over dir. The callback runs on a timer
// goroutine; it must not block for long.
func New(dir string, notify func(changed []string)) *Watcher {
	return &Watcher{
		dir:      dir,
		notify:   notify,
		debounce: debounceDelay,
		limiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		pending:  make(map[string]struct{}),
	}
}

// Run watches until ctx is canceled, then returns nil. Create and write
// events on *.csv files are collected; everything else is ignored.
// Watch errors are logged, not fatal.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return &reed.IoError{Op: "watch", Path: w.dir, Err: err}
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(w.dir); err != nil {
		return &reed.IoError{Op: "watch", Path: w.dir, Err: err}
	}

	defer func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()
	}()

	slog.Debug("watching for CSV changes", "dir", w.dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Ext(event.Name) != ".csv" {
				continue
			}
			w.record(event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "dir", w.dir, "err", err)
		}
	}
}

// record adds a changed path and arms the debounce timer if no flush is
// already scheduled.
func (w *Watcher) record(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.debounce, w.flush)
	}
}

// flush delivers the pending batch. When the limiter says the last
// callback was too recent, the batch stays pending and flush reschedules
// itself; nothing is dropped.
func (w *Watcher) flush() {
	w.mu.Lock()
	res := w.limiter.Reserve()
	if wait := res.Delay(); wait > 0 {
		res.Cancel()
		w.timer = time.AfterFunc(wait, w.flush)
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.timer = nil
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	slices.Sort(paths)
	slog.Debug("CSV files changed", "count", len(paths))
	w.notify(paths)
}
