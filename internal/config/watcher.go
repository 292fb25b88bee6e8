package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/iperka/paporg-sub001/internal/broadcast"
)

// ChangeType is a closed sum describing why a ConfigChangeEvent fired.
type ChangeType string

const (
	ChangeCreated  ChangeType = "created"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
	ChangeRenamed  ChangeType = "renamed"
	ChangeReloaded ChangeType = "reloaded"
)

// ChangeEvent is published to every Watcher subscriber whenever the
// config directory changes (or a Reconciler reload completes).
type ChangeEvent struct {
	ChangeType   ChangeType
	Path         string
	ResourceKind *Kind
	ResourceName *string
}

// debouncer coalesces bursts of filesystem events into a single
// callback invocation, the way the teacher's daemon file watcher
// debounces JSONL writes.
type debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	delay    time.Duration
	callback func()
}

func newDebouncer(delay time.Duration, callback func()) *debouncer {
	return &debouncer{delay: delay, callback: callback}
}

func (d *debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.callback)
}

func (d *debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Watcher watches a config directory recursively (fsnotify on the
// directory and each of its first-level subdirectories) and publishes
// debounced ChangeEvents to every subscriber. Non-YAML files are
// filtered before an event is ever published.
type Watcher struct {
	dir       string
	log       *slog.Logger
	fsWatcher *fsnotify.Watcher
	debouncer *debouncer
	bc        *broadcast.Broadcaster[ChangeEvent]

	mu      sync.Mutex
	pending []ChangeEvent
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher builds a Watcher over dir. bc receives every
// debounced, filtered ChangeEvent.
func NewWatcher(dir string, bc *broadcast.Broadcaster[ChangeEvent], log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{dir: dir, log: log, fsWatcher: fsw, bc: bc}
	w.debouncer = newDebouncer(500*time.Millisecond, w.flush)

	for _, sub := range []string{"", "variables", "rules", "sources"} {
		_ = fsw.Add(filepath.Join(dir, sub))
	}
	return w, nil
}

// Start runs the watch loop in a background goroutine until ctx is
// canceled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsWatcher.Events:
				if !ok {
					return
				}
				w.handle(ev)
			case err, ok := <-w.fsWatcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("config watcher error", "error", err)
			}
		}
	}()
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !isYAML(ev.Name) {
		return
	}
	ct := ChangeModified
	switch {
	case ev.Op&fsnotify.Create != 0:
		ct = ChangeCreated
	case ev.Op&fsnotify.Remove != 0:
		ct = ChangeDeleted
	case ev.Op&fsnotify.Rename != 0:
		ct = ChangeRenamed
	}

	kind, name := resolveResource(w.dir, ev.Name)

	w.mu.Lock()
	w.pending = append(w.pending, ChangeEvent{ChangeType: ct, Path: ev.Name, ResourceKind: kind, ResourceName: name})
	w.mu.Unlock()

	w.debouncer.Trigger()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	events := w.pending
	w.pending = nil
	w.mu.Unlock()

	for _, ev := range events {
		w.bc.Publish(ev)
	}
}

// resolveResource infers which kind/name a changed YAML path belongs
// to purely from its location under the config directory — it never
// re-reads the file, since a Deleted event's file no longer exists.
func resolveResource(dir, path string) (*Kind, *string) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return nil, nil
	}
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	var kind Kind
	switch filepath.Dir(rel) {
	case ".":
		if filepath.Base(rel) == "settings.yaml" {
			kind = KindSettings
		} else {
			return nil, nil
		}
	case "variables":
		kind = KindVariable
	case "rules":
		kind = KindRule
	case "sources":
		kind = KindImportSource
	default:
		return nil, nil
	}
	return &kind, &base
}

// Close stops the watch loop and releases the underlying fsnotify
// watcher.
func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.debouncer.Stop()
	w.wg.Wait()
	return w.fsWatcher.Close()
}
