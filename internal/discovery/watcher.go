package discovery

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/processor"
)

// watchDebounce coalesces bursts of filesystem events (e.g. a large
// file written in chunks) into a single discovery pass, the same
// 500ms window the config directory watcher debounces on.
const watchDebounce = 500 * time.Millisecond

// DirectoryWatcher watches one local source directory for newly
// created files and reports each as a Job via the configured callback.
type DirectoryWatcher struct {
	scanner  *DirectoryScanner
	log      *slog.Logger
	onJob    func(model.Job)
	fsWatch  *fsnotify.Watcher
	debounce *time.Timer
	mu       sync.Mutex
	pending  map[string]struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewDirectoryWatcher builds a watcher over scanner's directory.
// onJob is invoked once per newly detected, supported-format file.
func NewDirectoryWatcher(scanner *DirectoryScanner, onJob func(model.Job), log *slog.Logger) (*DirectoryWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(scanner.Directory()); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return &DirectoryWatcher{
		scanner: scanner,
		log:     log,
		onJob:   onJob,
		fsWatch: fsw,
		pending: make(map[string]struct{}),
	}, nil
}

// Start runs the watch loop in a background goroutine until ctx is
// canceled or Close is called.
func (w *DirectoryWatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.fsWatch.Events:
				if !ok {
					return
				}
				w.handle(ev)
			case err, ok := <-w.fsWatch.Errors:
				if !ok {
					return
				}
				if w.log != nil {
					w.log.Warn("directory watcher error", "directory", w.scanner.Directory(), "error", err)
				}
			}
		}
	}()
}

func (w *DirectoryWatcher) handle(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if filepath.Dir(ev.Name) != w.scanner.Directory() {
		return
	}
	if filepath.Base(filepath.Dir(ev.Name)) == archiveDirName {
		return
	}
	if info, err := os.Stat(ev.Name); err != nil || info.IsDir() {
		return
	}
	if _, ok := processor.FormatFromExtension(filepath.Ext(ev.Name)); !ok {
		return
	}

	w.mu.Lock()
	w.pending[ev.Name] = struct{}{}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(watchDebounce, w.flush)
	w.mu.Unlock()
}

func (w *DirectoryWatcher) flush() {
	w.mu.Lock()
	names := make([]string, 0, len(w.pending))
	for name := range w.pending {
		names = append(names, name)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	for _, name := range names {
		if _, err := os.Stat(name); err != nil {
			continue // removed again before the debounce window closed
		}
		job := model.NewJob(uuid.NewString(), filepath.Base(name), name, time.Now())
		sourceName := w.scanner.sourceName
		job.Source = &sourceName
		w.onJob(*job)
	}
}

// Close stops the watch loop and releases the underlying fsnotify
// watcher.
func (w *DirectoryWatcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
	w.wg.Wait()
	return w.fsWatch.Close()
}
