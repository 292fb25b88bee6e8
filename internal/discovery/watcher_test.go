package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iperka/paporg-sub001/internal/model"
)

func TestDirectoryWatcherDetectsNewSupportedFile(t *testing.T) {
	dir := t.TempDir()
	scanner := NewDirectoryScanner("local", dir)

	jobs := make(chan model.Job, 4)
	w, err := NewDirectoryWatcher(scanner, func(j model.Job) { jobs <- j }, nil)
	if err != nil {
		t.Fatalf("NewDirectoryWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	write(t, dir, "incoming.txt", "hello watcher")

	select {
	case j := <-jobs:
		if j.OriginalFilename != "incoming.txt" {
			t.Errorf("filename = %q, want incoming.txt", j.OriginalFilename)
		}
		if j.Source == nil || *j.Source != "local" {
			t.Errorf("expected source tag local, got %+v", j.Source)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for watcher to detect new file")
	}
}

func TestDirectoryWatcherIgnoresUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	scanner := NewDirectoryScanner("local", dir)

	jobs := make(chan model.Job, 4)
	w, err := NewDirectoryWatcher(scanner, func(j model.Job) { jobs <- j }, nil)
	if err != nil {
		t.Fatalf("NewDirectoryWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	write(t, dir, "ignored.xyz", "not a document")

	select {
	case j := <-jobs:
		t.Fatalf("did not expect a job for an unsupported extension, got %+v", j)
	case <-time.After(800 * time.Millisecond):
		// No job within the debounce window plus margin — expected.
	}
}

func TestDirectoryWatcherIgnoresArchiveSubdirectory(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, archiveDirName)
	if err := os.Mkdir(archiveDir, 0750); err != nil {
		t.Fatalf("creating archive dir: %v", err)
	}
	scanner := NewDirectoryScanner("local", dir)

	jobs := make(chan model.Job, 4)
	w, err := NewDirectoryWatcher(scanner, func(j model.Job) { jobs <- j }, nil)
	if err != nil {
		t.Fatalf("NewDirectoryWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	write(t, archiveDir, "archived.pdf", "archived content")

	select {
	case j := <-jobs:
		t.Fatalf("did not expect a job for a file written into archive/, got %+v", j)
	case <-time.After(800 * time.Millisecond):
	}
}
