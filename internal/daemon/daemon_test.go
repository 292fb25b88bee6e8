package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSettingsYAML = `apiVersion: paporg.io/v1
kind: Settings
metadata:
  name: settings
spec:
  output:
    rootDirectory: %s
  ocr:
    enabled: false
  symlinks:
    enabled: false
  defaults:
    category: unsorted
    directory: unsorted
    filename: $original
`

// newTestConfigDir writes a minimal valid manifest tree and returns
// its path, alongside the local import source's watched directory.
func newTestConfigDir(t *testing.T) (configDir, inputDir, outputDir string) {
	t.Helper()
	root := t.TempDir()
	configDir = filepath.Join(root, "config")
	inputDir = filepath.Join(root, "inbox")
	outputDir = filepath.Join(root, "output")
	for _, dir := range []string{configDir, filepath.Join(configDir, "sources"), inputDir, outputDir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			t.Fatalf("creating %s: %v", dir, err)
		}
	}

	settings := []byte(fmt.Sprintf(testSettingsYAML, outputDir))
	if err := os.WriteFile(filepath.Join(configDir, "settings.yaml"), settings, 0640); err != nil {
		t.Fatalf("writing settings.yaml: %v", err)
	}

	source := []byte(fmt.Sprintf(`apiVersion: paporg.io/v1
kind: ImportSource
metadata:
  name: inbox
spec:
  type: local
  local:
    path: %s
`, inputDir))
	if err := os.WriteFile(filepath.Join(configDir, "sources", "inbox.yaml"), source, 0640); err != nil {
		t.Fatalf("writing source manifest: %v", err)
	}

	return configDir, inputDir, outputDir
}

func newTestOptions(t *testing.T) Options {
	t.Helper()
	configDir, _, _ := newTestConfigDir(t)
	root := filepath.Dir(configDir)
	return Options{
		DBPath:      filepath.Join(root, "paporg.db"),
		ConfigDir:   configDir,
		TempDir:     filepath.Join(root, "tmp"),
		WorkerCount: 1,
		Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestNewAcquiresSingleInstanceLock(t *testing.T) {
	opts := newTestOptions(t)

	d, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.shutdown()

	if _, err := New(opts); err != ErrAlreadyRunning {
		t.Fatalf("expected ErrAlreadyRunning from a second New against the same db, got %v", err)
	}
}

func TestNewLoadsConfigAndBuildsPipeline(t *testing.T) {
	opts := newTestOptions(t)

	d, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer d.shutdown()

	cfg := d.Config()
	if cfg == nil {
		t.Fatal("Config() returned nil")
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name() != "inbox" {
		t.Fatalf("expected one source named inbox, got %+v", cfg.Sources)
	}
	if d.Pipeline() == nil {
		t.Fatal("Pipeline() returned nil")
	}
}

func TestRunScansBacklogAndProcessesJob(t *testing.T) {
	opts := newTestOptions(t)
	_, inputDir, outputDir := configDirFromOptions(t, opts)

	if err := os.WriteFile(filepath.Join(inputDir, "note.txt"), []byte("hello world"), 0640); err != nil {
		t.Fatalf("writing fixture document: %v", err)
	}

	d, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	var processed bool
	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(outputDir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() {
					continue
				}
				if sub, _ := os.ReadDir(filepath.Join(outputDir, e.Name())); len(sub) > 0 {
					processed = true
				}
			}
		}
		if processed {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !processed {
		t.Fatal("expected the backlog document to be filed under the output tree before the deadline")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestShutdownStopsRunWithoutHanging(t *testing.T) {
	opts := newTestOptions(t)

	d, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	d.Shutdown()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Shutdown did not stop Run within the deadline")
	}
}

// configDirFromOptions recovers the config/input/output directories
// newTestOptions derived, so callers that need to seed a backlog file
// don't have to re-derive the layout newTestConfigDir uses.
func configDirFromOptions(t *testing.T, opts Options) (configDir, inputDir, outputDir string) {
	t.Helper()
	root := filepath.Dir(opts.ConfigDir)
	return opts.ConfigDir, filepath.Join(root, "inbox"), filepath.Join(root, "output")
}
