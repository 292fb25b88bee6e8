package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirectoryScannerEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	scanner := NewDirectoryScanner("local", dir)

	jobs, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("expected no jobs, got %d", len(jobs))
	}
}

func TestDirectoryScannerFindsSupportedDocuments(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "doc1.pdf", "PDF content")
	write(t, dir, "doc2.txt", "Text content")
	write(t, dir, "image.png", "PNG content")
	write(t, dir, "unknown.xyz", "Unknown")

	scanner := NewDirectoryScanner("local", dir)
	jobs, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for _, j := range jobs {
		if j.Source == nil || *j.Source != "local" {
			t.Errorf("job %q missing source tag", j.OriginalFilename)
		}
	}
}

func TestDirectoryScannerIgnoresArchiveDirectory(t *testing.T) {
	dir := t.TempDir()
	archiveDir := filepath.Join(dir, archiveDirName)
	if err := os.Mkdir(archiveDir, 0750); err != nil {
		t.Fatalf("creating archive dir: %v", err)
	}
	write(t, archiveDir, "archived.pdf", "Archived")
	write(t, dir, "new.pdf", "New")

	scanner := NewDirectoryScanner("local", dir)
	jobs, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(jobs) != 1 || jobs[0].OriginalFilename != "new.pdf" {
		t.Fatalf("expected only new.pdf, got %+v", jobs)
	}
}

func TestDirectoryScannerIgnoresSubdirectories(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "subdir")
	if err := os.Mkdir(subDir, 0750); err != nil {
		t.Fatalf("creating subdir: %v", err)
	}
	write(t, subDir, "nested.pdf", "Nested")
	write(t, dir, "top.pdf", "Top")

	scanner := NewDirectoryScanner("local", dir)
	jobs, err := scanner.Scan()
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(jobs) != 1 || jobs[0].OriginalFilename != "top.pdf" {
		t.Fatalf("expected only top.pdf, got %+v", jobs)
	}
}

func write(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0640); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
