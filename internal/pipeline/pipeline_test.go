package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iperka/paporg-sub001/internal/config"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/tracker"
	"gopkg.in/yaml.v3"
)

func newTestJob(t *testing.T, inputDir, filename, body string) model.Job {
	t.Helper()
	path := filepath.Join(inputDir, filename)
	if err := os.WriteFile(path, []byte(body), 0640); err != nil {
		t.Fatalf("writing fixture file: %v", err)
	}
	return *model.NewJob("job-1", filename, path, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func containsCondition(t *testing.T, needle string) config.MatchCondition {
	t.Helper()
	var m config.MatchCondition
	doc := "contains: " + needle
	if err := yaml.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("building match condition: %v", err)
	}
	if err := m.Compile(); err != nil {
		t.Fatalf("compiling match condition: %v", err)
	}
	return m
}

func ruleConfig(t *testing.T, matchText, category, directory, filename string, symlinkDirs []string) config.Resource[config.RuleSpec] {
	t.Helper()
	return config.Resource[config.RuleSpec]{
		Kind:     config.KindRule,
		Metadata: config.ObjectMeta{Name: category},
		Spec: config.RuleSpec{
			Priority: 100,
			Category: category,
			Match:    containsCondition(t, matchText),
			Output: config.RuleOutput{
				Directory:   directory,
				Filename:    filename,
				SymlinkDirs: symlinkDirs,
			},
		},
	}
}

func TestPipelineRunCategorizesStoresAndArchivesTextDocument(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	job := newTestJob(t, inputDir, "invoice.txt", "Invoice number 42 for Acme Corp")

	cfg := Config{
		OutputDirectory: outputDir,
		SymlinksEnabled: false,
		Rules: []config.Resource[config.RuleSpec]{
			ruleConfig(t, "Invoice", "invoices", "invoices/$y", "$original-invoice", nil),
		},
		Defaults: config.DefaultBucket{Category: "unsorted", Directory: "unsorted", Filename: "$original"},
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, err := p.Run(job, NoopReporter{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if ctx.Categorized.Category != "invoices" {
		t.Errorf("category = %q, want invoices", ctx.Categorized.Category)
	}
	if filepath.Ext(ctx.OutputPath) != ".pdf" {
		t.Errorf("output path %q does not end in .pdf", ctx.OutputPath)
	}
	if _, err := os.Stat(ctx.OutputPath); err != nil {
		t.Errorf("output file missing: %v", err)
	}
	if _, err := os.Stat(ctx.ArchivePath); err != nil {
		t.Errorf("archive file missing: %v", err)
	}
	if _, err := os.Stat(job.CurrentPath); !os.IsNotExist(err) {
		t.Errorf("original file should have been moved out of %s", job.CurrentPath)
	}
}

func TestPipelineRunFallsBackToDefaultsWhenNoRuleMatches(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	job := newTestJob(t, inputDir, "random.txt", "nothing interesting here")

	cfg := Config{
		OutputDirectory: outputDir,
		Rules: []config.Resource[config.RuleSpec]{
			ruleConfig(t, "Invoice", "invoices", "invoices", "$original", nil),
		},
		Defaults: config.DefaultBucket{Category: "unsorted", Directory: "misc", Filename: "$original"},
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, err := p.Run(job, NoopReporter{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if ctx.Categorized.Category != "unsorted" {
		t.Errorf("category = %q, want unsorted", ctx.Categorized.Category)
	}
	if filepath.Dir(ctx.OutputPath) != filepath.Join(outputDir, "misc") {
		t.Errorf("output dir = %q, want under misc", filepath.Dir(ctx.OutputPath))
	}
}

func TestPipelineRunRecordsSymlinkFailureAsWarningNotFatal(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	job := newTestJob(t, inputDir, "note.txt", "Invoice body")

	// A symlink directory with a NUL byte is not creatable; the stage
	// should record a warning and the run should still succeed.
	badDir := "bad\x00dir"

	cfg := Config{
		OutputDirectory: outputDir,
		SymlinksEnabled: true,
		Rules: []config.Resource[config.RuleSpec]{
			ruleConfig(t, "Invoice", "invoices", "invoices", "$original", []string{badDir}),
		},
		Defaults: config.DefaultBucket{Category: "unsorted", Directory: "misc", Filename: "$original"},
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, err := p.Run(job, NoopReporter{})
	if err != nil {
		t.Fatalf("Run should not fail on symlink error, got: %v", err)
	}
	if len(ctx.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %+v", len(ctx.Warnings), ctx.Warnings)
	}
	if ctx.OutputPath == "" {
		t.Error("output path should still be set despite symlink failure")
	}
}

func TestPipelineRunFailsOnUnsupportedFormat(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	job := newTestJob(t, inputDir, "archive.zip", "not a real zip")

	cfg := Config{
		OutputDirectory: outputDir,
		Defaults:        config.DefaultBucket{Category: "unsorted", Directory: "misc", Filename: "$original"},
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Run(job, NoopReporter{})
	if err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestPipelineRunUsesBroadcastReporterAndRetainsOCRText(t *testing.T) {
	inputDir := t.TempDir()
	outputDir := t.TempDir()

	job := newTestJob(t, inputDir, "plain.txt", "hello world")

	cfg := Config{
		OutputDirectory: outputDir,
		Defaults:        config.DefaultBucket{Category: "unsorted", Directory: "misc", Filename: "$original"},
	}

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tr := tracker.NewJobProgressTracker("job-1", job.OriginalFilename, job.CurrentPath, nil, func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	})
	reporter := NewBroadcastReporter(tr)
	_, err = p.Run(job, reporter)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if text := reporter.TakeOCRText(); text != "hello world" {
		t.Errorf("retained OCR text = %q, want %q", text, "hello world")
	}
	if text := reporter.TakeOCRText(); text != "" {
		t.Errorf("second TakeOCRText should be empty, got %q", text)
	}
}
