package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iperka/paporg-sub001/internal/categorize"
	"github.com/iperka/paporg-sub001/internal/model"
	"github.com/iperka/paporg-sub001/internal/processor"
	"github.com/iperka/paporg-sub001/internal/storage"
	"github.com/iperka/paporg-sub001/internal/tracker"
)

// Pipeline owns the long-lived collaborators every run shares: the
// processor registry, categorizer, variable engine, and storage
// components. A new Context is built per job; the Pipeline itself is
// stateless with respect to any single run.
type Pipeline struct {
	cfg         Config
	registry    *processor.Registry
	categorizer *categorize.Categorizer
	variables   *categorize.Engine
	files       *storage.FileStorage
	symlinks    *storage.SymlinkManager
	now         func() time.Time
}

// New builds a Pipeline from cfg. Returns an error if any variable's
// regex fails to compile (config.Validate should have already caught
// this, but NewEngine re-validates defensively since a pipeline can
// outlive the config generation it was built from across a reload).
func New(cfg Config) (*Pipeline, error) {
	variables, err := categorize.NewEngine(cfg.Variables)
	if err != nil {
		return nil, fmt.Errorf("building variable engine: %w", err)
	}
	return &Pipeline{
		cfg:         cfg,
		registry:    processor.NewRegistry(cfg.OCREnabled, cfg.OCRLanguages, cfg.OCRDPI),
		categorizer: categorize.New(cfg.Rules, cfg.Defaults),
		variables:   variables,
		files:       storage.NewFileStorage(cfg.OutputDirectory),
		symlinks:    storage.NewSymlinkManager(cfg.OutputDirectory, nil),
		now:         time.Now,
	}, nil
}

// Run drives j through all seven stages, reporting progress to r.
// Any stage error is fatal to the job; symlink failures are recorded
// as warnings instead of aborting the run. The returned Context holds
// every intermediate result for callers that persist them (e.g. to
// the store) after a successful or failed run.
func (p *Pipeline) Run(j model.Job, r Reporter) (*Context, error) {
	ctx := NewContext(j)

	if err := p.stepProcessDocument(ctx, r); err != nil {
		r.Failed(err.Error())
		return ctx, err
	}
	p.stepPrepareMatchingText(ctx, r)
	p.stepExtractVariables(ctx, r)
	p.stepCategorize(ctx, r)

	if err := p.stepResolveOutputPath(ctx, r); err != nil {
		r.Failed(err.Error())
		return ctx, err
	}
	if err := p.stepStoreAndSymlink(ctx, r); err != nil {
		r.Failed(err.Error())
		return ctx, err
	}
	if err := p.stepArchive(ctx, r); err != nil {
		r.Failed(err.Error())
		return ctx, err
	}

	r.Completed(ctx.OutputPath, ctx.ArchivePath, ctx.SymlinkPaths, ctx.Categorized.Category)
	return ctx, nil
}

// stepProcessDocument dispatches the job's current path to the
// processor registry.
func (p *Pipeline) stepProcessDocument(ctx *Context, r Reporter) error {
	r.Phase(tracker.PhaseProcessingDocument, "processing document")
	content, err := p.registry.Process(ctx.Job.CurrentPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	ctx.Processed = &content
	if br, ok := r.(*BroadcastReporter); ok {
		br.SetOCRText(content.ExtractedText)
	}
	return nil
}

// stepPrepareMatchingText copies the processed text into the field
// every later stage matches against.
func (p *Pipeline) stepPrepareMatchingText(ctx *Context, r Reporter) {
	r.Phase(tracker.PhasePreparingText, "preparing matching text")
	ctx.MatchingText = ctx.Processed.ExtractedText
}

// stepExtractVariables runs every configured Variable definition
// against the matching text.
func (p *Pipeline) stepExtractVariables(ctx *Context, r Reporter) {
	r.Phase(tracker.PhaseExtractingVars, "extracting variables")
	ctx.ExtractedVars = p.variables.Extract(ctx.MatchingText)
}

// stepCategorize runs the priority-ordered rule set against the
// matching text.
func (p *Pipeline) stepCategorize(ctx *Context, r Reporter) {
	r.Phase(tracker.PhaseCategorizing, "categorizing")
	result := p.categorizer.Categorize(ctx.MatchingText)
	ctx.Categorized = &result
}

// stepResolveOutputPath substitutes extracted and built-in variables
// into the matched (or default) output directory/filename template.
func (p *Pipeline) stepResolveOutputPath(ctx *Context, r Reporter) error {
	r.Phase(tracker.PhaseResolvingOutput, "resolving output path")

	originalStem := stemOf(ctx.Job.OriginalFilename)
	vars := categorize.BuiltinVariables(originalStem, p.now())
	for k, v := range ctx.ExtractedVars {
		vars[k] = v
	}

	subDir := categorize.Substitute(ctx.Categorized.Output.Directory, vars)
	stem := categorize.Substitute(ctx.Categorized.Output.Filename, vars)
	if stem == "" {
		return fmt.Errorf("%w: resolved filename template is empty", ErrInvalidOutputPath)
	}

	ctx.resolvedSubDir = subDir
	ctx.resolvedStem = stem
	return nil
}

// stepStoreAndSymlink writes the generated PDF to its resolved
// location, then creates every configured symlink, recording failures
// as warnings rather than aborting the job.
func (p *Pipeline) stepStoreAndSymlink(ctx *Context, r Reporter) error {
	r.Phase(tracker.PhaseStoring, "storing document")

	// Every processor renders to PDF regardless of the source format.
	outputPath, err := p.files.Store(ctx.Processed.PDFBytes, ctx.resolvedSubDir, ctx.resolvedStem, ".pdf")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	ctx.OutputPath = outputPath

	if p.cfg.SymlinksEnabled {
		for _, dirTemplate := range ctx.Categorized.Output.SymlinkDirs {
			vars := categorize.BuiltinVariables(stemOf(ctx.Job.OriginalFilename), p.now())
			for k, v := range ctx.ExtractedVars {
				vars[k] = v
			}
			dir := categorize.Substitute(dirTemplate, vars)
			link, err := p.symlinks.CreateSymlink(outputPath, dir)
			if err != nil {
				ctx.Warnings = append(ctx.Warnings, Warning{Target: dir, Error: err.Error()})
				continue
			}
			ctx.SymlinkPaths = append(ctx.SymlinkPaths, link)
		}
	}
	return nil
}

// stepArchive moves the job's original file into an archive/
// subdirectory alongside its containing directory, resolving
// collisions with a numeric suffix the same way FileStorage does.
func (p *Pipeline) stepArchive(ctx *Context, r Reporter) error {
	r.Phase(tracker.PhaseArchiving, "archiving original")

	inputRoot := filepath.Dir(ctx.Job.CurrentPath)
	archiveDir := filepath.Join(inputRoot, "archive")
	if err := os.MkdirAll(archiveDir, 0750); err != nil {
		return fmt.Errorf("%w: creating archive directory: %v", ErrArchive, err)
	}

	archivePath, err := moveWithCollisionResolution(ctx.Job.CurrentPath, archiveDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}
	ctx.ArchivePath = archivePath
	return nil
}

// moveWithCollisionResolution renames src into destDir, trying the
// original basename first and then a numeric suffix until an unused
// name is found.
func moveWithCollisionResolution(src, destDir string) (string, error) {
	base := filepath.Base(src)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]

	candidate := filepath.Join(destDir, base)
	for n := 0; ; n++ {
		if n > 0 {
			candidate = filepath.Join(destDir, fmt.Sprintf("%s-%d%s", stem, n, ext))
		}
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.Rename(src, candidate); err != nil {
				return "", fmt.Errorf("moving %s to %s: %w", src, candidate, err)
			}
			return candidate, nil
		} else if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
	}
}

// stemOf returns filename without its extension.
func stemOf(filename string) string {
	ext := filepath.Ext(filename)
	return filename[:len(filename)-len(ext)]
}
