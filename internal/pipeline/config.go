// Package pipeline drives a single job through the seven ordered
// processing stages: process document, prepare matching text, extract
// variables, categorize, resolve output path, store + symlink, and
// archive.
package pipeline

import (
	"github.com/iperka/paporg-sub001/internal/config"
)

// Config is the shared, read-only configuration every pipeline run is
// built from — one instance per daemon, rebuilt whenever the
// configuration reconciler reloads. Unlike the original single-source
// design, this carries no single input_directory: a job already
// carries its CurrentPath inside whichever source's input root
// produced it, and the archive stage derives "archive/" as a sibling
// of that path's containing directory, so multiple local sources with
// distinct roots archive correctly without the pipeline needing to
// know about sources at all.
type Config struct {
	OutputDirectory string
	SymlinksEnabled bool
	OCREnabled      bool
	OCRLanguages    []string
	OCRDPI          int
	Rules           []config.Resource[config.RuleSpec]
	Defaults        config.DefaultBucket
	Variables       []config.Resource[config.VariableSpec]
}

// FromLoadedConfig builds a pipeline Config from a loaded on-disk
// configuration tree.
func FromLoadedConfig(cfg *config.LoadedConfig) Config {
	settings := cfg.Settings.Spec
	return Config{
		OutputDirectory: settings.Output.RootDirectory,
		SymlinksEnabled: settings.Symlinks.Enabled,
		OCREnabled:      settings.OCR.Enabled,
		OCRLanguages:    settings.OCR.Languages,
		OCRDPI:          settings.OCR.DPI,
		Rules:           cfg.RulesByPriority(),
		Defaults:        settings.Defaults,
		Variables:       cfg.Variables,
	}
}
