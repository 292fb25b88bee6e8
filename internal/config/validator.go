package config

import (
	"fmt"
	"regexp"

	"github.com/iperka/paporg-sub001/internal/utils"
)

// Validate checks the whole-config invariants the loader can't check
// file-by-file: unique names (already enforced during Load), every
// extracted variable's pattern compiles and carries a named capture
// group matching its own name, and every rule's MatchCondition
// compiles.
func Validate(cfg *LoadedConfig) error {
	if cfg.Settings.Spec.Output.RootDirectory == "" {
		return fmt.Errorf("%s: settings.output.rootDirectory is required", cfg.Settings.Path)
	}

	for _, v := range cfg.Variables {
		if err := validateVariable(v); err != nil {
			return err
		}
	}

	for i := range cfg.Rules {
		r := &cfg.Rules[i]
		if err := r.Spec.Match.Compile(); err != nil {
			return fmt.Errorf("%s: rule %q: %w", r.Path, r.Name(), err)
		}
	}

	if err := validateLocalSources(cfg); err != nil {
		return err
	}

	return nil
}

// validateLocalSources rejects two local ImportSources scanning the
// same directory (they would race to archive each other's files) and
// a local source pointed at the output root (it would immediately
// rediscover every file the pipeline just wrote).
func validateLocalSources(cfg *LoadedConfig) error {
	seen := make(map[string]string, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if src.Spec.Type != SourceTypeLocal || src.Spec.Local == nil {
			continue
		}
		path := src.Spec.Local.Path
		if utils.PathsEqual(path, cfg.Settings.Spec.Output.RootDirectory) {
			return fmt.Errorf("%s: source %q: local path %q must not equal settings.output.rootDirectory", src.Path, src.Name(), path)
		}
		for seenPath, seenName := range seen {
			if utils.PathsEqual(path, seenPath) {
				return fmt.Errorf("%s: source %q: local path %q duplicates source %q", src.Path, src.Name(), path, seenName)
			}
		}
		seen[path] = src.Name()
	}
	return nil
}

func validateVariable(v Resource[VariableSpec]) error {
	if len(v.Spec.Pattern) > maxPatternLen {
		return fmt.Errorf("%s: variable %q: pattern exceeds maximum length of %d characters", v.Path, v.Name(), maxPatternLen)
	}
	re, err := regexp.Compile(v.Spec.Pattern)
	if err != nil {
		return fmt.Errorf("%s: variable %q: invalid pattern: %w", v.Path, v.Name(), err)
	}
	found := false
	for _, name := range re.SubexpNames() {
		if name == v.Name() {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: variable %q: pattern must contain a named capture group '(?P<%s>...)'", v.Path, v.Name(), v.Name())
	}
	return nil
}
