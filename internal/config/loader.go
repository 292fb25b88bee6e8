package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadedConfig is exactly one Settings resource plus the collected
// Variable, Rule, and ImportSource resources discovered under a
// config directory.
type LoadedConfig struct {
	Dir        string
	Settings   Resource[SettingsSpec]
	Variables  []Resource[VariableSpec]
	Rules      []Resource[RuleSpec]
	Sources    []Resource[ImportSourceSpec]
}

// RulesByPriority returns Rules sorted by descending priority, ties
// broken by position in that sorted list and then by name — i.e. a
// stable sort keyed first on priority, then on name.
func (c *LoadedConfig) RulesByPriority() []Resource[RuleSpec] {
	sorted := make([]Resource[RuleSpec], len(c.Rules))
	copy(sorted, c.Rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Spec.Priority != sorted[j].Spec.Priority {
			return sorted[i].Spec.Priority > sorted[j].Spec.Priority
		}
		return sorted[i].Name() < sorted[j].Name()
	})
	return sorted
}

// Load walks dir and builds a LoadedConfig. Any apiVersion mismatch,
// duplicate (kind, name) pair, missing Settings resource, or per-kind
// validation failure aborts the load; the returned error always names
// the offending path.
func Load(dir string) (*LoadedConfig, error) {
	cfg := &LoadedConfig{Dir: dir}
	seenNames := map[Kind]map[string]bool{
		KindSettings:     {},
		KindVariable:     {},
		KindRule:         {},
		KindImportSource: {},
	}

	haveSettings := false

	load := func(path string, kind Kind) error {
		env, err := decodeEnvelope(path)
		if err != nil {
			return err
		}
		if env.APIVersion != APIVersion {
			return fmt.Errorf("%s: unsupported apiVersion %q, expected %q", path, env.APIVersion, APIVersion)
		}
		gotKind, err := ParseKind(env.Kind)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if gotKind != kind {
			return fmt.Errorf("%s: expected kind %s, found %s", path, kind, gotKind)
		}
		if env.Metadata.Name == "" {
			return fmt.Errorf("%s: metadata.name is required", path)
		}
		if seenNames[kind][env.Metadata.Name] {
			return fmt.Errorf("%s: duplicate %s named %q", path, kind, env.Metadata.Name)
		}
		seenNames[kind][env.Metadata.Name] = true

		switch kind {
		case KindSettings:
			var spec SettingsSpec
			if err := env.Spec.Decode(&spec); err != nil {
				return fmt.Errorf("%s: invalid Settings spec: %w", path, err)
			}
			cfg.Settings = Resource[SettingsSpec]{APIVersion: env.APIVersion, Kind: kind, Metadata: env.Metadata, Spec: spec, Path: path}
			haveSettings = true
		case KindVariable:
			var spec VariableSpec
			if err := env.Spec.Decode(&spec); err != nil {
				return fmt.Errorf("%s: invalid Variable spec: %w", path, err)
			}
			cfg.Variables = append(cfg.Variables, Resource[VariableSpec]{APIVersion: env.APIVersion, Kind: kind, Metadata: env.Metadata, Spec: spec, Path: path})
		case KindRule:
			var spec RuleSpec
			if err := env.Spec.Decode(&spec); err != nil {
				return fmt.Errorf("%s: invalid Rule spec: %w", path, err)
			}
			cfg.Rules = append(cfg.Rules, Resource[RuleSpec]{APIVersion: env.APIVersion, Kind: kind, Metadata: env.Metadata, Spec: spec, Path: path})
		case KindImportSource:
			var spec ImportSourceSpec
			if err := env.Spec.Decode(&spec); err != nil {
				return fmt.Errorf("%s: invalid ImportSource spec: %w", path, err)
			}
			cfg.Sources = append(cfg.Sources, Resource[ImportSourceSpec]{APIVersion: env.APIVersion, Kind: kind, Metadata: env.Metadata, Spec: spec, Path: path})
		}
		return nil
	}

	settingsPath := filepath.Join(dir, "settings.yaml")
	if _, err := os.Stat(settingsPath); err != nil {
		return nil, fmt.Errorf("%s: missing required Settings resource: %w", settingsPath, err)
	}
	if err := load(settingsPath, KindSettings); err != nil {
		return nil, err
	}

	for _, sub := range []struct {
		dir  string
		kind Kind
	}{
		{"variables", KindVariable},
		{"rules", KindRule},
		{"sources", KindImportSource},
	} {
		entries, err := os.ReadDir(filepath.Join(dir, sub.dir))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("%s: %w", filepath.Join(dir, sub.dir), err)
		}
		for _, e := range entries {
			if e.IsDir() || !isYAML(e.Name()) {
				continue
			}
			if err := load(filepath.Join(dir, sub.dir, e.Name()), sub.kind); err != nil {
				return nil, err
			}
		}
	}

	if !haveSettings {
		return nil, fmt.Errorf("%s: missing required Settings resource", settingsPath)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func decodeEnvelope(path string) (Envelope, error) {
	// #nosec G304 -- path is constructed from the configured config
	// directory, a trusted operator-controlled tree.
	data, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", path, err)
	}
	var env Envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", path, err)
	}
	return env, nil
}

func isYAML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
