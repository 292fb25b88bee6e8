// Package config implements the declarative configuration model: a
// directory tree of K8s-shaped YAML manifests, a loader/validator
// pair, a debounced filesystem watcher, and an optional git
// reconciler for remote-synced config trees.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// APIVersion is the only accepted apiVersion value for every manifest
// this daemon loads.
const APIVersion = "paporg.io/v1"

// Kind is a closed sum of manifest kinds, matching the tagged-variant
// design the spec calls for throughout.
type Kind string

const (
	KindSettings     Kind = "Settings"
	KindVariable     Kind = "Variable"
	KindRule         Kind = "Rule"
	KindImportSource Kind = "ImportSource"
)

// Directory returns the subdirectory a resource of this kind lives
// under, or "" for Settings (which lives at the config root).
func (k Kind) Directory() string {
	switch k {
	case KindVariable:
		return "variables"
	case KindRule:
		return "rules"
	case KindImportSource:
		return "sources"
	default:
		return ""
	}
}

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSettings, KindVariable, KindRule, KindImportSource:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", s)
	}
}

// ObjectMeta follows Kubernetes' metadata conventions: a name unique
// within the resource's kind, plus free-form labels/annotations.
type ObjectMeta struct {
	Name        string            `yaml:"name"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty"`
}

// Envelope is the generic shape every manifest file is first decoded
// into, before the spec payload is re-decoded against its per-kind
// struct.
type Envelope struct {
	APIVersion string     `yaml:"apiVersion"`
	Kind       string     `yaml:"kind"`
	Metadata   ObjectMeta `yaml:"metadata"`
	Spec       yaml.Node  `yaml:"spec"`
}

// Resource pairs a decoded envelope with the path it was read from,
// so validation and reload errors can name the offending file.
type Resource[T any] struct {
	APIVersion string
	Kind       Kind
	Metadata   ObjectMeta
	Spec       T
	Path       string
}

func (r Resource[T]) Name() string { return r.Metadata.Name }
