package config

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxPatternLen bounds regex patterns accepted from manifests. Regex
// safety per the design notes: reject anything long enough to invite
// catastrophic backtracking rather than trying to prove an engine
// immune to it.
const maxPatternLen = 2048

// matchKind is the tagged-variant discriminator for MatchCondition,
// set explicitly during unmarshaling so an empty `all: []` can be
// told apart from "no condition supplied".
type matchKind int

const (
	matchNone matchKind = iota
	matchContains
	matchContainsAny
	matchContainsAll
	matchPattern
	matchPatternAny
	matchAll
	matchAny
	matchNot
)

// MatchCondition is a recursive tagged variant: a condition is either
// one of the simple leaf kinds or a compound combinator over nested
// conditions. Evaluate is total and recursive: `not` inverts,
// `all([]) = true`, `any([]) = false`.
type MatchCondition struct {
	Contains      string           `yaml:"contains,omitempty"`
	ContainsAny   []string         `yaml:"containsAny,omitempty"`
	ContainsAll   []string         `yaml:"containsAll,omitempty"`
	Pattern       string           `yaml:"pattern,omitempty"`
	PatternAny    []string         `yaml:"patternAny,omitempty"`
	CaseSensitive bool             `yaml:"caseSensitive,omitempty"`
	All           []MatchCondition `yaml:"all,omitempty"`
	Any           []MatchCondition `yaml:"any,omitempty"`
	Not           *MatchCondition  `yaml:"not,omitempty"`

	kind        matchKind
	compiled    *regexp.Regexp
	compiledAny []*regexp.Regexp
}

// UnmarshalYAML decodes the raw mapping and determines which single
// tagged case was supplied, so the zero value of a `[]string` field
// never gets confused with "the key was absent".
func (m *MatchCondition) UnmarshalYAML(value *yaml.Node) error {
	type raw struct {
		Contains      *string          `yaml:"contains"`
		ContainsAny   *[]string        `yaml:"containsAny"`
		ContainsAll   *[]string        `yaml:"containsAll"`
		Pattern       *string          `yaml:"pattern"`
		PatternAny    *[]string        `yaml:"patternAny"`
		CaseSensitive bool             `yaml:"caseSensitive"`
		All           *[]MatchCondition `yaml:"all"`
		Any           *[]MatchCondition `yaml:"any"`
		Not           *MatchCondition  `yaml:"not"`
	}
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}
	m.CaseSensitive = r.CaseSensitive
	switch {
	case r.Contains != nil:
		m.kind, m.Contains = matchContains, *r.Contains
	case r.ContainsAny != nil:
		m.kind, m.ContainsAny = matchContainsAny, *r.ContainsAny
	case r.ContainsAll != nil:
		m.kind, m.ContainsAll = matchContainsAll, *r.ContainsAll
	case r.Pattern != nil:
		m.kind, m.Pattern = matchPattern, *r.Pattern
	case r.PatternAny != nil:
		m.kind, m.PatternAny = matchPatternAny, *r.PatternAny
	case r.All != nil:
		m.kind, m.All = matchAll, *r.All
	case r.Any != nil:
		m.kind, m.Any = matchAny, *r.Any
	case r.Not != nil:
		m.kind, m.Not = matchNot, r.Not
	default:
		return fmt.Errorf("match condition has no recognized key (contains/containsAny/containsAll/pattern/patternAny/all/any/not)")
	}
	return nil
}

// Compile validates every regex in the condition tree and caches the
// compiled forms so Evaluate is allocation-free on the hot path.
func (m *MatchCondition) Compile() error {
	switch m.kind {
	case matchPattern:
		re, err := compilePattern(m.Pattern, m.CaseSensitive)
		if err != nil {
			return err
		}
		m.compiled = re
	case matchPatternAny:
		for _, p := range m.PatternAny {
			re, err := compilePattern(p, m.CaseSensitive)
			if err != nil {
				return err
			}
			m.compiledAny = append(m.compiledAny, re)
		}
	case matchAll, matchAny:
		list := m.All
		if m.kind == matchAny {
			list = m.Any
		}
		for i := range list {
			if err := list[i].Compile(); err != nil {
				return err
			}
		}
	case matchNot:
		if err := m.Not.Compile(); err != nil {
			return err
		}
	}
	return nil
}

func compilePattern(pattern string, caseSensitive bool) (*regexp.Regexp, error) {
	if len(pattern) > maxPatternLen {
		return nil, fmt.Errorf("pattern exceeds maximum length of %d characters", maxPatternLen)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return re, nil
}

// Evaluate is total over the condition tree: every tagged case is
// handled and evaluation never errors once Compile has succeeded.
func (m *MatchCondition) Evaluate(text string) bool {
	switch m.kind {
	case matchContains:
		return containsFold(text, m.Contains, m.CaseSensitive)
	case matchContainsAny:
		for _, s := range m.ContainsAny {
			if containsFold(text, s, m.CaseSensitive) {
				return true
			}
		}
		return false
	case matchContainsAll:
		for _, s := range m.ContainsAll {
			if !containsFold(text, s, m.CaseSensitive) {
				return false
			}
		}
		return true
	case matchPattern:
		return m.compiled.MatchString(text)
	case matchPatternAny:
		for _, re := range m.compiledAny {
			if re.MatchString(text) {
				return true
			}
		}
		return false
	case matchAll:
		for i := range m.All {
			if !m.All[i].Evaluate(text) {
				return false
			}
		}
		return true
	case matchAny:
		for i := range m.Any {
			if m.Any[i].Evaluate(text) {
				return true
			}
		}
		return false
	case matchNot:
		return !m.Not.Evaluate(text)
	default:
		return false
	}
}

func containsFold(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
