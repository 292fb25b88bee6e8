// Package categorize matches extracted document text against a
// prioritized rule set and extracts named template variables from it.
package categorize

import (
	"github.com/iperka/paporg-sub001/internal/config"
)

// Categorization is the result of running the Categorizer against a
// document's matching text.
type Categorization struct {
	Category    string
	Output      config.RuleOutput
	MatchedRule *string
}

// Categorizer holds rules pre-sorted by descending priority and the
// default bucket to fall back to when nothing matches.
type Categorizer struct {
	rules    []config.Resource[config.RuleSpec]
	defaults config.DefaultBucket
}

// New builds a Categorizer from an already priority-sorted rule list.
func New(rulesByPriority []config.Resource[config.RuleSpec], defaults config.DefaultBucket) *Categorizer {
	return &Categorizer{rules: rulesByPriority, defaults: defaults}
}

// Categorize returns the first rule (in priority order) whose match
// condition evaluates true against text, or the configured defaults
// when none match.
func (c *Categorizer) Categorize(text string) Categorization {
	for i := range c.rules {
		r := &c.rules[i]
		if r.Spec.Match.Evaluate(text) {
			name := r.Name()
			return Categorization{Category: r.Spec.Category, Output: r.Spec.Output, MatchedRule: &name}
		}
	}
	return Categorization{
		Category: c.defaults.Category,
		Output:   config.RuleOutput{Directory: c.defaults.Directory, Filename: c.defaults.Filename},
	}
}
