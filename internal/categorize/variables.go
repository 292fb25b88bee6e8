package categorize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/iperka/paporg-sub001/internal/config"
)

// compiledVariable pairs a variable definition with its once-compiled
// regex, grounding the same "compile every pattern once at
// construction, match many times" idiom the daemon's other regex
// extractors use.
type compiledVariable struct {
	name      string
	re        *regexp.Regexp
	transform config.VariableTransform
	fallback  *string
}

// Engine extracts named template variables from a document's
// matching text, one compiled regex per declared Variable resource.
type Engine struct {
	vars []compiledVariable
}

// NewEngine compiles every Variable resource's pattern once.
func NewEngine(variables []config.Resource[config.VariableSpec]) (*Engine, error) {
	e := &Engine{vars: make([]compiledVariable, 0, len(variables))}
	for _, v := range variables {
		re, err := regexp.Compile(v.Spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", v.Name(), err)
		}
		e.vars = append(e.vars, compiledVariable{
			name:      v.Name(),
			re:        re,
			transform: v.Spec.Transform,
			fallback:  v.Spec.Default,
		})
	}
	return e, nil
}

// Extract runs every compiled variable against text. A variable whose
// pattern doesn't match falls back to its declared default if any,
// and is otherwise absent from the result map.
func (e *Engine) Extract(text string) map[string]string {
	out := make(map[string]string, len(e.vars))
	for _, v := range e.vars {
		match := v.re.FindStringSubmatch(text)
		idx := v.re.SubexpIndex(v.name)
		if match != nil && idx >= 0 && idx < len(match) && match[idx] != "" {
			out[v.name] = applyTransform(match[idx], v.transform)
			continue
		}
		if v.fallback != nil {
			out[v.name] = *v.fallback
		}
	}
	return out
}

func applyTransform(value string, t config.VariableTransform) string {
	switch t {
	case config.TransformSlugify:
		return slugify(value)
	case config.TransformLowercase:
		return strings.ToLower(value)
	case config.TransformUppercase:
		return strings.ToUpper(value)
	case config.TransformTrim:
		return strings.TrimSpace(value)
	default:
		return value
	}
}

// slugify lowercases, replaces runs of non-alphanumeric characters
// with a single hyphen, and trims leading/trailing hyphens. No
// slugify library appears anywhere in the retrieval pack (see
// DESIGN.md), so this is a small hand-rolled stdlib routine.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// BuiltinVariables returns the always-available clock/filename
// variables merged into every substitution, independent of any
// configured Variable resource.
func BuiltinVariables(originalFilenameNoExt string, now time.Time) map[string]string {
	return map[string]string{
		"original":  originalFilenameNoExt,
		"y":         now.Format("2006"),
		"m":         now.Format("01"),
		"d":         now.Format("02"),
		"h":         now.Format("15"),
		"mn":        now.Format("04"),
		"s":         now.Format("05"),
		"timestamp": fmt.Sprintf("%d", now.Unix()),
	}
}

// tokenPattern matches a $name reference. The identifier character
// class is greedy, so a name is always captured to its longest
// possible extent (e.g. "$yellow" is the single token "yellow", never
// "$y" followed by literal "ellow").
var tokenPattern = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)

// Substitute replaces every $name token in template with the
// corresponding value from vars; unknown tokens are left intact.
func Substitute(template string, vars map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := token[1:]
		if v, ok := vars[name]; ok {
			return v
		}
		return token
	})
}
