// Package template resolves templated step parameters and workflow outputs.
// Values may reference workflow parameters as {{params.name}} and
// completed step outputs as {{steps.step_id.key}}. A value that is exactly
// one placeholder resolves to the referenced value with its type
// preserved; placeholders embedded in longer strings interpolate as text.
// Maps and lists resolve recursively.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

// RefKind distinguishes parameter references from step output references.
type RefKind string

const (
	RefParam RefKind = "params"
	RefStep  RefKind = "steps"
)

// Ref is one placeholder found in a templated value.
type Ref struct {
	Kind RefKind
	Name string // parameter name or step id
	Key  string // output key, set for step references only
}

var refPattern = regexp.MustCompile(
	`\{\{\s*(params|steps)\.([a-zA-Z0-9_-]+)(?:\.([a-zA-Z0-9_-]+))?\s*\}\}`,
)

// References walks a raw value (string, map, or list) and collects every
// placeholder it contains. Used once at DAG-validation time to reject
// references to undeclared parameters or step ids.
func References(value any) []Ref {
	var refs []Ref

	walk(value, func(s string) {
		for _, m := range refPattern.FindAllStringSubmatch(s, -1) {
			ref := Ref{Kind: RefKind(m[1]), Name: m[2], Key: m[3]}
			refs = append(refs, ref)
		}
	})

	return refs
}

func walk(value any, fn func(string)) {
	switch v := value.(type) {
	case string:
		fn(v)
	case map[string]any:
		for _, nested := range v {
			walk(nested, fn)
		}
	case []any:
		for _, nested := range v {
			walk(nested, fn)
		}
	}
}

// Resolve substitutes every placeholder in a raw value with the concrete
// referenced value. stepOutputs carries outputs of completed steps only;
// referencing a step absent from it (skipped, failed, or not yet run) is
// a resolution error, never a silent null.
func Resolve(value any, params map[string]any, stepOutputs map[string]map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return resolveString(v, params, stepOutputs)
	case map[string]any:
		resolved := make(map[string]any, len(v))

		for key, nested := range v {
			r, err := Resolve(nested, params, stepOutputs)
			if err != nil {
				return nil, err
			}

			resolved[key] = r
		}

		return resolved, nil
	case []any:
		resolved := make([]any, len(v))

		for i, nested := range v {
			r, err := Resolve(nested, params, stepOutputs)
			if err != nil {
				return nil, err
			}

			resolved[i] = r
		}

		return resolved, nil
	default:
		return value, nil
	}
}

func resolveString(s string, params map[string]any, stepOutputs map[string]map[string]any) (any, error) {
	// A string that is exactly one placeholder keeps the referenced
	// value's type instead of flattening to text.
	if m := refPattern.FindStringSubmatch(s); m != nil && strings.TrimSpace(s) == m[0] {
		return lookup(Ref{Kind: RefKind(m[1]), Name: m[2], Key: m[3]}, params, stepOutputs)
	}

	var resolveErr error

	out := refPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := refPattern.FindStringSubmatch(match)

		value, err := lookup(Ref{Kind: RefKind(m[1]), Name: m[2], Key: m[3]}, params, stepOutputs)
		if err != nil {
			if resolveErr == nil {
				resolveErr = err
			}

			return match
		}

		return fmt.Sprint(value)
	})

	if resolveErr != nil {
		return nil, resolveErr
	}

	return out, nil
}

func lookup(ref Ref, params map[string]any, stepOutputs map[string]map[string]any) (any, error) {
	switch ref.Kind {
	case RefParam:
		value, ok := params[ref.Name]
		if !ok {
			return nil, fmt.Errorf("reference to unknown parameter %q", ref.Name)
		}

		return value, nil
	case RefStep:
		outputs, ok := stepOutputs[ref.Name]
		if !ok {
			return nil, fmt.Errorf("reference to outputs of step %q which produced none", ref.Name)
		}

		if ref.Key == "" {
			return outputs, nil
		}

		value, ok := outputs[ref.Key]
		if !ok {
			return nil, fmt.Errorf("step %q produced no output %q", ref.Name, ref.Key)
		}

		return value, nil
	default:
		return nil, fmt.Errorf("unknown reference kind %q", ref.Kind)
	}
}
