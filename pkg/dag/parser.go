package dag

import (
	"fmt"

	"github.com/stratoml/strato/pkg/expression"
	"github.com/stratoml/strato/pkg/models"
	"github.com/stratoml/strato/pkg/template"
)

// Graph is an immutable, validated view of a workflow definition together
// with its dependency resolver. Produced by Parse, consumed by the engine.
type Graph struct {
	Definition *models.WorkflowDefinition
	resolver   *Resolver
	draft      bool
}

// Parse validates a workflow definition and builds its dependency graph.
//
// A definition with zero steps is a valid draft: it skips structural
// validation entirely but can never be executed. For non-drafts, Parse
// checks that step ids are unique, every depends_on id exists and is not
// the step itself, and every condition/param/output reference names a
// declared parameter or step. Cycle detection beyond self-dependencies is
// deferred to Resolver.ExecutionOrder.
func Parse(def *models.WorkflowDefinition) (*Graph, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: nil definition", ErrParse)
	}

	if def.Name == "" {
		return nil, fmt.Errorf("%w: missing workflow name", ErrParse)
	}

	if len(def.Steps) == 0 {
		return &Graph{Definition: def, draft: true}, nil
	}

	var problems []string

	ids := make(map[string]struct{}, len(def.Steps))

	for _, step := range def.Steps {
		if step.ID == "" {
			problems = append(problems, "step with empty id")

			continue
		}

		if _, dup := ids[step.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate step id %q", step.ID))
		}

		ids[step.ID] = struct{}{}
	}

	params := make(map[string]struct{}, len(def.Parameters))
	for _, p := range def.Parameters {
		params[p.Name] = struct{}{}
	}

	for _, step := range def.Steps {
		problems = append(problems, validateStep(step, ids, params)...)
	}

	for name, raw := range def.Outputs {
		for _, ref := range template.References(raw) {
			if problem := checkTemplateRef(ref, ids, params); problem != "" {
				problems = append(problems, fmt.Sprintf("output %q: %s", name, problem))
			}
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	return &Graph{
		Definition: def,
		resolver:   NewResolver(def.Steps),
	}, nil
}

func validateStep(step *models.Step, ids, params map[string]struct{}) []string {
	var problems []string

	if step.Action == "" {
		problems = append(problems, fmt.Sprintf("step %q: missing action", step.ID))
	}

	for _, dep := range step.DependsOn {
		if dep == step.ID {
			problems = append(problems, fmt.Sprintf("step %q depends on itself", step.ID))

			continue
		}

		if _, ok := ids[dep]; !ok {
			problems = append(problems, fmt.Sprintf("step %q depends on unknown step %q", step.ID, dep))
		}
	}

	if step.Condition != "" {
		refs, err := expression.References(step.Condition)
		if err != nil {
			problems = append(problems, fmt.Sprintf("step %q: %v", step.ID, err))
		}

		for _, ref := range refs {
			switch ref.Kind {
			case expression.RefParam:
				if _, ok := params[ref.Name]; !ok {
					problems = append(problems, fmt.Sprintf("step %q condition references unknown parameter %q", step.ID, ref.Name))
				}
			case expression.RefStep:
				if _, ok := ids[ref.Name]; !ok {
					problems = append(problems, fmt.Sprintf("step %q condition references unknown step %q", step.ID, ref.Name))
				}
			}
		}
	}

	for _, ref := range template.References(step.Params) {
		if problem := checkTemplateRef(ref, ids, params); problem != "" {
			problems = append(problems, fmt.Sprintf("step %q: %s", step.ID, problem))
		}
	}

	return problems
}

// checkTemplateRef validates a template reference against declared
// parameters and step ids. Extra caller-supplied parameters cannot be
// known at parse time, so only declared names pass.
func checkTemplateRef(ref template.Ref, ids, params map[string]struct{}) string {
	switch ref.Kind {
	case template.RefParam:
		if _, ok := params[ref.Name]; !ok {
			return fmt.Sprintf("references unknown parameter %q", ref.Name)
		}
	case template.RefStep:
		if _, ok := ids[ref.Name]; !ok {
			return fmt.Sprintf("references unknown step %q", ref.Name)
		}
	}

	return ""
}

// Draft reports whether the definition has no steps.
func (g *Graph) Draft() bool {
	return g.draft
}

// Executable returns an error unless the graph can be run.
func (g *Graph) Executable() error {
	if g.draft {
		return ErrNotExecutable
	}

	return nil
}

// Resolver exposes the dependency resolver. Nil for drafts.
func (g *Graph) Resolver() *Resolver {
	return g.resolver
}
