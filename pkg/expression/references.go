package expression

import (
	"fmt"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// RefKind distinguishes the two namespaces a condition may reference.
type RefKind string

const (
	RefParam RefKind = "params"
	RefStep  RefKind = "steps"
)

// Ref is one reference found in a condition expression: a workflow
// parameter name or a step id.
type Ref struct {
	Kind RefKind
	Name string
}

// References parses a condition and returns every params.* and steps.*
// reference it makes. Top-level identifiers other than params and steps
// are rejected so that typos surface at DAG-validation time instead of
// silently evaluating to nil at run time.
func References(condition string) ([]Ref, error) {
	if condition == "" {
		return nil, nil
	}

	tree, err := parser.Parse(condition)
	if err != nil {
		return nil, fmt.Errorf("condition %q parse failed: %w", condition, err)
	}

	v := &refVisitor{}
	ast.Walk(&tree.Node, v)

	if v.unknown != "" {
		return nil, fmt.Errorf("condition %q references unknown identifier %q", condition, v.unknown)
	}

	return v.refs, nil
}

type refVisitor struct {
	refs    []Ref
	unknown string
}

func (v *refVisitor) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.MemberNode:
		ident, ok := n.Node.(*ast.IdentifierNode)
		if !ok {
			return
		}

		prop, ok := n.Property.(*ast.StringNode)
		if !ok {
			return
		}

		switch ident.Value {
		case string(RefParam):
			v.refs = append(v.refs, Ref{Kind: RefParam, Name: prop.Value})
		case string(RefStep):
			v.refs = append(v.refs, Ref{Kind: RefStep, Name: prop.Value})
		}
	case *ast.IdentifierNode:
		if n.Value != string(RefParam) && n.Value != string(RefStep) && v.unknown == "" {
			v.unknown = n.Value
		}
	}
}
