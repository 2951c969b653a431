package expression

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// identWalker collects the free variables of an expression
type identWalker struct {
	idents  map[string]struct{}
	callees map[string]struct{}
}

func (w *identWalker) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		w.idents[n.Value] = struct{}{}
	case *ast.CallNode:
		if id, ok := n.Callee.(*ast.IdentifierNode); ok {
			w.callees[id.Value] = struct{}{}
		}
	}
}

// Variables returns the sorted names of the variables an expression
// reads. Function names are not included.
func Variables(expression string) ([]string, error) {
	tree, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression: %w", err)
	}

	w := &identWalker{
		idents:  make(map[string]struct{}),
		callees: make(map[string]struct{}),
	}
	ast.Walk(&tree.Node, w)

	out := make([]string, 0, len(w.idents))
	for name := range w.idents {
		if _, isCall := w.callees[name]; isCall {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// CheckVariables fails when an expression reads a variable outside allowed
func CheckVariables(expression string, allowed ...string) error {
	vars, err := Variables(expression)
	if err != nil {
		return err
	}
	ok := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		ok[a] = struct{}{}
	}
	for _, v := range vars {
		if _, found := ok[v]; !found {
			return fmt.Errorf("expression %q references unknown variable %q", expression, v)
		}
	}
	return nil
}
