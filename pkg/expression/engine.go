// Package expression evaluates the expressions addon manifests use to
// convert settings overrides between versions.
package expression

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Function is a helper callable from expressions
type Function func(params ...any) (any, error)

// Engine compiles expressions once and runs them against override
// documents. Compilation is untyped so one program serves documents of
// any shape.
type Engine struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	extra    map[string]Function
}

// NewEngine creates an engine with the conversion helpers installed:
//
//	coalesce(a, b, ...)     first non-nil argument
//	lookup(doc, "a.b")      value at a dotted path, nil when missing
//	remap(value, {old: new}) replaces a value found in the mapping
//	roundTo(value, digits)  rounds to a number of decimals
//	clamp(value, min, max)  bounds a number
func NewEngine() *Engine {
	return &Engine{
		programs: make(map[string]*vm.Program),
		extra:    make(map[string]Function),
	}
}

// Evaluate runs an expression. Variables missing from env evaluate to nil.
func (e *Engine) Evaluate(expression string, env map[string]any) (any, error) {
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = map[string]any{}
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", expression, err)
	}
	return out, nil
}

// RegisterFunction adds a helper. Programs compiled before are dropped.
func (e *Engine) RegisterFunction(name string, fn Function) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extra[name] = fn
	e.programs = make(map[string]*vm.Program)
}

// Validate compiles an expression without running it
func (e *Engine) Validate(expression string) error {
	_, err := e.program(expression)
	return err
}

func (e *Engine) program(expression string) (*vm.Program, error) {
	e.mu.RLock()
	prog, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prog, ok := e.programs[expression]; ok {
		return prog, nil
	}

	opts := []expr.Option{
		expr.AllowUndefinedVariables(),
		expr.Function("coalesce", coalesce),
		expr.Function("lookup", lookup),
		expr.Function("remap", remap),
		expr.Function("roundTo", roundTo),
		expr.Function("clamp", clamp),
	}
	for name, fn := range e.extra {
		opts = append(opts, expr.Function(name, fn))
	}

	prog, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}
	e.programs[expression] = prog
	return prog, nil
}

func coalesce(params ...any) (any, error) {
	for _, p := range params {
		if p != nil {
			return p, nil
		}
	}
	return nil, nil
}

func lookup(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("lookup(doc, path) takes 2 arguments")
	}
	path, ok := params[1].(string)
	if !ok {
		return nil, fmt.Errorf("lookup path must be a string")
	}
	current := params[0]
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, nil
		}
		current = m[key]
	}
	return current, nil
}

func remap(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("remap(value, mapping) takes 2 arguments")
	}
	mapping, ok := params[1].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("remap mapping must be an object")
	}
	key, ok := params[0].(string)
	if !ok {
		return params[0], nil
	}
	if repl, found := mapping[key]; found {
		return repl, nil
	}
	return params[0], nil
}

func roundTo(params ...any) (any, error) {
	if len(params) != 2 {
		return nil, fmt.Errorf("roundTo(value, digits) takes 2 arguments")
	}
	if params[0] == nil {
		return nil, nil
	}
	val, err := toFloat(params[0])
	if err != nil {
		return nil, err
	}
	digits, err := toFloat(params[1])
	if err != nil {
		return nil, err
	}
	mult := math.Pow(10, math.Trunc(digits))
	return math.Round(val*mult) / mult, nil
}

func clamp(params ...any) (any, error) {
	if len(params) != 3 {
		return nil, fmt.Errorf("clamp(value, min, max) takes 3 arguments")
	}
	if params[0] == nil {
		return nil, nil
	}
	var nums [3]float64
	for i, p := range params {
		f, err := toFloat(p)
		if err != nil {
			return nil, err
		}
		nums[i] = f
	}
	v := math.Max(nums[1], math.Min(nums[2], nums[0]))
	// integer inputs stay integers
	if _, isInt := asInt(params[0]); isInt && v == math.Trunc(v) {
		return int64(v), nil
	}
	return v, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
