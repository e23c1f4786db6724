package condition

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	c "github.com/patrickmn/go-cache"
)

// Evaluator interprets skip conditions: comparisons, &&, ||, !, boolean,
// string and number literals, and references to variables. Function calls
// and builtins are not available.
type Evaluator struct {
	programs *c.Cache
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		programs: c.New(10*time.Minute, 20*time.Minute),
	}
}

func (e *Evaluator) Compile(expression string) (*vm.Program, error) {
	expression = strings.TrimSpace(expression)
	if cached, found := e.programs.Get(expression); found {
		return cached.(*vm.Program), nil
	}
	program, err := expr.Compile(expression, expr.AsBool(), expr.DisableAllBuiltins())
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expression, err)
	}
	e.programs.SetDefault(expression, program)
	return program, nil
}

// Evaluate returns false for an empty expression.
func (e *Evaluator) Evaluate(expression string, variables map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, nil
	}
	program, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	env := make(map[string]any, len(variables))
	for k, v := range variables {
		env[k] = v
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("error evaluating condition %q: %w", expression, err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to bool, got %T", expression, out)
	}
	return result, nil
}
