package router

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DispatchRule maps matching requests straight to a deterministic operation,
// bypassing classification entirely.
type DispatchRule struct {
	// Name labels the rule in decision reasoning.
	Name string

	// When is an expr boolean expression evaluated against the request
	// environment: text (string), params (map) and level (int).
	When string

	// Operation is the fast-tier target to dispatch to.
	Operation string
}

// AnswerRule answers matching requests inline with canned content.
type AnswerRule struct {
	Name   string
	When   string
	Answer string
}

// ruleEnv is the expression environment for dispatch and answer rules.
type ruleEnv struct {
	Text   string         `expr:"text"`
	Params map[string]any `expr:"params"`
	Level  int            `expr:"level"`
}

type compiledDispatch struct {
	rule DispatchRule
	prog *vm.Program
}

type compiledAnswer struct {
	rule AnswerRule
	prog *vm.Program
}

func compileRule(name, when string) (*vm.Program, error) {
	prog, err := expr.Compile(when,
		expr.Env(ruleEnv{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("rule %q: compile %q: %w", name, when, err)
	}
	return prog, nil
}

// matches runs a compiled rule program. Runtime evaluation errors count as
// non-matches so one malformed parameter cannot wedge the whole router.
func matches(prog *vm.Program, env ruleEnv) bool {
	out, err := expr.Run(prog, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
