package graph

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprPredicate compiles an expression string into an edge predicate.
//
// The expression is evaluated against the state map, so field names are
// referenced directly:
//
//	p, err := graph.ExprPredicate(`score > 0.8 && status == "reviewed"`)
//	def.Connect("review", "publish", p)
//
// Expressions are compiled once, at definition build time, and must evaluate
// to a boolean. A field referenced by the expression but absent from the
// state makes the predicate return false rather than failing the thread;
// conditional routing on a not-yet-written field is a normal situation in the
// early steps of a workflow.
func ExprPredicate(expression string) (Predicate, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, &EngineError{
			Message: fmt.Sprintf("invalid edge predicate %q: %v", expression, err),
			Code:    "INVALID_PREDICATE",
		}
	}
	return exprPredicate(program), nil
}

// MustExprPredicate is ExprPredicate that panics on a compile error. Intended
// for predicates written as literals in graph construction code, where a
// compile failure is a programming error.
func MustExprPredicate(expression string) Predicate {
	p, err := ExprPredicate(expression)
	if err != nil {
		panic(err)
	}
	return p
}

func exprPredicate(program *vm.Program) Predicate {
	return func(state State) bool {
		env := map[string]any(state)
		if env == nil {
			env = map[string]any{}
		}
		out, err := expr.Run(program, env)
		if err != nil {
			// Missing fields or type mismatches mean "edge not taken",
			// consistent with a hand-written predicate using typed getters.
			return false
		}
		b, ok := out.(bool)
		return ok && b
	}
}
