// Package exprpred builds state predicates from expr-lang expression text.
//
// Predicates over typed values are ordinarily written as Go closures; this
// package is for callers whose transition conditions arrive as data, e.g.
// from configuration. The compiled expression sees two variables:
//
//	prev — the entry's previous value, nil until the first mutation
//	curr — the entry's current value
//
// Example:
//
//	pred, err := exprpred.Compile[string](`curr == "finished"`)
//	if err != nil { ... }
//	err = m.WaitUntil(ctx, "download-1", pred)
package exprpred

import (
	"context"
	"fmt"

	exprlang "github.com/expr-lang/expr"

	"github.com/tailored-agentic-units/awaitstate/state"
)

// Compile compiles expression once and returns a predicate that evaluates
// it against each snapshot.
//
// A runtime evaluation error or a non-boolean result counts as
// "unsatisfied": the predicate returns false and the wait keeps going.
// Expressions that cannot compile fail here, before any wait begins.
func Compile[V any](expression string) (state.Predicate[V], error) {
	if expression == "" {
		return nil, &CompileError{Expr: expression, Err: fmt.Errorf("expression must not be empty")}
	}

	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, &CompileError{Expr: expression, Err: err}
	}

	return func(prev *V, curr V) bool {
		env := map[string]any{
			"prev": nil,
			"curr": curr,
		}
		if prev != nil {
			env["prev"] = *prev
		}

		out, err := exprlang.Run(program, env)
		if err != nil {
			return false
		}
		satisfied, ok := out.(bool)
		return ok && satisfied
	}, nil
}

// WaitUntil compiles expression and waits on m until it holds for the entry
// at key. Compilation failures are reported before the wait begins.
func WaitUntil[K comparable, V any](ctx context.Context, m *state.Map[K, V], key K, expression string) error {
	pred, err := Compile[V](expression)
	if err != nil {
		return err
	}
	return m.WaitUntil(ctx, key, pred)
}
