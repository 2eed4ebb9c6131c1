package exprpred

import "fmt"

// CompileError reports an expression that could not be compiled into a
// predicate.
type CompileError struct {
	Expr string
	Err  error
}

func (e *CompileError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("exprpred: compile %q: %v", e.Expr, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *CompileError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
