package template

import "errors"

// Sentinel errors for template rendering
var (
	// ErrInvalidTemplate indicates malformed template syntax (unclosed
	// braces, empty expression) or data that cannot be serialized.
	ErrInvalidTemplate = errors.New("invalid template syntax")

	// ErrUndefinedVariable indicates the template referenced a variable
	// absent from the context. The renderer catches this internally on its
	// empty-context retry; it only surfaces when the retry fails too.
	ErrUndefinedVariable = errors.New("undefined variable")
)
