package dispatch

import "fmt"

// Kind classifies a dispatch failure. Exactly four kinds exist; no
// unclassified error escapes the dispatcher.
type Kind string

const (
	// KindNotFound: the requested tool is not in the allow-list.
	KindNotFound Kind = "not_found"
	// KindValidation: the tool arguments failed sanitation or domain checks.
	KindValidation Kind = "validation"
	// KindTimeout: the tool exceeded its wall-clock bound.
	KindTimeout Kind = "timeout"
	// KindExecution: any other execution failure, wrapping the cause.
	KindExecution Kind = "execution"
)

// Error is a classified tool dispatch failure.
type Error struct {
	Kind Kind
	Tool string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tool %q: %s: %v", e.Tool, e.Kind, e.Err)
	}
	return fmt.Sprintf("tool %q: %s", e.Tool, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFoundError builds a KindNotFound error.
func NotFoundError(tool string) *Error {
	return &Error{Kind: KindNotFound, Tool: tool, Err: fmt.Errorf("tool is not available")}
}

// ValidationError builds a KindValidation error.
func ValidationError(tool, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Tool: tool, Err: fmt.Errorf(format, args...)}
}

// TimeoutError builds a KindTimeout error.
func TimeoutError(tool string, err error) *Error {
	return &Error{Kind: KindTimeout, Tool: tool, Err: err}
}

// ExecutionError builds a KindExecution error wrapping the cause.
func ExecutionError(tool string, err error) *Error {
	return &Error{Kind: KindExecution, Tool: tool, Err: err}
}
