package errorkit

import "fmt"

// CtxError is the structured error type threaded through the core. Local,
// recoverable failures are collected as warnings by callers; everything
// else propagates to the command boundary where the CLI renders Code,
// Message, and Suggestion per spec.md §7.
type CtxError struct {
	Kind       Kind
	EvalSub    EvalSubKind // only set when Kind == KindEval
	Message    string
	Severity   Severity
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

func (e *CtxError) Error() string {
	if e.EvalSub != "" {
		return fmt.Sprintf("[%s/%s] %s", e.Kind, e.EvalSub, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *CtxError) Unwrap() error { return e.Cause }

// Is enables errors.Is(err, target) to match by Kind (and EvalSub, when set).
func (e *CtxError) Is(target error) bool {
	t, ok := target.(*CtxError)
	if !ok {
		return false
	}
	if t.EvalSub != "" {
		return e.Kind == t.Kind && e.EvalSub == t.EvalSub
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key-value detail and returns the error for chaining.
func (e *CtxError) WithDetail(key, value string) *CtxError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches a single actionable hint sentence.
func (e *CtxError) WithSuggestion(s string) *CtxError {
	e.Suggestion = s
	return e
}

// New creates a CtxError of the given kind. Severity is derived from kind.
func New(kind Kind, message string, cause error) *CtxError {
	return &CtxError{
		Kind:     kind,
		Message:  message,
		Severity: severityForKind(kind),
		Cause:    cause,
	}
}

func Config(message string, cause error) *CtxError     { return New(KindConfig, message, cause) }
func Storage(message string, cause error) *CtxError     { return New(KindStorage, message, cause) }
func Validation(message string, cause error) *CtxError  { return New(KindValidation, message, cause) }
func Provider(message string, cause error) *CtxError    { return New(KindProvider, message, cause) }
func Cancelled() *CtxError                              { return New(KindCancelled, "operation cancelled", nil) }

// DimensionMismatch reports a fatal embedding dimension contract violation.
func DimensionMismatch(expected, got int) *CtxError {
	return New(KindDimensionMismatch,
		fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", expected, got), nil).
		WithSuggestion("run the index command with --force to rebuild with the current embedder")
}

// AlreadyIndexed reports an attempt to index a project name that already exists without --force.
func AlreadyIndexed(name string) *CtxError {
	return New(KindAlreadyIndexed, fmt.Sprintf("project %q is already indexed", name), nil).
		WithSuggestion("pass --force to re-index")
}

// Eval creates an eval-harness error with the given sub-kind.
func Eval(sub EvalSubKind, message string, cause error) *CtxError {
	e := New(KindEval, message, cause)
	e.EvalSub = sub
	return e
}
