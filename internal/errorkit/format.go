package errorkit

import "errors"

// JSONError is the wire shape for --json mode error output: {error, code, hint?}.
type JSONError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
	Hint  string `json:"hint,omitempty"`
}

// ToJSON converts any error into the CLI's JSON error contract, defaulting
// to a generic internal error when err isn't a *CtxError.
func ToJSON(err error) JSONError {
	var ce *CtxError
	if errors.As(err, &ce) {
		return JSONError{
			Error: ce.Message,
			Code:  ExitCode(ce.Kind),
			Hint:  ce.Suggestion,
		}
	}
	return JSONError{Error: err.Error(), Code: ExitGeneric}
}

// AsWarning reports whether err should be collected as a warning (never
// thrown) per the propagation policy in spec.md §7: per-file scan/chunk/
// embed errors never abort a run.
func AsWarning(err error) bool {
	var ce *CtxError
	if errors.As(err, &ce) {
		return ce.Severity == SeverityWarning
	}
	return false
}
