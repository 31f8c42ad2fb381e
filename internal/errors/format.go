package errors

import stderrors "errors"

// Record is the uniform error shape returned at the dispatch boundary (§6).
type Record struct {
	Error     bool           `json:"error"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
}

// Format converts any error into the uniform boundary record. Errors that are not *Error are
// reported with error_type "internal" and no details.
func Format(err error) Record {
	if err == nil {
		return Record{}
	}
	var e *Error
	if stderrors.As(err, &e) {
		return Record{
			Error:     true,
			ErrorType: string(e.Kind),
			Message:   e.Message,
			Details:   e.Details,
		}
	}
	return Record{
		Error:     true,
		ErrorType: "internal",
		Message:   err.Error(),
	}
}

// ForLog renders err as structured attributes suitable for slog.
func ForLog(err error) map[string]any {
	if err == nil {
		return nil
	}
	var e *Error
	if !stderrors.As(err, &e) {
		return map[string]any{"error": err.Error()}
	}
	out := map[string]any{
		"error_code": e.Code,
		"kind":       string(e.Kind),
		"message":    e.Message,
	}
	if e.cause != nil {
		out["cause"] = e.cause.Error()
	}
	for k, v := range e.Details {
		out["detail_"+k] = v
	}
	return out
}
