// Package mrferrors defines the typed error values returned across the core's
// operation boundary (spec §7). None of these are used as control-flow
// exceptions between internal components — they are constructed once, at the
// point an operation fails, and returned to the caller.
package mrferrors

import "fmt"

// Kind enumerates the error categories an operation can fail with.
type Kind string

const (
	KindIO                   Kind = "io_error"
	KindParse                Kind = "parse_error"
	KindMissingSource        Kind = "missing_source"
	KindSessionNotFound      Kind = "session_not_found"
	KindSessionParamMismatch Kind = "session_param_mismatch"
	KindSessionBaselineChanged Kind = "session_baseline_changed"
	KindBadRule              Kind = "bad_rule"
	KindExpiredLink          Kind = "expired_link"
)

// Error is the single structured error type returned by the core. Kind is
// comparable so callers can branch on it with errors.Is against an
// &Error{Kind: ...} value (see Is below), or by inspecting (*Error).Kind
// directly after errors.As.
type Error struct {
	Kind    Kind
	Message string
	// Subject is the failing identifier the caller supplied: a path, a
	// source name, or a session ID. Always populated for MissingSource and
	// the session kinds, per spec §7 ("user-visible with the failing
	// identifier").
	Subject string
	Err     error // wrapped cause, if any
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Subject)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &Error{Kind: KindX}) match any *Error with the same Kind,
// regardless of Message/Subject/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func IO(path string, err error) *Error {
	return &Error{Kind: KindIO, Message: "I/O failure", Subject: path, Err: err}
}

func Parse(message string, err error) *Error {
	return &Error{Kind: KindParse, Message: message, Err: err}
}

func MissingSource(name string) *Error {
	return &Error{Kind: KindMissingSource, Message: "source not loaded", Subject: name}
}

func SessionNotFound(sessionID string) *Error {
	return &Error{Kind: KindSessionNotFound, Message: "session not found", Subject: sessionID}
}

func SessionParamMismatch(sessionID, detail string) *Error {
	return &Error{Kind: KindSessionParamMismatch, Message: detail, Subject: sessionID}
}

func SessionBaselineChanged(sessionID string) *Error {
	return &Error{Kind: KindSessionBaselineChanged, Message: "baseline_source cannot change for an existing session", Subject: sessionID}
}

func BadRule(rule string) *Error {
	return &Error{Kind: KindBadRule, Message: "unsupported compare rule", Subject: rule}
}

func ExpiredLink(url string) *Error {
	return &Error{Kind: KindExpiredLink, Message: "link expired or access denied", Subject: url}
}
