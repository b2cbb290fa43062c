// ABOUTME: Stable error kinds for search, lifecycle and tool operations
// ABOUTME: Each error carries a kind tag, a clean message and optional raw details

package faults

import (
	"errors"
	"fmt"
)

// Kind is the stable tag clients branch on
type Kind string

const (
	KindValidation            Kind = "validation_error"
	KindEmptyQuery            Kind = "empty_query"
	KindUnknownPreset         Kind = "unknown_preset"
	KindInvalidComparison     Kind = "invalid_comparison"
	KindBackendUnavailable    Kind = "backend_unavailable"
	KindNodeNotFound          Kind = "node_not_found"
	KindAlreadyCheckedOut     Kind = "already_checked_out"
	KindNotCheckedOut         Kind = "not_checked_out"
	KindVersioningUnsupported Kind = "versioning_unsupported"
	KindIndeterminate         Kind = "indeterminate"
	KindInternal              Kind = "internal_error"
)

// IndeterminatePrefix starts every indeterminate message so it cannot be
// mistaken for a plain failure.
const IndeterminatePrefix = "OUTCOME UNKNOWN"

// Error is a classified failure
type Error struct {
	Kind    Kind
	Message string
	Details string // raw backend or cause text, never shown as the message
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels like ErrNotCheckedOut
// work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Local reports whether the kind is detected without contacting the repository
func (k Kind) Local() bool {
	switch k {
	case KindValidation, KindEmptyQuery, KindUnknownPreset, KindInvalidComparison:
		return true
	}
	return false
}

// Sentinels for errors.Is comparisons
var (
	ErrValidation            = &Error{Kind: KindValidation}
	ErrEmptyQuery            = &Error{Kind: KindEmptyQuery}
	ErrUnknownPreset         = &Error{Kind: KindUnknownPreset}
	ErrInvalidComparison     = &Error{Kind: KindInvalidComparison}
	ErrBackendUnavailable    = &Error{Kind: KindBackendUnavailable}
	ErrNodeNotFound          = &Error{Kind: KindNodeNotFound}
	ErrAlreadyCheckedOut     = &Error{Kind: KindAlreadyCheckedOut}
	ErrNotCheckedOut         = &Error{Kind: KindNotCheckedOut}
	ErrVersioningUnsupported = &Error{Kind: KindVersioningUnsupported}
	ErrIndeterminate         = &Error{Kind: KindIndeterminate}
	ErrInternal              = &Error{Kind: KindInternal}
)

// Validation reports a malformed or out-of-range argument
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// EmptyQuery reports a required query-like field that is blank
func EmptyQuery(field string) *Error {
	return &Error{Kind: KindEmptyQuery, Message: fmt.Sprintf("%s must not be empty", field)}
}

// UnknownPreset reports a preset name missing from the preset table
func UnknownPreset(name string, known []string) *Error {
	return &Error{
		Kind:    KindUnknownPreset,
		Message: fmt.Sprintf("unknown preset %q", name),
		Details: fmt.Sprintf("available presets: %v", known),
	}
}

// InvalidComparison reports an operator or property name the property model rejects
func InvalidComparison(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidComparison, Message: fmt.Sprintf(format, args...)}
}

// BackendUnavailable reports connectivity, authentication or timeout failures
func BackendUnavailable(op string, cause error) *Error {
	e := &Error{
		Kind:    KindBackendUnavailable,
		Message: fmt.Sprintf("content repository unavailable during %s", op),
		Err:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// NodeNotFound reports a node reference the repository does not know
func NodeNotFound(ref string, cause error) *Error {
	e := &Error{
		Kind:    KindNodeNotFound,
		Message: fmt.Sprintf("node %s not found", ref),
		Err:     cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// AlreadyCheckedOut reports a checkout attempt against a locked node
func AlreadyCheckedOut(ref, owner string) *Error {
	e := &Error{
		Kind:    KindAlreadyCheckedOut,
		Message: fmt.Sprintf("node %s is already checked out", ref),
	}
	if owner != "" {
		e.Details = "lock owner: " + owner
	}
	return e
}

// NotCheckedOut reports a checkin or cancel on a node the caller does not hold
func NotCheckedOut(ref, detail string) *Error {
	return &Error{
		Kind:    KindNotCheckedOut,
		Message: fmt.Sprintf("node %s is not checked out by the caller", ref),
		Details: detail,
	}
}

// VersioningUnsupported reports a checkin against a non-versionable node
func VersioningUnsupported(ref string) *Error {
	return &Error{
		Kind:    KindVersioningUnsupported,
		Message: fmt.Sprintf("node %s does not support versioning", ref),
	}
}

// Indeterminate reports a mutation whose remote outcome could not be confirmed
func Indeterminate(op, ref string, cause error) *Error {
	e := &Error{
		Kind: KindIndeterminate,
		Message: fmt.Sprintf("%s: %s of node %s may or may not have been applied; re-query the node state before retrying",
			IndeterminatePrefix, op, ref),
		Err: cause,
	}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// Internal reports a local failure unrelated to the repository or the arguments
func Internal(op string, cause error) *Error {
	e := &Error{Kind: KindInternal, Message: fmt.Sprintf("internal error while %s", op), Err: cause}
	if cause != nil {
		e.Details = cause.Error()
	}
	return e
}

// WithDetails returns a copy of e whose details are replaced
func (e *Error) WithDetails(details string) *Error {
	c := *e
	c.Details = details
	return &c
}

// KindOf extracts the kind from err, KindInternal for unclassified errors
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Retryable reports whether retrying the same call may succeed
func Retryable(err error) bool {
	return KindOf(err) == KindBackendUnavailable
}

// RequiresRequery reports whether the caller must re-read state before acting again
func RequiresRequery(err error) bool {
	return KindOf(err) == KindIndeterminate
}
