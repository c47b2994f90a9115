// Package domainerrors carries a stable failure category through the consent
// layers. The transport maps categories to responses; nothing below it knows
// about HTTP.
package domainerrors

import "errors"

// Code is a failure category.
type Code string

const (
	CodeNotFound           Code = "not_found"
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"

	CodeConfidentiality    Code = "confidentiality_error" // payload could not be decrypted
	CodeIntegrity          Code = "integrity_error"       // payload signature did not verify
	CodeDecisionUnreadable Code = "decision_unreadable"   // stored decision could not be interpreted
	CodeStorage            Code = "storage_error"         // repository backend failed
)

// Protection reports whether code means a stored payload could not be
// opened, whatever the step that failed.
func (c Code) Protection() bool {
	return c == CodeConfidentiality || c == CodeIntegrity || c == CodeDecisionUnreadable
}

// Error pairs a Code with a caller-facing message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error returns the message, or the code when there is none. The cause is
// never included so it cannot leak through a response body.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so errors.Is(err, New(code, ""))
// finds a category anywhere in the chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches msg to err. A code already present in err wins over code.
func Wrap(err error, code Code, msg string) error {
	if inner, ok := CodeOf(err); ok {
		code = inner
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// WrapAs wraps err under code even when err already carries one. The inner
// code stays reachable through errors.Is.
func WrapAs(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the outermost code in err's chain.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// CodeOrInternal is CodeOf with CodeInternal for errors that carry no code.
func CodeOrInternal(err error) Code {
	if code, ok := CodeOf(err); ok {
		return code
	}
	return CodeInternal
}

// HasCode reports whether the outermost code in err's chain is code.
func HasCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
