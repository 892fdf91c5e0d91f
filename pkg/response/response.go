package response

import (
	"errors"
	"fmt"
)

// Error carries the HTTP status a failure should be reported with.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Err.Error() == t.Err.Error()
}

func NewError(code int, err string) error {
	return &Error{code, errors.New(err)}
}

// Wrap keeps the status of kind and appends cause to its message. The result
// still matches kind under errors.Is.
func Wrap(kind error, cause error) error {
	var k *Error
	if !errors.As(kind, &k) {
		return fmt.Errorf("%w: %w", kind, cause)
	}
	return &wrapped{kind: k, cause: cause}
}

type wrapped struct {
	kind  *Error
	cause error
}

func (w *wrapped) Error() string {
	return fmt.Sprintf("%s: %s", w.kind.Error(), w.cause.Error())
}

// Cause is the underlying failure without the kind prefix.
func (w *wrapped) Cause() error {
	return w.cause
}

func (w *wrapped) Unwrap() []error {
	return []error{w.kind, w.cause}
}

// StatusCode returns the status attached to err, or fallback when err carries none.
func StatusCode(err error, fallback int) int {
	var respErr *Error
	if errors.As(err, &respErr) {
		return respErr.Code
	}
	return fallback
}
