package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for unknown email, inactive admin
	// and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidSession covers every token problem: malformed, bad
	// signature, wrong algorithm, expired.
	ErrInvalidSession = errors.New("invalid session")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// ValidationError carries a message that is safe to show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
