package errors

import (
	"errors"
	"fmt"
)

// Common error values shared across the gateway.
var (
	// ErrSessionExpired is returned by the backend clients when an
	// authenticated call answers 401. The guard middleware is the single
	// handler: it clears the session and redirects to the entry page.
	ErrSessionExpired = errors.New("session expired")

	// ErrPendingMissing is returned by OTP operations invoked without a
	// pending verification record.
	ErrPendingMissing = errors.New("no pending verification")

	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
