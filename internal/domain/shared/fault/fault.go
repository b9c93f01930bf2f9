package fault

import (
	"errors"
	"fmt"
)

// Sentinels shared across the domain so the transport layer can map errors to
// status codes without knowing every concrete error type.
var (
	ErrValidation = errors.New("validation failed")
	ErrTransient  = errors.New("transient failure")
)

// Validationf builds a caller-facing validation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// Transient marks an infrastructure failure as safe to retry.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
