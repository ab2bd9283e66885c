package usecase

import (
	"errors"
	"fmt"

	"transit-booking/pkg/utils"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrIllegalTransition    = errors.New("illegal state transition")
	ErrPNRExhausted         = errors.New("pnr space exhausted")
	ErrIntentAlreadySettled = errors.New("payment intent already settled")
	ErrInvalidSignature     = errors.New("invalid settlement signature")
	ErrAudit                = errors.New("audit write failed")
)

// ValidationError carries per-field messages for malformed input. It
// matches ErrValidation under errors.Is.
type ValidationError struct {
	Fields  map[string]string
	Message string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("validation failed: %s", utils.FormatValidationErrors(e.Fields))
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationErr(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func validateRequest(req any) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
