package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound                  = errors.New("not found")
	ErrAlreadyExists             = errors.New("already exists")
	ErrValidation                = errors.New("validation error")
	ErrInvalidIdentifier         = errors.New("invalid identifier")
	ErrUnsupportedFilterOperator = errors.New("unsupported filter operator")
	ErrTransactionAborted        = errors.New("transaction aborted")
	ErrStoreUnavailable          = errors.New("store unavailable")
)

// IdentifierError reports a public identifier that has no native form.
type IdentifierError struct {
	Field string
	Value string
}

func (e *IdentifierError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid identifier %q", e.Value)
	}
	return fmt.Sprintf("invalid identifier %q in field %s", e.Value, e.Field)
}

func (e *IdentifierError) Unwrap() error { return ErrInvalidIdentifier }

// FilterError reports a filter clause that cannot be translated.
type FilterError struct {
	Field    string
	Operator string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("unsupported filter operator %s on field %s", e.Operator, e.Field)
}

func (e *FilterError) Unwrap() error { return ErrUnsupportedFilterOperator }

// TxAbortedError wraps the error that caused a transaction to roll back.
// It matches both ErrTransactionAborted and the original cause.
type TxAbortedError struct {
	Err error
}

func (e *TxAbortedError) Error() string {
	return fmt.Sprintf("transaction aborted: %v", e.Err)
}

func (e *TxAbortedError) Unwrap() []error { return []error{ErrTransactionAborted, e.Err} }

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
