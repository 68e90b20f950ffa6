package domain

import (
	"errors"
	"fmt"
)

// Error categories. Every domain error wraps exactly one of these so handlers can map
// them to a status code with errors.Is.
var (
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrPersistence  = errors.New("persistence error")
)

// Domain errors
var (
	ErrNoValidFields      = fmt.Errorf("%w: no valid fields to update", ErrValidation)
	ErrBulkItemWithoutID  = fmt.Errorf("%w: each item must contain an id", ErrValidation)
	ErrBulkNotAList       = fmt.Errorf("%w: expected a list of operations to update", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date; expected YYYY-MM-DD, YYYY-MM, YYYYMM, or YYYY", ErrValidation)
	ErrInvalidArchivoSlot = fmt.Errorf("%w: attachment field not allowed", ErrValidation)
	ErrPasswordNotAllowed = fmt.Errorf("%w: password cannot be changed through this endpoint", ErrValidation)
	ErrInvalidResetToken  = fmt.Errorf("%w: invalid token", ErrValidation)
	ErrExpiredResetToken  = fmt.Errorf("%w: expired token", ErrValidation)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrValidation)
	ErrNewPasswordMissing = fmt.Errorf("%w: new password is required", ErrValidation)
	ErrCredentialsMissing = fmt.Errorf("%w: email and password are required", ErrValidation)

	ErrEditNotAllowed = fmt.Errorf("%w: no permission to edit this operation", ErrForbidden)

	ErrOperacionNotFound    = fmt.Errorf("%w: operation not found", ErrNotFound)
	ErrPersonaNotFound      = fmt.Errorf("%w: person not found", ErrNotFound)
	ErrConceptoNotFound     = fmt.Errorf("%w: concept not found", ErrNotFound)
	ErrCategoriaNotFound    = fmt.Errorf("%w: category not found", ErrNotFound)
	ErrSubcategoriaNotFound = fmt.Errorf("%w: subcategory not found", ErrNotFound)
	ErrUsuarioNotFound      = fmt.Errorf("%w: user not found", ErrNotFound)
	ErrArchivoNotFound      = fmt.Errorf("%w: attachment not registered", ErrNotFound)

	ErrEmailTaken = fmt.Errorf("%w: duplicate email", ErrConflict)
	ErrCUITTaken  = fmt.Errorf("%w: duplicate cuit", ErrConflict)
	ErrInUse      = fmt.Errorf("%w: resource is referenced by other records", ErrConflict)

	ErrWrongPassword = fmt.Errorf("%w: wrong password", ErrUnauthorized)
)

// FieldError is a validation failure tied to a single input field.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap makes FieldError match ErrValidation.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// NewFieldError builds a FieldError.
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

// PersistenceError reports a failed store round-trip. The enclosing unit of work has been
// rolled back by the time the caller sees it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}

// NewPersistenceError wraps err unless it is nil or already a domain category error.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsDomainError reports whether err belongs to one of the domain categories.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrPersistence)
}

// Validation constants
const (
	MaxNombreLength        = 255
	MaxObservacionesLength = 2000
)
