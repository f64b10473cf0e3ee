package purchasing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/erp/poimport/internal/domain/shared"
)

// Import error codes
const (
	ErrCodeInvalidFormat  = "INVALID_FORMAT"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodePersistence    = "PERSISTENCE_FAILED"
	ErrCodeConflict       = "ALREADY_EXISTS"
	ErrCodeHeaderMismatch = "HEADER_MISMATCH"
	ErrCodeValidation     = "VALIDATION_FAILED"
)

// FormatError reports a value that could not be parsed as the expected type
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// Is reports FormatError as shared.ErrInvalidInput
func (e *FormatError) Is(target error) bool { return target == shared.ErrInvalidInput }

// Code returns the error code
func (e *FormatError) Code() string { return ErrCodeInvalidFormat }

// NotFoundError reports a referenced entity that does not exist in the store
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

// Is reports NotFoundError as shared.ErrNotFound
func (e *NotFoundError) Is(target error) bool { return target == shared.ErrNotFound }

// Code returns the error code
func (e *NotFoundError) Code() string { return ErrCodeNotFound }

// PersistenceError reports a store write that failed or was not acknowledged
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return e.Op + " failed"
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Code returns the error code
func (e *PersistenceError) Code() string { return ErrCodePersistence }

// ConflictError reports a PO number that already exists in the store
type ConflictError struct {
	PONumber string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("purchase order %s already exists", e.PONumber)
}

// Is reports ConflictError as shared.ErrAlreadyExists
func (e *ConflictError) Is(target error) bool { return target == shared.ErrAlreadyExists }

// Code returns the error code
func (e *ConflictError) Code() string { return ErrCodeConflict }

// FieldMismatch describes a header field whose value differs between rows of one PO
type FieldMismatch struct {
	Field  string `json:"field"`
	First  string `json:"first"`
	Other  string `json:"other"`
	RowNum int    `json:"row"`
}

// HeaderMismatchError reports rows of one PO that disagree on header fields
type HeaderMismatchError struct {
	PONumber   string
	Mismatches []FieldMismatch
}

func (e *HeaderMismatchError) Error() string {
	parts := make([]string, 0, len(e.Mismatches))
	for _, m := range e.Mismatches {
		parts = append(parts, fmt.Sprintf("%s %q vs %q (row %d)", m.Field, m.First, m.Other, m.RowNum))
	}
	return fmt.Sprintf("purchase order %s has conflicting header fields: %s", e.PONumber, strings.Join(parts, "; "))
}

// Code returns the error code
func (e *HeaderMismatchError) Code() string { return ErrCodeHeaderMismatch }

// ValidationError reports a source row that is missing required values
type ValidationError struct {
	Row        int
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(e.Violations, ", "))
}

// Is reports ValidationError as shared.ErrInvalidInput
func (e *ValidationError) Is(target error) bool { return target == shared.ErrInvalidInput }

// Code returns the error code
func (e *ValidationError) Code() string { return ErrCodeValidation }

// ErrorCode returns the code of the first coded error in the chain, or "" if there is none
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}
