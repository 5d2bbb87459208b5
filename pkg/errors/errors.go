package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidFileFormat  = errors.New("invalid file format")
	ErrEncryptedWorkbook  = errors.New("workbook is password protected")
	ErrUnsupportedType    = errors.New("unsupported file type")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrUnauthorized       = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrForbidden          = errors.New("forbidden")
	ErrSelfDeletion       = errors.New("cannot delete your own account")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

func NewValidationError(field string, value interface{}, message string) error {
	return ValidationError{Field: field, Value: value, Message: message}
}

// ParseError reports a workbook that could not be read as a spreadsheet.
type ParseError struct {
	Err error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Err.Error())
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failure of the database or blob store.
type StorageError struct {
	Op  string
	Err error
}

func (e StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %s", e.Op, e.Err.Error())
}

func (e StorageError) Unwrap() error {
	return e.Err
}

func NewStorageError(op string, err error) error {
	return StorageError{Op: op, Err: err}
}

type RetryableError struct {
	Err     error
	Message string
}

func (e RetryableError) Error() string {
	return fmt.Sprintf("retryable error: %s - %s", e.Message, e.Err.Error())
}

func (e RetryableError) Unwrap() error {
	return e.Err
}

func NewRetryableError(err error, message string) error {
	return RetryableError{
		Err:     err,
		Message: message,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func New(text string) error {
	return errors.New(text)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v ValidationError
	return errors.As(err, &v)
}

func IsParse(err error) bool {
	var p ParseError
	return errors.As(err, &p)
}

func IsStorage(err error) bool {
	var s StorageError
	return errors.As(err, &s)
}

func IsRetryable(err error) bool {
	var r RetryableError
	return errors.As(err, &r)
}
