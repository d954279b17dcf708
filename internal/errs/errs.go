// Package errs holds the error taxonomy shared by every domain package.
// Domain sentinels wrap one of these so the HTTP edge can classify them with
// errors.Is without knowing each domain.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not_found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation_error")
)

// Wrap returns a named sentinel that matches kind under errors.Is.
func Wrap(kind error, code string) error {
	return &codedError{kind: kind, code: code}
}

type codedError struct {
	kind error
	code string
}

func (e *codedError) Error() string { return e.code }

func (e *codedError) Unwrap() error { return e.kind }

// Code returns the machine readable code of a sentinel created by Wrap.
func Code(err error) string {
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Code
	}
	return ""
}

// ValidationError describes a single rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewValidation(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Code)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
