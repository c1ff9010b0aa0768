// Package services holds the business rules of the dashboard: sessions,
// resource collections, CSV imports, review uploads and the metrics object.
package services

import (
	"errors"
	"fmt"

	"github.com/princinho/dashbackend/utils"
)

type ErrorCode string

const (
	ErrorInvalid      ErrorCode = "invalid"
	ErrorUnauthorized ErrorCode = "unauthorized"
	ErrorForbidden    ErrorCode = "forbidden"
	ErrorNotFound     ErrorCode = "not_found"
	ErrorConflict     ErrorCode = "conflict"
	ErrorParse        ErrorCode = "parse"
)

type ServiceError struct {
	Code    ErrorCode
	Message string
}

func (e *ServiceError) Error() string { return e.Message }

func NewInvalidError(msg string) error {
	return &ServiceError{Code: ErrorInvalid, Message: msg}
}

func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewForbiddenError(msg string) error {
	return &ServiceError{Code: ErrorForbidden, Message: msg}
}

func NewNotFoundError(msg string) error {
	return &ServiceError{Code: ErrorNotFound, Message: msg}
}

func NewConflictError(msg string) error {
	return &ServiceError{Code: ErrorConflict, Message: msg}
}

func NewParseError(msg string) error {
	return &ServiceError{Code: ErrorParse, Message: msg}
}

// CodeOf returns the code of a ServiceError anywhere in err's chain, or ""
// for errors that did not originate here (I/O and the like).
func CodeOf(err error) ErrorCode {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// errNoChange aborts a store update when nothing needs to be written.
var errNoChange = errors.New("no change")

// hashPassword rejects passwords bcrypt cannot hash as a validation error.
func hashPassword(password string) (string, error) {
	if len(password) > utils.MaxPasswordBytes {
		return "", NewInvalidError(fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordBytes))
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
