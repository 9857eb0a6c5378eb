// Package errorutil defines the error type every layer returns and the codes
// rendered in the API error envelope.
package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes carried in the envelope.
const (
	CodeValidation            = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeAccessRestricted      = "ACCESS_RESTRICTED"
	CodeConflict              = "CONFLICT"
	CodeInvalidReference      = "INVALID_REFERENCE"
	CodeRateLimited           = "TOO_MANY_REQUESTS"
	CodeInternal              = "INTERNAL_ERROR"
	CodeAIUnavailable         = "AI_UNAVAILABLE"
	CodeSessionStoreDown      = "SESSION_STORE_UNAVAILABLE"
	CodeDeliveryFailed        = "CODE_DELIVERY_FAILED"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
)

var statusByCode = map[string]int{
	CodeValidation:       http.StatusBadRequest,
	CodeNotFound:         http.StatusNotFound,
	CodeUnauthorized:     http.StatusUnauthorized,
	CodeForbidden:        http.StatusForbidden,
	CodeAccessRestricted: http.StatusForbidden,
	CodeConflict:         http.StatusConflict,
	CodeInvalidReference: http.StatusUnprocessableEntity,
	CodeRateLimited:      http.StatusTooManyRequests,
	CodeInternal:         http.StatusInternalServerError,
}

// DomainError is what services return and the HTTP layer renders.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError with an explicit status.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// newCoded looks the status up from the code table.
func newCoded(code, message string, details map[string]any, cause error) *DomainError {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details, Err: cause}
}

func NewValidationError(message string, details map[string]any) error {
	return newCoded(CodeValidation, message, details, nil)
}

// NewNotFound names the missing resource in the message.
func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return newCoded(CodeNotFound, resource+" not found", details, nil)
}

func NewUnauthorized(message string) error {
	return newCoded(CodeUnauthorized, message, nil, nil)
}

func NewForbidden(message string) error {
	return newCoded(CodeForbidden, message, nil, nil)
}

// NewAccessRestricted is returned when an agent lacks a module or capability.
func NewAccessRestricted(capability string) error {
	return newCoded(CodeAccessRestricted, "access restricted", map[string]any{"required": capability}, nil)
}

func NewConflict(message string, details map[string]any) error {
	return newCoded(CodeConflict, message, details, nil)
}

func NewRateLimited(message string) error {
	return newCoded(CodeRateLimited, message, nil, nil)
}

// NewUnavailable reports a failing upstream collaborator under its own code.
func NewUnavailable(code, message string, err error) error {
	return NewDomainError(code, message, http.StatusServiceUnavailable, nil).wrap(err)
}

func NewInternalError(err error) error {
	return newCoded(CodeInternal, "internal server error", nil, err)
}

func (e *DomainError) wrap(err error) *DomainError {
	e.Err = err
	return e
}

// Postgres SQLSTATE codes the API reports as client errors.
const (
	pgInvalidTextRepresentation = "22P02"
	pgForeignKeyViolation       = "23503"
	pgUniqueViolation           = "23505"
)

// fromPgError maps constraint and input errors raised by Postgres. It returns
// nil for everything else.
func fromPgError(err error) *DomainError {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	switch pgErr.Code {
	case pgInvalidTextRepresentation:
		return newCoded(CodeValidation, "invalid identifier", nil, err)
	case pgUniqueViolation:
		return newCoded(CodeConflict, "resource already exists", constraintDetails(pgErr), err)
	case pgForeignKeyViolation:
		return newCoded(CodeInvalidReference, "referenced resource does not exist", constraintDetails(pgErr), err)
	}
	return nil
}

func constraintDetails(pgErr *pgconn.PgError) map[string]any {
	if pgErr.ConstraintName == "" {
		return nil
	}
	return map[string]any{"constraint": pgErr.ConstraintName}
}

// isMalformedID reports a value Postgres could not parse, such as a bad uuid.
func isMalformedID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresentation
}

// ToDomainError converts any error to a DomainError. Row-not-found becomes
// NOT_FOUND, Postgres constraint errors become client errors, fiber errors keep
// their status and everything else is internal.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return newCoded(CodeNotFound, "resource not found", map[string]any{}, err)
	}
	if mapped := fromPgError(err); mapped != nil {
		return mapped
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return NewDomainError(http.StatusText(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil)
	}
	return newCoded(CodeInternal, "internal server error", nil, err)
}

// MapError is ToDomainError for call sites that return error.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}

// NotFoundOr maps pgx.ErrNoRows, and an id Postgres cannot parse, to a typed
// not-found error for resource. Everything else goes through MapError.
func NotFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
		return NewNotFound(resource, map[string]any{"id": id})
	}
	return MapError(err)
}
