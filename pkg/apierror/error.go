package apierror

import (
	"context"
	"errors"

	"github.com/dmitrymomot/tenantguard/pkg/validator"
)

// ErrUnavailable is wrapped by stores when the backing service cannot be
// reached, as opposed to a failed query.
var ErrUnavailable = errors.New("store unavailable")

// Error is a caller-facing failure. Cause is kept for logs and errors.Is
// checks and never serialized.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Status() int { return e.Code.Status() }

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// Wrap returns a copy that records cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// Common messages. Auth and tenant-access messages stay generic.
const (
	MsgAuthRequired        = "Authentication required"
	MsgInvalidToken        = "Invalid or expired token"
	MsgUserNotFound        = "User not found or account deactivated"
	MsgNoTenant            = "You are not a member of any organization"
	MsgTenantAccessDenied  = "You do not have access to the specified organization"
	MsgTenantAmbiguous     = "Multiple organizations available, specify which one to use"
	MsgInsufficientPerms   = "You do not have permission to perform this action"
	MsgContextNotResolved  = "Tenant context not resolved"
	MsgInternal            = "Internal server error"
	MsgServiceUnavailable  = "Service temporarily unavailable"
	MsgRateLimitExceeded   = "Too many requests, please try again later"
	MsgIdentityNotResolved = "Identity not resolved"
	MsgInvalidInput        = "Invalid input"
)

func Unauthorized(message string) *Error { return New(CodeUnauthorized, message) }

func Forbidden(message string) *Error { return New(CodeForbidden, message) }

func Validation(message string) *Error { return New(CodeValidation, message) }

// Invalid returns VALIDATION_ERROR with message. Field failures carried by
// err are exposed as details.fields.
func Invalid(message string, err error) *Error {
	e := Validation(message).Wrap(err)
	if verrs := validator.ExtractValidationErrors(err); len(verrs) > 0 {
		e.Details = map[string]any{"fields": verrs}
	}
	return e
}

func NotFound(message string) *Error { return New(CodeNotFound, message) }

func Internal(cause error) *Error { return New(CodeInternal, MsgInternal).Wrap(cause) }

func Unavailable(cause error) *Error {
	return New(CodeServiceUnavailable, MsgServiceUnavailable).Wrap(cause)
}

// FromStore classifies a storage failure: timeouts and ErrUnavailable map to
// SERVICE_UNAVAILABLE, everything else to INTERNAL_ERROR.
func FromStore(err error) *Error {
	if IsUnavailable(err) {
		return Unavailable(err)
	}
	return Internal(err)
}

// IsUnavailable reports whether err means the store could not answer in time
// or could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// From returns err as *Error, wrapping unknown errors as INTERNAL_ERROR.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if validator.IsValidationError(err) {
		return Invalid(MsgInvalidInput, err)
	}
	return Internal(err)
}
