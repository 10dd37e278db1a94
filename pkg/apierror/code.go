package apierror

import "net/http"

// Code is the machine-readable error code carried in the envelope.
type Code string

const (
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeForbidden               Code = "FORBIDDEN"
	CodeTenantNotFound          Code = "TENANT_NOT_FOUND"
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeInsufficientPermissions Code = "INSUFFICIENT_PERMISSIONS"
	CodeInternal                Code = "INTERNAL_ERROR"
	CodeServiceUnavailable      Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded       Code = "RATE_LIMIT_EXCEEDED"
	CodeNotFound                Code = "NOT_FOUND"
)

// Status returns the HTTP status paired with the code.
func (c Code) Status() int {
	switch c {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden, CodeTenantNotFound, CodeInsufficientPermissions:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
