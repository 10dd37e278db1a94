package audit

import "errors"

var (
	// ErrTenantRequired is returned by Reader.Find without a tenant id.
	ErrTenantRequired = errors.New("audit: tenant id is required")

	// ErrInvalidFilter is returned for contradictory filters.
	ErrInvalidFilter = errors.New("audit: invalid filter")

	// ErrEventValidation is returned for events missing required fields.
	ErrEventValidation = errors.New("audit: event validation failed")

	// ErrNoTenantContext is returned when an entry cannot be attributed.
	ErrNoTenantContext = errors.New("audit: tenant context is required")
)
