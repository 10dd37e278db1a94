package api

import (
	"errors"

	"github.com/dmitrymomot/tenantguard/pkg/audit"
)

func isInvalidFilter(err error) bool {
	return errors.Is(err, audit.ErrInvalidFilter) || errors.Is(err, audit.ErrTenantRequired)
}
