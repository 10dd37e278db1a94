package tenant

import (
	"net/http"
	"strings"
)

// DefaultHeader carries the explicit tenant selector.
const DefaultHeader = "X-Tenant-Id"

// MaxSelectorLength bounds tenant identifiers. Longer selectors can never
// name a tenant and are denied like any other foreign tenant.
const MaxSelectorLength = 128

// SelectorFunc extracts the explicit tenant selector from a request.
// An empty string means no selector was given.
type SelectorFunc func(r *http.Request) (string, error)

// HeaderSelector reads the selector from header name.
func HeaderSelector(name string) SelectorFunc {
	if name == "" {
		name = DefaultHeader
	}
	return func(r *http.Request) (string, error) {
		return NormalizeSelector(r.Header.Get(name)), nil
	}
}

// NormalizeSelector trims surrounding whitespace. The result is only ever
// compared against the caller's own memberships, so it is not otherwise
// restricted.
func NormalizeSelector(s string) string {
	return strings.TrimSpace(s)
}
