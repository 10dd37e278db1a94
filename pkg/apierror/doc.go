// Package apierror defines the error envelope every authorization stage and
// handler answers with:
//
//	{"error": {"code": "FORBIDDEN", "message": "...", "status": 403, "details": {...}}}
//
// Stages return *Error values; Write renders any error, turning unknown
// errors into INTERNAL_ERROR so server-side detail never reaches the caller.
// FromStore maps storage failures to INTERNAL_ERROR or SERVICE_UNAVAILABLE.
package apierror
