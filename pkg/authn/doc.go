// Package authn turns an "Authorization: Bearer <token>" header into an
// Identity or a 401.
//
// Authenticate verifies the token, takes the subject from the verified
// claims and resolves it against an IdentityStore that hides soft-deleted
// accounts. Every caller-facing failure is UNAUTHORIZED with one of three
// generic messages; only store failures surface as INTERNAL_ERROR or
// SERVICE_UNAVAILABLE. Nothing is retried.
//
// Middleware fails the request on any error. Optional never fails: the
// request continues without an identity when authentication does not
// succeed.
package authn
