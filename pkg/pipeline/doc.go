// Package pipeline composes the authorization stages into one dispatcher:
//
//	authenticate -> resolve tenant -> guard -> handler
//
// Each stage returns a typed result or an *apierror.Error; the first error
// short-circuits and is rendered as the error envelope. Handlers receive a
// *Request whose Identity and Tenant are always non-nil, so a handler cannot
// run before tenant resolution.
//
// Store-backed stages run under a per-stage timeout; a stage that exceeds it
// answers SERVICE_UNAVAILABLE.
//
//	p := pipeline.New(authenticator, resolver, pipeline.WithStageTimeout(5*time.Second))
//	r.Method(http.MethodDelete, "/projects/{id}", p.Tenant(authz.Require(rbac.ProjectDelete), h.Delete))
package pipeline
