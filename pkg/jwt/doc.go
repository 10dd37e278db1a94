// Package jwt verifies HS256 bearer tokens against a pre-shared secret.
//
// Verification is delegated to github.com/golang-jwt/jwt/v5 with the method
// pinned to HS256, so "none" and asymmetric algorithms are rejected before
// the signature is looked at. Every verification failure is reported as
// ErrInvalidToken; the underlying cause stays wrapped for server-side logs
// only. A verified token without a subject fails with ErrMissingSubject.
//
//	v, err := jwt.NewVerifier([]byte(secret), jwt.WithIssuer("tenantguard"))
//	claims, err := v.Verify(token)
//	// claims.Subject is the auth subject id
//
// Issuer exists for tests and local development only; token issuance is
// owned by the identity provider in production.
package jwt
