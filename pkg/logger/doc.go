// Package logger builds the service's *slog.Logger.
//
// New returns a logger whose handler is wrapped by a decorator that pulls
// request-scoped values (request id, tenant id, user id) out of the context
// on every record, so call sites only pass what is specific to the event:
//
//	log := logger.New(
//		logger.WithEnvironment("production", "tenantguard"),
//		logger.WithContextExtractors(reqmeta.LoggerExtractor(), tenant.LoggerExtractor()),
//	)
//	log.WarnContext(ctx, "permission denied",
//		logger.UserID(identity.ID),
//		logger.Role(tc.Role),
//		logger.Permission("project:delete"),
//	)
//
// Attribute helpers in attr.go keep key names consistent across packages.
package logger
