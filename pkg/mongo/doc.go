// Package mongo connects to MongoDB and provides AuditStore, an audit.Store
// for deployments that keep the audit trail outside PostgreSQL
// (AUDIT_DRIVER=mongo).
//
//	client, err := mongo.New(ctx, cfg.Mongo)
//	if err != nil {
//		return err
//	}
//	coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.AuditCollection)
//	store := mongo.NewAuditStore(coll)
//	if err := store.EnsureIndexes(ctx); err != nil {
//		return err
//	}
//
// Network failures and timeouts surface as apierror.ErrUnavailable so the
// audit read path answers 503.
package mongo
