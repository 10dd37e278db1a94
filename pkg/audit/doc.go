// Package audit records mutating actions as append-only, tenant-scoped
// entries.
//
// Logger offers two write paths:
//
//   - Write enqueues the entry on a bounded queue drained by a single
//     worker. It never blocks and never returns an error: when the queue is
//     full (or the logger is closed) the entry is dropped and counted, and
//     store failures in the worker are logged and counted. Use it after a
//     successful mutation.
//   - WriteSync appends directly, bounded by the write timeout, and reports
//     success as a bool. Use it before destructive operations that must not
//     proceed without an audit record.
//
// Every entry's metadata carries the actor's role and the server timestamp,
// merged over whatever the caller supplied.
//
// Reader.Find is the only read path and always takes a tenant id; entries
// of other tenants are never returned.
//
//	log := audit.NewLogger(store, audit.WithQueueSize(1024), audit.WithRecorder(m))
//	defer log.Close(ctx)
//
//	log.Write(ctx, tc, audit.NewEvent("project.created", "project",
//		audit.WithResource(p.ID, p.Name),
//		audit.WithNewState(p),
//	))
package audit
