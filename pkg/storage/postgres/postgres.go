// Package postgres implements the identity, membership, project and audit
// stores on PostgreSQL through database/sql. Open the *sql.DB with
// stdlib.OpenDBFromPool so the stores share the pgx pool.
package postgres

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrymomot/tenantguard/pkg/apierror"
	"github.com/dmitrymomot/tenantguard/pkg/pg"
)

// Migrations holds the goose migrations for every store in this package.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// Store implements authn.IdentityStore, tenant.MembershipStore,
// project.Store and audit.Store.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	if db == nil {
		panic("postgres: db cannot be nil")
	}
	return &Store{db: db}
}

// wrap annotates err and marks connection failures as unavailable.
func wrap(op string, err error) error {
	if pg.IsConnectionError(err) {
		return fmt.Errorf("postgres: %s: %w", op, errors.Join(apierror.ErrUnavailable, err))
	}
	return fmt.Errorf("postgres: %s: %w", op, err)
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
