package dialect

import "context"

// Supported dialect names. TychoDB's persistent layout (spec.md §6) is a
// single SQLite file per engine instance, so SQLite is the only dialect
// the catalog and connection supervisor actually open. The Postgres/MySQL
// constants are kept because the constraint-classification helpers in
// dialect/sql/sqlgraph are dialect-generic and a caller may wrap a
// non-SQLite ExecQuerier for testing.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ExecQuerier wraps the two database/sql operations the engine needs.
type ExecQuerier interface {
	Exec(ctx context.Context, query string, args, v any) error
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface every storage-engine connection must satisfy.
type Driver interface {
	ExecQuerier
	Tx(ctx context.Context) (Tx, error)
	Close() error
	Dialect() string
}

// Tx extends Driver with the two transaction-completion methods.
type Tx interface {
	Driver
	Commit() error
	Rollback() error
}
