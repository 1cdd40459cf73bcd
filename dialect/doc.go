// Package dialect provides database dialect abstraction for TychoDB.
//
// This package defines the interfaces used between the connection
// supervisor and the underlying storage engine. TychoDB itself only opens
// SQLite files, but the constraint-classification helpers in
// dialect/sql/sqlgraph work against any dialect.ExecQuerier error, so the
// dialect name constants for Postgres and MySQL are retained.
//
// # Driver Interface
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Sub-packages
//
//   - dialect/sql: the SQL driver wrapper, statistics, and slow-query log
//   - dialect/sql/sqlgraph: storage-engine constraint-error classification
package dialect
