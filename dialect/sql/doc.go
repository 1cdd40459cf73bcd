// Package sql wraps database/sql with the pieces TychoDB's connection
// supervisor needs: a Driver/Conn/Tx trio satisfying dialect.Driver, plus
// optional StatsDriver and DebugDriver decorators for the ambient
// query-statistics and slow-query logging features described in
// SPEC_FULL.md.
//
// The SQL text itself — schema DDL, CRUD templates, filter/sort fragments —
// is built by the sibling tycho/internal/catalog and tycho/query
// packages; this package only knows how to run a (query, args) pair.
//
// # Opening a connection
//
//	drv, err := sql.Open(dialect.SQLite, "file:tycho_cache.db?cache=shared")
//
// # Session-scoped PRAGMAs
//
// WithVar/VarFromContext attach a per-operation PRAGMA to the context;
// Conn applies it before each statement run with that context and, outside
// a transaction, restores the prior value when the statement releases its
// pooled connection:
//
//	ctx = sql.WithVar(ctx, "busy_timeout", "5000")
package sql
