// Package conn implements the Connection Supervisor (C6): a fair FIFO
// permit of capacity 1 serializing every call into the storage engine,
// plus the persistent-vs-per-operation connection lifecycle spec.md §4.6
// describes.
package conn

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/semaphore"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/tychodb/tycho/dialect"
	tsql "github.com/tychodb/tycho/dialect/sql"
	"github.com/tychodb/tycho/internal/catalog"
	"github.com/tychodb/tycho/internal/terr"
)

// Wrapper adapts a freshly opened *dialect/sql.Driver into the
// dialect.Driver a Session hands to callers, e.g. layering
// tsql.NewStatsDriver/tsql.NewDebugDriver for the engine's optional
// logging/statistics options.
type Wrapper func(*tsql.Driver) dialect.Driver

func identityWrap(d *tsql.Driver) dialect.Driver { return d }

// DefaultCommandTimeout is applied when Options.CommandTimeoutSeconds is
// zero or negative.
const DefaultCommandTimeout = 30 * time.Second

// DefaultDBName is the file name used when Options.DBName is empty.
const DefaultDBName = "tycho_cache.db"

// Options configures the Connection Supervisor. It mirrors the engine's
// public configuration surface (spec.md §6) one-to-one.
type Options struct {
	DBPath                  string
	DBName                  string
	Password                string
	PersistConnection       bool
	RebuildCache            bool
	UseConnectionPooling    bool
	CommandTimeoutSeconds   int
	RequireTypeRegistration bool
}

func (o Options) path() string {
	name := o.DBName
	if name == "" {
		name = DefaultDBName
	}
	if o.DBPath == "" {
		return name
	}
	return filepath.Join(o.DBPath, name)
}

func (o Options) timeout() time.Duration {
	if o.CommandTimeoutSeconds <= 0 {
		return DefaultCommandTimeout
	}
	return time.Duration(o.CommandTimeoutSeconds) * time.Second
}

// dsn returns the database/sql data source name. modernc.org/sqlite is a
// pure-Go build with no SQLCipher support, so Password cannot actually
// encrypt the file; it is accepted and stored for API parity with the
// richer engines this module is modeled on, but Connect does not attempt
// to apply it.
func (o Options) dsn() string {
	return o.path()
}

// Supervisor owns the storage-engine connection and the capacity-1 permit
// that makes access to it single-writer. Per spec.md §9's Design Notes,
// this is deliberately a semaphore, not a reader-writer lock: the
// storage engine's own exclusive locking mode already disallows parallel
// writers, so a capacity-1 permit is the simplest correct choice. Built
// on golang.org/x/sync/semaphore (present in the teacher's go.mod)
// instead of a hand-rolled channel, for its context-cancellable Acquire.
type Supervisor struct {
	opts Options
	sem  *semaphore.Weighted
	wrap Wrapper

	connected         bool
	persistent        *tsql.Driver // set iff opts.PersistConnection and connected
	persistentWrapped dialect.Driver
}

// New constructs a Supervisor. Connect must be called before any
// operation; calls before that fail with NotConnected. wrap may be nil,
// in which case sessions expose the raw *dialect/sql.Driver unwrapped.
func New(opts Options, wrap Wrapper) *Supervisor {
	if wrap == nil {
		wrap = identityWrap
	}
	return &Supervisor{opts: opts, sem: semaphore.NewWeighted(1), wrap: wrap}
}

// Connected reports whether Connect has run successfully.
func (s *Supervisor) Connected() bool { return s.connected }

// Timeout returns the configured per-command timeout.
func (s *Supervisor) Timeout() time.Duration { return s.opts.timeout() }

// Connect opens exactly one connection and runs the schema bootstrap.
// Double-Connect is idempotent. If RebuildCache is set, the database
// file is removed before opening.
func (s *Supervisor) Connect(ctx context.Context) error {
	if s.connected {
		return nil
	}
	if s.opts.RebuildCache {
		if err := removeIfExists(s.opts.path()); err != nil {
			return terr.WriteFailed(err)
		}
	}

	drv, err := tsql.Open(dialect.SQLite, s.opts.dsn())
	if err != nil {
		return terr.WriteFailed(err)
	}
	db := drv.DB()
	if !s.opts.UseConnectionPooling {
		db.SetMaxOpenConns(1)
	}

	if err := bootstrap(ctx, db); err != nil {
		_ = drv.Close()
		return err
	}

	if s.opts.PersistConnection {
		s.persistent = drv
		s.persistentWrapped = s.wrap(drv)
	} else {
		_ = drv.Close()
	}
	s.connected = true
	return nil
}

// Disconnect closes and drops the handle.
func (s *Supervisor) Disconnect() error {
	if !s.connected {
		return nil
	}
	s.connected = false
	s.persistentWrapped = nil
	if s.persistent != nil {
		drv := s.persistent
		s.persistent = nil
		return drv.Close()
	}
	return nil
}

// Session is a permit-scoped handle on the storage engine. Release must
// be called exactly once to free the permit (and, in per-operation mode,
// close the underlying connection).
type Session struct {
	Driver *tsql.Driver   // concrete handle, for Close/DB/raw access
	Query  dialect.Driver // wrapped handle every Exec/Query call should use

	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	own    bool // true if this Session opened its own (non-persistent) connection
}

// Acquire blocks (FIFO, fair) until the permit is free, then returns a
// Session bound to either the persistent connection or a freshly opened
// one, depending on PersistConnection. The returned Session's Release
// must always be called.
func (s *Supervisor) Acquire(ctx context.Context) (*Session, error) {
	if !s.connected {
		return nil, terr.NotConnected("operation invoked before connect")
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, terr.Cancelled(err)
	}

	cctx, cancel := context.WithTimeout(ctx, s.opts.timeout())

	if s.persistent != nil {
		return &Session{Driver: s.persistent, Query: s.persistentWrapped, ctx: cctx, cancel: cancel, sem: s.sem}, nil
	}

	drv, err := tsql.Open(dialect.SQLite, s.opts.dsn())
	if err != nil {
		cancel()
		s.sem.Release(1)
		return nil, terr.WriteFailed(err)
	}
	return &Session{Driver: drv, Query: s.wrap(drv), ctx: cctx, cancel: cancel, sem: s.sem, own: true}, nil
}

// Context returns the session's command-scoped context.
func (sess *Session) Context() context.Context { return sess.ctx }

// Release returns the permit and, for a per-operation connection, closes
// the connection opened for this window.
func (sess *Session) Release() error {
	sess.cancel()
	var err error
	if sess.own {
		err = sess.Driver.Close()
	}
	sess.sem.Release(1)
	return err
}

func bootstrap(ctx context.Context, db *sql.DB) error {
	version, err := sqliteVersion(ctx, db)
	if err != nil {
		return terr.WriteFailed(err)
	}
	opts, _ := compileOptions(ctx, db)
	if !catalog.HasJSON1Support(version, opts) {
		return terr.JsonUnsupported(fmt.Sprintf("sqlite %s lacks JSON1 support", version))
	}

	for _, pragma := range catalog.Pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return terr.WriteFailed(err)
		}
	}
	for _, stmt := range catalog.SchemaStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return terr.WriteFailed(err)
		}
	}
	return nil
}

func sqliteVersion(ctx context.Context, db *sql.DB) (string, error) {
	var version string
	if err := db.QueryRowContext(ctx, catalog.SelectSQLiteVersion).Scan(&version); err != nil {
		return "", err
	}
	return version, nil
}

func compileOptions(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, catalog.SelectCompileOptions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var opts []string
	for rows.Next() {
		var opt string
		if err := rows.Scan(&opt); err != nil {
			return opts, err
		}
		opts = append(opts, opt)
	}
	return opts, rows.Err()
}
