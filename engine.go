package tycho

import (
	"context"
	"log/slog"
	"time"

	"github.com/tychodb/tycho/codec"
	"github.com/tychodb/tycho/dialect"
	tsql "github.com/tychodb/tycho/dialect/sql"
	"github.com/tychodb/tycho/internal/conn"
	"github.com/tychodb/tycho/internal/registry"
	"github.com/tychodb/tycho/path"
)

// Options configures an Engine. All fields enumerated in spec.md §6 are
// present; functional options below populate them, following the
// StatsOption/DebugOption convention in dialect/sql/stats.go.
type Options struct {
	DBPath                  string
	DBName                  string
	Password                string
	PersistConnection       bool
	RebuildCache            bool
	RequireTypeRegistration bool
	UseConnectionPooling    bool
	CommandTimeoutSeconds   int

	Codec              codec.Codec
	Cache              Cache
	Logger             *slog.Logger
	SlowQueryThreshold time.Duration
	SlowQueryLog       bool
}

// Option mutates an Options value under construction.
type Option func(*Options)

// WithDBPath sets the directory containing the database file.
func WithDBPath(p string) Option { return func(o *Options) { o.DBPath = p } }

// WithDBName sets the database file name (default tycho_cache.db).
func WithDBName(n string) Option { return func(o *Options) { o.DBName = n } }

// WithPassword requests file encryption. See the internal/conn section of
// DESIGN.md: modernc.org/sqlite cannot honor this without SQLCipher, so it is
// accepted but not applied.
func WithPassword(p string) Option { return func(o *Options) { o.Password = p } }

// WithPersistConnection controls whether the connection is kept open
// across operations (default true) or opened per permit window.
func WithPersistConnection(b bool) Option { return func(o *Options) { o.PersistConnection = b } }

// WithRebuildCache deletes the database file before opening it.
func WithRebuildCache(b bool) Option { return func(o *Options) { o.RebuildCache = b } }

// WithRequireTypeRegistration makes the type registry strict: Write and
// WriteMany of a type that was never registered fail with NotRegistered,
// even when WithKeySelector supplies the key. Reads, counts and deletes do
// not consult the registry and run for unregistered types as well.
func WithRequireTypeRegistration(b bool) Option {
	return func(o *Options) { o.RequireTypeRegistration = b }
}

// WithConnectionPooling passes connection pooling through to the storage
// engine instead of pinning MaxOpenConns to 1.
func WithConnectionPooling(b bool) Option { return func(o *Options) { o.UseConnectionPooling = b } }

// WithCommandTimeout sets the per-statement timeout (default 30s).
func WithCommandTimeout(d time.Duration) Option {
	return func(o *Options) { o.CommandTimeoutSeconds = int(d / time.Second) }
}

// WithCodec overrides the default goccy/go-json-backed Codec.
func WithCodec(c codec.Codec) Option { return func(o *Options) { o.Codec = c } }

// WithCache enables an opt-in read-through cache in front of ReadByKey and
// ExistsByKey. Off by default.
func WithCache(c Cache) Option { return func(o *Options) { o.Cache = c } }

// WithLogger sets the structured logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// WithSlowQueryThreshold sets the duration past which a command is logged
// as slow. Defaults to half the command timeout.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *Options) { o.SlowQueryThreshold = d }
}

// WithSlowQueryLog logs every command through the engine's logger: at Warn
// when it took at least the slow-query threshold, at Debug otherwise.
func WithSlowQueryLog() Option { return func(o *Options) { o.SlowQueryLog = true } }

// Engine is the entry point for every Document, Blob, Index, and
// Projection Engine operation. It owns the Connection Supervisor, the
// Type Registry, the configured Codec, and the optional result Cache.
type Engine struct {
	opts     Options
	sup      *conn.Supervisor
	registry *registry.Registry
	codec    codec.Codec
	cache    Cache
	logger   *slog.Logger
	stats    *tsql.QueryStats
}

// New constructs an Engine. Connect must be called before any operation.
func New(opts ...Option) *Engine {
	o := Options{
		DBName:                conn.DefaultDBName,
		PersistConnection:     true,
		CommandTimeoutSeconds: 30,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Codec == nil {
		o.Codec = codec.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.SlowQueryThreshold == 0 {
		o.SlowQueryThreshold = time.Duration(o.CommandTimeoutSeconds) * time.Second / 2
	}

	e := &Engine{
		opts:     o,
		registry: registry.New(o.RequireTypeRegistration),
		codec:    o.Codec,
		cache:    o.Cache,
		logger:   o.Logger,
		stats:    &tsql.QueryStats{},
	}

	e.sup = conn.New(conn.Options{
		DBPath:                  o.DBPath,
		DBName:                  o.DBName,
		Password:                o.Password,
		PersistConnection:       o.PersistConnection,
		RebuildCache:            o.RebuildCache,
		UseConnectionPooling:    o.UseConnectionPooling,
		CommandTimeoutSeconds:   o.CommandTimeoutSeconds,
		RequireTypeRegistration: o.RequireTypeRegistration,
	}, e.wrapDriver)

	return e
}

// wrapDriver layers statistics collection around every freshly opened
// *dialect/sql.Driver, the same composition dialect/sql/stats.go's
// OpenWithStats helper builds by hand. In per-operation connection mode
// this runs once per Acquire, so it is wired with WithStats(e.stats)
// rather than letting NewStatsDriver allocate a fresh QueryStats each
// time — otherwise only the most recent connection's counters would be
// reachable from Engine.Stats. StatsDriver and DebugDriver both embed a
// concrete *dialect/sql.Driver rather than the dialect.Driver interface,
// so the two cannot be nested; SlowQueryLog is implemented by setting a
// negative slow threshold so the existing hook fires on every command
// instead of switching wrappers.
func (e *Engine) wrapDriver(drv *tsql.Driver) dialect.Driver {
	threshold := e.opts.SlowQueryThreshold
	if e.opts.SlowQueryLog {
		threshold = -1
	}
	return tsql.NewStatsDriver(drv,
		tsql.WithStats(e.stats),
		tsql.WithSlowThreshold(threshold),
		tsql.WithSlowQueryHook(func(ctx context.Context, query string, args []any, d time.Duration) {
			level := slog.LevelWarn
			if e.opts.SlowQueryLog && d < e.opts.SlowQueryThreshold {
				level = slog.LevelDebug
			}
			e.logger.Log(ctx, level, "command", "query", query, "args", args, "duration", d)
		}),
	)
}

// Connect opens the storage engine and runs the schema bootstrap. Calls
// before Connect fail with NotConnected.
func (e *Engine) Connect(ctx context.Context) error {
	e.logger.Info("connecting", "db_path", e.opts.DBPath, "db_name", e.opts.DBName)
	if err := e.sup.Connect(ctx); err != nil {
		e.logger.Error("connect failed", "err", err)
		return err
	}
	return nil
}

// Disconnect closes the storage engine connection.
func (e *Engine) Disconnect() error {
	e.logger.Info("disconnecting")
	return e.sup.Disconnect()
}

// Connected reports whether Connect has succeeded.
func (e *Engine) Connected() bool { return e.sup.Connected() }

// Stats returns a snapshot of query statistics collected since Connect.
// The zero value is returned before the first operation runs.
func (e *Engine) Stats() tsql.StatsSnapshot {
	if e.stats == nil {
		return tsql.StatsSnapshot{}
	}
	return e.stats.Stats()
}

// Registry exposes the Type Registry for the package-level Register*
// generic functions, which cannot be methods on Engine (Go forbids
// generic methods).
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Register compiles idField and selector into a registry record for T.
func Register[T any](e *Engine, idField path.Path, selector func(T) any, comparer registry.IDComparer) {
	registry.Register(e.registry, idField, selector, comparer)
}

// RegisterByConvention auto-detects an id field on T; see
// internal/registry's convention rule.
func RegisterByConvention[T any](e *Engine) {
	registry.RegisterByConvention[T](e.registry)
}

// RegisterWithCustomKeySelector registers T with a selector but no
// accessor expression.
func RegisterWithCustomKeySelector[T any](e *Engine, selector func(T) any, comparer registry.IDComparer) {
	registry.RegisterWithCustomKeySelector(e.registry, selector, comparer)
}
