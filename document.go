package tycho

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"github.com/tychodb/tycho/codec"
	tsql "github.com/tychodb/tycho/dialect/sql"
	"github.com/tychodb/tycho/dialect/sql/sqlgraph"
	"github.com/tychodb/tycho/internal/catalog"
	"github.com/tychodb/tycho/internal/registry"
	"github.com/tychodb/tycho/query"
)

// writeBatchWindow bounds how many rows a single prepared-statement batch
// covers before checking for cancellation, per spec.md §4.7.
const writeBatchWindow = 100

// writeErr classifies a storage-engine write failure before wrapping it as
// WriteFailed, so a caller inspecting the message can distinguish a
// constraint violation (a NOT NULL/CHECK failure on a hand-edited schema,
// for instance) from a connection or I/O failure, without string-matching
// the driver's own error text itself.
func writeErr(err error) error {
	if sqlgraph.IsConstraintError(err) {
		return WriteFailed(fmt.Errorf("constraint violation: %w", err))
	}
	return WriteFailed(err)
}

// docBufferPool recycles the buffers a row's Data column is copied into
// before it is handed to the codec. Decoding runs while the *sql.Rows
// cursor is still open, before the next row is fetched.
var docBufferPool = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// DocOptions configures a single Document Engine call. Use the With*
// functions below rather than constructing it directly.
type DocOptions struct {
	Partition       string
	partitionSet    bool
	KeySelector     func(any) any
	WithTransaction bool
	Filter          *query.Filter
	Sort            *query.Sort
	Top             int
	Progress        func(fraction float64)
}

// DocOption mutates a DocOptions value under construction.
type DocOption func(*DocOptions)

// WithPartition scopes the call to a single partition. The empty string is
// a valid, distinct partition (spec.md §2 normalizes "no partition" to
// "").
func WithPartition(p string) DocOption {
	return func(o *DocOptions) { o.Partition = p; o.partitionSet = true }
}

// WithKeySelector overrides the registered id-selector for a single call.
func WithKeySelector(fn func(any) any) DocOption {
	return func(o *DocOptions) { o.KeySelector = fn }
}

// WithFilter attaches a Filter Builder predicate.
func WithFilter(f *query.Filter) DocOption { return func(o *DocOptions) { o.Filter = f } }

// WithSort attaches a Sort Builder ordering.
func WithSort(s *query.Sort) DocOption { return func(o *DocOptions) { o.Sort = s } }

// WithTop caps the number of rows returned and pre-sizes the result slice.
func WithTop(n int) DocOption { return func(o *DocOptions) { o.Top = n } }

// WithoutTransaction disables the write transaction wrapping a single-row
// write. write_many always uses a transaction per batch window regardless.
func WithoutTransaction() DocOption { return func(o *DocOptions) { o.WithTransaction = false } }

// WithProgress registers a callback that read_many invokes after each
// decoded row with the rows read so far divided by Top. It is called only
// when WithTop is also set; without Top no progress is reported, and when
// fewer than Top rows match, the last reported fraction is below 1.
func WithProgress(fn func(fraction float64)) DocOption {
	return func(o *DocOptions) { o.Progress = fn }
}

func newDocOptions(opts []DocOption) *DocOptions {
	o := &DocOptions{WithTransaction: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func zeroOf[T any]() reflect.Type {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		t = reflect.TypeOf((*T)(nil)).Elem()
	}
	return t
}

// keyFor resolves the storage key for obj, preferring an explicit
// KeySelector override, then the type's registered id-selector.
func keyFor[T any](e *Engine, t reflect.Type, obj T, o *DocOptions) (string, error) {
	if o.KeySelector != nil {
		// A strict registry still rejects an unregistered type here.
		if _, err := e.registry.Lookup(t); err != nil {
			return "", err
		}
		return keyString(o.KeySelector(obj)), nil
	}
	info, err := e.registry.Lookup(t)
	if err != nil {
		return "", err
	}
	if info == nil || !info.HasIDSelector {
		return "", MissingIdSelector(t.String())
	}
	id, err := info.IDFor(obj)
	if err != nil {
		return "", err
	}
	return keyString(id), nil
}

func keyString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Write serializes obj and upserts it under (key, FullTypeName, Partition).
// It reports whether the row was written.
func Write[T any](ctx context.Context, e *Engine, obj T, opts ...DocOption) (bool, error) {
	o := newDocOptions(opts)
	t := zeroOf[T]()
	key, err := keyFor(e, t, obj, o)
	if err != nil {
		return false, err
	}
	data, err := e.codec.Serialize(obj)
	if err != nil {
		return false, WriteFailed(err)
	}

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Release()

	args := []any{key, registry.FullName(t), o.Partition, string(data)}
	var res sql.Result
	if o.WithTransaction {
		tx, err := sess.Query.Tx(sess.Context())
		if err != nil {
			return false, WriteFailed(err)
		}
		if err := tx.Exec(sess.Context(), catalog.UpsertDocument, args, &res); err != nil {
			_ = tx.Rollback()
			return false, writeErr(err)
		}
		if err := tx.Commit(); err != nil {
			return false, WriteFailed(err)
		}
	} else if err := sess.Query.Exec(sess.Context(), catalog.UpsertDocument, args, &res); err != nil {
		return false, WriteFailed(err)
	}

	n, _ := res.RowsAffected()
	return n > 0, nil
}

// WriteMany serializes and upserts objs in windows of writeBatchWindow
// rows, reusing a single prepared statement per window and checking
// cancellation between windows. It reports whether every row in every
// window reported a non-zero rows-affected count.
func WriteMany[T any](ctx context.Context, e *Engine, objs []T, opts ...DocOption) (bool, error) {
	o := newDocOptions(opts)
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Release()

	db := sess.Driver.DB()
	all := true
	for start := 0; start < len(objs); start += writeBatchWindow {
		if err := ctx.Err(); err != nil {
			return false, Cancelled(err)
		}
		end := start + writeBatchWindow
		if end > len(objs) {
			end = len(objs)
		}
		ok, err := writeWindow(ctx, db, e, fullType, objs[start:end], o)
		if err != nil {
			return false, err
		}
		all = all && ok
	}
	return all, nil
}

func writeWindow[T any](ctx context.Context, db *sql.DB, e *Engine, fullType string, window []T, o *DocOptions) (bool, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return false, WriteFailed(err)
	}
	stmt, err := tx.PrepareContext(ctx, catalog.UpsertDocument)
	if err != nil {
		_ = tx.Rollback()
		return false, WriteFailed(err)
	}
	defer stmt.Close()

	allOK := true
	for _, obj := range window {
		key, err := keyFor(e, zeroOf[T](), obj, o)
		if err != nil {
			_ = tx.Rollback()
			return false, err
		}
		data, err := e.codec.Serialize(obj)
		if err != nil {
			_ = tx.Rollback()
			return false, WriteFailed(err)
		}
		res, err := stmt.ExecContext(ctx, key, fullType, o.Partition, string(data))
		if err != nil {
			_ = tx.Rollback()
			return false, writeErr(err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			allOK = false
		}
	}
	if !allOK {
		_ = tx.Rollback()
		return false, nil
	}
	if err := tx.Commit(); err != nil {
		return false, WriteFailed(err)
	}
	return true, nil
}

// ReadByKey fetches and deserializes the document at (key, FullTypeName,
// Partition). The second return is false when no row matched.
func ReadByKey[T any](ctx context.Context, e *Engine, key string, opts ...DocOption) (T, bool, error) {
	var zero T
	o := newDocOptions(opts)
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	cacheKey := CacheKey{Key: key, FullTypeName: fullType, Partition: o.Partition}.String()
	if e.cache != nil {
		if raw, err := e.cache.Get(ctx, cacheKey); err == nil && raw != nil {
			var out T
			if err := e.codec.Deserialize(ctx, bytes.NewReader(raw), &out); err == nil {
				return out, true, nil
			}
		}
	}

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return zero, false, err
	}
	defer sess.Release()

	var rows tsql.Rows
	args := []any{key, fullType, o.Partition}
	if err := sess.Query.Query(sess.Context(), catalog.SelectDocumentByKey, args, &rows); err != nil {
		return zero, false, ReadFailed(err)
	}
	defer rows.Close()
	if !rows.Next() {
		return zero, false, rows.Err()
	}
	var data string
	if err := rows.Scan(&data); err != nil {
		return zero, false, ReadFailed(err)
	}

	var out T
	if err := e.codec.Deserialize(sess.Context(), bytes.NewReader([]byte(data)), &out); err != nil {
		return zero, false, ReadFailed(err)
	}
	if e.cache != nil {
		_ = e.cache.Set(ctx, cacheKey, []byte(data), 0)
	}
	return out, true, nil
}

// ReadByFilter fetches at most one matching row, failing with
// AmbiguousMatch if more than one row satisfies the filter.
func ReadByFilter[T any](ctx context.Context, e *Engine, opts ...DocOption) (T, bool, error) {
	var zero T

	n, err := Count[T](ctx, e, opts...)
	if err != nil {
		return zero, false, err
	}
	if n > 1 {
		return zero, false, AmbiguousMatch(n)
	}
	if n == 0 {
		return zero, false, nil
	}
	rows, err := ReadMany[T](ctx, e, append(append([]DocOption{}, opts...), WithTop(1))...)
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}
	return rows[0], true, nil
}

// ReadFirst fetches the first row matching filter under sort, never
// failing on multiple matches.
func ReadFirst[T any](ctx context.Context, e *Engine, opts ...DocOption) (T, bool, error) {
	var zero T
	rows, err := ReadMany[T](ctx, e, append(append([]DocOption{}, opts...), WithTop(1))...)
	if err != nil {
		return zero, false, err
	}
	if len(rows) == 0 {
		return zero, false, nil
	}
	return rows[0], true, nil
}

// ReadMany streams matching rows, checking for cancellation before each
// row and decoding each row's payload from a pooled buffer before the
// cursor advances. Results are pre-sized by Top when provided.
func ReadMany[T any](ctx context.Context, e *Engine, opts ...DocOption) ([]T, error) {
	o := newDocOptions(opts)
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	filterSQL, filterArgs, err := renderFilter(o.Filter, e.codec)
	if err != nil {
		return nil, err
	}
	orderSQL := ""
	if o.Sort != nil {
		orderSQL = o.Sort.Render()
	}
	scoped := o.partitionSet
	q := catalog.SelectDocuments(scoped, filterSQL, orderSQL, o.Top)

	args := []any{fullType}
	if scoped {
		args = append(args, o.Partition)
	}
	args = append(args, filterArgs...)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	var rows tsql.Rows
	if err := sess.Query.Query(sess.Context(), q, args, &rows); err != nil {
		return nil, ReadFailed(err)
	}
	defer rows.Close()

	var out []T
	if o.Top > 0 {
		out = make([]T, 0, o.Top)
	}
	var count int
	for rows.Next() {
		if err := sess.Context().Err(); err != nil {
			return out, Cancelled(err)
		}
		var key, data string
		if err := rows.Scan(&key, &data); err != nil {
			return out, ReadFailed(err)
		}

		buf := docBufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		buf.WriteString(data)

		var v T
		decErr := e.codec.Deserialize(sess.Context(), buf, &v)
		docBufferPool.Put(buf)
		if decErr != nil {
			return out, ReadFailed(decErr)
		}
		out = append(out, v)
		count++
		if o.Progress != nil && o.Top > 0 {
			o.Progress(float64(count) / float64(o.Top))
		}
	}
	if err := rows.Err(); err != nil {
		return out, ReadFailed(err)
	}
	return out, nil
}

// Count executes the same select as ReadMany but counts returned rows
// rather than issuing COUNT(*), preserving identical filter semantics.
func Count[T any](ctx context.Context, e *Engine, opts ...DocOption) (int, error) {
	o := newDocOptions(opts)
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	filterSQL, filterArgs, err := renderFilter(o.Filter, e.codec)
	if err != nil {
		return 0, err
	}
	scoped := o.partitionSet
	q := catalog.CountDocuments(scoped, filterSQL)

	args := []any{fullType}
	if scoped {
		args = append(args, o.Partition)
	}
	args = append(args, filterArgs...)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Release()

	var rows tsql.Rows
	if err := sess.Query.Query(sess.Context(), q, args, &rows); err != nil {
		return 0, ReadFailed(err)
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return n, ReadFailed(err)
		}
		n++
	}
	return n, rows.Err()
}

// ExistsByKey reports whether a document exists at (key, FullTypeName,
// Partition).
func ExistsByKey[T any](ctx context.Context, e *Engine, key string, opts ...DocOption) (bool, error) {
	o := newDocOptions(opts)
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	if e.cache != nil {
		cacheKey := CacheKey{Key: key, FullTypeName: fullType, Partition: o.Partition}.String()
		if raw, err := e.cache.Get(ctx, cacheKey); err == nil && raw != nil {
			return true, nil
		}
	}

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Release()

	var rows tsql.Rows
	args := []any{key, fullType, o.Partition}
	if err := sess.Query.Query(sess.Context(), catalog.ExistsDocumentByKey, args, &rows); err != nil {
		return false, ReadFailed(err)
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// DeleteByKey removes the document at (key, FullTypeName, Partition),
// reporting whether exactly one row was removed.
func DeleteByKey[T any](ctx context.Context, e *Engine, key string, opts ...DocOption) (bool, error) {
	o := newDocOptions(opts)
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Release()

	var res sql.Result
	args := []any{key, fullType, o.Partition}
	if err := sess.Query.Exec(sess.Context(), catalog.DeleteDocumentByKey, args, &res); err != nil {
		return false, DeleteFailed(err)
	}
	n, _ := res.RowsAffected()
	if e.cache != nil {
		_ = e.cache.Delete(ctx, CacheKey{Key: key, FullTypeName: fullType, Partition: o.Partition}.String())
	}
	return n == 1, nil
}

// DeleteMany removes every document of type T matching filter (optionally
// scoped to a partition), returning the number of rows removed.
func DeleteMany[T any](ctx context.Context, e *Engine, opts ...DocOption) (int, error) {
	o := newDocOptions(opts)
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	filterSQL, filterArgs, err := renderFilter(o.Filter, e.codec)
	if err != nil {
		return 0, err
	}
	scoped := o.partitionSet
	q := catalog.DeleteManyDocuments(scoped, filterSQL)

	args := []any{fullType}
	if scoped {
		args = append(args, o.Partition)
	}
	args = append(args, filterArgs...)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Release()

	var res sql.Result
	if err := sess.Query.Exec(sess.Context(), q, args, &res); err != nil {
		return 0, DeleteFailed(err)
	}
	n, _ := res.RowsAffected()
	if e.cache != nil {
		if scoped {
			_ = e.cache.DeletePrefix(ctx, TypePrefix(fullType, o.Partition))
		} else {
			// Unscoped delete_many reaches every partition of T; a
			// single-partition prefix would leave other partitions'
			// now-stale read_by_key entries cached.
			_ = e.cache.Clear(ctx)
		}
	}
	return int(n), nil
}

// DeleteByType removes every document of type T, across all partitions,
// per spec.md §4.5's "delete by type" catalog member.
func DeleteByType[T any](ctx context.Context, e *Engine) (int, error) {
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Release()

	var res sql.Result
	if err := sess.Query.Exec(sess.Context(), catalog.DeleteDocumentsByType, []any{fullType}, &res); err != nil {
		return 0, DeleteFailed(err)
	}
	n, _ := res.RowsAffected()
	if e.cache != nil {
		// Spans every partition of fullType, so a single TypePrefix (which
		// is scoped to one partition) can't cover it.
		_ = e.cache.Clear(ctx)
	}
	return int(n), nil
}

// ListPartitions returns the distinct partition names holding at least one
// document of type T, per spec.md §4.5's "partition listing" catalog member.
func ListPartitions[T any](ctx context.Context, e *Engine) ([]string, error) {
	t := zeroOf[T]()
	fullType := registry.FullName(t)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	var rows tsql.Rows
	if err := sess.Query.Query(sess.Context(), catalog.ListPartitions, []any{fullType}, &rows); err != nil {
		return nil, ReadFailed(err)
	}
	defer rows.Close()

	var partitions []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return partitions, ReadFailed(err)
		}
		partitions = append(partitions, p)
	}
	if err := rows.Err(); err != nil {
		return partitions, ReadFailed(err)
	}
	return partitions, nil
}

// DeleteByPartition removes every document in p, across all types.
func DeleteByPartition(ctx context.Context, e *Engine, p string) (int, error) {
	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Release()

	var res sql.Result
	if err := sess.Query.Exec(sess.Context(), catalog.DeleteDocumentsByPartition, []any{p}, &res); err != nil {
		return 0, DeleteFailed(err)
	}
	n, _ := res.RowsAffected()
	if e.cache != nil {
		_ = e.cache.Clear(ctx)
	}
	return int(n), nil
}

// DeleteAll truncates the document table, with no partition or type scope.
func DeleteAll(ctx context.Context, e *Engine) (int, error) {
	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Release()

	var res sql.Result
	if err := sess.Query.Exec(sess.Context(), catalog.DeleteAllDocuments, []any{}, &res); err != nil {
		return 0, DeleteFailed(err)
	}
	n, _ := res.RowsAffected()
	if e.cache != nil {
		_ = e.cache.Clear(ctx)
	}
	return int(n), nil
}

func renderFilter(f *query.Filter, c codec.Codec) (string, []any, error) {
	if f == nil {
		return "", nil, nil
	}
	return f.Render(func(v any) (string, bool) { return codec.FormatTime(c, v) })
}
