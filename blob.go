package tycho

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"

	tsql "github.com/tychodb/tycho/dialect/sql"
	"github.com/tychodb/tycho/internal/catalog"
)

// blobChunkSize bounds how much of the caller's stream is read and bound
// as one AppendBlobChunk parameter at a time, per spec.md §4.8's chunked
// parameter binding fallback.
const blobChunkSize = 32 * 1024

// BlobOptions configures a single Blob Engine call.
type BlobOptions struct {
	Partition string
}

// BlobOption mutates a BlobOptions value under construction.
type BlobOption func(*BlobOptions)

// WithBlobPartition scopes a blob call to a single partition.
func WithBlobPartition(p string) BlobOption { return func(o *BlobOptions) { o.Partition = p } }

func newBlobOptions(opts []BlobOption) *BlobOptions {
	o := &BlobOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WriteBlob copies r into the StreamValue row at (key, partition), under a
// transaction: first an empty placeholder row is inserted/replaced to
// obtain a rowid, then the stream is copied in blobChunkSize pieces via
// AppendBlobChunk. It reports whether the placeholder insert produced a
// rowid and the copy completed; any read or storage failure rolls back.
func WriteBlob(ctx context.Context, e *Engine, r io.Reader, key string, opts ...BlobOption) (bool, error) {
	o := newBlobOptions(opts)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Release()

	tx, err := sess.Query.Tx(sess.Context())
	if err != nil {
		return false, BlobFailed(err)
	}

	var res sql.Result
	if err := tx.Exec(sess.Context(), catalog.UpsertBlobPlaceholder, []any{key, o.Partition, []byte{}}, &res); err != nil {
		_ = tx.Rollback()
		return false, BlobFailed(err)
	}

	var rows tsql.Rows
	if err := tx.Query(sess.Context(), catalog.SelectBlobRowID, []any{key, o.Partition}, &rows); err != nil {
		_ = tx.Rollback()
		return false, BlobFailed(err)
	}
	var rowid int64
	found := rows.Next()
	if found {
		err = rows.Scan(&rowid)
	}
	rows.Close()
	if err != nil {
		_ = tx.Rollback()
		return false, BlobFailed(err)
	}
	if !found {
		_ = tx.Rollback()
		return false, BlobFailed(errors.New("placeholder insert produced no rowid"))
	}

	buf := make([]byte, blobChunkSize)
	for {
		if err := sess.Context().Err(); err != nil {
			_ = tx.Rollback()
			return false, Cancelled(err)
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			var appendRes sql.Result
			if err := tx.Exec(sess.Context(), catalog.AppendBlobChunk, []any{chunk, rowid}, &appendRes); err != nil {
				_ = tx.Rollback()
				return false, BlobFailed(err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			_ = tx.Rollback()
			return false, BlobFailed(readErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, BlobFailed(err)
	}
	return true, nil
}

// ReadBlob returns a read handle over the blob at (key, partition). When no
// row matches, it returns an empty stream sentinel and false rather than
// an error, per spec.md §4.8.
func ReadBlob(ctx context.Context, e *Engine, key string, opts ...BlobOption) (io.ReadCloser, bool, error) {
	o := newBlobOptions(opts)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return nil, false, err
	}
	defer sess.Release()

	var rows tsql.Rows
	if err := sess.Query.Query(sess.Context(), catalog.SelectBlobData, []any{key, o.Partition}, &rows); err != nil {
		return nil, false, BlobFailed(err)
	}
	defer rows.Close()
	if !rows.Next() {
		return io.NopCloser(bytes.NewReader(nil)), false, rows.Err()
	}
	var data []byte
	if err := rows.Scan(&data); err != nil {
		return nil, false, BlobFailed(err)
	}
	return io.NopCloser(bytes.NewReader(data)), true, nil
}

// ExistsBlob reports whether a blob exists at (key, partition).
func ExistsBlob(ctx context.Context, e *Engine, key string, opts ...BlobOption) (bool, error) {
	o := newBlobOptions(opts)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Release()

	var rows tsql.Rows
	if err := sess.Query.Query(sess.Context(), catalog.ExistsBlobByKey, []any{key, o.Partition}, &rows); err != nil {
		return false, BlobFailed(err)
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// DeleteBlob removes the blob at (key, partition), reporting whether a row
// was removed.
func DeleteBlob(ctx context.Context, e *Engine, key string, opts ...BlobOption) (bool, error) {
	o := newBlobOptions(opts)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer sess.Release()

	var res sql.Result
	if err := sess.Query.Exec(sess.Context(), catalog.DeleteBlobByKey, []any{key, o.Partition}, &res); err != nil {
		return false, BlobFailed(err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// DeleteBlobs removes every blob in partition p, returning the number of
// rows removed.
func DeleteBlobs(ctx context.Context, e *Engine, p string) (int, error) {
	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Release()

	var res sql.Result
	if err := sess.Query.Exec(sess.Context(), catalog.DeleteBlobsByPartition, []any{p}, &res); err != nil {
		return 0, BlobFailed(err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
