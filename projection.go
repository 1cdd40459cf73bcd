package tycho

import (
	"bytes"
	"context"

	tsql "github.com/tychodb/tycho/dialect/sql"
	"github.com/tychodb/tycho/internal/catalog"
	"github.com/tychodb/tycho/internal/registry"
	"github.com/tychodb/tycho/path"
)

// Projection pairs a document's key with the TOut value extracted from one
// of its subtrees, returned by ReadProjectedWithKeys.
type Projection[TOut any] struct {
	Key   string
	Value TOut
}

// ReadProjected extracts the subtree at p out of every TIn document
// matching opts and deserializes it as TOut, without the row's key.
// Composes with filter, sort, partition scoping, and Top exactly like
// ReadMany.
func ReadProjected[TIn, TOut any](ctx context.Context, e *Engine, p path.Path, opts ...DocOption) ([]TOut, error) {
	rows, err := readProjected[TIn, TOut](ctx, e, p, false, opts)
	if err != nil {
		return nil, err
	}
	out := make([]TOut, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out, nil
}

// ReadProjectedWithKeys is ReadProjected but additionally selects Key,
// returning (key, inner value) pairs.
func ReadProjectedWithKeys[TIn, TOut any](ctx context.Context, e *Engine, p path.Path, opts ...DocOption) ([]Projection[TOut], error) {
	return readProjected[TIn, TOut](ctx, e, p, true, opts)
}

func readProjected[TIn, TOut any](ctx context.Context, e *Engine, p path.Path, withKeys bool, opts []DocOption) ([]Projection[TOut], error) {
	o := newDocOptions(opts)
	t := zeroOf[TIn]()
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
	q := catalog.SelectProjected(scoped, withKeys, p.String(), filterSQL, orderSQL, o.Top)

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

	var out []Projection[TOut]
	if o.Top > 0 {
		out = make([]Projection[TOut], 0, o.Top)
	}
	var count int
	for rows.Next() {
		if err := sess.Context().Err(); err != nil {
			return out, Cancelled(err)
		}

		var key, data string
		if withKeys {
			if err := rows.Scan(&key, &data); err != nil {
				return out, ReadFailed(err)
			}
		} else if err := rows.Scan(&data); err != nil {
			return out, ReadFailed(err)
		}

		buf := docBufferPool.Get().(*bytes.Buffer)
		buf.Reset()
		buf.WriteString(data)

		var v TOut
		decErr := e.codec.Deserialize(sess.Context(), buf, &v)
		docBufferPool.Put(buf)
		if decErr != nil {
			return out, ReadFailed(decErr)
		}
		out = append(out, Projection[TOut]{Key: key, Value: v})
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
