package tycho

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tychodb/tycho/dialect/sql/sqlgraph"
	"github.com/tychodb/tycho/internal/catalog"
	"github.com/tychodb/tycho/internal/registry"
	"github.com/tychodb/tycho/path"
)

// CreateIndex builds a single- or composite-column functional index over
// T's documents, named idx_<name>_<safe-T>, per spec.md §4.9. Each path
// contributes one JSON_EXTRACT expression, cast to NUMERIC when the path
// was declared numeric. Creation is idempotent (CREATE INDEX IF NOT
// EXISTS) and runs inside its own transaction so a failure partway through
// never leaves a partially built index behind.
func CreateIndex[T any](ctx context.Context, e *Engine, name string, paths ...path.Path) error {
	t := zeroOf[T]()
	safeName := registry.SafeName(t)

	exprs := make([]string, len(paths))
	numeric := make([]bool, len(paths))
	for i, p := range paths {
		exprs[i] = p.String()
		numeric[i] = p.IsNumeric()
	}
	stmt := catalog.CreateFunctionalIndex(name, safeName, exprs, numeric)

	sess, err := e.sup.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	tx, err := sess.Query.Tx(sess.Context())
	if err != nil {
		return IndexFailed(err)
	}
	var res sql.Result
	if err := tx.Exec(sess.Context(), stmt, []any{}, &res); err != nil {
		_ = tx.Rollback()
		if sqlgraph.IsCheckConstraintError(err) {
			return IndexFailed(fmt.Errorf("path expression rejected by a schema check: %w", err))
		}
		return IndexFailed(err)
	}
	if err := tx.Commit(); err != nil {
		return IndexFailed(err)
	}
	return nil
}
