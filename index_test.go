package tycho_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tychodb/tycho"
	"github.com/tychodb/tycho/path"
)

func TestCreateIndexSingleColumn(t *testing.T) {
	e := newTestEngine(t)
	err := tycho.CreateIndex[widget](context.Background(), e, "byscore", path.Int("Score"))
	require.NoError(t, err)
}

func TestCreateIndexIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, tycho.CreateIndex[widget](ctx, e, "byscore", path.Int("Score")))
	// Second call against the same name must not error (CREATE INDEX IF NOT EXISTS).
	err := tycho.CreateIndex[widget](ctx, e, "byscore", path.Int("Score"))
	assert.NoError(t, err)
}

func TestCreateIndexComposite(t *testing.T) {
	e := newTestEngine(t)
	err := tycho.CreateIndex[widget](context.Background(), e, "byname_score",
		path.String("Name"), path.Int("Score"))
	require.NoError(t, err)
}

func TestCreateIndexBeforeConnectFailsWithNotConnected(t *testing.T) {
	e := tycho.New(tycho.WithDBPath(t.TempDir()))
	tycho.Register[widget](e, path.String("ID"), func(w widget) any { return w.ID }, nil)

	err := tycho.CreateIndex[widget](context.Background(), e, "byscore", path.Int("Score"))
	require.Error(t, err)
	assert.True(t, tycho.IsNotConnected(err))
}
