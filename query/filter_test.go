package query_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tychodb/tycho/path"
	"github.com/tychodb/tycho/query"
)

func TestEmptyFilterRendersNothing(t *testing.T) {
	f := query.New()
	sql, args, err := f.Render(nil)
	require.NoError(t, err)
	assert.Empty(t, sql)
	assert.Empty(t, args)
}

func TestSimpleEqualsStringPredicateBeginsWithAnd(t *testing.T) {
	f := query.New().Where(path.String("StringProperty"), query.Equals, "k")
	sql, args, err := f.Render(nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(sql), "AND"))
	assert.Contains(t, sql, "json_extract(Data, '$.StringProperty')")
	assert.Contains(t, sql, "= ?")
	assert.Equal(t, []any{"k"}, args)
}

func TestNumericEqualityCastsToNumeric(t *testing.T) {
	f := query.New().Where(path.Int("IntProperty"), query.Equals, 1984)
	sql, _, err := f.Render(nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "CAST(json_extract(Data, '$.IntProperty') AS NUMERIC) = ?")
}

func TestBoolEqualityDoesNotCast(t *testing.T) {
	f := query.New().Where(path.Bool("Active"), query.Equals, true)
	sql, args, err := f.Render(nil)
	require.NoError(t, err)
	assert.NotContains(t, sql, "CAST")
	assert.Equal(t, []any{true}, args)
}

func TestDateTimeEqualityUsesFormatter(t *testing.T) {
	called := false
	fmtTime := func(v any) (string, bool) {
		called = true
		return "2024-01-01T00:00:00.0000000Z", true
	}
	f := query.New().Where(path.Time("CreatedAt"), query.Equals, "anything")
	sql, args, err := f.Render(fmtTime)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, sql, "json_extract(Data, '$.CreatedAt') = ?")
	assert.Equal(t, []any{"2024-01-01T00:00:00.0000000Z"}, args)
}

func TestRangeComparatorAlwaysCastsNumeric(t *testing.T) {
	f := query.New().Where(path.String("Score"), query.GreaterThan, 250)
	sql, args, err := f.Render(nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "CAST(json_extract(Data, '$.Score') AS NUMERIC) > ?")
	assert.Equal(t, []any{250}, args)
}

func TestLikeComparators(t *testing.T) {
	tests := []struct {
		cmp     query.Comparator
		want    string
		pattern string
	}{
		{query.StartsWith, "LIKE ?", "foo%"},
		{query.EndsWith, "LIKE ?", "%foo"},
		{query.Contains, "LIKE ?", "%foo%"},
	}
	for _, tt := range tests {
		f := query.New().Where(path.String("Name"), tt.cmp, "foo")
		sql, args, err := f.Render(nil)
		require.NoError(t, err)
		assert.Contains(t, sql, tt.want)
		assert.Equal(t, []any{tt.pattern}, args)
	}
}

func TestValuesAreAlwaysParameterizedNeverInlined(t *testing.T) {
	malicious := "'; DROP TABLE JsonValue; --"
	f := query.New().Where(path.String("Name"), query.Equals, malicious)
	sql, args, err := f.Render(nil)
	require.NoError(t, err)
	assert.NotContains(t, sql, malicious)
	assert.Equal(t, []any{malicious}, args)
}

func TestExplicitJoinNodesRenderLiterally(t *testing.T) {
	f := query.New().
		Where(path.String("A"), query.Equals, "1").
		And().
		Where(path.String("B"), query.Equals, "2").
		Or().
		OpenGroup().
		Where(path.String("C"), query.Equals, "3").
		CloseGroup()

	sql, args, err := f.Render(nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "\nAND")
	assert.Contains(t, sql, "\nOR")
	assert.Contains(t, sql, "(")
	assert.Contains(t, sql, ")")
	assert.Equal(t, []any{"1", "2", "3"}, args)
}

func TestLeadingOpenGroupGetsAGluingAnd(t *testing.T) {
	f := query.New().
		OpenGroup().
		Where(path.String("A"), query.Equals, "1").
		Or().
		Where(path.String("B"), query.Equals, "2").
		CloseGroup().
		And().
		Where(path.String("C"), query.Equals, "3")

	sql, args, err := f.Render(nil)
	require.NoError(t, err)

	// Every rendered node must be glued to what precedes it by a
	// connective; a bare "(" with nothing before it is a SQL syntax
	// error once appended after the catalog's "... AND 1=1".
	trimmed := strings.TrimSpace(sql)
	assert.True(t, strings.HasPrefix(trimmed, "AND ("), "expected leading group to start with a gluing AND, got: %s", sql)
	assert.Contains(t, sql, "\nOR")
	assert.Contains(t, sql, "\nAND")
	assert.Equal(t, []any{"1", "2", "3"}, args)
}

func TestExistentialPredicateRendersJSONTreeAndEach(t *testing.T) {
	f := query.New().WhereExists(
		path.String("Values"), path.Int("FloatProperty"),
		query.GreaterThan, 250,
	)
	sql, args, err := f.Render(nil)
	require.NoError(t, err)
	assert.Contains(t, sql, "EXISTS(SELECT 1 FROM json_tree(Data, '$.Values') AS jt, json_each(jt.value, '$.FloatProperty') AS val WHERE")
	assert.Contains(t, sql, "CAST(val.value AS NUMERIC) > ?")
	assert.Equal(t, []any{250}, args)
}
