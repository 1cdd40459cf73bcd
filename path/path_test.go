package path_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tychodb/tycho"
	"github.com/tychodb/tycho/path"
)

func TestRootPaths(t *testing.T) {
	assert.Equal(t, "$.StringProperty", path.String("StringProperty").String())
	assert.Equal(t, "$.IntProperty", path.Int("IntProperty").String())
	assert.True(t, path.Int("IntProperty").IsNumeric())
	assert.True(t, path.Bool("Active").IsBool())
	assert.True(t, path.Time("CreatedAt").IsDateTime())
	assert.False(t, path.String("Name").IsNumeric())
}

func TestMemberChaining(t *testing.T) {
	p := path.String("Values").NumericMember("FloatProperty")
	assert.Equal(t, "$.Values.FloatProperty", p.String())
	assert.True(t, p.IsNumeric())
}

func TestDeterministicOrdering(t *testing.T) {
	a := path.String("A").StringMember("B").StringMember("C")
	b := path.String("A").StringMember("B").StringMember("C")
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "$.A.B.C", a.String())
}

func TestInvalidPathPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for invalid path segment")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("expected panic value to be an error, got %T", r)
		}
		assert.True(t, tycho.IsInvalidPath(err))
	}()
	path.String("") // not a valid identifier
}

func TestNameReturnsTerminalSegment(t *testing.T) {
	p := path.String("Values").StringMember("Nested")
	assert.Equal(t, "Nested", p.Name())
}
