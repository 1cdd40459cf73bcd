package sqlgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// sqliteCodeError is a minimal stand-in for modernc.org/sqlite's *sqlite.Error,
// which exposes its extended result code via an int-returning Code() method.
type sqliteCodeError struct {
	code int
}

func (e *sqliteCodeError) Error() string { return "sqlite error" }
func (e *sqliteCodeError) Code() int     { return e.code }

func TestIsUniqueConstraintErrorViaSqliteCode(t *testing.T) {
	assert.True(t, IsUniqueConstraintError(&sqliteCodeError{code: sqliteConstraintUnique}))
	assert.True(t, IsUniqueConstraintError(&sqliteCodeError{code: sqliteConstraintPrimaryKey}))
	assert.False(t, IsUniqueConstraintError(&sqliteCodeError{code: sqliteConstraintForeignKey}))
}

func TestIsForeignKeyConstraintErrorViaSqliteCode(t *testing.T) {
	assert.True(t, IsForeignKeyConstraintError(&sqliteCodeError{code: sqliteConstraintForeignKey}))
	assert.False(t, IsForeignKeyConstraintError(&sqliteCodeError{code: sqliteConstraintUnique}))
}

func TestIsCheckConstraintErrorViaSqliteCode(t *testing.T) {
	assert.True(t, IsCheckConstraintError(&sqliteCodeError{code: sqliteConstraintCheck}))
	assert.False(t, IsCheckConstraintError(&sqliteCodeError{code: sqliteConstraintUnique}))
}

func TestIsUniqueConstraintErrorStringFallback(t *testing.T) {
	assert.True(t, IsUniqueConstraintError(errors.New("UNIQUE constraint failed: JsonValue.Key")))
	assert.True(t, IsUniqueConstraintError(errors.New("PRIMARY KEY constraint failed: JsonValue.rowid")))
	assert.False(t, IsUniqueConstraintError(errors.New("disk I/O error")))
}

func TestIsForeignKeyConstraintErrorStringFallback(t *testing.T) {
	assert.True(t, IsForeignKeyConstraintError(errors.New("FOREIGN KEY constraint failed")))
	assert.False(t, IsForeignKeyConstraintError(errors.New("disk I/O error")))
}

func TestIsCheckConstraintErrorStringFallback(t *testing.T) {
	assert.True(t, IsCheckConstraintError(errors.New("CHECK constraint failed: Partition")))
	assert.False(t, IsCheckConstraintError(errors.New("disk I/O error")))
}

func TestIsConstraintErrorCoversAllThreeKinds(t *testing.T) {
	assert.True(t, IsConstraintError(errors.New("UNIQUE constraint failed: JsonValue.Key")))
	assert.True(t, IsConstraintError(errors.New("FOREIGN KEY constraint failed")))
	assert.True(t, IsConstraintError(errors.New("CHECK constraint failed: Partition")))
	assert.False(t, IsConstraintError(errors.New("disk I/O error")))
	assert.False(t, IsConstraintError(nil))
}

func TestConstraintErrorWrapsAndUnwraps(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: JsonValue.Key")
	err := NewConstraintError("duplicate key", cause)

	assert.Contains(t, err.Error(), "duplicate key")
	assert.ErrorIs(t, err, cause)

	var ce *ConstraintError
	assert.True(t, errors.As(err, &ce))
	assert.True(t, IsConstraintError(err))
}
