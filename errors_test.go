package tycho_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tychodb/tycho"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind tycho.Kind
		want string
	}{
		{tycho.KindNotConnected, "NotConnected"},
		{tycho.KindNotRegistered, "NotRegistered"},
		{tycho.KindMissingIdSelector, "MissingIdSelector"},
		{tycho.KindInvalidPath, "InvalidPath"},
		{tycho.KindAmbiguousMatch, "AmbiguousMatch"},
		{tycho.KindJsonUnsupported, "JsonUnsupported"},
		{tycho.KindWriteFailed, "WriteFailed"},
		{tycho.KindReadFailed, "ReadFailed"},
		{tycho.KindDeleteFailed, "DeleteFailed"},
		{tycho.KindIndexFailed, "IndexFailed"},
		{tycho.KindBlobFailed, "BlobFailed"},
		{tycho.KindCancelled, "Cancelled"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestNotConnected(t *testing.T) {
	err := tycho.NotConnected("write")
	assert.Equal(t, "tycho: NotConnected: write", err.Error())
	assert.True(t, tycho.IsNotConnected(err))
	assert.False(t, tycho.IsNotRegistered(err))
}

func TestNotRegistered(t *testing.T) {
	err := tycho.NotRegistered("Invoice")
	assert.Contains(t, err.Error(), `"Invoice" is not registered`)
	assert.True(t, tycho.IsNotRegistered(err))

	wrapped := fmt.Errorf("wrapper: %w", err)
	assert.True(t, tycho.IsNotRegistered(wrapped))
}

func TestMissingIdSelector(t *testing.T) {
	err := tycho.MissingIdSelector("Invoice")
	assert.True(t, tycho.IsMissingIdSelector(err))
	assert.Contains(t, err.Error(), "no id-selector")
}

func TestInvalidPath(t *testing.T) {
	err := tycho.InvalidPath("x.Method()")
	assert.True(t, tycho.IsInvalidPath(err))
}

func TestAmbiguousMatch(t *testing.T) {
	err := tycho.AmbiguousMatch(3)
	assert.True(t, tycho.IsAmbiguousMatch(err))
	assert.Contains(t, err.Error(), "matched 3 rows")
}

func TestJsonUnsupported(t *testing.T) {
	err := tycho.JsonUnsupported("sqlite 3.30 lacks JSON1")
	assert.True(t, tycho.IsJsonUnsupported(err))
}

func TestWrappedFailures(t *testing.T) {
	cause := errors.New("disk I/O error")

	t.Run("WriteFailed", func(t *testing.T) {
		err := tycho.WriteFailed(cause)
		assert.True(t, tycho.IsWriteFailed(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("ReadFailed", func(t *testing.T) {
		err := tycho.ReadFailed(cause)
		assert.True(t, tycho.IsReadFailed(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("DeleteFailed", func(t *testing.T) {
		err := tycho.DeleteFailed(cause)
		assert.True(t, tycho.IsDeleteFailed(err))
	})

	t.Run("IndexFailed", func(t *testing.T) {
		err := tycho.IndexFailed(cause)
		assert.True(t, tycho.IsIndexFailed(err))
	})

	t.Run("BlobFailed", func(t *testing.T) {
		err := tycho.BlobFailed(cause)
		assert.True(t, tycho.IsBlobFailed(err))
	})

	t.Run("Cancelled", func(t *testing.T) {
		err := tycho.Cancelled(cause)
		assert.True(t, tycho.IsCancelled(err))
	})
}

func TestTychoErrorIsMatchesOnKindOnly(t *testing.T) {
	a := tycho.WriteFailed(errors.New("disk full"))
	b := tycho.WriteFailed(errors.New("permission denied"))
	assert.True(t, errors.Is(a, b), "two TychoErrors of the same Kind should satisfy errors.Is regardless of message or cause")

	c := tycho.ReadFailed(errors.New("disk full"))
	assert.False(t, errors.Is(a, c))
}

func TestIsReturnsFalseForNilAndForeignErrors(t *testing.T) {
	assert.False(t, tycho.IsNotConnected(nil))
	assert.False(t, tycho.IsNotConnected(errors.New("plain error")))
}
