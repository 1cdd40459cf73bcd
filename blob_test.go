package tycho_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tychodb/tycho"
)

func newBlobTestEngine(t *testing.T) *tycho.Engine {
	t.Helper()
	e := tycho.New(tycho.WithDBPath(t.TempDir()), tycho.WithDBName("blobs.db"))
	require.NoError(t, e.Connect(context.Background()))
	t.Cleanup(func() { _ = e.Disconnect() })
	return e
}

func TestWriteBlobThenReadBlobRoundTrips(t *testing.T) {
	e := newBlobTestEngine(t)
	ctx := context.Background()

	ok, err := tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("hello blob")), "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	r, found, err := tycho.ReadBlob(ctx, e, "b1")
	require.NoError(t, err)
	require.True(t, found)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello blob", string(data))
}

func TestWriteBlobOverwritesOnSecondCall(t *testing.T) {
	e := newBlobTestEngine(t)
	ctx := context.Background()

	_, err := tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("v1")), "b1")
	require.NoError(t, err)
	_, err = tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("v2-longer")), "b1")
	require.NoError(t, err)

	r, found, err := tycho.ReadBlob(ctx, e, "b1")
	require.NoError(t, err)
	require.True(t, found)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "v2-longer", string(data))
}

func TestReadBlobMissingReturnsEmptySentinelAndFalse(t *testing.T) {
	e := newBlobTestEngine(t)
	r, found, err := tycho.ReadBlob(context.Background(), e, "nope")
	require.NoError(t, err)
	assert.False(t, found)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestExistsBlobAndDeleteBlob(t *testing.T) {
	e := newBlobTestEngine(t)
	ctx := context.Background()

	_, err := tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("x")), "b1")
	require.NoError(t, err)

	exists, err := tycho.ExistsBlob(ctx, e, "b1")
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := tycho.DeleteBlob(ctx, e, "b1")
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err = tycho.ExistsBlob(ctx, e, "b1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteBlobMissingReturnsFalse(t *testing.T) {
	e := newBlobTestEngine(t)
	deleted, err := tycho.DeleteBlob(context.Background(), e, "nope")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestBlobPartitionsDoNotCollide(t *testing.T) {
	e := newBlobTestEngine(t)
	ctx := context.Background()

	_, err := tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("tenant-a")), "k", tycho.WithBlobPartition("a"))
	require.NoError(t, err)
	_, err = tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("tenant-b")), "k", tycho.WithBlobPartition("b"))
	require.NoError(t, err)

	ra, found, err := tycho.ReadBlob(ctx, e, "k", tycho.WithBlobPartition("a"))
	require.NoError(t, err)
	require.True(t, found)
	da, err := io.ReadAll(ra)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", string(da))

	rb, found, err := tycho.ReadBlob(ctx, e, "k", tycho.WithBlobPartition("b"))
	require.NoError(t, err)
	require.True(t, found)
	db, err := io.ReadAll(rb)
	require.NoError(t, err)
	assert.Equal(t, "tenant-b", string(db))
}

func TestDeleteBlobsByPartitionRemovesOnlyThatPartition(t *testing.T) {
	e := newBlobTestEngine(t)
	ctx := context.Background()

	_, err := tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("a1")), "k1", tycho.WithBlobPartition("a"))
	require.NoError(t, err)
	_, err = tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("a2")), "k2", tycho.WithBlobPartition("a"))
	require.NoError(t, err)
	_, err = tycho.WriteBlob(ctx, e, bytes.NewReader([]byte("b1")), "k1", tycho.WithBlobPartition("b"))
	require.NoError(t, err)

	n, err := tycho.DeleteBlobs(ctx, e, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exists, err := tycho.ExistsBlob(ctx, e, "k1", tycho.WithBlobPartition("b"))
	require.NoError(t, err)
	assert.True(t, exists)
}

// TestWriteBlobAcceptsUUIDGeneratedKeys exercises the common pattern of
// minting a fresh blob key per upload (e.g. an attachment handle handed
// back to a caller) instead of reusing a caller-supplied one.
func TestWriteBlobAcceptsUUIDGeneratedKeys(t *testing.T) {
	e := newBlobTestEngine(t)
	ctx := context.Background()

	keys := make([]string, 5)
	for i := range keys {
		keys[i] = uuid.NewString()
		ok, err := tycho.WriteBlob(ctx, e, bytes.NewReader([]byte(keys[i])), keys[i])
		require.NoError(t, err)
		assert.True(t, ok)
	}

	for _, k := range keys {
		r, found, err := tycho.ReadBlob(ctx, e, k)
		require.NoError(t, err)
		require.True(t, found)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, k, string(data))
	}
}

// multiChunkReader yields n bytes of the repeating byte pattern "0123456789"
// in reads no larger than max, forcing WriteBlob's append loop to run
// multiple iterations instead of completing in a single Read.
type multiChunkReader struct {
	remaining int
	max       int
	pos       int
}

func (m *multiChunkReader) Read(p []byte) (int, error) {
	if m.remaining <= 0 {
		return 0, io.EOF
	}
	n := len(p)
	if n > m.max {
		n = m.max
	}
	if n > m.remaining {
		n = m.remaining
	}
	for i := 0; i < n; i++ {
		p[i] = byte('0' + (m.pos+i)%10)
	}
	m.pos += n
	m.remaining -= n
	return n, nil
}

func TestWriteBlobMultiChunkExercisesAppendLoop(t *testing.T) {
	e := newBlobTestEngine(t)
	ctx := context.Background()

	const total = 100 * 1024 // bigger than blobChunkSize, spans several Read calls
	src := &multiChunkReader{remaining: total, max: 4096}

	ok, err := tycho.WriteBlob(ctx, e, src, "big")
	require.NoError(t, err)
	assert.True(t, ok)

	r, found, err := tycho.ReadBlob(ctx, e, "big")
	require.NoError(t, err)
	require.True(t, found)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, data, total)

	want := &multiChunkReader{remaining: total, max: total}
	wantBuf := make([]byte, total)
	_, _ = want.Read(wantBuf)
	assert.Equal(t, wantBuf, data)
}
