package remote

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestLocalPutGetHas(t *testing.T) {
	ctx := context.Background()
	be := NewLocal(filepath.Join(t.TempDir(), "hub"))

	ok, err := be.Has(ctx, testHash)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, be.Put(ctx, testHash, strings.NewReader("payload"), 7))

	ok, err = be.Has(ctx, testHash)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := be.Get(ctx, testHash)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "payload", string(data))

	// Sharded layout mirrors the local cache.
	_, err = os.Stat(filepath.Join(be.dir, testHash[:2], testHash[2:]))
	assert.NoError(t, err)
}

func TestLocalGetMissingClassifies(t *testing.T) {
	be := NewLocal(filepath.Join(t.TempDir(), "hub"))
	_, err := be.Get(context.Background(), testHash)
	assert.ErrorIs(t, err, ErrMissing)
	assert.Equal(t, ClassMissing, ClassOf(err))
}

func TestLocalList(t *testing.T) {
	ctx := context.Background()
	be := NewLocal(filepath.Join(t.TempDir(), "hub"))

	hashes, err := be.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, hashes)

	other := strings.Repeat("ab", 32)
	require.NoError(t, be.Put(ctx, testHash, strings.NewReader("one"), 3))
	require.NoError(t, be.Put(ctx, other, strings.NewReader("two"), 3))

	// Stray files are not hashes and stay out of the listing.
	require.NoError(t, os.WriteFile(filepath.Join(be.dir, "README"), []byte("hi"), 0o644))

	hashes, err = be.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testHash, other}, hashes)
}

func TestLocalPutLeavesNoTempOnExisting(t *testing.T) {
	ctx := context.Background()
	be := NewLocal(filepath.Join(t.TempDir(), "hub"))
	require.NoError(t, be.Put(ctx, testHash, strings.NewReader("payload"), 7))
	require.NoError(t, be.Put(ctx, testHash, strings.NewReader("payload"), 7))

	entries, err := os.ReadDir(be.dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), "tmp-"), "leftover %s", e.Name())
	}
}
