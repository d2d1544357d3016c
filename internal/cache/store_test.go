package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SHA-256 of 1 MiB of zero bytes.
const zeroMiBHash = "30e14955ebf1352266dc2ff8067e68104607e750abb9d3b36582b8af909fcb58"

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return s
}

func TestStoreKnownDigest(t *testing.T) {
	s := newStore(t)
	hash, size, err := s.Store(bytes.NewReader(make([]byte, 1<<20)))
	require.NoError(t, err)
	assert.Equal(t, zeroMiBHash, hash)
	assert.Equal(t, int64(1<<20), size)

	// Sharded layout: cache/<aa>/<bb...>
	assert.Equal(t, filepath.Join(s.Dir(), hash[:2], hash[2:]), s.Path(hash))
	assert.True(t, s.Has(hash))

	got, n, err := s.Open(hash)
	require.NoError(t, err)
	defer got.Close()
	assert.Equal(t, int64(1<<20), n)
}

func TestStoreVerifiesByRehash(t *testing.T) {
	s := newStore(t)
	hash, _, err := s.Store(strings.NewReader("payload"))
	require.NoError(t, err)
	require.NoError(t, s.Verify(hash))

	// Flip a byte behind the store's back.
	path := s.Path(hash)
	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.WriteFile(path, []byte("Payload"), 0o644))
	assert.ErrorIs(t, s.Verify(hash), ErrCorrupt)
}

func TestStoreExpectedRejectsMismatch(t *testing.T) {
	s := newStore(t)
	want := strings.Repeat("0", 64)
	_, err := s.StoreExpected(strings.NewReader("not those bytes"), want)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.False(t, s.Has(want))

	// No temp may survive a rejected write.
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), tmpPrefix), "leftover temp %s", e.Name())
	}
}

func TestOpenMissing(t *testing.T) {
	s := newStore(t)
	_, _, err := s.Open(strings.Repeat("a", 64))
	assert.ErrorIs(t, err, ErrMissing)
}

func TestBlobsAreReadOnly(t *testing.T) {
	s := newStore(t)
	hash, _, err := s.Store(strings.NewReader("immutable"))
	require.NoError(t, err)
	info, err := os.Stat(s.Path(hash))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}

func TestStoreIdempotent(t *testing.T) {
	s := newStore(t)
	h1, _, err := s.Store(strings.NewReader("same bytes"))
	require.NoError(t, err)
	h2, _, err := s.Store(strings.NewReader("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	hashes, err := s.List()
	require.NoError(t, err)
	assert.Len(t, hashes, 1)
}

func TestConcurrentStores(t *testing.T) {
	s := newStore(t)
	const n = 100

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf("blob-%03d-%s", i, strings.Repeat("x", 40))
			if _, _, err := s.Store(strings.NewReader(payload)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("store: %v", err)
	}

	hashes, err := s.List()
	require.NoError(t, err)
	assert.Len(t, hashes, n)

	// No temp files left behind.
	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), tmpPrefix))
	}
}

func TestSweepTemps(t *testing.T) {
	s := newStore(t)
	stale := filepath.Join(s.Dir(), tmpPrefix+"stale")
	require.NoError(t, os.WriteFile(stale, []byte("junk"), 0o644))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	fresh := filepath.Join(s.Dir(), tmpPrefix+"fresh")
	require.NoError(t, os.WriteFile(fresh, []byte("junk"), 0o644))

	assert.Equal(t, 1, s.SweepTemps(24*time.Hour))
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestRemove(t *testing.T) {
	s := newStore(t)
	hash, _, err := s.Store(strings.NewReader("doomed"))
	require.NoError(t, err)
	require.NoError(t, s.Remove(hash))
	assert.False(t, s.Has(hash))
}

func TestMaterializeIntoAnotherDirectory(t *testing.T) {
	s := newStore(t)
	hash, _, err := s.Store(strings.NewReader("materialize me"))
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "sub", "file.dat")
	require.NoError(t, s.Materialize(hash, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "materialize me", string(data))
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zeros")
	require.NoError(t, os.WriteFile(path, make([]byte, 1<<20), 0o644))
	hash, size, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, zeroMiBHash, hash)
	assert.Equal(t, int64(1<<20), size)
}
