package bundle

import (
	"bytes"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/lfc/internal/cache"
)

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	src := newStore(t)
	var hashes []string
	for _, p := range []string{"alpha", "beta", strings.Repeat("z", 1<<16)} {
		h, _, err := src.Store(strings.NewReader(p))
		require.NoError(t, err)
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	var buf bytes.Buffer
	n, err := Export(&buf, src, hashes)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	dst := newStore(t)
	n, err = Import(&buf, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	restored, err := dst.List()
	require.NoError(t, err)
	sort.Strings(restored)
	assert.Equal(t, hashes, restored)
	for _, h := range restored {
		assert.NoError(t, dst.Verify(h))
	}
}

func TestExportSkipsMissing(t *testing.T) {
	src := newStore(t)
	h, _, err := src.Store(strings.NewReader("present"))
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := Export(&buf, src, []string{strings.Repeat("ab", 32), h})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImportSkipsAlreadyPresent(t *testing.T) {
	src := newStore(t)
	h, _, err := src.Store(strings.NewReader("shared"))
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = Export(&buf, src, []string{h})
	require.NoError(t, err)

	n, err := Import(&buf, src)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestImportRejectsUnexpectedEntries(t *testing.T) {
	// Import rejects any entry whose name entryHash cannot map to a hash;
	// check that mapping on bogus and well-formed names.
	var raw bytes.Buffer
	src := newStore(t)
	h, _, err := src.Store(strings.NewReader("x"))
	require.NoError(t, err)
	_, err = Export(&raw, src, []string{h})
	require.NoError(t, err)

	assert.Equal(t, "", entryHash("not/a/hash"))
	assert.Equal(t, "", entryHash("zz"))
	assert.Equal(t, h, entryHash(h[:2]+"/"+h[2:]))
}
