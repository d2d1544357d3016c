package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/lfc/internal/cache"
	"github.com/aweris/lfc/internal/remote"
)

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	s, err := cache.Open(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return s
}

func newHub(t *testing.T) *remote.Local {
	t.Helper()
	return remote.NewLocal(filepath.Join(t.TempDir(), "hub"))
}

func seed(t *testing.T, s *cache.Store, payloads ...string) []string {
	t.Helper()
	hashes := make([]string, 0, len(payloads))
	for _, p := range payloads {
		h, _, err := s.Store(strings.NewReader(p))
		require.NoError(t, err)
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return hashes
}

func outcomes(results []Result) map[string]Outcome {
	m := make(map[string]Outcome, len(results))
	for _, r := range results {
		m[r.Hash] = r.Outcome
	}
	return m
}

func TestPushThenRepushSkips(t *testing.T) {
	ctx := context.Background()
	store, hub := newStore(t), newHub(t)
	hashes := seed(t, store, "alpha", "beta", "gamma")

	e := &Engine{Jobs: 2}
	results := e.Push(ctx, store, hub, hashes)
	require.Len(t, results, 3)
	for _, res := range results {
		assert.Equal(t, Sent, res.Outcome, res.Hash)
	}

	// Results are sorted by hash.
	assert.True(t, sort.SliceIsSorted(results, func(i, j int) bool {
		return results[i].Hash < results[j].Hash
	}))

	// Second push finds everything present.
	results = e.Push(ctx, store, hub, hashes)
	for _, res := range results {
		assert.Equal(t, SkippedPresent, res.Outcome, res.Hash)
	}
}

func TestPushMissingAtSource(t *testing.T) {
	store, hub := newStore(t), newHub(t)
	absent := strings.Repeat("ab", 32)

	results := (&Engine{}).Push(context.Background(), store, hub, []string{absent})
	require.Len(t, results, 1)
	assert.Equal(t, SkippedMissingAtSource, results[0].Outcome)
}

func TestPullVerifiesDigests(t *testing.T) {
	ctx := context.Background()
	store, hub := newStore(t), newHub(t)
	hashes := seed(t, store, "alpha", "beta")

	e := &Engine{}
	results := e.Push(ctx, store, hub, hashes)
	require.Len(t, results, 2)

	// A fresh cache pulls everything back, digest-checked.
	fresh := newStore(t)
	results = e.Pull(ctx, fresh, hub, hashes)
	for _, res := range results {
		assert.Equal(t, Received, res.Outcome, res.Hash)
		assert.True(t, fresh.Has(res.Hash))
		assert.NoError(t, fresh.Verify(res.Hash))
	}
}

func TestPullCorruptObjectFailsThatHashOnly(t *testing.T) {
	ctx := context.Background()
	store, hub := newStore(t), newHub(t)
	hashes := seed(t, store, "alpha", "beta")
	e := &Engine{}
	e.Push(ctx, store, hub, hashes)

	// Flip bytes of one remote object.
	sum := sha256.Sum256([]byte("alpha"))
	alpha := hex.EncodeToString(sum[:])
	hubPath := filepath.Join(hub.String(), alpha[:2], alpha[2:])
	require.NoError(t, os.WriteFile(hubPath, []byte("alphA"), 0o644))

	fresh := newStore(t)
	results := e.Pull(ctx, fresh, hub, hashes)
	byHash := make(map[string]Result)
	for _, res := range results {
		byHash[res.Hash] = res
	}

	assert.Equal(t, Failed, byHash[alpha].Outcome)
	assert.True(t, byHash[alpha].Corrupt())
	assert.False(t, fresh.Has(alpha))

	// The healthy object still lands.
	sum = sha256.Sum256([]byte("beta"))
	beta := hex.EncodeToString(sum[:])
	assert.Equal(t, Received, byHash[beta].Outcome)
	assert.True(t, fresh.Has(beta))
}

func TestPullSkipsPresent(t *testing.T) {
	ctx := context.Background()
	store, hub := newStore(t), newHub(t)
	hashes := seed(t, store, "alpha")
	e := &Engine{}
	e.Push(ctx, store, hub, hashes)

	results := e.Pull(ctx, store, hub, hashes)
	require.Len(t, results, 1)
	assert.Equal(t, SkippedPresent, results[0].Outcome)
}

func TestPullMissingAtSource(t *testing.T) {
	store, hub := newStore(t), newHub(t)
	absent := strings.Repeat("cd", 32)

	results := (&Engine{}).Pull(context.Background(), store, hub, []string{absent})
	require.Len(t, results, 1)
	assert.Equal(t, SkippedMissingAtSource, results[0].Outcome)
}

func TestLargeBatchBoundedConcurrency(t *testing.T) {
	ctx := context.Background()
	store, hub := newStore(t), newHub(t)

	payloads := make([]string, 50)
	for i := range payloads {
		payloads[i] = fmt.Sprintf("object-%02d", i)
	}
	hashes := seed(t, store, payloads...)

	var progressed atomic.Int64
	e := &Engine{Jobs: 4, Progress: func(_ string, n int64) { progressed.Add(n) }}
	results := e.Push(ctx, store, hub, hashes)
	require.Len(t, results, 50)

	got := outcomes(results)
	for _, h := range hashes {
		assert.Equal(t, Sent, got[h])
	}
	assert.Equal(t, int64(50*len("object-00")), progressed.Load())
}
