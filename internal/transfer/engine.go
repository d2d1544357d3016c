// Package transfer moves batches of blobs between the local cache and a
// remote backend with bounded concurrency. Per-object failures never abort
// the batch; the engine reports one outcome per hash and lets the caller
// decide what the batch result means.
package transfer

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/lfc/internal/cache"
	"github.com/aweris/lfc/internal/remote"
)

// DefaultJobs is the worker count when none is configured.
const DefaultJobs = 4

// Outcome is the per-hash transfer result.
type Outcome int

const (
	Sent Outcome = iota
	Received
	SkippedPresent
	SkippedMissingAtSource
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case Received:
		return "received"
	case SkippedPresent:
		return "skipped-present"
	case SkippedMissingAtSource:
		return "skipped-missing-at-source"
	default:
		return "failed"
	}
}

// Result pairs a hash with its outcome.
type Result struct {
	Hash    string
	Outcome Outcome
	Err     error
}

// Corrupt reports whether the result failed a digest check.
func (r Result) Corrupt() bool {
	return r.Err != nil && errors.Is(r.Err, cache.ErrCorrupt)
}

// Engine coordinates concurrent transfers.
type Engine struct {
	Jobs    int
	Retries int

	// Progress, when set, observes completed bytes per object.
	Progress func(hash string, n int64)
}

func (e *Engine) jobs() int {
	if e.Jobs > 0 {
		return e.Jobs
	}
	return DefaultJobs
}

func (e *Engine) retries() int {
	if e.Retries > 0 {
		return e.Retries
	}
	return remote.DefaultRetries
}

// Push uploads the given cache blobs to the backend, skipping objects the
// destination already has. Results come back sorted by hash.
func (e *Engine) Push(ctx context.Context, store *cache.Store, be remote.Backend, hashes []string) []Result {
	return e.run(ctx, hashes, func(ctx context.Context, hash string) Result {
		present, err := remoteHas(ctx, be, e.retries(), hash)
		if err != nil {
			return Result{Hash: hash, Outcome: Failed, Err: err}
		}
		if present {
			return Result{Hash: hash, Outcome: SkippedPresent}
		}
		if !store.Has(hash) {
			return Result{Hash: hash, Outcome: SkippedMissingAtSource}
		}

		// The blob streams straight off the cache file; each retry attempt
		// reopens it from byte 0.
		var size int64
		err = remote.WithRetry(ctx, e.retries()+1, func() error {
			src, n, oerr := store.Open(hash)
			if oerr != nil {
				return oerr
			}
			defer src.Close()
			size = n
			return be.Put(ctx, hash, src, n)
		})
		if err != nil {
			return Result{Hash: hash, Outcome: Failed, Err: err}
		}
		if e.Progress != nil {
			e.Progress(hash, size)
		}
		return Result{Hash: hash, Outcome: Sent}
	})
}

// Pull downloads the given blobs from the backend into the cache. Incoming
// bytes stream through a digest check and are only promoted into the cache
// on a match; mismatches fail that hash as corrupt.
func (e *Engine) Pull(ctx context.Context, store *cache.Store, be remote.Backend, hashes []string) []Result {
	return e.run(ctx, hashes, func(ctx context.Context, hash string) Result {
		if store.Has(hash) {
			return Result{Hash: hash, Outcome: SkippedPresent}
		}

		var size int64
		err := remote.WithRetry(ctx, e.retries()+1, func() error {
			src, gerr := be.Get(ctx, hash)
			if gerr != nil {
				return gerr
			}
			defer src.Close()
			n, serr := store.StoreExpected(src, hash)
			size = n
			return serr
		})
		if err != nil {
			if remote.ClassOf(err) == remote.ClassMissing {
				return Result{Hash: hash, Outcome: SkippedMissingAtSource}
			}
			return Result{Hash: hash, Outcome: Failed, Err: err}
		}
		if e.Progress != nil {
			e.Progress(hash, size)
		}
		return Result{Hash: hash, Outcome: Received}
	})
}

func (e *Engine) run(ctx context.Context, hashes []string, task func(context.Context, string) Result) []Result {
	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(hashes))
	)
	p := pool.New().WithMaxGoroutines(e.jobs()).WithContext(ctx)
	for _, hash := range hashes {
		hash := hash
		p.Go(func(ctx context.Context) error {
			var res Result
			if err := ctx.Err(); err != nil {
				res = Result{Hash: hash, Outcome: Failed, Err: err}
			} else {
				res = task(ctx, hash)
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	p.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Hash < results[j].Hash })
	return results
}

func remoteHas(ctx context.Context, be remote.Backend, retries int, hash string) (bool, error) {
	var present bool
	err := remote.WithRetry(ctx, retries+1, func() error {
		ok, herr := be.Has(ctx, hash)
		present = ok
		return herr
	})
	return present, err
}
