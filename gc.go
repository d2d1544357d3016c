package lfc

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
)

// GC removes cache blobs not referenced by any sidecar reachable from the
// working tree, plus stale in-flight temp files. With dryRun the doomed
// hashes are returned but nothing is deleted. GC is the only operation that
// ever deletes a blob.
func (r *Repo) GC(ctx context.Context, dryRun bool) ([]string, error) {
	refs, err := r.referencedHashes(ctx, nil)
	if err != nil {
		return nil, err
	}
	stored, err := r.cache.List()
	if err != nil {
		return nil, Wrap(KindIO, "gc", r.cache.Dir(), err)
	}

	var doomed []string
	for _, hash := range stored {
		if _, used := refs[hash]; !used {
			doomed = append(doomed, hash)
		}
	}
	sort.Strings(doomed)

	if dryRun {
		return doomed, nil
	}
	for _, hash := range doomed {
		if err := ctx.Err(); err != nil {
			return doomed, err
		}
		if err := r.cache.Remove(hash); err != nil {
			return doomed, Wrap(KindIO, "gc", hash, err)
		}
	}
	if n := r.cache.SweepTemps(time.Hour); n > 0 {
		r.log.Debug("swept temps", zap.Int("count", n))
	}
	r.log.Info("gc complete", zap.Int("removed", len(doomed)))
	return doomed, nil
}
