package lfc

import (
	"context"
	"errors"
	"io"

	"github.com/aweris/lfc/internal/bundle"
	"github.com/aweris/lfc/internal/cache"
)

// ExportBundle writes the cached blobs referenced by sidecars under the
// given paths into w as a zstd-compressed archive, for air-gapped transport.
// Returns the number of blobs written.
func (r *Repo) ExportBundle(ctx context.Context, w io.Writer, paths ...string) (int, error) {
	refs, err := r.referencedHashes(ctx, paths)
	if err != nil {
		return 0, err
	}
	n, err := bundle.Export(w, r.cache, sortedKeys(refs))
	return n, Wrap(KindIO, "bundle-export", "", err)
}

// ImportBundle restores blobs from an archive produced by ExportBundle.
// Every entry is digest-verified on the way into the cache. Returns the
// number of blobs restored.
func (r *Repo) ImportBundle(ctx context.Context, src io.Reader) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := bundle.Import(src, r.cache)
	if err != nil {
		kind := KindIO
		if errors.Is(err, cache.ErrCorrupt) {
			kind = KindCorrupt
		}
		return n, Wrap(kind, "bundle-import", "", err)
	}
	return n, nil
}
