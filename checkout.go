package lfc

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/aweris/lfc/internal/cache"
	"github.com/aweris/lfc/internal/pointer"
)

// Checkout materializes the original files for the named sidecars (or every
// sidecar in the tree). Files already matching their sidecar are left alone;
// cache misses fail with a missing-blob error unless auto-pull is on, in
// which case the missing blobs are fetched from the default remote first.
func (r *Repo) Checkout(ctx context.Context, paths ...string) error {
	sidecars, err := r.findSidecars(ctx, paths)
	if err != nil {
		return err
	}

	if r.cfg.AutoPull {
		if err := r.pullMissing(ctx, sidecars); err != nil {
			return err
		}
	}

	for _, sc := range sidecars {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.checkoutOne(sc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) checkoutOne(sidecar string) error {
	rec, err := r.readSidecar(sidecar)
	if err != nil {
		return err
	}
	rel := pointer.OriginalOf(sidecar)
	abs := r.abs(rel)

	if _, err := os.Stat(abs); err == nil {
		clean, err := r.matchesRecord(abs, rec)
		if err != nil {
			return Wrap(KindIO, "checkout", rel, err)
		}
		if clean {
			return nil
		}
		if err := r.clearModified(rel, rec); err != nil {
			return err
		}
	}

	if !r.cache.Has(rec.SHA256) {
		return Wrap(KindMissingBlob, "checkout", rel, ErrMissingBlob)
	}
	if err := r.cache.Materialize(rec.SHA256, abs); err != nil {
		return Wrap(KindIO, "checkout", rel, err)
	}
	r.log.Info("materialized", zap.String("path", truncName(rel, 40)))
	return nil
}

// clearModified removes a working file that disagrees with its sidecar.
// Without --force the file's current content must itself be recoverable from
// the cache, otherwise checkout would destroy the only copy.
func (r *Repo) clearModified(rel string, rec *pointer.Record) error {
	abs := r.abs(rel)
	if !r.opts.Force {
		current, _, err := cache.HashFile(abs)
		if err != nil {
			return Wrap(KindIO, "checkout", rel, err)
		}
		if current != rec.SHA256 && !r.cache.Has(current) {
			return Wrap(KindConflict, "checkout", rel,
				Errorf(KindConflict, "working file differs from sidecar and is not in cache (use --force to discard)"))
		}
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return Wrap(KindIO, "checkout", rel, err)
	}
	return nil
}

// matchesRecord compares a working file against its sidecar under the
// configured hash-check policy.
func (r *Repo) matchesRecord(abs string, rec *pointer.Record) (bool, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return false, err
	}
	switch r.cfg.HashCheck {
	case "never":
		return true, nil
	case "always":
		if info.Size() != rec.Size {
			return false, nil
		}
		hash, _, err := cache.HashFile(abs)
		if err != nil {
			return false, err
		}
		return hash == rec.SHA256, nil
	default: // size
		return info.Size() == rec.Size, nil
	}
}

// pullMissing fetches cache misses for the given sidecars from the
// configured remote before materialization.
func (r *Repo) pullMissing(ctx context.Context, sidecars []string) error {
	var missing []string
	for _, sc := range sidecars {
		rec, err := r.readSidecar(sc)
		if err != nil {
			return err
		}
		if !r.cache.Has(rec.SHA256) {
			missing = append(missing, pointer.OriginalOf(sc))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	summary, err := r.Fetch(ctx, missing...)
	if err != nil {
		return err
	}
	return summary.Err()
}
