package lfc

import (
	"context"
	"io"
	"path/filepath"

	"github.com/aweris/lfc/internal/pointer"
)

// Resolve returns the pointer record for path. With a non-empty ref the
// sidecar is read from that git revision instead of the working tree.
func (r *Repo) Resolve(ctx context.Context, path, ref string) (*pointer.Record, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = r.abs(path)
	}
	rel, err := r.rel(abs)
	if err != nil {
		return nil, err
	}
	sidecar := pointer.SidecarOf(pointer.OriginalOf(rel))

	if ref == "" {
		return r.readSidecar(sidecar)
	}
	data, err := r.git.Show(ctx, ref, sidecar)
	if err != nil {
		return nil, Wrap(KindUsage, "show", sidecar, err)
	}
	rec, err := pointer.Parse(data)
	if err != nil {
		return nil, Wrap(KindParse, "show", sidecar, err)
	}
	return rec, nil
}

// Show streams the blob behind path from the local cache. The record comes
// back alongside the reader so callers can report hash and size.
func (r *Repo) Show(ctx context.Context, path, ref string) (io.ReadCloser, *pointer.Record, error) {
	rec, err := r.Resolve(ctx, path, ref)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := r.cache.Open(rec.SHA256)
	if err != nil {
		return nil, rec, Wrap(KindMissingBlob, "show", path, ErrMissingBlob)
	}
	return rc, rec, nil
}
