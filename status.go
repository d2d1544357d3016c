package lfc

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aweris/lfc/internal/cache"
	"github.com/aweris/lfc/internal/pointer"
)

// FileState classifies a tracked file during reconciliation.
type FileState int

const (
	// Materialized: the working file is present and matches its sidecar.
	Materialized FileState = iota

	// CachedOnly: the blob is in cache but the working file is absent.
	CachedOnly

	// Missing: neither the working file nor the cache holds the blob.
	Missing

	// Modified: the working file is present but disagrees with its sidecar.
	Modified
)

func (s FileState) String() string {
	switch s {
	case Materialized:
		return "materialized"
	case CachedOnly:
		return "cached-only"
	case Missing:
		return "missing"
	default:
		return "modified"
	}
}

// StatusEntry describes one tracked file.
type StatusEntry struct {
	// Path is the repo-relative original file path.
	Path string

	// Hash and Size come from the sidecar.
	Hash string
	Size int64

	State FileState

	// Cached reports whether the blob is in the local cache.
	Cached bool
}

// Status classifies every tracked file under the given paths (or the whole
// tree). Entries come back sorted by path.
func (r *Repo) Status(ctx context.Context, paths ...string) ([]StatusEntry, error) {
	sidecars, err := r.findSidecars(ctx, paths)
	if err != nil {
		return nil, err
	}

	entries := make([]StatusEntry, 0, len(sidecars))
	for _, sc := range sidecars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.readSidecar(sc)
		if err != nil {
			return nil, err
		}
		rel := pointer.OriginalOf(sc)
		entry := StatusEntry{
			Path:   rel,
			Hash:   rec.SHA256,
			Size:   rec.Size,
			Cached: r.cache.Has(rec.SHA256),
		}
		entry.State = r.classify(rel, rec, entry.Cached)
		entries = append(entries, entry)
	}
	return entries, nil
}

// Strays lists working-tree files that lfc once ignored (a "/path" pattern
// in the root .gitignore) but that no longer have a sidecar: the pointer was
// deleted and the bytes were left behind.
func (r *Repo) Strays(ctx context.Context) ([]string, error) {
	f, err := os.Open(filepath.Join(r.root, ".gitignore"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, Wrap(KindIO, "status", ".gitignore", err)
	}
	defer f.Close()

	var strays []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "/") || strings.ContainsAny(line, "*?[") {
			continue
		}
		rel := strings.TrimPrefix(line, "/")
		if _, err := os.Stat(r.abs(rel)); err != nil {
			continue
		}
		if _, err := os.Stat(r.abs(pointer.SidecarOf(rel))); os.IsNotExist(err) {
			strays = append(strays, rel)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, Wrap(KindIO, "status", ".gitignore", err)
	}
	sort.Strings(strays)
	return strays, nil
}

func (r *Repo) classify(rel string, rec *pointer.Record, cached bool) FileState {
	abs := r.abs(rel)
	if _, err := os.Stat(abs); err != nil {
		if cached {
			return CachedOnly
		}
		return Missing
	}

	// Status always verifies content unless the policy says otherwise; a
	// same-size rewrite still counts as modified under hash-check: always.
	switch r.cfg.HashCheck {
	case "never":
		return Materialized
	case "always":
		hash, _, err := cache.HashFile(abs)
		if err != nil || hash != rec.SHA256 {
			return Modified
		}
		return Materialized
	default: // size
		info, err := os.Stat(abs)
		if err != nil || info.Size() != rec.Size {
			return Modified
		}
		return Materialized
	}
}
