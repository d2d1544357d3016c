package lfc

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aweris/lfc/internal/pointer"
)

// Add tracks the named files (directories recurse): each file is hashed and
// cached, a sidecar <path>.lfc is written, and the original path is added to
// .gitignore. An unchanged file is a no-op; a changed file gets its sidecar
// rewritten.
//
// Ordering is deliberate: the blob reaches its final cache path before the
// sidecar is written, so no observer ever sees a sidecar whose blob is
// absent or partial.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return E(KindUsage, "add", "no paths given")
	}
	files, err := r.expandAddArgs(paths)
	if err != nil {
		return err
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.addFile(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repo) expandAddArgs(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(r.root, p)
		}
		rel, err := r.rel(abs)
		if err != nil {
			return nil, err
		}
		rel = pointer.OriginalOf(rel) // "add file.lfc" means "add file"

		info, err := os.Stat(r.abs(rel))
		if err != nil {
			return nil, Wrap(KindUsage, "add", rel, err)
		}
		if info.IsDir() {
			sub, err := r.walkRegularFiles(rel)
			if err != nil {
				return nil, err
			}
			for _, f := range sub {
				if _, dup := seen[f]; !dup {
					seen[f] = struct{}{}
					files = append(files, f)
				}
			}
			continue
		}
		if !info.Mode().IsRegular() {
			return nil, Errorf(KindUsage, "add: %s is not a regular file", rel)
		}
		if _, dup := seen[rel]; !dup {
			seen[rel] = struct{}{}
			files = append(files, rel)
		}
	}
	return files, nil
}

func (r *Repo) walkRegularFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.abs(dir), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			name := entry.Name()
			if name == lfcDirName || name == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if pointer.IsSidecar(path) || !entry.Type().IsRegular() {
			return nil
		}
		rel, rerr := r.rel(path)
		if rerr != nil {
			return rerr
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, Wrap(KindIO, "add", dir, err)
	}
	return files, nil
}

func (r *Repo) addFile(ctx context.Context, rel string) error {
	abs := r.abs(rel)
	sidecar := pointer.SidecarOf(rel)

	if err := r.ensureIgnored(rel); err != nil {
		return err
	}

	prev, _ := pointer.Read(r.abs(sidecar))

	// Blob first, sidecar second. Storing an already-cached blob discards
	// the temp, so re-adding an unchanged file leaves the cache untouched.
	hash, size, err := r.cache.StoreFile(abs)
	if err != nil {
		return Wrap(KindIO, "add", rel, err)
	}

	if prev != nil && prev.SHA256 == hash {
		r.log.Debug("up to date", zap.String("path", truncName(rel, 40)))
		return nil
	}

	rec := &pointer.Record{
		SHA256: hash,
		Size:   size,
		Path:   filepath.Base(rel),
	}
	if err := pointer.Write(r.abs(sidecar), rec); err != nil {
		return Wrap(KindIO, "add", sidecar, err)
	}
	r.log.Info("added",
		zap.String("path", truncName(rel, 40)),
		zap.String("sha256", hash),
		zap.Int64("size", size))

	if err := r.applyMode(hash, rel); err != nil {
		return err
	}

	if r.inWorkTree {
		// Stage the sidecar and the amended ignore file like the porcelain
		// would; failures here are advisory.
		if err := r.git.Add(ctx, sidecar, ".gitignore"); err != nil {
			r.log.Debug("git add skipped", zap.Error(err))
		}
	}
	return nil
}

// applyMode reconciles the working copy with the configured post-add mode.
func (r *Repo) applyMode(hash, rel string) error {
	abs := r.abs(rel)
	switch r.opts.Mode {
	case ModeCopy:
		return nil
	case ModePointer:
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return Wrap(KindIO, "add", rel, err)
		}
		return nil
	default: // ModeLink
		linked, err := r.cache.Link(hash, abs)
		if err != nil {
			return Wrap(KindIO, "add", rel, err)
		}
		if !linked {
			r.log.Debug("hardlink unsupported, kept copy", zap.String("path", rel))
		}
		return nil
	}
}
