package lfc

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aweris/lfc/internal/gitcmd"
)

// Clone runs git clone and then pulls and materializes every tracked file in
// the fresh worktree. Bare clones skip the pull (there is no worktree to
// reconcile) and return a nil handle and summary. Otherwise the returned
// repo handle is rooted in the clone.
func Clone(ctx context.Context, url, dir string, bare bool, opts ...Option) (*Repo, *TransferSummary, error) {
	if err := gitcmd.Clone(ctx, url, dir, bare); err != nil {
		return nil, nil, Wrap(KindIO, "clone", url, err)
	}
	if dir == "" {
		dir = gitcmd.CloneDir(url)
	}
	if bare {
		return nil, nil, nil
	}

	// A repo that never ran lfc init has no .lfc; bootstrap one so the
	// cache exists, preserving any committed config.
	if _, err := os.Stat(filepath.Join(dir, lfcDirName)); os.IsNotExist(err) {
		if _, err := Init(dir, opts...); err != nil {
			return nil, nil, err
		}
	}

	repo, err := Open(dir, opts...)
	if err != nil {
		return nil, nil, err
	}

	if len(repo.cfg.Remotes) == 0 {
		// Nothing to pull from; the clone is still usable offline.
		return repo, &TransferSummary{}, nil
	}
	summary, err := repo.Pull(ctx)
	if err != nil {
		return repo, summary, err
	}
	return repo, summary, nil
}
