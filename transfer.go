package lfc

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/aweris/lfc/internal/config"
	"github.com/aweris/lfc/internal/remote"
	"github.com/aweris/lfc/internal/transfer"
)

// TransferSummary reports per-hash outcomes of a push or pull, sorted by
// hash.
type TransferSummary struct {
	Remote  string
	Results []transfer.Result
}

// Counts tallies outcomes.
func (s *TransferSummary) Counts() (moved, skipped, failed int) {
	for _, res := range s.Results {
		switch res.Outcome {
		case transfer.Sent, transfer.Received:
			moved++
		case transfer.Failed:
			failed++
		default:
			skipped++
		}
	}
	return moved, skipped, failed
}

// Err returns nil when every object transferred (or was legitimately
// skipped), else a BatchError describing the failures.
func (s *TransferSummary) Err() error {
	batch := &BatchError{}
	for _, res := range s.Results {
		if res.Outcome == transfer.Failed {
			batch.Failed++
			if res.Corrupt() {
				batch.Corrupt++
			}
		}
	}
	if batch.Failed == 0 {
		return nil
	}
	return batch
}

// BatchError is a transfer that completed with at least one per-object
// failure.
type BatchError struct {
	Failed  int
	Corrupt int
}

func (e *BatchError) Error() string {
	if e.Corrupt > 0 {
		return fmt.Sprintf("transfer: %d object(s) failed (%d corrupt)", e.Failed, e.Corrupt)
	}
	return fmt.Sprintf("transfer: %d object(s) failed", e.Failed)
}

// backend dials the configured remote (or the -r/--remote override).
func (r *Repo) backend() (remote.Backend, config.Remote, error) {
	spec, err := r.cfg.Remote(r.opts.Remote)
	if err != nil {
		return nil, config.Remote{}, Wrap(KindUsage, "remote", r.opts.Remote, err)
	}
	be, err := r.dial(spec)
	if err != nil {
		return nil, config.Remote{}, err
	}
	return be, spec, nil
}

func (r *Repo) dial(spec config.Remote) (remote.Backend, error) {
	url := spec.URL
	// Relative local URLs anchor at the repo root, not the process cwd.
	if trimmed := strings.TrimPrefix(url, "file://"); remote.IsLocalURL(url, spec.Kind) && !filepath.IsAbs(trimmed) {
		url = filepath.Join(r.root, trimmed)
	}
	be, err := remote.Dial(url, spec.Kind, remote.Options{
		SSHCommand:  r.opts.SSHCommand,
		Credentials: r.opts.Creds,
	})
	if err != nil {
		return nil, Wrap(KindUsage, "remote", spec.Name, err)
	}
	return be, nil
}

func (r *Repo) engine() *transfer.Engine {
	return &transfer.Engine{Jobs: r.jobs(), Progress: r.opts.Progress}
}

// Push uploads every cached blob referenced by tracked sidecars under the
// given paths to the remote. Objects already present at the destination are
// skipped.
func (r *Repo) Push(ctx context.Context, paths ...string) (*TransferSummary, error) {
	be, spec, err := r.backend()
	if err != nil {
		return nil, err
	}
	refs, err := r.referencedHashes(ctx, paths)
	if err != nil {
		return nil, err
	}
	hashes := sortedKeys(refs)
	r.log.Info("push",
		zap.String("remote", spec.Name),
		zap.Int("objects", len(hashes)))

	results := r.engine().Push(ctx, r.cache, be, hashes)
	return &TransferSummary{Remote: spec.Name, Results: results}, nil
}

// Fetch downloads blobs referenced by sidecars under the given paths that
// are absent from the local cache. It does not touch the working tree.
func (r *Repo) Fetch(ctx context.Context, paths ...string) (*TransferSummary, error) {
	be, spec, err := r.backend()
	if err != nil {
		return nil, err
	}
	refs, err := r.referencedHashes(ctx, paths)
	if err != nil {
		return nil, err
	}
	var hashes []string
	for hash := range refs {
		if !r.cache.Has(hash) {
			hashes = append(hashes, hash)
		}
	}
	sort.Strings(hashes)
	r.log.Info("fetch",
		zap.String("remote", spec.Name),
		zap.Int("objects", len(hashes)))

	results := r.engine().Pull(ctx, r.cache, be, hashes)
	return &TransferSummary{Remote: spec.Name, Results: results}, nil
}

// Pull fetches missing blobs and then materializes the affected files. The
// summary carries per-object outcomes; materialization only runs for
// objects that made it into the cache.
func (r *Repo) Pull(ctx context.Context, paths ...string) (*TransferSummary, error) {
	summary, err := r.Fetch(ctx, paths...)
	if err != nil {
		return nil, err
	}

	sidecars, err := r.findSidecars(ctx, paths)
	if err != nil {
		return summary, err
	}
	for _, sc := range sidecars {
		rec, err := r.readSidecar(sc)
		if err != nil {
			return summary, err
		}
		if !r.cache.Has(rec.SHA256) {
			// Reported in the summary already; nothing to materialize.
			continue
		}
		if err := r.checkoutOne(sc); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

// LsRemote enumerates the hashes present at the named remote, sorted.
func (r *Repo) LsRemote(ctx context.Context, name string) ([]string, error) {
	spec, err := r.cfg.Remote(name)
	if err != nil {
		return nil, Wrap(KindUsage, "ls-remote", name, err)
	}
	be, err := r.dial(spec)
	if err != nil {
		return nil, err
	}
	hashes, err := be.List(ctx)
	if err != nil {
		return nil, Wrap(kindForRemote(err), "ls-remote", name, err)
	}
	sort.Strings(hashes)
	return hashes, nil
}

// kindForRemote maps a backend failure class onto the error taxonomy.
func kindForRemote(err error) Kind {
	switch remote.ClassOf(err) {
	case remote.ClassMissing:
		return KindMissingBlob
	case remote.ClassTransient:
		return KindTransient
	case remote.ClassAuth:
		return KindPermanent
	default:
		return KindPermanent
	}
}
