package lfc

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/aweris/lfc/internal/cache"
	"github.com/aweris/lfc/internal/config"
	"github.com/aweris/lfc/internal/gitcmd"
	"github.com/aweris/lfc/internal/pointer"
)

const (
	lfcDirName  = ".lfc"
	cacheSubdir = "cache"
	configName  = "config"
)

// Repo is a handle on an initialized lfc repository. It is explicit state:
// there are no process-wide singletons, and every operation goes through a
// handle.
type Repo struct {
	root    string
	lfcDir  string
	cfgPath string

	cfg   *config.Config
	cache *cache.Store
	git   *gitcmd.Git
	log   *zap.Logger
	opts  *Options

	inWorkTree bool
}

// Open finds the repository containing dir by walking up to the nearest
// .lfc directory. It returns ErrNotRepo when none exists.
func Open(dir string, opts ...Option) (*Repo, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	root, err := findRoot(abs)
	if err != nil {
		return nil, err
	}
	return open(root, options)
}

// Init creates (or re-opens) the repository at dir. Re-init on an existing
// repository preserves its configuration.
func Init(dir string, opts ...Option) (*Repo, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	lfcDir := filepath.Join(root, lfcDirName)
	if err := os.MkdirAll(lfcDir, 0o755); err != nil {
		return nil, Wrap(KindIO, "init", lfcDir, err)
	}

	// cache/ and in-flight state must stay invisible to git.
	if _, err := gitcmd.EnsureIgnored(filepath.Join(lfcDir, ".gitignore"), cacheSubdir+"/"); err != nil {
		return nil, Wrap(KindIO, "init", lfcDir, err)
	}
	if _, err := gitcmd.EnsureIgnored(filepath.Join(lfcDir, ".gitignore"), configName+".lock"); err != nil {
		return nil, Wrap(KindIO, "init", lfcDir, err)
	}

	cfgPath := configPath(lfcDir, options)
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.Default().Save(cfgPath); err != nil {
			return nil, Wrap(KindIO, "init", cfgPath, err)
		}
	}
	return open(root, options)
}

func open(root string, options *Options) (*Repo, error) {
	lfcDir := filepath.Join(root, lfcDirName)
	cfgPath := configPath(lfcDir, options)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, Wrap(KindParse, "open", cfgPath, err)
	}

	cacheDir := options.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(lfcDir, cacheSubdir)
	}
	store, err := cache.Open(cacheDir)
	if err != nil {
		return nil, Wrap(KindIO, "open", cacheDir, err)
	}
	store.SetFilePerm(fs.FileMode(0o666 &^ cfg.Umask))

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	git := gitcmd.New(root)
	r := &Repo{
		root:       root,
		lfcDir:     lfcDir,
		cfgPath:    cfgPath,
		cfg:        cfg,
		cache:      store,
		git:        git,
		log:        logger,
		opts:       options,
		inWorkTree: git.InWorkTree(context.Background()),
	}
	return r, nil
}

func configPath(lfcDir string, options *Options) string {
	if options.ConfigPath != "" {
		return options.ConfigPath
	}
	return filepath.Join(lfcDir, configName)
}

func findRoot(dir string) (string, error) {
	for {
		if info, err := os.Stat(filepath.Join(dir, lfcDirName)); err == nil && info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotRepo
		}
		dir = parent
	}
}

// Root returns the repository root directory.
func (r *Repo) Root() string { return r.root }

// CacheDir returns the blob cache location.
func (r *Repo) CacheDir() string { return r.cache.Dir() }

// saveConfig persists configuration mutations atomically.
func (r *Repo) saveConfig() error {
	return Wrap(KindIO, "save-config", r.cfgPath, r.cfg.Save(r.cfgPath))
}

func (r *Repo) jobs() int {
	if r.opts.Jobs > 0 {
		return r.opts.Jobs
	}
	if r.cfg.Jobs > 0 {
		return r.cfg.Jobs
	}
	return 0 // engine default
}

// rel converts an absolute path to a slash-separated repo-relative path.
func (r *Repo) rel(path string) (string, error) {
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", Errorf(KindUsage, "path %s is outside the repository", path)
	}
	return filepath.ToSlash(rel), nil
}

// abs resolves a repo-relative path.
func (r *Repo) abs(rel string) string {
	return filepath.Join(r.root, filepath.FromSlash(rel))
}

// findSidecars enumerates sidecar paths (repo-relative) under the given
// paths, or the whole tree when none are named. Inside a git worktree the
// listing comes from git ls-files so git's ignore rules are honored; a bare
// directory walk is the fallback.
func (r *Repo) findSidecars(ctx context.Context, paths []string) ([]string, error) {
	args, explicit, err := r.normalizeArgs(paths)
	if err != nil {
		return nil, err
	}

	var sidecars []string
	seen := make(map[string]struct{})
	add := func(rel string) {
		if _, dup := seen[rel]; !dup {
			seen[rel] = struct{}{}
			sidecars = append(sidecars, rel)
		}
	}

	// Explicitly named files resolve directly, no listing needed.
	for _, rel := range explicit {
		add(rel)
	}

	if len(args) > 0 || len(explicit) == 0 {
		listed, err := r.listSidecars(ctx, args)
		if err != nil {
			return nil, err
		}
		for _, rel := range listed {
			add(rel)
		}
	}

	sort.Strings(sidecars)
	return sidecars, nil
}

// normalizeArgs splits user paths into directory prefixes (args) and
// explicit sidecar paths.
func (r *Repo) normalizeArgs(paths []string) (dirs, explicit []string, err error) {
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(r.root, p)
		}
		rel, rerr := r.rel(abs)
		if rerr != nil {
			return nil, nil, rerr
		}
		info, serr := os.Stat(abs)
		switch {
		case serr == nil && info.IsDir():
			dirs = append(dirs, rel)
		case pointer.IsSidecar(rel):
			explicit = append(explicit, rel)
		default:
			// Either the original file or a not-yet-materialized path;
			// the sidecar is authoritative if it exists.
			sidecar := pointer.SidecarOf(rel)
			if _, serr := os.Stat(r.abs(sidecar)); serr == nil {
				explicit = append(explicit, sidecar)
			} else {
				return nil, nil, Errorf(KindUsage, "no sidecar for %s", rel)
			}
		}
	}
	return dirs, explicit, nil
}

func (r *Repo) listSidecars(ctx context.Context, dirs []string) ([]string, error) {
	if r.inWorkTree {
		files, err := r.git.LsFiles(ctx, dirs...)
		if err != nil {
			return nil, Wrap(KindIO, "ls-files", r.root, err)
		}
		var sidecars []string
		for _, f := range files {
			if pointer.IsSidecar(f) {
				sidecars = append(sidecars, f)
			}
		}
		return sidecars, nil
	}
	return r.walkSidecars(dirs)
}

func (r *Repo) walkSidecars(dirs []string) ([]string, error) {
	roots := dirs
	if len(roots) == 0 {
		roots = []string{"."}
	}
	var sidecars []string
	for _, d := range roots {
		start := r.abs(d)
		err := filepath.WalkDir(start, func(path string, entry fs.DirEntry, err error) error {
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
			if !pointer.IsSidecar(path) {
				return nil
			}
			rel, rerr := r.rel(path)
			if rerr != nil {
				return rerr
			}
			sidecars = append(sidecars, rel)
			return nil
		})
		if err != nil {
			return nil, Wrap(KindIO, "walk", d, err)
		}
	}
	return sidecars, nil
}

// readSidecar loads and validates the sidecar at the repo-relative path.
func (r *Repo) readSidecar(rel string) (*pointer.Record, error) {
	rec, err := pointer.Read(r.abs(rel))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Wrap(KindUsage, "read", rel, err)
		}
		return nil, Wrap(KindParse, "read", rel, err)
	}
	return rec, nil
}

// referencedHashes maps blob hashes to the sidecars that reference them.
func (r *Repo) referencedHashes(ctx context.Context, paths []string) (map[string][]string, error) {
	sidecars, err := r.findSidecars(ctx, paths)
	if err != nil {
		return nil, err
	}
	refs := make(map[string][]string)
	for _, sc := range sidecars {
		rec, err := r.readSidecar(sc)
		if err != nil {
			return nil, err
		}
		refs[rec.SHA256] = append(refs[rec.SHA256], sc)
	}
	return refs, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ensureIgnored records the original file in the repo-root .gitignore so git
// never tracks the large bytes next to their sidecar.
func (r *Repo) ensureIgnored(rel string) error {
	amended, err := gitcmd.EnsureIgnored(filepath.Join(r.root, ".gitignore"), "/"+rel)
	if err != nil {
		return Wrap(KindIO, "ignore", rel, err)
	}
	if amended {
		r.log.Debug("gitignore amended", zap.String("pattern", "/"+rel))
	}
	return nil
}

func truncName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return "..." + name[len(name)-max+3:]
}
