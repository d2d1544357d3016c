package lfc

import (
	"go.uber.org/zap"

	"github.com/aweris/lfc/internal/remote"
)

// Mode controls what happens to the working-tree file after add.
type Mode string

const (
	// ModeLink replaces the working file with a hardlink into the cache
	// (falling back to leaving the copy where links are unsupported).
	ModeLink Mode = "link"

	// ModePointer removes the working file; only the sidecar remains.
	ModePointer Mode = "pointer"

	// ModeCopy leaves the working file untouched next to the cached blob.
	ModeCopy Mode = "copy"
)

// Options configures a repository handle.
type Options struct {
	CacheDir   string
	ConfigPath string
	Remote     string
	Jobs       int
	Mode       Mode
	Force      bool
	SSHCommand string
	Creds      remote.CredentialProvider
	Logger     *zap.Logger

	// Progress observes completed transfer bytes per object.
	Progress func(hash string, n int64)
}

// Option is a functional option for Open, Init and Clone.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{Mode: ModeLink}
}

// WithCacheDir overrides the cache location (LFC_CACHE_DIR).
func WithCacheDir(dir string) Option {
	return func(o *Options) { o.CacheDir = dir }
}

// WithConfigPath overrides the repository config location (LFC_CONFIG).
func WithConfigPath(path string) Option {
	return func(o *Options) { o.ConfigPath = path }
}

// WithRemote selects the remote used by transfers instead of default-remote.
func WithRemote(name string) Option {
	return func(o *Options) { o.Remote = name }
}

// WithJobs sets transfer concurrency.
func WithJobs(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Jobs = n
		}
	}
}

// WithMode sets the post-add working-tree mode.
func WithMode(mode Mode) Option {
	return func(o *Options) { o.Mode = mode }
}

// WithForce lets checkout overwrite modified working-tree files.
func WithForce(force bool) Option {
	return func(o *Options) { o.Force = force }
}

// WithSSHCommand overrides the ssh client invocation (LFC_SSH).
func WithSSHCommand(cmd string) Option {
	return func(o *Options) { o.SSHCommand = cmd }
}

// WithCredentials supplies auth material for http(s) remotes.
func WithCredentials(creds remote.CredentialProvider) Option {
	return func(o *Options) { o.Creds = creds }
}

// WithLogger sets the structured logger. Default: no logging.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithProgress installs a transfer progress callback.
func WithProgress(fn func(hash string, n int64)) Option {
	return func(o *Options) { o.Progress = fn }
}
