// Package remote implements the transfer backends that hold blobs outside
// the local cache. Every backend speaks the same hash-oriented contract;
// the transfer engine never sees paths or URLs, only digests.
//
// Backends are dispatched by URL shape:
//
//	/srv/hub, ../hub, file:///srv/hub   local filesystem
//	user@host:/srv/hub, ssh://host/hub  system ssh client
//	https://example.com/lfc             HTTP(S)
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrMissing signals that a requested blob is absent at the backend.
var ErrMissing = errors.New("remote: object missing")

// Class buckets backend failures for the transfer engine.
type Class int

const (
	ClassPermanent Class = iota
	ClassMissing
	ClassTransient
	ClassAuth
)

// Error is a classified backend failure.
type Error struct {
	Class Class
	Op    string
	Hash  string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Hash != "" {
		msg += " " + e.Hash
	}
	return msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func classified(class Class, op, hash string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Op: op, Hash: hash, Err: err}
}

// ClassOf extracts the failure class from err.
func ClassOf(err error) Class {
	if errors.Is(err, ErrMissing) {
		return ClassMissing
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	return ClassPermanent
}

// Backend is the uniform remote cache contract.
//
// After a successful Put(h, ...), Has(h) must report true and Get(h) must
// stream back the exact bytes that were put. Layout beyond that is the
// backend's business.
type Backend interface {
	// Has checks whether the blob exists at the remote.
	Has(ctx context.Context, hash string) (bool, error)

	// Get returns a reader over the blob, or an ErrMissing-classified error.
	Get(ctx context.Context, hash string) (io.ReadCloser, error)

	// Put uploads a blob. Size is advisory for transports that need a
	// Content-Length up front; -1 means unknown.
	Put(ctx context.Context, hash string, r io.Reader, size int64) error

	// List enumerates every blob hash present at the remote.
	List(ctx context.Context) ([]string, error)

	// String describes the backend for logs and summaries.
	String() string
}

// CredentialProvider hands HTTP backends their auth material. Prompting is
// the caller's concern; the backend only consumes the result.
type CredentialProvider interface {
	Credentials(rawURL string) (username, password string, err error)
}

// Default per-request timeouts.
const (
	DefaultHeadTimeout     = 30 * time.Second
	DefaultTransferTimeout = 300 * time.Second
)

// Options configures backend construction.
type Options struct {
	// SSHCommand overrides the ssh client binary (LFC_SSH).
	SSHCommand string

	// Credentials authenticates HTTP backends.
	Credentials CredentialProvider

	// PutMethod selects PUT or POST for HTTP uploads. Default PUT.
	PutMethod string

	HeadTimeout     time.Duration
	TransferTimeout time.Duration
}

func (o Options) headTimeout() time.Duration {
	if o.HeadTimeout > 0 {
		return o.HeadTimeout
	}
	return DefaultHeadTimeout
}

func (o Options) transferTimeout() time.Duration {
	if o.TransferTimeout > 0 {
		return o.TransferTimeout
	}
	return DefaultTransferTimeout
}

// scp-style ssh destination: user@host:path or host:path
var scpRe = regexp.MustCompile(`^(?:([^@/:]+)@)?([^@/:]+):(.+)$`)

// IsLocalURL reports whether rawURL would dial a filesystem backend, so
// callers can anchor relative paths at the repository root.
func IsLocalURL(rawURL, kind string) bool {
	switch kind {
	case "local":
		return true
	case "ssh", "http", "https":
		return false
	}
	switch {
	case strings.HasPrefix(rawURL, "http://"),
		strings.HasPrefix(rawURL, "https://"),
		strings.HasPrefix(rawURL, "ssh://"),
		scpRe.MatchString(rawURL):
		return false
	default:
		return true
	}
}

// Dial constructs a backend for rawURL. The kind hint, when set, overrides
// scheme sniffing.
func Dial(rawURL, kind string, opts Options) (Backend, error) {
	switch kind {
	case "local":
		return NewLocal(strings.TrimPrefix(rawURL, "file://")), nil
	case "ssh":
		return dialSSH(rawURL, opts)
	case "http", "https":
		return dialHTTP(rawURL, opts)
	case "":
	default:
		return nil, fmt.Errorf("remote: unknown backend kind %q", kind)
	}

	switch {
	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		return dialHTTP(rawURL, opts)
	case strings.HasPrefix(rawURL, "ssh://"):
		return dialSSH(rawURL, opts)
	case strings.HasPrefix(rawURL, "file://"):
		return NewLocal(strings.TrimPrefix(rawURL, "file://")), nil
	case scpRe.MatchString(rawURL):
		return dialSSH(rawURL, opts)
	default:
		return NewLocal(rawURL), nil
	}
}

func dialSSH(rawURL string, opts Options) (Backend, error) {
	if rest, ok := strings.CutPrefix(rawURL, "ssh://"); ok {
		u, err := url.Parse("ssh://" + rest)
		if err != nil {
			return nil, fmt.Errorf("remote: invalid ssh url %q: %w", rawURL, err)
		}
		host := u.Host
		if u.User != nil {
			host = u.User.Username() + "@" + host
		}
		return NewSSH(host, strings.TrimPrefix(u.Path, "/"), opts), nil
	}
	m := scpRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("remote: invalid ssh destination %q", rawURL)
	}
	host := m[2]
	if m[1] != "" {
		host = m[1] + "@" + host
	}
	return NewSSH(host, m[3], opts), nil
}

func dialHTTP(rawURL string, opts Options) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid http url %q: %w", rawURL, err)
	}
	return NewHTTP(u, opts), nil
}
