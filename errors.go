package lfc

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
)

var (
	// ErrNotRepo is returned when an operation runs outside an initialized repository.
	ErrNotRepo = errors.New("lfc: not an lfc repository (missing .lfc directory)")

	// ErrMissingBlob is returned when a referenced hash is absent from the cache.
	ErrMissingBlob = errors.New("lfc: blob not in cache")

	// ErrNoRemote is returned when no remote is configured for a transfer.
	ErrNoRemote = errors.New("lfc: no remote configured")
)

// Kind classifies lfc errors for reporting and exit-code mapping.
type Kind int

const (
	KindIO Kind = iota
	KindUsage
	KindNotRepo
	KindParse
	KindMissingBlob
	KindTransient
	KindPermanent
	KindCorrupt
	KindConflict
)

// Error carries a kind plus the operation and path it occurred on.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	base := kindString(e.Kind)
	if e.Op != "" {
		base = e.Op + ": " + base
	}
	if e.Path != "" {
		base += " " + e.Path
	}
	if e.Err != nil {
		return base + ": " + e.Err.Error()
	}
	return base
}

func (e *Error) Unwrap() error { return e.Err }

func kindString(kind Kind) string {
	switch kind {
	case KindUsage:
		return "usage error"
	case KindNotRepo:
		return "not a repository"
	case KindParse:
		return "parse error"
	case KindMissingBlob:
		return "missing blob"
	case KindTransient:
		return "transient failure"
	case KindPermanent:
		return "permanent failure"
	case KindCorrupt:
		return "corrupt object"
	case KindConflict:
		return "working-tree conflict"
	default:
		return "io error"
	}
}

// E creates an error with the provided metadata and no underlying cause.
func E(kind Kind, op, path string) error {
	return &Error{Kind: kind, Op: op, Path: path}
}

// Wrap annotates err with kind, op and path. A nil err returns nil.
func Wrap(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Errorf builds a formatted error of the given kind.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, walking wrapped errors as needed.
func KindOf(err error) Kind {
	if err == nil {
		return KindIO
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotRepo):
		return KindNotRepo
	case errors.Is(err, ErrMissingBlob):
		return KindMissingBlob
	case errors.Is(err, iofs.ErrNotExist), errors.Is(err, os.ErrNotExist):
		return KindIO
	default:
		return KindIO
	}
}

// Exit codes reported by the CLI.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitTransfer = 3
	ExitCorrupt  = 4
)

// ExitCode maps an error to the process exit code contract.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var batch *BatchError
	if errors.As(err, &batch) {
		return ExitTransfer
	}
	switch KindOf(err) {
	case KindUsage:
		return ExitUsage
	case KindCorrupt:
		return ExitCorrupt
	default:
		return ExitFailure
	}
}
