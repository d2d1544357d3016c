// Package cache implements the local content-addressed blob store under
// .lfc/cache.
//
// Storage layout (git-style sharding):
//
//	cache/
//	  aa/bbcc...  (blob whose SHA-256 is aabbcc...)
//	  tmp-*       (in-flight writes, promoted by atomic rename)
//
// The rename is the commit point: a reader observing the final path sees the
// complete blob. Blobs are immutable and chmodded read-only once promoted.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrMissing is returned when a requested blob is not in the store.
var ErrMissing = errors.New("cache: blob missing")

// ErrCorrupt is returned when streamed bytes do not match their expected digest.
var ErrCorrupt = errors.New("cache: digest mismatch")

const (
	tmpPrefix = "tmp-"

	// Blobs this size or smaller are kept in the in-memory cache.
	memCacheLimit = 256 * 1024

	blobMode = fs.FileMode(0o444)
)

var hashRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ValidHash reports whether s is a well-formed lowercase SHA-256 hex digest.
func ValidHash(s string) bool { return hashRe.MatchString(s) }

// Store is a content-addressed blob store rooted at a single directory.
type Store struct {
	dir  string
	mem  *lru.Cache[string, []byte]
	perm fs.FileMode

	linkOnce sync.Once
	canLink  bool
}

// Open creates or opens the store at dir and sweeps stale temp files.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	mem, err := lru.New[string, []byte](128)
	if err != nil {
		return nil, err
	}
	s := &Store{dir: dir, mem: mem, perm: 0o644}
	s.SweepTemps(24 * time.Hour)
	return s, nil
}

// SetFilePerm sets the permission bits used for materialized files.
func (s *Store) SetFilePerm(perm fs.FileMode) { s.perm = perm }

// Dir returns the store root.
func (s *Store) Dir() string { return s.dir }

// Path derives the on-disk location for a hash.
func (s *Store) Path(hash string) string {
	return filepath.Join(s.dir, hash[:2], hash[2:])
}

// Has checks blob existence by stat.
func (s *Store) Has(hash string) bool {
	if s.mem.Contains(hash) {
		return true
	}
	_, err := os.Stat(s.Path(hash))
	return err == nil
}

// Stat returns the size of a stored blob.
func (s *Store) Stat(hash string) (int64, bool) {
	info, err := os.Stat(s.Path(hash))
	if err != nil {
		return 0, false
	}
	return info.Size(), true
}

// Open returns a reader over the blob positioned at byte 0, plus its length.
func (s *Store) Open(hash string) (io.ReadCloser, int64, error) {
	if data, ok := s.mem.Get(hash); ok {
		return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
	}
	f, err := os.Open(s.Path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrMissing, hash)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.Size() <= memCacheLimit {
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, 0, err
		}
		s.mem.Add(hash, data)
		return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
	}
	return f, info.Size(), nil
}

// Store streams r into the cache and returns the resulting hash and size.
//
// Bytes pass through a SHA-256 accumulator into a temp file on the same
// filesystem as the final path, then the temp is renamed into place. The
// input is never buffered whole.
func (s *Store) Store(r io.Reader) (string, int64, error) {
	hash, size, _, err := s.store(r, "")
	return hash, size, err
}

// StoreExpected streams r into the cache and promotes the temp only if the
// computed digest equals want. A mismatch removes the temp and returns
// ErrCorrupt.
func (s *Store) StoreExpected(r io.Reader, want string) (int64, error) {
	_, size, _, err := s.store(r, want)
	return size, err
}

// StoreFile hashes and caches the file at path.
func (s *Store) StoreFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return s.Store(f)
}

func (s *Store) store(r io.Reader, want string) (hash string, size int64, isNew bool, err error) {
	tmp, err := os.CreateTemp(s.dir, tmpPrefix)
	if err != nil {
		return "", 0, false, err
	}
	tmpName := tmp.Name()
	discard := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	hasher := sha256.New()
	size, err = io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		discard()
		return "", 0, false, err
	}
	if err := tmp.Sync(); err != nil {
		discard()
		return "", 0, false, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", 0, false, err
	}

	hash = hex.EncodeToString(hasher.Sum(nil))
	if want != "" && hash != want {
		os.Remove(tmpName)
		return "", 0, false, fmt.Errorf("%w: want %s got %s", ErrCorrupt, want, hash)
	}

	final := s.Path(hash)
	if _, err := os.Stat(final); err == nil {
		// Blobs are immutable; the existing copy wins.
		os.Remove(tmpName)
		return hash, size, false, nil
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		os.Remove(tmpName)
		return "", 0, false, err
	}
	os.Chmod(tmpName, blobMode)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", 0, false, err
	}
	return hash, size, true, nil
}

// Remove deletes a blob. Only gc calls this.
func (s *Store) Remove(hash string) error {
	s.mem.Remove(hash)
	path := s.Path(hash)
	if err := os.Chmod(path, 0o644); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	// Drop the shard dir when it empties out; best effort.
	os.Remove(filepath.Dir(path))
	return nil
}

// List walks the store and returns every stored hash.
func (s *Store) List() ([]string, error) {
	var hashes []string
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 2 {
			return nil
		}
		if hash := parts[0] + parts[1]; ValidHash(hash) {
			hashes = append(hashes, hash)
		}
		return nil
	})
	return hashes, err
}

// Verify re-hashes the stored blob and reports whether it matches its name.
func (s *Store) Verify(hash string) error {
	f, err := os.Open(s.Path(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissing, hash)
		}
		return err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return err
	}
	if got := hex.EncodeToString(hasher.Sum(nil)); got != hash {
		return fmt.Errorf("%w: %s rehashed to %s", ErrCorrupt, hash, got)
	}
	return nil
}

// SweepTemps removes in-flight temp files older than maxAge, left behind by
// crashed writers. Returns the number removed.
func (s *Store) SweepTemps(maxAge time.Duration) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(filepath.Join(s.dir, entry.Name())) == nil {
				removed++
			}
		}
	}
	return removed
}

// HashReader computes the SHA-256 hex digest and length of a stream.
func HashReader(r io.Reader) (string, int64, error) {
	hasher := sha256.New()
	n, err := io.Copy(hasher, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

// HashFile computes the SHA-256 hex digest and length of a file.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return HashReader(f)
}
