package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Materialize realizes the blob as the file at dst.
//
// Hardlinks are preferred: the blob and the target share bytes and the
// read-only blob mode deters accidental mutation. The probe result is
// memoized for the process lifetime; filesystems without hardlink support
// (or a cache on another device) fall back to a stream copy through a temp
// file renamed into place.
func (s *Store) Materialize(hash, dst string) error {
	src := s.Path(hash)
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissing, hash)
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if s.linkSupported(filepath.Dir(dst)) {
		if err := replaceWithLink(src, dst); err == nil {
			return nil
		}
		// Device boundary or an exotic filesystem; copy instead.
	}
	return s.copyTo(src, dst)
}

// Link materializes dst as a hardlink when supported, reporting whether a
// link (vs a copy) was produced.
func (s *Store) Link(hash, dst string) (bool, error) {
	if err := s.Materialize(hash, dst); err != nil {
		return false, err
	}
	blob, berr := os.Stat(s.Path(hash))
	target, terr := os.Stat(dst)
	return berr == nil && terr == nil && os.SameFile(blob, target), nil
}

func (s *Store) linkSupported(dstDir string) bool {
	s.linkOnce.Do(func() {
		probe, err := os.CreateTemp(s.dir, tmpPrefix+"probe-")
		if err != nil {
			return
		}
		probe.Close()
		target := filepath.Join(dstDir, filepath.Base(probe.Name()))
		if err := os.Link(probe.Name(), target); err == nil {
			s.canLink = true
			os.Remove(target)
		}
		os.Remove(probe.Name())
	})
	return s.canLink
}

func replaceWithLink(src, dst string) error {
	tmp := dst + ".lfctmp"
	if err := os.Link(src, tmp); err != nil {
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *Store) copyTo(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), tmpPrefix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	os.Chmod(tmpName, s.perm)
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
