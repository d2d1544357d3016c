// Package bundle packs cache blobs into a zstd-compressed tar archive for
// air-gapped transport between repositories. Entries are named by their
// sharded cache path (aa/bbcc...), so an archive is also a valid local
// remote layout once unpacked.
package bundle

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/aweris/lfc/internal/cache"
)

// Export writes the given blobs from the store into w. Returns the number
// of blobs written.
func Export(w io.Writer, store *cache.Store, hashes []string) (int, error) {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return 0, err
	}
	tw := tar.NewWriter(zw)

	written := 0
	for _, hash := range hashes {
		src, size, err := store.Open(hash)
		if err != nil {
			if errors.Is(err, cache.ErrMissing) {
				continue
			}
			return written, err
		}
		hdr := &tar.Header{
			Name:    hash[:2] + "/" + hash[2:],
			Mode:    0o644,
			Size:    size,
			ModTime: time.Unix(0, 0),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			src.Close()
			return written, err
		}
		if _, err := io.Copy(tw, src); err != nil {
			src.Close()
			return written, err
		}
		src.Close()
		written++
	}

	if err := tw.Close(); err != nil {
		return written, err
	}
	return written, zw.Close()
}

// Import unpacks an archive produced by Export into the store. Every entry
// is re-hashed on the way in; an entry whose bytes do not match its name is
// rejected as corrupt.
func Import(r io.Reader, store *cache.Store) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer zr.Close()
	tr := tar.NewReader(zr)

	restored := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return restored, nil
		}
		if err != nil {
			return restored, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		hash := entryHash(hdr.Name)
		if hash == "" {
			return restored, fmt.Errorf("bundle: unexpected entry %q", hdr.Name)
		}
		if store.Has(hash) {
			continue
		}
		if _, err := store.StoreExpected(tr, hash); err != nil {
			return restored, err
		}
		restored++
	}
}

func entryHash(name string) string {
	if len(name) != 65 || name[2] != '/' {
		return ""
	}
	hash := name[:2] + name[3:]
	if !cache.ValidHash(hash) {
		return ""
	}
	return hash
}
