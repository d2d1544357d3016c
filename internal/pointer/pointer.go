// Package pointer reads and writes the sidecar records that bind a
// working-tree file to a content-addressed blob.
//
// A sidecar is a small line-oriented text file at <path>.lfc:
//
//	sha256: 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08
//	size: 1048576
//	path: myfile.dat
//
// Unknown keys are preserved on read and re-emitted on write. Writes are
// canonical (sha256, size, path, then sorted unknown keys) so re-encoding an
// unchanged record is byte-for-byte idempotent.
package pointer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Suffix is the sidecar file extension.
const Suffix = ".lfc"

var hashRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Record is a parsed sidecar.
type Record struct {
	SHA256 string
	Size   int64
	Path   string
	Extra  map[string]string
}

// ParseError reports a malformed sidecar.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return "invalid pointer record: " + e.Reason
	}
	return fmt.Sprintf("invalid pointer record %s: %s", e.Path, e.Reason)
}

// IsSidecar reports whether path names a sidecar file.
func IsSidecar(path string) bool {
	return strings.HasSuffix(path, Suffix) && len(path) > len(Suffix)
}

// OriginalOf strips the sidecar suffix. Non-sidecar paths pass through.
func OriginalOf(path string) string {
	if IsSidecar(path) {
		return strings.TrimSuffix(path, Suffix)
	}
	return path
}

// SidecarOf appends the sidecar suffix. Sidecar paths pass through.
func SidecarOf(path string) string {
	if IsSidecar(path) {
		return path
	}
	return path + Suffix
}

// Parse decodes a sidecar from its raw bytes.
//
// Lines are "key: value" with surrounding whitespace trimmed from the value.
// Blank lines and lines starting with '#' are ignored. Duplicate keys: last
// wins. Missing required fields are a parse error.
func Parse(data []byte) (*Record, error) {
	rec := &Record{Size: -1}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, &ParseError{Reason: fmt.Sprintf("malformed line %q", line)}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "sha256":
			if !hashRe.MatchString(value) {
				return nil, &ParseError{Reason: fmt.Sprintf("invalid sha256 %q", value)}
			}
			rec.SHA256 = value
		case "size":
			n, err := strconv.ParseUint(value, 10, 63)
			if err != nil {
				return nil, &ParseError{Reason: fmt.Sprintf("invalid size %q", value)}
			}
			rec.Size = int64(n)
		case "path":
			rec.Path = value
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[key] = value
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if rec.SHA256 == "" {
		return nil, &ParseError{Reason: "missing required field sha256"}
	}
	if rec.Size < 0 {
		return nil, &ParseError{Reason: "missing required field size"}
	}
	return rec, nil
}

// Encode renders the record in canonical form, terminated by a newline.
func (r *Record) Encode() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "sha256: %s\n", r.SHA256)
	fmt.Fprintf(&buf, "size: %d\n", r.Size)
	if r.Path != "" {
		fmt.Fprintf(&buf, "path: %s\n", r.Path)
	}
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s: %s\n", k, r.Extra[k])
	}
	return buf.Bytes()
}

// Read loads and parses the sidecar at path.
func Read(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return rec, nil
}

// Write stores the record at path in canonical form.
func Write(path string, r *Record) error {
	return os.WriteFile(path, r.Encode(), 0o644)
}
