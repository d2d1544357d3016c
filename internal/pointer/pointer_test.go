package pointer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

func TestParseCanonical(t *testing.T) {
	data := []byte("sha256: " + testHash + "\nsize: 1048576\npath: myfile.dat\n")
	rec, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, testHash, rec.SHA256)
	assert.Equal(t, int64(1048576), rec.Size)
	assert.Equal(t, "myfile.dat", rec.Path)
	assert.Empty(t, rec.Extra)
}

func TestParseIgnoresCommentsAndBlanks(t *testing.T) {
	data := []byte("# generated\n\nsha256: " + testHash + "\n\nsize: 7\n")
	rec, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.Size)
}

func TestParseDuplicateKeyLastWins(t *testing.T) {
	data := []byte("sha256: " + testHash + "\nsize: 1\nsize: 2\n")
	rec, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Size)
}

func TestParsePreservesUnknownKeys(t *testing.T) {
	data := []byte("sha256: " + testHash + "\nsize: 5\nzeta: z\nalpha: a\n")
	rec, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"zeta": "z", "alpha": "a"}, rec.Extra)

	// Unknown keys re-emit sorted after the known fields.
	assert.Equal(t,
		"sha256: "+testHash+"\nsize: 5\nalpha: a\nzeta: z\n",
		string(rec.Encode()))
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing sha256", "size: 5\n"},
		{"missing size", "sha256: " + testHash + "\n"},
		{"bad hash", "sha256: xyz\nsize: 5\n"},
		{"short hash", "sha256: abcd\nsize: 5\n"},
		{"bad size", "sha256: " + testHash + "\nsize: -1\n"},
		{"no separator", "sha256 " + testHash + "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data))
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	rec := &Record{
		SHA256: testHash,
		Size:   1048576,
		Path:   "myfile.dat",
		Extra:  map[string]string{"note": "keep me"},
	}
	path := filepath.Join(t.TempDir(), "myfile.dat.lfc")
	require.NoError(t, Write(path, rec))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Re-encoding is byte-for-byte idempotent.
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, Write(path, got))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReadAnnotatesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.lfc")
	require.NoError(t, os.WriteFile(path, []byte("size: 5\n"), 0o644))

	_, err := Read(path)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Path)
}

func TestSuffixHelpers(t *testing.T) {
	assert.True(t, IsSidecar("a/b.dat.lfc"))
	assert.False(t, IsSidecar("a/b.dat"))
	assert.False(t, IsSidecar(".lfc"))
	assert.Equal(t, "a/b.dat", OriginalOf("a/b.dat.lfc"))
	assert.Equal(t, "a/b.dat", OriginalOf("a/b.dat"))
	assert.Equal(t, "a/b.dat.lfc", SidecarOf("a/b.dat"))
	assert.Equal(t, "a/b.dat.lfc", SidecarOf("a/b.dat.lfc"))
}
