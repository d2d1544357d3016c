// Package gitcmd shells out to the git porcelain for the few plumbing reads
// lfc needs: worktree discovery, tracked-file listing, and reading sidecars
// at arbitrary refs. Ignore handling stays with git itself; lfc only appends
// patterns to .gitignore files.
package gitcmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Git runs git commands rooted at a working directory.
type Git struct {
	dir string
}

// New returns a runner for the repository containing dir.
func New(dir string) *Git {
	return &Git{dir: dir}
}

func (g *Git) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("git %s: %s", args[0], msg)
	}
	return stdout.Bytes(), nil
}

// TopLevel returns the worktree root, or an error outside a git repository.
func (g *Git) TopLevel(ctx context.Context) (string, error) {
	out, err := g.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// InWorkTree reports whether dir is inside a git worktree.
func (g *Git) InWorkTree(ctx context.Context) bool {
	out, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// LsFiles lists tracked and untracked-but-not-ignored paths, NUL-delimited,
// relative to the runner's directory. This is how sidecar discovery honors git's
// ignore rules without re-implementing them.
func (g *Git) LsFiles(ctx context.Context, paths ...string) ([]string, error) {
	args := []string{"ls-files", "-z", "--cached", "--others", "--exclude-standard", "--"}
	args = append(args, paths...)
	out, err := g.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range bytes.Split(out, []byte{0}) {
		if len(p) > 0 {
			files = append(files, string(p))
		}
	}
	return files, nil
}

// Show reads a file's content at ref (ref:path).
func (g *Git) Show(ctx context.Context, ref, path string) ([]byte, error) {
	return g.run(ctx, "show", ref+":"+path)
}

// Add stages paths.
func (g *Git) Add(ctx context.Context, paths ...string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := g.run(ctx, args...)
	return err
}

// Clone runs git clone url [dir].
func Clone(ctx context.Context, url, dir string, bare bool) error {
	args := []string{"clone"}
	if bare {
		args = append(args, "--bare")
	}
	args = append(args, url)
	if dir != "" {
		args = append(args, dir)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git clone %s: %w", url, err)
	}
	return nil
}

// CloneDir derives the directory git clone would create for url.
func CloneDir(url string) string {
	name := url
	if i := strings.LastIndexAny(name, "/:"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".git")
}

// EnsureIgnored appends pattern to the .gitignore at path unless an existing
// line already matches it exactly. Returns true when the file was amended.
func EnsureIgnored(path, pattern string) (bool, error) {
	if has, err := hasIgnoreLine(path, pattern); err != nil || has {
		return false, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if info, err := f.Stat(); err == nil && info.Size() > 0 {
		if !endsWithNewline(path) {
			if _, err := f.WriteString("\n"); err != nil {
				return false, err
			}
		}
	}
	if _, err := f.WriteString(pattern + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

func hasIgnoreLine(path, pattern string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == pattern {
			return true, nil
		}
	}
	return false, sc.Err()
}

func endsWithNewline(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return true
	}
	buf := make([]byte, 1)
	if _, err := f.ReadAt(buf, info.Size()-1); err != nil {
		return true
	}
	return buf[0] == '\n'
}
