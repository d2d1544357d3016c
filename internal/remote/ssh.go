package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path"
	"strings"
)

// SSH drives a remote cache through the system ssh client. Blobs travel over
// the remote shell's stdin/stdout; only cat, test, mkdir, mv and find are
// required on the far side.
type SSH struct {
	host string // [user@]host
	dir  string // remote path
	cmd  []string
	opts Options
}

// NewSSH returns a backend for [user@]host and a remote directory.
func NewSSH(host, dir string, opts Options) *SSH {
	cmd := []string{"ssh"}
	if opts.SSHCommand != "" {
		cmd = strings.Fields(opts.SSHCommand)
	}
	return &SSH{host: host, dir: dir, cmd: cmd, opts: opts}
}

func (s *SSH) String() string { return s.host + ":" + s.dir }

func (s *SSH) path(hash string) string {
	return path.Join(s.dir, hash[:2], hash[2:])
}

// shq single-quotes a string for the remote shell.
func shq(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (s *SSH) command(ctx context.Context, remoteCmd string) *exec.Cmd {
	args := append(s.cmd[1:], s.host, remoteCmd)
	return exec.CommandContext(ctx, s.cmd[0], args...)
}

// classifyExec maps subprocess failures: a dead connection or timeout is
// transient, an auth prompt failure is auth, anything else permanent.
func classifyExec(ctx context.Context, op, hash string, err error, stderr string) error {
	msg := strings.TrimSpace(stderr)
	wrapped := err
	if msg != "" {
		wrapped = fmt.Errorf("%s: %w", msg, err)
	}
	if ctx.Err() != nil {
		return classified(ClassTransient, op, hash, wrapped)
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "permission denied"),
		strings.Contains(lower, "authentication failed"):
		return classified(ClassAuth, op, hash, wrapped)
	case strings.Contains(lower, "connection refused"):
		return classified(ClassPermanent, op, hash, wrapped)
	case strings.Contains(lower, "connection"), strings.Contains(lower, "timed out"):
		return classified(ClassTransient, op, hash, wrapped)
	}
	return classified(ClassPermanent, op, hash, wrapped)
}

func (s *SSH) Has(ctx context.Context, hash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.headTimeout())
	defer cancel()

	cmd := s.command(ctx, "test -e "+shq(s.path(hash)))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return true, nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) && exit.ExitCode() == 1 && ctx.Err() == nil {
		return false, nil
	}
	return false, classifyExec(ctx, "has", hash, err, stderr.String())
}

func (s *SSH) Get(ctx context.Context, hash string) (io.ReadCloser, error) {
	ok, err := s.Has(ctx, hash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, classified(ClassMissing, "get", hash, ErrMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.transferTimeout())
	cmd := s.command(ctx, "cat "+shq(s.path(hash)))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, classified(ClassPermanent, "get", hash, err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, classifyExec(ctx, "get", hash, err, stderr.String())
	}
	return &sshReader{rc: stdout, cmd: cmd, cancel: cancel, stderr: &stderr, hash: hash, ctx: ctx}, nil
}

type sshReader struct {
	rc     io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr *bytes.Buffer
	hash   string
	ctx    context.Context
}

func (r *sshReader) Read(p []byte) (int, error) { return r.rc.Read(p) }

func (r *sshReader) Close() error {
	defer r.cancel()
	r.rc.Close()
	if err := r.cmd.Wait(); err != nil {
		return classifyExec(r.ctx, "get", r.hash, err, r.stderr.String())
	}
	return nil
}

func (s *SSH) Put(ctx context.Context, hash string, r io.Reader, size int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.transferTimeout())
	defer cancel()

	final := s.path(hash)
	tmp := path.Join(s.dir, "tmp-"+hash)
	script := fmt.Sprintf("mkdir -p %s && cat > %s && mv %s %s",
		shq(path.Dir(final)), shq(tmp), shq(tmp), shq(final))

	cmd := s.command(ctx, script)
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return classifyExec(ctx, "put", hash, err, stderr.String())
	}
	return nil
}

func (s *SSH) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.transferTimeout())
	defer cancel()

	cmd := s.command(ctx, "find "+shq(s.dir)+" -type f 2>/dev/null || true")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, classifyExec(ctx, "list", "", err, stderr.String())
	}
	var hashes []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		base := path.Base(line)
		shard := path.Base(path.Dir(line))
		if hash := shard + base; localHashRe.MatchString(hash) {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}
