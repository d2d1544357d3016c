package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// HTTP talks to a plain object server: HEAD for existence, GET for download,
// PUT (or POST, server-dependent) for upload. 404 means missing, other
// non-2xx statuses classify as permanent or auth; transport-level failures
// and 5xx classify as transient.
type HTTP struct {
	base   *url.URL
	client *http.Client
	opts   Options
}

// NewHTTP returns a backend for base.
func NewHTTP(base *url.URL, opts Options) *HTTP {
	return &HTTP{base: base, client: &http.Client{}, opts: opts}
}

func (h *HTTP) String() string { return h.base.String() }

func (h *HTTP) objectURL(hash string) string {
	u := *h.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + hash[:2] + "/" + hash[2:]
	return u.String()
}

func (h *HTTP) newRequest(ctx context.Context, method, hash string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.objectURL(hash), body)
	if err != nil {
		return nil, err
	}
	if h.opts.Credentials != nil {
		user, pass, err := h.opts.Credentials.Credentials(h.base.String())
		if err != nil {
			return nil, classified(ClassAuth, strings.ToLower(method), hash, err)
		}
		if user != "" || pass != "" {
			req.SetBasicAuth(user, pass)
		}
	}
	return req, nil
}

func classifyStatus(op, hash string, status int) error {
	switch {
	case status == http.StatusNotFound:
		return classified(ClassMissing, op, hash, ErrMissing)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return classified(ClassAuth, op, hash, fmt.Errorf("server returned %d", status))
	case status >= 500:
		return classified(ClassTransient, op, hash, fmt.Errorf("server returned %d", status))
	default:
		return classified(ClassPermanent, op, hash, fmt.Errorf("server returned %d", status))
	}
}

func classifyTransport(ctx context.Context, op, hash string, err error) error {
	// Request-level failures (dial, reset, timeout) are worth retrying.
	return classified(ClassTransient, op, hash, err)
}

func (h *HTTP) Has(ctx context.Context, hash string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.headTimeout())
	defer cancel()

	req, err := h.newRequest(ctx, http.MethodHead, hash, nil)
	if err != nil {
		return false, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return false, classifyTransport(ctx, "has", hash, err)
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, classifyStatus("has", hash, resp.StatusCode)
	}
}

func (h *HTTP) Get(ctx context.Context, hash string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.transferTimeout())

	req, err := h.newRequest(ctx, http.MethodGet, hash, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, classifyTransport(ctx, "get", hash, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		cancel()
		return nil, classifyStatus("get", hash, resp.StatusCode)
	}
	return &cancelReader{rc: resp.Body, cancel: cancel}, nil
}

type cancelReader struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelReader) Read(p []byte) (int, error) { return r.rc.Read(p) }

func (r *cancelReader) Close() error {
	defer r.cancel()
	return r.rc.Close()
}

func (h *HTTP) Put(ctx context.Context, hash string, r io.Reader, size int64) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.transferTimeout())
	defer cancel()

	method := http.MethodPut
	if strings.EqualFold(h.opts.PutMethod, http.MethodPost) {
		method = http.MethodPost
	}
	req, err := h.newRequest(ctx, method, hash, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if size >= 0 {
		req.ContentLength = size
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return classifyTransport(ctx, "put", hash, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus("put", hash, resp.StatusCode)
	}
	return nil
}

// List fetches the server's index: a text listing of one hash per line at
// the base URL. Servers without an index simply yield no hashes.
func (h *HTTP) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.opts.transferTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base.String(), nil)
	if err != nil {
		return nil, err
	}
	if h.opts.Credentials != nil {
		user, pass, cerr := h.opts.Credentials.Credentials(h.base.String())
		if cerr != nil {
			return nil, classified(ClassAuth, "list", "", cerr)
		}
		if user != "" || pass != "" {
			req.SetBasicAuth(user, pass)
		}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, classifyTransport(ctx, "list", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus("list", "", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(ctx, "list", "", err)
	}
	var hashes []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if localHashRe.MatchString(line) {
			hashes = append(hashes, line)
		}
	}
	return hashes, nil
}
