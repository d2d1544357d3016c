package remote

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobServer is a minimal object server: PUT stores, GET/HEAD serve, the
// base path lists one hash per line.
type blobServer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newBlobServer() *blobServer {
	return &blobServer{blobs: make(map[string][]byte)}
}

func (s *blobServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.Trim(r.URL.Path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()

	if key == "" {
		for k := range s.blobs {
			io.WriteString(w, strings.ReplaceAll(k, "/", "")+"\n")
		}
		return
	}
	switch r.Method {
	case http.MethodPut, http.MethodPost:
		data, _ := io.ReadAll(r.Body)
		s.blobs[key] = data
	case http.MethodHead, http.MethodGet:
		data, ok := s.blobs[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			w.Write(data)
		}
	default:
		http.Error(w, "nope", http.StatusMethodNotAllowed)
	}
}

func dialTest(t *testing.T, srv *httptest.Server, opts Options) *HTTP {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return NewHTTP(u, opts)
}

func TestHTTPRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(newBlobServer())
	defer srv.Close()
	be := dialTest(t, srv, Options{})

	ok, err := be.Has(ctx, testHash)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, be.Put(ctx, testHash, strings.NewReader("payload"), 7))

	ok, err = be.Has(ctx, testHash)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := be.Get(ctx, testHash)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(data))

	hashes, err := be.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testHash}, hashes)
}

func TestHTTPMissingIs404(t *testing.T) {
	srv := httptest.NewServer(newBlobServer())
	defer srv.Close()
	be := dialTest(t, srv, Options{})

	_, err := be.Get(context.Background(), testHash)
	assert.Equal(t, ClassMissing, ClassOf(err))
}

func TestHTTPErrorClasses(t *testing.T) {
	cases := []struct {
		status int
		want   Class
	}{
		{http.StatusUnauthorized, ClassAuth},
		{http.StatusForbidden, ClassAuth},
		{http.StatusInternalServerError, ClassTransient},
		{http.StatusTeapot, ClassPermanent},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "no", tc.status)
		}))
		be := dialTest(t, srv, Options{})
		err := be.Put(context.Background(), testHash, strings.NewReader("x"), 1)
		assert.Equal(t, tc.want, ClassOf(err), "status %d", tc.status)
		srv.Close()
	}
}

type staticCreds struct{ user, pass string }

func (c staticCreds) Credentials(string) (string, string, error) {
	return c.user, c.pass, nil
}

func TestHTTPBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
	}))
	defer srv.Close()

	be := dialTest(t, srv, Options{Credentials: staticCreds{"alice", "s3cret"}})
	require.NoError(t, be.Put(context.Background(), testHash, strings.NewReader("x"), 1))
	assert.Equal(t, "alice", gotUser)
	assert.Equal(t, "s3cret", gotPass)
}

func TestHTTPPostMethodOverride(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
	}))
	defer srv.Close()

	be := dialTest(t, srv, Options{PutMethod: "POST"})
	require.NoError(t, be.Put(context.Background(), testHash, strings.NewReader("x"), 1))
	assert.Equal(t, http.MethodPost, gotMethod)
}
