package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialDispatch(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"../hub", "*remote.Local"},
		{"/srv/hub", "*remote.Local"},
		{"file:///srv/hub", "*remote.Local"},
		{"user@host:/srv/hub", "*remote.SSH"},
		{"host:relative/path", "*remote.SSH"},
		{"ssh://user@host/srv/hub", "*remote.SSH"},
		{"http://example.com/lfc", "*remote.HTTP"},
		{"https://example.com/lfc", "*remote.HTTP"},
	}
	for _, tc := range cases {
		be, err := Dial(tc.url, "", Options{})
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, typeName(be), tc.url)
	}
}

func TestDialKindHintOverridesSniffing(t *testing.T) {
	// A path that sniffing alone would treat as an ssh destination.
	be, err := Dial("host:path", "local", Options{})
	require.NoError(t, err)
	assert.Equal(t, "*remote.Local", typeName(be))

	_, err = Dial("anything", "carrier-pigeon", Options{})
	assert.Error(t, err)
}

func TestSSHDestinationParsing(t *testing.T) {
	be, err := Dial("alice@host:/srv/hub", "", Options{})
	require.NoError(t, err)
	assert.Equal(t, "alice@host:/srv/hub", be.String())

	be, err = Dial("ssh://alice@host/srv/hub", "", Options{})
	require.NoError(t, err)
	assert.Equal(t, "alice@host:srv/hub", be.String())
}

func typeName(v any) string {
	switch v.(type) {
	case *Local:
		return "*remote.Local"
	case *SSH:
		return "*remote.SSH"
	case *HTTP:
		return "*remote.HTTP"
	default:
		return "?"
	}
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), 3, func() error {
		calls++
		return classified(ClassPermanent, "put", testHash, errors.New("denied"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRetriesTransient(t *testing.T) {
	calls := 0
	start := time.Now()
	err := WithRetry(context.Background(), 2, func() error {
		calls++
		if calls < 2 {
			return classified(ClassTransient, "put", testHash, errors.New("flaky"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	// One backoff interval of ~1s elapsed between the attempts.
	assert.GreaterOrEqual(t, time.Since(start), time.Second)
}

func TestWithRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := WithRetry(ctx, 3, func() error {
		calls++
		return classified(ClassTransient, "put", testHash, errors.New("flaky"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
