package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostLimiter_PerHost(t *testing.T) {
	l := NewHostLimiter(1, 1)
	require.NoError(t, l.Wait(context.Background(), "http://example.com/a"))

	assert.False(t, l.Allow("http://example.com/b"), "burst of one is spent")
	assert.True(t, l.Allow("http://other.com/"), "other hosts have their own budget")
}

func TestHostLimiter_DefaultBurst(t *testing.T) {
	l := NewHostLimiter(10, -1)
	assert.Equal(t, 1, l.burst)
}

func TestHostLimiter_WaitHonoursContext(t *testing.T) {
	l := NewHostLimiter(0.001, 1)
	require.True(t, l.Allow("http://slow.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx, "http://slow.com"))
}

func TestFetcher_UsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "OK")
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, "test-agent", 1<<20, 0)
	f.SetLimiter(NewHostLimiter(0.001, 1))

	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, server.URL)
	assert.Error(t, err)
}
