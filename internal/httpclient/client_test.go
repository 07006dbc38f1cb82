package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gridscreen-go/internal/errors"
)

func newTestClient(t *testing.T, cfg *Config) *Client {
	t.Helper()
	client := New(cfg)
	t.Cleanup(func() { client.Close() })
	return client
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(func() { server.Close() })
	return server
}

func closeBody(t *testing.T, resp *http.Response) {
	t.Helper()
	if resp == nil || resp.Body == nil {
		return
	}
	if err := resp.Body.Close(); err != nil {
		t.Logf("failed to close response body: %v", err)
	}
}

func TestNew(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		client := newTestClient(t, nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		client := newTestClient(t, &Config{
			DefaultTimeout: 5 * time.Second,
			UserAgent:      "TestAgent/1.0",
		})
		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "TestAgent/1.0", client.userAgent)
	})

	t.Run("zero values fall back to defaults", func(t *testing.T) {
		client := newTestClient(t, &Config{})
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.NotEmpty(t, client.userAgent)
	})
}

func TestDoInjectsUserAgent(t *testing.T) {
	receivedUA := ""
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, nil)

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	closeBody(t, resp)

	assert.Equal(t, defaultUserAgent, receivedUA)
}

func TestDoContextCancellation(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	resp, err := client.Get(ctx, server.URL)
	closeBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoDefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	// Context has no deadline, so the client default applies.
	resp, err := client.Get(t.Context(), server.URL)
	closeBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoContextDeadlineOverridesDefault(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, &Config{DefaultTimeout: 10 * time.Millisecond})

	ctx, cancel := context.WithTimeout(t.Context(), 500*time.Millisecond)
	defer cancel()

	resp, err := client.Get(ctx, server.URL)
	require.NoError(t, err)
	closeBody(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDoHooks(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t, nil)

	var beforeCalled, afterCalled bool
	var capturedStatus int

	client.SetBeforeRequestHook(func(r *http.Request) {
		beforeCalled = true
		assert.Equal(t, server.URL, r.URL.String())
	})
	client.SetAfterResponseHook(func(r *http.Request, resp *http.Response, err error) {
		afterCalled = true
		require.NoError(t, err)
		capturedStatus = resp.StatusCode
	})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	closeBody(t, resp)

	assert.True(t, beforeCalled)
	assert.True(t, afterCalled)
	assert.Equal(t, http.StatusOK, capturedStatus)
}

func TestFetch(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 13 Jan 2026 10:00:00 GMT")
		_, _ = w.Write([]byte(`{"type":"FeatureCollection"}`))
	})

	client := newTestClient(t, nil)

	result, err := client.Fetch(t.Context(), server.URL, Validators{})
	require.NoError(t, err)

	assert.False(t, result.NotModified)
	assert.Equal(t, http.StatusOK, result.Status)
	assert.JSONEq(t, `{"type":"FeatureCollection"}`, string(result.Body))
	assert.Equal(t, `"v1"`, result.Validators.ETag)
	assert.Equal(t, "Mon, 13 Jan 2026 10:00:00 GMT", result.Validators.LastModified)
}

func TestFetchSendsConditionalHeaders(t *testing.T) {
	var gotETag, gotModSince string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotETag = r.Header.Get("If-None-Match")
		gotModSince = r.Header.Get("If-Modified-Since")
		w.WriteHeader(http.StatusNotModified)
	})

	client := newTestClient(t, nil)

	prev := Validators{ETag: `"v1"`, LastModified: "Mon, 13 Jan 2026 10:00:00 GMT"}
	result, err := client.Fetch(t.Context(), server.URL, prev)
	require.NoError(t, err)

	assert.Equal(t, `"v1"`, gotETag)
	assert.Equal(t, "Mon, 13 Jan 2026 10:00:00 GMT", gotModSince)
	assert.True(t, result.NotModified)
	assert.Nil(t, result.Body)
	assert.Equal(t, prev, result.Validators, "validators survive a 304")
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("payload"))
	})

	client := newTestClient(t, nil)

	result, err := client.Fetch(t.Context(), server.URL, Validators{})
	require.NoError(t, err)

	assert.Equal(t, "payload", string(result.Body))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchClientErrorFailsFast(t *testing.T) {
	var attempts atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.NotFound(w, r)
	})

	client := newTestClient(t, nil)

	_, err := client.Fetch(t.Context(), server.URL, Validators{})
	require.Error(t, err)

	assert.Equal(t, int32(1), attempts.Load(), "client errors must not be retried")
	assert.True(t, errors.IsCategory(err, errors.CategoryNotFound))
}

func TestFetchRetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	client := newTestClient(t, nil)

	_, err := client.Fetch(t.Context(), server.URL, Validators{})
	require.Error(t, err)

	assert.Equal(t, int32(maxFetchAttempts), attempts.Load())
	assert.True(t, errors.IsCategory(err, errors.CategoryHTTP))
	assert.Contains(t, err.Error(), "500")
}

func TestFetchNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, nil)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	_, err := client.Fetch(ctx, url, Validators{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}
