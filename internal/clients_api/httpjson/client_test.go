package httpjson

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmoney-bot/internal/infra/retry"
)

func newTestClient(baseURL string) *Client {
	return New(Options{
		Name:    "test",
		BaseURL: baseURL,
		Retry:   retry.Options{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		Headers: map[string]string{"Authorization": "Bearer secret"},
	})
}

func TestGetJSON_DecodesAndSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("page-size"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := newTestClient(srv.URL).GetJSON(context.Background(), "/v1/items", url.Values{"page-size": {"20"}}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Get(context.Background(), "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Get(context.Background(), "/x", nil)

	var he *retry.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusUnauthorized, he.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_MalformedBodies(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"html page", "text/html", "<html>blocked</html>"},
		{"broken json", "application/json", `{"pairs": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out map[string]interface{}
			err := newTestClient(srv.URL).GetJSON(context.Background(), "/x", nil, &out)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestGet_ResponseSizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": "0123456789012345678901234567890123456789"}`))
	}))
	defer srv.Close()

	c := New(Options{Name: "small", BaseURL: srv.URL, MaxResponseSize: 16})
	_, err := c.Get(context.Background(), "/x", nil)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
