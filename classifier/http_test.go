package classifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClassifierParsesResult(t *testing.T) {
	var gotInput string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotInput = r.URL.Query().Get("input")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"intent": "Hours", "score": 0.87}`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL)
	result, err := c.Classify(context.Background(), "what are your hours?")
	require.NoError(t, err)

	assert.Equal(t, "what are your hours?", gotInput)
	assert.Equal(t, "Hours", result.Intent)
	assert.InDelta(t, 0.87, result.Score, 1e-9)
}

func TestHTTPClassifierNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL)
	_, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestHTTPClassifierMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewHTTPClassifier(srv.URL)
	_, err := c.Classify(context.Background(), "hello")
	require.Error(t, err)
}

func TestHTTPClassifierHonorsContextDeadline(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewHTTPClassifier(srv.URL)
	_, err := c.Classify(ctx, "hello")
	require.Error(t, err)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
}
