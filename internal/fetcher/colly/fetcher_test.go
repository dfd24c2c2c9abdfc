package collyfetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetReturnsBody(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<ok/>`))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "test-bot/1.0", Timeout: 5 * time.Second})

	body, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, []byte(`<ok/>`), body)
	require.Equal(t, "test-bot/1.0", gotUA)
}

func TestGetNon2xxIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})

	_, err := f.Get(context.Background(), srv.URL)
	require.Error(t, err)
}

func TestGetSameURLTwice(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(`<ok/>`))
	}))
	defer srv.Close()

	f := New(Config{Timeout: 5 * time.Second})

	// Retried identifiers hit the same URL again; revisits must be allowed.
	for i := 0; i < 2; i++ {
		_, err := f.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	require.Equal(t, 2, hits)
}
