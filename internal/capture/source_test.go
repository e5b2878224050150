package capture

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

func TestHTTPSourceStreamsBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.Header.Get("Icy-MetaData"))
		_, _ = io.WriteString(w, "LIVEAUDIO")
	}))
	t.Cleanup(srv.Close)

	src := newHTTPSource(srv.URL, 5*time.Second)
	body, err := src.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = body.Close() })

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "LIVEAUDIO", string(data))
}

func TestHTTPSourceRejectsNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	src := newHTTPSource(srv.URL, 5*time.Second)
	_, err := src.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryStreamConnection))
}

func TestHTTPSourceConnectionRefused(t *testing.T) {
	t.Parallel()

	// A listener that is immediately closed yields a port nobody answers.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := newHTTPSource(url, time.Second)
	_, err := src.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryStreamConnection))
}

func TestNewSourceSelectsTransport(t *testing.T) {
	t.Parallel()

	_, isHTTP := NewSource("https://radio.example.com/stream.mp3", time.Second).(*httpSource)
	assert.True(t, isHTTP)

	_, isHLS := NewSource("https://radio.example.com/live.m3u8", time.Second).(*hlsSource)
	assert.True(t, isHLS)
}
