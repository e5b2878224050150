package capture

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// Source abstracts how stream bytes are obtained for one station. Connect
// blocks until the stream is established or the attempt fails; the returned
// reader delivers raw audio bytes until the stream drops or the reader is
// closed. Closing the reader from another goroutine unblocks a pending Read.
type Source interface {
	Connect(ctx context.Context) (io.ReadCloser, error)
	URL() string
}

// NewSource selects the transport for a stream URL. HLS playlists get the
// playlist-following source, everything else is treated as a plain chunked
// HTTP stream.
func NewSource(url string, connectTimeout time.Duration) Source {
	if isHLSURL(url) {
		return newHLSSource(url, connectTimeout)
	}
	return newHTTPSource(url, connectTimeout)
}

func isHLSURL(url string) bool {
	trimmed := url
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return strings.HasSuffix(strings.ToLower(trimmed), ".m3u8")
}

// newStreamClient builds an HTTP client that bounds connection establishment
// but never times out the body read; livestreams are open-ended.
func newStreamClient(connectTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			TLSHandshakeTimeout:   connectTimeout,
			ResponseHeaderTimeout: connectTimeout,
		},
	}
}

// httpSource captures a plain chunked HTTP livestream (Icecast, Shoutcast
// and most station-site streams).
type httpSource struct {
	url    string
	client *http.Client
}

func newHTTPSource(url string, connectTimeout time.Duration) *httpSource {
	return &httpSource{url: url, client: newStreamClient(connectTimeout)}
}

func (s *httpSource) URL() string { return s.url }

func (s *httpSource) Connect(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryValidation).
			Context("url", s.url).
			Build()
	}
	// Suppress interleaved ICY metadata; only audio bytes are wanted.
	req.Header.Set("Icy-MetaData", "0")
	req.Header.Set("Accept", "*/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryStreamConnection).
			Context("url", s.url).
			Build()
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, errors.Newf("stream endpoint returned status %d", resp.StatusCode).
			Category(errors.CategoryStreamConnection).
			Context("url", s.url).
			Context("status", resp.StatusCode).
			Build()
	}
	return resp.Body, nil
}

// fetchBody GETs a URL and returns the body, enforcing a 200 status. Used by
// the HLS source for playlist and media segment fetches.
func fetchBody(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return resp.Body, nil
}
