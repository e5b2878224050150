package capture

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParseMediaPlaylist(t *testing.T) {
	t.Parallel()

	raw := `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:6
#EXT-X-MEDIA-SEQUENCE:1042

#EXTINF:6.0,
chunk_1042.aac
#EXTINF:6.0,
chunk_1043.aac
#EXTINF:5.98,
https://cdn.example.com/live/chunk_1044.aac
`
	pl, err := parsePlaylist(mustURL(t, "https://radio.example.com/live/playlist.m3u8"), strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, 6*time.Second, pl.targetDuration)
	assert.Equal(t, uint64(1042), pl.mediaSequence)
	assert.False(t, pl.ended)
	assert.Empty(t, pl.variants)
	assert.Equal(t, []string{
		"https://radio.example.com/live/chunk_1042.aac",
		"https://radio.example.com/live/chunk_1043.aac",
		"https://cdn.example.com/live/chunk_1044.aac",
	}, pl.segments)
}

func TestParseMasterPlaylist(t *testing.T) {
	t.Parallel()

	raw := `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=128000,CODECS="mp4a.40.2"
hi/playlist.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=64000
lo/playlist.m3u8
`
	pl, err := parsePlaylist(mustURL(t, "https://radio.example.com/live/master.m3u8"), strings.NewReader(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://radio.example.com/live/hi/playlist.m3u8",
		"https://radio.example.com/live/lo/playlist.m3u8",
	}, pl.variants)
	assert.Empty(t, pl.segments)
}

func TestParsePlaylistEndList(t *testing.T) {
	t.Parallel()

	raw := `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXTINF:6.0,
final.aac
#EXT-X-ENDLIST
`
	pl, err := parsePlaylist(mustURL(t, "https://radio.example.com/p.m3u8"), strings.NewReader(raw))
	require.NoError(t, err)
	assert.True(t, pl.ended)
	assert.Len(t, pl.segments, 1)
}

func TestParsePlaylistRejectsNonPlaylist(t *testing.T) {
	t.Parallel()

	_, err := parsePlaylist(mustURL(t, "https://radio.example.com/p.m3u8"), strings.NewReader("<html></html>"))
	assert.Error(t, err)

	_, err = parsePlaylist(mustURL(t, "https://radio.example.com/p.m3u8"), strings.NewReader(""))
	assert.Error(t, err)
}

func TestIsHLSURL(t *testing.T) {
	t.Parallel()

	assert.True(t, isHLSURL("https://radio.example.com/live/playlist.m3u8"))
	assert.True(t, isHLSURL("https://radio.example.com/live/PLAYLIST.M3U8?auth=abc"))
	assert.False(t, isHLSURL("https://radio.example.com/stream.mp3"))
	assert.False(t, isHLSURL("https://radio.example.com/listen"))
}

func TestHLSSourceStreamsMasterToSegments(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=128000\nmedia.m3u8\n")
	})
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `#EXTM3U
#EXT-X-TARGETDURATION:2
#EXT-X-MEDIA-SEQUENCE:7
#EXTINF:2.0,
seg7.aac
#EXTINF:2.0,
seg8.aac
#EXT-X-ENDLIST
`)
	})
	mux.HandleFunc("/seg7.aac", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "AUDIO7")
	})
	mux.HandleFunc("/seg8.aac", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "AUDIO8")
	})

	src := newHLSSource(srv.URL+"/master.m3u8", 5*time.Second)
	body, err := src.Connect(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = body.Close() })

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "AUDIO7AUDIO8", string(data))
}

func TestHLSSourceConnectFailsOnMissingPlaylist(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	src := newHLSSource(srv.URL+"/gone.m3u8", 5*time.Second)
	_, err := src.Connect(context.Background())
	assert.Error(t, err)
}
