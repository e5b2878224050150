package capture

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wavepulse/wavepulse-go/internal/errors"
)

// hlsSource follows a live HLS playlist and delivers the media segments as
// one continuous byte stream. Only the subset of the M3U8 format that live
// radio playlists actually use is understood: master variant selection,
// media sequence numbering and segment URIs.
type hlsSource struct {
	url    string
	client *http.Client
}

func newHLSSource(url string, connectTimeout time.Duration) *hlsSource {
	return &hlsSource{url: url, client: newStreamClient(connectTimeout)}
}

func (s *hlsSource) URL() string { return s.url }

func (s *hlsSource) Connect(ctx context.Context) (io.ReadCloser, error) {
	mediaURL, pl, err := s.resolveMediaPlaylist(ctx, s.url, 0)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryStreamConnection).
			Context("url", s.url).
			Build()
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	go s.follow(streamCtx, mediaURL, pl, pw)

	return &hlsStream{pr: pr, cancel: cancel}, nil
}

// hlsStream adapts the pipe reader so Close also stops the follower
// goroutine, which unblocks any pending Read.
type hlsStream struct {
	pr     *io.PipeReader
	cancel context.CancelFunc
}

func (h *hlsStream) Read(p []byte) (int, error) { return h.pr.Read(p) }

func (h *hlsStream) Close() error {
	h.cancel()
	return h.pr.Close()
}

// maxVariantHops bounds master playlist indirection.
const maxVariantHops = 3

// resolveMediaPlaylist fetches the playlist and, when it is a master
// playlist, descends into the first variant until a media playlist is found.
func (s *hlsSource) resolveMediaPlaylist(ctx context.Context, rawURL string, hop int) (*url.URL, *playlist, error) {
	if hop > maxVariantHops {
		return nil, nil, errors.Newf("playlist nesting exceeds %d levels", maxVariantHops).
			Category(errors.CategoryValidation).
			Build()
	}

	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, err
	}

	body, err := fetchBody(ctx, s.client, rawURL)
	if err != nil {
		return nil, nil, err
	}
	pl, err := parsePlaylist(base, body)
	_ = body.Close()
	if err != nil {
		return nil, nil, err
	}

	if len(pl.variants) > 0 {
		return s.resolveMediaPlaylist(ctx, pl.variants[0], hop+1)
	}
	if len(pl.segments) == 0 {
		return nil, nil, errors.Newf("playlist has no media segments").
			Category(errors.CategoryStreamConnection).
			Build()
	}
	return base, pl, nil
}

// follow polls the media playlist and writes unseen segments to the pipe in
// order. The poll interval tracks the playlist target duration.
func (s *hlsSource) follow(ctx context.Context, mediaURL *url.URL, pl *playlist, pw *io.PipeWriter) {
	nextSeq := pl.mediaSequence

	for {
		for i, segURL := range pl.segments {
			seq := pl.mediaSequence + uint64(i)
			if seq < nextSeq {
				continue
			}
			if err := s.copySegment(ctx, segURL, pw); err != nil {
				pw.CloseWithError(err)
				return
			}
			nextSeq = seq + 1
		}

		if pl.ended {
			pw.CloseWithError(io.EOF)
			return
		}

		wait := pl.targetDuration / 2
		if wait <= 0 {
			wait = 2 * time.Second
		}
		select {
		case <-ctx.Done():
			pw.CloseWithError(ctx.Err())
			return
		case <-time.After(wait):
		}

		body, err := fetchBody(ctx, s.client, mediaURL.String())
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		refreshed, err := parsePlaylist(mediaURL, body)
		_ = body.Close()
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pl = refreshed
	}
}

func (s *hlsSource) copySegment(ctx context.Context, segURL string, pw *io.PipeWriter) error {
	body, err := fetchBody(ctx, s.client, segURL)
	if err != nil {
		return err
	}
	_, err = io.Copy(pw, body)
	_ = body.Close()
	return err
}

// playlist is a parsed M3U8 playlist. Either variants (master playlist) or
// segments (media playlist) is populated.
type playlist struct {
	targetDuration time.Duration
	mediaSequence  uint64
	segments       []string
	variants       []string
	ended          bool
}

// parsePlaylist reads an M3U8 playlist, resolving segment and variant URIs
// against the playlist URL.
func parsePlaylist(base *url.URL, r io.Reader) (*playlist, error) {
	scanner := bufio.NewScanner(r)
	pl := &playlist{}

	first := true
	variantNext := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if first {
			if line != "#EXTM3U" {
				return nil, errors.Newf("not an M3U8 playlist").
					Category(errors.CategoryValidation).
					Build()
			}
			first = false
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			if secs, err := strconv.Atoi(tagValue(line)); err == nil {
				pl.targetDuration = time.Duration(secs) * time.Second
			}
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			if seq, err := strconv.ParseUint(tagValue(line), 10, 64); err == nil {
				pl.mediaSequence = seq
			}
		case strings.HasPrefix(line, "#EXT-X-STREAM-INF:"):
			variantNext = true
		case line == "#EXT-X-ENDLIST":
			pl.ended = true
		case strings.HasPrefix(line, "#"):
			// Unhandled tags (EXTINF durations, program dates) are skipped.
		default:
			resolved, err := resolveURI(base, line)
			if err != nil {
				return nil, err
			}
			if variantNext {
				pl.variants = append(pl.variants, resolved)
				variantNext = false
			} else {
				pl.segments = append(pl.segments, resolved)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if first {
		return nil, errors.Newf("empty playlist").
			Category(errors.CategoryValidation).
			Build()
	}
	return pl, nil
}

func tagValue(line string) string {
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

func resolveURI(base *url.URL, uri string) (string, error) {
	ref, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}
