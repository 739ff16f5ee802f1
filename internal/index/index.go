// Package index turns upstream live media playlists into the ordered segment
// references the harvester engine consumes.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hls-harvester/internal/harvester"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

const (
	defaultTimeout   = 10 * time.Second
	maxPlaylistBytes = 256 * 1024
)

// Parse converts a live HLS media playlist into segment references. The init
// segment (EXT-X-MAP) becomes the first reference with a zero time span; each
// EXTINF span is laid out cumulatively on the track-local clock. Relative
// URIs are resolved against baseURL.
func Parse(data []byte, baseURL string) ([]harvester.SegmentReference, error) {
	pl, err := playlist.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parse playlist: %w", err)
	}
	media, ok := pl.(*playlist.Media)
	if !ok {
		return nil, errors.New("expected media playlist, got multivariant")
	}

	refs := make([]harvester.SegmentReference, 0, len(media.Segments)+1)
	if media.Map != nil && media.Map.URI != "" {
		refs = append(refs, harvester.SegmentReference{
			URI:    absolutize(baseURL, media.Map.URI),
			IsInit: true,
		})
	}

	var at float64
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		dur := seg.Duration.Seconds()
		refs = append(refs, harvester.SegmentReference{
			URI:       absolutize(baseURL, seg.URI),
			StartTime: at,
			EndTime:   at + dur,
		})
		at += dur
	}
	return refs, nil
}

// Client fetches and parses segment indexes over HTTP.
type Client struct {
	http     *http.Client
	maxBytes int64
}

// NewClient returns a Client using hc, or a default client when hc is nil.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{http: hc, maxBytes: maxPlaylistBytes}
}

// Get fetches the index at rawURL and parses it.
func (c *Client) Get(ctx context.Context, rawURL string) ([]harvester.SegmentReference, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", rawURL, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: HTTP %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return Parse(data, rawURL)
}

// absolutize resolves a possibly-relative segment URI against the playlist
// URL it came from.
func absolutize(playlistURL, segmentURL string) string {
	if strings.HasPrefix(segmentURL, "http://") || strings.HasPrefix(segmentURL, "https://") {
		return segmentURL
	}
	base, err := url.Parse(playlistURL)
	if err != nil {
		return segmentURL
	}
	ref, err := url.Parse(segmentURL)
	if err != nil {
		return segmentURL
	}
	return base.ResolveReference(ref).String()
}
