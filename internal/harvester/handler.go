package harvester

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"hls-harvester/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const (
	playlistContentType = "application/vnd.apple.mpegurl"
	segmentContentType  = "video/mp4"
)

// Handler exposes the harvested result tree over HTTP using go-chi, so
// players can follow the rolling playlists while the harvester advances them.
type Handler struct {
	resultPath string
	playlists  map[string]string // track name -> playlist file name on disk
	log        *slog.Logger
	metrics    *metrics.Metrics
}

// NewHandler returns a Handler serving cfg's result tree. Metrics may be nil
// to disable metric recording (e.g. in tests).
func NewHandler(cfg Config, log *slog.Logger, m *metrics.Metrics) *Handler {
	playlists := make(map[string]string, len(cfg.Tracks))
	for _, tr := range cfg.Tracks {
		playlists[tr.Name] = tr.PlaylistName
	}
	return &Handler{resultPath: cfg.ResultPath, playlists: playlists, log: log, metrics: m}
}

// GetPlaylist handles GET /tracks/{track}/playlist.m3u8. The request path is
// fixed regardless of the configured on-disk playlist name; segment entries
// in the playlist resolve relative to the same track path.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	track := chi.URLParam(r, "track")
	name, ok := h.playlists[track]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	data, err := os.ReadFile(filepath.Join(h.resultPath, track, name))
	if errors.Is(err, os.ErrNotExist) {
		// No cycle has committed a segment for this track yet.
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("read playlist failed", slog.String("track", track), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", playlistContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	if h.metrics != nil {
		h.metrics.IncPlaylistsServed()
	}
}

// GetSegment handles GET /tracks/{track}/{segment}. Only bare committed media
// file names are served; anything else is rejected.
func (h *Handler) GetSegment(w http.ResponseWriter, r *http.Request) {
	track := chi.URLParam(r, "track")
	if _, ok := h.playlists[track]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	segment := chi.URLParam(r, "segment")
	if segment == "" || segment != filepath.Base(segment) || !strings.HasSuffix(segment, mediaExt) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	path := filepath.Join(h.resultPath, track, segment)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		// Either never committed or already evicted from the window.
		w.WriteHeader(http.StatusNotFound)
		return
	} else if err != nil {
		h.log.Error("stat segment failed", slog.String("segment", segment), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", segmentContentType)
	http.ServeFile(w, r, path)
}
