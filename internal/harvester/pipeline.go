package harvester

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"hls-harvester/internal/media"
)

// processTrack runs the per-segment pipeline for one track's plan:
// fetch, concatenate with the init payload, decrypt, commit to the playlist
// window. Element 0 of the plan is the init segment: it is fetched so later
// segments can be merged against it, but never independently committed.
//
// Any stage failure aborts the cycle with a fatal StreamError. Segments
// committed before the failure stay in the playlist, and token already
// reflects them.
func (e *Engine) processTrack(ctx context.Context, tr Track, plan []planEntry, token ContinuityToken) error {
	window, err := loadPlaylistWindow(filepath.Join(e.cfg.ResultPath, tr.Name, tr.PlaylistName), e.cfg.MaxSegments)
	if err != nil {
		return newPlaylistError(err)
	}

	var initPath string
	for i, entry := range plan {
		base := segmentBaseName(entry.uri)

		if i == 0 {
			initPath = filepath.Join(e.cfg.DownloadPath, tr.Name, base+segmentExt(entry.uri))
			if err := e.fetch.Fetch(ctx, entry.uri, initPath); err != nil {
				e.incFetchFailures()
				return newSegmentError(CodeFetchFailed, fmt.Errorf("fetch init %s: %w", entry.uri, err))
			}
			continue
		}

		rawPath := filepath.Join(e.cfg.DownloadPath, tr.Name, base+segmentExt(entry.uri))
		if err := e.fetch.Fetch(ctx, entry.uri, rawPath); err != nil {
			e.incFetchFailures()
			return newSegmentError(CodeFetchFailed, fmt.Errorf("fetch segment %s: %w", entry.uri, err))
		}

		mergedPath := filepath.Join(e.cfg.MergePath, tr.Name, base+mediaExt)
		if err := media.Concat(mergedPath, initPath, rawPath); err != nil {
			return newSegmentError(CodeMergeFailed, fmt.Errorf("merge %s: %w", base, err))
		}

		outName := base + mediaExt
		job := DecryptionJob{
			KeyID:       e.cfg.DecryptKeyID,
			Key:         e.cfg.DecryptKey,
			InputPath:   mergedPath,
			OutputPath:  filepath.Join(e.cfg.ResultPath, tr.Name, outName),
			WorkDir:     e.cfg.ResultPath,
			TrackSubdir: tr.Name,
		}
		if err := e.decrypt.Decrypt(ctx, job); err != nil {
			e.incDecryptFailures()
			return newSegmentError(CodeDecryptFailed, fmt.Errorf("decrypt %s: %w", base, err))
		}

		evicted, err := window.append(entry.duration, outName)
		if err != nil {
			return newPlaylistError(err)
		}
		token[tr.Name] = entry.uri

		e.log.Debug("segment committed",
			slog.String("track", tr.Name),
			slog.String("file", outName),
			slog.Float64("duration", entry.duration),
			slog.String("evicted", evicted))
		if e.metrics != nil {
			e.metrics.IncSegmentsCommitted()
			if evicted != "" {
				e.metrics.IncEvictions()
			}
			e.metrics.SetWindowSegments(tr.Name, window.entryCount())
		}
	}
	return nil
}

func (e *Engine) incFetchFailures() {
	if e.metrics != nil {
		e.metrics.IncFetchFailures()
	}
}

func (e *Engine) incDecryptFailures() {
	if e.metrics != nil {
		e.metrics.IncDecryptFailures()
	}
}
