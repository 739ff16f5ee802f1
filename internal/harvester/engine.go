package harvester

import (
	"context"
	"log/slog"
	"time"

	"hls-harvester/internal/platform/metrics"
)

// DefaultMaxSegments is the default playlist window capacity per track.
const DefaultMaxSegments = 6

// Engine processes exactly one cycle's worth of reconciliation, fetch, merge,
// decrypt, playlist maintenance, and pacing per RunCycle call. It owns no
// state that survives a cycle beyond what RunCycle returns; the driver
// threads the continuity token between invocations and guarantees that
// cycles never overlap.
type Engine struct {
	cfg     Config
	fetch   Fetcher
	decrypt Decryptor
	log     *slog.Logger
	metrics *metrics.Metrics

	// Seams for deterministic tests.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewEngine wires the engine's collaborators. Metrics may be nil to disable
// metric recording (e.g. in tests). If cfg.MaxSegments <= 0,
// DefaultMaxSegments is used.
func NewEngine(cfg Config, fetcher Fetcher, decryptor Decryptor, log *slog.Logger, m *metrics.Metrics) *Engine {
	if cfg.MaxSegments <= 0 {
		cfg.MaxSegments = DefaultMaxSegments
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		cfg:     cfg,
		fetch:   fetcher,
		decrypt: decryptor,
		log:     log,
		metrics: m,
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// RunCycle reconciles the given per-track index snapshots against the
// continuity token, processes every newly available segment (audio then
// video, strictly sequential), and returns the new token. Segments committed
// before a failure remain valid and visible in their playlists; the returned
// token reflects them so a retried cycle does not reprocess them.
func (e *Engine) RunCycle(ctx context.Context, indexes map[string][]SegmentReference, token ContinuityToken) (ContinuityToken, error) {
	start := e.now()

	if err := ensureWorkspace(e.cfg); err != nil {
		return token, err
	}
	defer e.clearScratch()

	next := token.clone()

	plans := make([][]planEntry, len(e.cfg.Tracks))
	for i, tr := range e.cfg.Tracks {
		plans[i] = e.reconcileTrack(tr, indexes[tr.Name], next[tr.Name])
	}
	alignPlans(plans)

	var paceSeconds float64
	for i, tr := range e.cfg.Tracks {
		plan := plans[i]
		if len(plan) == 0 {
			e.log.Debug("no segments for track this cycle", slog.String("track", tr.Name))
			continue
		}
		if err := e.processTrack(ctx, tr, plan, next); err != nil {
			return next, err
		}
		if d := plan[len(plan)-1].duration; d > 0 {
			paceSeconds = d
		}
	}

	if e.metrics != nil {
		e.metrics.IncCycles()
		e.metrics.ObserveCycleDuration(e.now().Sub(start).Seconds())
	}

	e.pace(start, paceSeconds)
	return next, nil
}
