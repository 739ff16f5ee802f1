package harvester

import (
	"log/slog"
	"path"
	"strconv"
	"strings"
)

// planEntry is one (URI, duration) pair scheduled for processing this cycle.
type planEntry struct {
	uri      string
	duration float64 // seconds; zero for the init element
}

// reconcileTrack converts a track's segment index plus the last-processed URI
// from the prior cycle into the ordered plan for this cycle: element 0 is
// always the init segment, followed by every segment strictly after the last
// processed one, in index order.
//
// When lastURI is empty (cold start) or does not appear anywhere in the index
// (manifest too short, lost continuity), the plan falls back to the trailing
// MaxSegments references so the track still makes forward progress. "Not
// found" is the only fallback trigger. An empty index yields a nil plan and
// the track is skipped for the cycle.
func (e *Engine) reconcileTrack(tr Track, refs []SegmentReference, lastURI string) []planEntry {
	if len(refs) == 0 {
		return nil
	}

	var init *SegmentReference
	candidates := make([]planEntry, 0, len(refs))
	var fresh []planEntry
	found := false
	for i := range refs {
		ref := refs[i]
		if ref.IsInit {
			if init == nil {
				init = &ref
			}
			continue
		}
		candidates = append(candidates, planEntry{uri: ref.URI, duration: ref.Duration()})
		if found {
			fresh = append(fresh, planEntry{uri: ref.URI, duration: ref.Duration()})
		}
		if ref.URI == lastURI {
			found = true
		}
	}

	if init == nil {
		e.log.Warn("segment index has no init reference, skipping track",
			slog.String("track", tr.Name))
		return nil
	}

	if !found {
		if lastURI != "" {
			e.log.Warn("last processed segment not in index, taking trailing window",
				slog.String("track", tr.Name),
				slog.String("last_uri", lastURI))
		}
		fresh = candidates
		if len(fresh) > e.cfg.MaxSegments {
			fresh = fresh[len(fresh)-e.cfg.MaxSegments:]
		}
	} else if len(fresh) > 0 {
		e.checkContinuity(tr, lastURI, fresh[0].uri)
	}

	plan := make([]planEntry, 0, len(fresh)+1)
	plan = append(plan, planEntry{uri: init.URI})
	return append(plan, fresh...)
}

// checkContinuity logs a diagnostic when the first newly-discovered segment
// does not directly follow the last processed one. Informational only:
// playback continuity is still attempted.
func (e *Engine) checkContinuity(tr Track, lastURI, nextURI string) {
	lastSeq, okLast := segmentSequence(lastURI)
	nextSeq, okNext := segmentSequence(nextURI)
	if !okLast || !okNext {
		return
	}
	if nextSeq != lastSeq+1 {
		e.log.Warn("segment continuity mismatch",
			slog.String("track", tr.Name),
			slog.Uint64("last_sequence", lastSeq),
			slog.Uint64("next_sequence", nextSeq))
	}
}

// segmentSequence derives a segment's position from its base file name.
// Upstream names segments with hexadecimal counters; that numbering scheme is
// a contract of the index, not something inferred here.
func segmentSequence(uri string) (uint64, bool) {
	n, err := strconv.ParseUint(segmentBaseName(uri), 16, 64)
	return n, err == nil
}

// alignPlans truncates every non-empty plan from the end to the shortest
// non-empty length so paired tracks advance in lockstep. Plans for tracks
// whose index was empty stay empty; such a track is skipped rather than
// stalling its peers.
func alignPlans(plans [][]planEntry) {
	shortest := -1
	for _, p := range plans {
		if len(p) == 0 {
			continue
		}
		if shortest < 0 || len(p) < shortest {
			shortest = len(p)
		}
	}
	if shortest < 0 {
		return
	}
	for i, p := range plans {
		if len(p) > shortest {
			plans[i] = p[:shortest]
		}
	}
}

// segmentBaseName strips directory, query string, and extension from a
// segment URI.
func segmentBaseName(uri string) string {
	base := path.Base(uri)
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

// segmentExt returns the file extension of a segment URI, defaulting to .m4s
// when the URI carries none.
func segmentExt(uri string) string {
	base := path.Base(uri)
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	if ext := path.Ext(base); ext != "" {
		return ext
	}
	return ".m4s"
}
