package harvester

import (
	"bytes"
	"strings"
	"testing"

	"hls-harvester/internal/platform/logger"
)

func reconcileEngine(maxSegments int) *Engine {
	return NewEngine(Config{MaxSegments: maxSegments}, nil, nil, nil, nil)
}

func TestReconcileTrack_init_always_first_with_zero_duration(t *testing.T) {
	e := reconcileEngine(3)
	refs := trackRefs(TrackVideo, 2, 6.0)

	plan := e.reconcileTrack(Track{Name: TrackVideo}, refs, "")
	if len(plan) == 0 {
		t.Fatal("expected non-empty plan for non-empty index")
	}
	if plan[0].uri != refs[0].URI {
		t.Errorf("expected init first, got %s", plan[0].uri)
	}
	if plan[0].duration != 0 {
		t.Errorf("expected init duration 0, got %f", plan[0].duration)
	}
}

func TestReconcileTrack_returns_segments_strictly_after_last(t *testing.T) {
	e := reconcileEngine(3)
	refs := trackRefs(TrackVideo, 5, 6.0)

	plan := e.reconcileTrack(Track{Name: TrackVideo}, refs, refs[2].URI)
	if len(plan) != 4 {
		t.Fatalf("expected [init, seg3, seg4, seg5], got %d elements", len(plan))
	}
	for i, ref := range refs[3:] {
		if plan[i+1].uri != ref.URI {
			t.Errorf("element %d: expected %s, got %s", i+1, ref.URI, plan[i+1].uri)
		}
		if plan[i+1].duration != 6.0 {
			t.Errorf("element %d: expected duration 6.0, got %f", i+1, plan[i+1].duration)
		}
	}
}

func TestReconcileTrack_no_new_segments(t *testing.T) {
	e := reconcileEngine(3)
	refs := trackRefs(TrackVideo, 5, 6.0)

	plan := e.reconcileTrack(Track{Name: TrackVideo}, refs, refs[5].URI)
	if len(plan) != 1 {
		t.Fatalf("expected init-only plan, got %d elements", len(plan))
	}
}

func TestReconcileTrack_last_uri_not_found_takes_trailing_window(t *testing.T) {
	e := reconcileEngine(4)
	refs := trackRefs(TrackVideo, 10, 6.0)

	plan := e.reconcileTrack(Track{Name: TrackVideo}, refs, "https://cdn.example/stream/video/gone.m4s")
	if len(plan) != 5 {
		t.Fatalf("expected init + trailing 4, got %d elements", len(plan))
	}
	if plan[1].uri != refs[7].URI {
		t.Errorf("expected window to start at segment 7, got %s", plan[1].uri)
	}
	if plan[4].uri != refs[10].URI {
		t.Errorf("expected window to end at segment 10, got %s", plan[4].uri)
	}
}

func TestReconcileTrack_cold_start_takes_trailing_window(t *testing.T) {
	e := reconcileEngine(4)
	refs := trackRefs(TrackVideo, 3, 6.0)

	// Fewer segments than the window: take them all.
	plan := e.reconcileTrack(Track{Name: TrackVideo}, refs, "")
	if len(plan) != 4 {
		t.Fatalf("expected init + all 3 segments, got %d elements", len(plan))
	}
}

func TestReconcileTrack_empty_index(t *testing.T) {
	e := reconcileEngine(3)
	if plan := e.reconcileTrack(Track{Name: TrackVideo}, nil, ""); plan != nil {
		t.Errorf("expected nil plan for empty index, got %v", plan)
	}
}

func TestReconcileTrack_index_without_init(t *testing.T) {
	e := reconcileEngine(3)
	refs := trackRefs(TrackVideo, 3, 6.0)[1:] // drop the init reference

	if plan := e.reconcileTrack(Track{Name: TrackVideo}, refs, ""); plan != nil {
		t.Errorf("expected track without init to be skipped, got %v", plan)
	}
}

func TestAlignPlans_truncates_to_shortest(t *testing.T) {
	audio := make([]planEntry, 7)
	video := make([]planEntry, 5)
	plans := [][]planEntry{audio, video}

	alignPlans(plans)
	if len(plans[0]) != 5 || len(plans[1]) != 5 {
		t.Errorf("expected both plans at 5, got %d and %d", len(plans[0]), len(plans[1]))
	}
}

func TestAlignPlans_skips_empty_plans(t *testing.T) {
	video := make([]planEntry, 5)
	plans := [][]planEntry{nil, video}

	alignPlans(plans)
	if len(plans[0]) != 0 {
		t.Errorf("empty plan should stay empty")
	}
	if len(plans[1]) != 5 {
		t.Errorf("an empty peer must not stall a live track, got %d", len(plans[1]))
	}
}

func TestReconcileTrack_warns_on_sequence_gap(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(Config{MaxSegments: 6}, nil, nil, logger.NewWithWriter(&buf, "warn", "json"), nil)

	// The index jumps from segment 2 to segment 4.
	refs := []SegmentReference{
		{URI: "https://cdn.example/stream/video/init.mp4", IsInit: true},
		{URI: "https://cdn.example/stream/video/00000002.m4s", StartTime: 0, EndTime: 6},
		{URI: "https://cdn.example/stream/video/00000004.m4s", StartTime: 6, EndTime: 12},
	}

	plan := e.reconcileTrack(Track{Name: TrackVideo}, refs, refs[1].URI)
	if len(plan) != 2 {
		t.Fatalf("expected [init, seg4], got %d elements", len(plan))
	}
	if !strings.Contains(buf.String(), "continuity mismatch") {
		t.Errorf("expected continuity warning for gapped index, got %q", buf.String())
	}
}

func TestReconcileTrack_contiguous_segments_stay_silent(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(Config{MaxSegments: 6}, nil, nil, logger.NewWithWriter(&buf, "warn", "json"), nil)

	refs := trackRefs(TrackVideo, 4, 6.0)
	e.reconcileTrack(Track{Name: TrackVideo}, refs, refs[2].URI)
	if strings.Contains(buf.String(), "continuity mismatch") {
		t.Errorf("contiguous segments must not warn, got %q", buf.String())
	}
}

func TestReconcileTrack_non_hex_names_stay_silent(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(Config{MaxSegments: 6}, nil, nil, logger.NewWithWriter(&buf, "warn", "json"), nil)

	refs := []SegmentReference{
		{URI: "https://cdn.example/stream/video/init.mp4", IsInit: true},
		{URI: "https://cdn.example/stream/video/segment-2.m4s", StartTime: 0, EndTime: 6},
		{URI: "https://cdn.example/stream/video/segment-9.m4s", StartTime: 6, EndTime: 12},
	}

	e.reconcileTrack(Track{Name: TrackVideo}, refs, refs[1].URI)
	if strings.Contains(buf.String(), "continuity mismatch") {
		t.Errorf("non-hexadecimal names disable the diagnostic, got %q", buf.String())
	}
}

func TestSegmentSequence_hexadecimal_base_names(t *testing.T) {
	n, ok := segmentSequence("https://cdn.example/stream/video/0000000a.m4s")
	if !ok || n != 10 {
		t.Errorf("expected (10, true), got (%d, %v)", n, ok)
	}

	n, ok = segmentSequence("https://cdn.example/stream/video/000000ff.m4s?token=abc")
	if !ok || n != 255 {
		t.Errorf("expected query string to be ignored, got (%d, %v)", n, ok)
	}

	if _, ok := segmentSequence("https://cdn.example/stream/video/segment-10.m4s"); ok {
		t.Error("non-hexadecimal base name should not parse")
	}
}

func TestSegmentExt_defaults(t *testing.T) {
	if got := segmentExt("https://cdn.example/a/b.mp4"); got != ".mp4" {
		t.Errorf("expected .mp4, got %s", got)
	}
	if got := segmentExt("https://cdn.example/a/b"); got != ".m4s" {
		t.Errorf("expected .m4s fallback, got %s", got)
	}
}
