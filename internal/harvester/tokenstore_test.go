package harvester

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileTokenStore_round_trip(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "continuity.json"))

	token := ContinuityToken{
		TrackAudio: "https://cdn.example/stream/audio/0000000a.m4s",
		TrackVideo: "https://cdn.example/stream/video/0000000a.m4s",
	}
	if err := store.Save(token); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded[TrackAudio] != token[TrackAudio] || loaded[TrackVideo] != token[TrackVideo] {
		t.Errorf("expected %v, got %v", token, loaded)
	}
}

func TestFileTokenStore_missing_file_is_cold_start(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "continuity.json"))

	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if token == nil || len(token) != 0 {
		t.Errorf("expected empty token, got %v", token)
	}
}

func TestFileTokenStore_rejects_corrupt_file(t *testing.T) {
	path := filepath.Join(t.TempDir(), "continuity.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileTokenStore(path).Load(); err == nil {
		t.Error("expected error for corrupt token file")
	}
}
