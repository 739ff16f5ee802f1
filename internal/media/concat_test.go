package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConcat_joins_sources_in_order(t *testing.T) {
	dir := t.TempDir()
	initPath := filepath.Join(dir, "init.mp4")
	segPath := filepath.Join(dir, "0000000a.m4s")
	if err := os.WriteFile(initPath, []byte("INIT"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(segPath, []byte("MEDIA"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "0000000a.mp4")
	if err := Concat(dest, initPath, segPath); err != nil {
		t.Fatalf("Concat: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "INITMEDIA" {
		t.Errorf("expected init payload first, got %q", data)
	}
}

func TestConcat_missing_source(t *testing.T) {
	dir := t.TempDir()
	if err := Concat(filepath.Join(dir, "out"), filepath.Join(dir, "missing")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestConcat_no_sources(t *testing.T) {
	if err := Concat(filepath.Join(t.TempDir(), "out")); err == nil {
		t.Error("expected error with no sources")
	}
}

func TestConcat_overwrites_existing_destination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dest := filepath.Join(dir, "dest")
	if err := os.WriteFile(src, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dest, []byte("old old old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Concat(dest, src); err != nil {
		t.Fatalf("Concat: %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "new" {
		t.Errorf("expected destination truncated, got %q", data)
	}
}
