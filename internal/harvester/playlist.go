package harvester

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

const (
	playlistHeaderTag  = "#EXTM3U"
	playlistVersionTag = "#EXT-X-VERSION:7"
	targetDurationTag  = "#EXT-X-TARGETDURATION:"
	mediaSequenceTag   = "#EXT-X-MEDIA-SEQUENCE:"
	segmentEntryTag    = "#EXTINF:"
)

// playlistWindow is the bounded FIFO manifest of one track: a header followed
// by at most max two-line entries (duration directive, file name). The
// media-sequence header always equals the absolute index of the oldest entry
// still present.
type playlistWindow struct {
	path  string
	max   int
	lines []string
}

// loadPlaylistWindow reads the playlist at path, or initializes a fresh
// header when no playlist exists yet.
func loadPlaylistWindow(path string, max int) (*playlistWindow, error) {
	w := &playlistWindow{path: path, max: max}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		w.lines = []string{
			playlistHeaderTag,
			playlistVersionTag,
			targetDurationTag + "1",
			mediaSequenceTag + "0",
		}
		return w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read playlist %s: %w", path, err)
	}
	w.lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	return w, nil
}

// entryCount returns the number of segment entries currently in the window.
func (w *playlistWindow) entryCount() int {
	n := 0
	for _, line := range w.lines {
		if strings.HasPrefix(line, segmentEntryTag) {
			n++
		}
	}
	return n
}

// append adds one segment entry, evicting the oldest entry (and deleting its
// backing media file) once the window is at capacity, then rewrites the whole
// playlist file. Returns the evicted file name, if any.
func (w *playlistWindow) append(duration float64, filename string) (evicted string, err error) {
	if w.entryCount() >= w.max {
		evicted, err = w.evictOldest()
		if err != nil {
			return "", err
		}
	}
	w.bumpTargetDuration(duration)
	w.lines = append(w.lines,
		fmt.Sprintf("%s%.3f,", segmentEntryTag, duration),
		filename,
	)
	return evicted, w.persist()
}

// evictOldest removes the first segment entry from the line sequence, bumps
// the media-sequence header by exactly one, and deletes the evicted media
// file. A file is never deleted while its entry is still present.
func (w *playlistWindow) evictOldest() (string, error) {
	for i, line := range w.lines {
		if !strings.HasPrefix(line, segmentEntryTag) {
			continue
		}
		if i+1 >= len(w.lines) {
			return "", fmt.Errorf("playlist %s: entry %q has no file name line", w.path, line)
		}
		name := w.lines[i+1]
		w.lines = append(w.lines[:i], w.lines[i+2:]...)
		if err := w.incrementMediaSequence(); err != nil {
			return "", err
		}
		if err := os.Remove(filepath.Join(filepath.Dir(w.path), name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("remove evicted segment %s: %w", name, err)
		}
		return name, nil
	}
	return "", nil
}

func (w *playlistWindow) incrementMediaSequence() error {
	for i, line := range w.lines {
		value, ok := strings.CutPrefix(line, mediaSequenceTag)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("playlist %s: bad media sequence %q: %w", w.path, value, err)
		}
		w.lines[i] = mediaSequenceTag + strconv.Itoa(n+1)
		return nil
	}
	return fmt.Errorf("playlist %s: no media sequence header", w.path)
}

// bumpTargetDuration raises the target-duration header when a longer segment
// arrives. HLS requires it to be at least the ceiling of every EXTINF value.
func (w *playlistWindow) bumpTargetDuration(duration float64) {
	target := int(math.Ceil(duration))
	if target < 1 {
		target = 1
	}
	for i, line := range w.lines {
		value, ok := strings.CutPrefix(line, targetDurationTag)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && n >= target {
			return
		}
		w.lines[i] = targetDurationTag + strconv.Itoa(target)
		return
	}
}

// persist rewrites the playlist file atomically (write-through: the on-disk
// playlist always matches the in-memory line sequence after every mutation).
func (w *playlistWindow) persist() error {
	data := strings.Join(w.lines, "\n") + "\n"
	return renameio.WriteFile(w.path, []byte(data), 0o644)
}
