package harvester

import (
	"context"
	"time"
)

// Canonical track names. The engine handles any ordered set of named tracks;
// the stock driver configures exactly these two.
const (
	TrackAudio = "audio"
	TrackVideo = "video"
)

// mediaExt is the extension of every committed media file.
const mediaExt = ".mp4"

// SegmentReference is one entry of an upstream segment index.
// Immutable once read from the index.
type SegmentReference struct {
	URI       string
	StartTime float64 // seconds, track-local clock
	EndTime   float64
	IsInit    bool
}

// Duration returns the playable span in seconds. Init references span zero.
func (r SegmentReference) Duration() float64 {
	return r.EndTime - r.StartTime
}

// Track describes one named media track handled by the engine.
type Track struct {
	Name         string // subdirectory name under the result/download/merge roots
	PlaylistName string // playlist file name under resultPath/<Name>/
}

// ContinuityToken maps track name to the URI of the last segment committed
// for that track. The driver threads it from one cycle into the next; a
// missing entry means cold start for that track.
type ContinuityToken map[string]string

func (t ContinuityToken) clone() ContinuityToken {
	out := make(ContinuityToken, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// DecryptionJob describes one invocation of the external decryption tool.
// Ephemeral: it exists only for the duration of that invocation.
type DecryptionJob struct {
	KeyID       string
	Key         string
	InputPath   string
	OutputPath  string
	WorkDir     string
	TrackSubdir string
}

// Fetcher downloads the payload at uri into destPath. The destination
// directory must already exist. Implementations do not retry.
type Fetcher interface {
	Fetch(ctx context.Context, uri, destPath string) error
}

// Decryptor runs one decryption job to completion.
type Decryptor interface {
	Decrypt(ctx context.Context, job DecryptionJob) error
}

// Config carries everything the engine needs for cycle processing.
type Config struct {
	ResultPath   string
	DownloadPath string
	MergePath    string

	// MaxSegments bounds the playlist window per track.
	MaxSegments int

	// Tracks is the ordered set of tracks processed each cycle.
	Tracks []Track

	DecryptKeyID string
	DecryptKey   string

	// UpdateDuration is the nominal manifest refresh period of the driver;
	// the pacer subtracts it from the cycle's processing time.
	UpdateDuration time.Duration
}
