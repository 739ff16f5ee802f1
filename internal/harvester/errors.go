package harvester

import "fmt"

// Severity classifies how an error affects the running cycle.
type Severity string

// Category groups errors by the subsystem that raised them.
type Category string

const (
	SeverityCritical Severity = "CRITICAL"
)

const (
	CategorySegment   Category = "SEGMENT"
	CategoryPlaylist  Category = "PLAYLIST"
	CategoryWorkspace Category = "WORKSPACE"
)

// Stable error codes surfaced to the driver.
const (
	CodeFetchFailed          = "SEG_FETCH_FAILED"
	CodeMergeFailed          = "SEG_MERGE_FAILED"
	CodeDecryptFailed        = "SEG_DECRYPT_FAILED"
	CodePlaylistWriteFailed  = "PLAYLIST_WRITE_FAILED"
	CodeWorkspaceSetupFailed = "WORKSPACE_SETUP_FAILED"
)

// StreamError is the structured error returned to the cycle caller. The
// engine never retries; the driver decides whether to rerun the cycle or
// abort the stream based on severity, category, and code.
type StreamError struct {
	Severity Severity
	Category Category
	Code     string
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Severity, e.Category, e.Code, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

func newSegmentError(code string, err error) *StreamError {
	return &StreamError{Severity: SeverityCritical, Category: CategorySegment, Code: code, Err: err}
}

func newPlaylistError(err error) *StreamError {
	return &StreamError{Severity: SeverityCritical, Category: CategoryPlaylist, Code: CodePlaylistWriteFailed, Err: err}
}

func newWorkspaceError(err error) *StreamError {
	return &StreamError{Severity: SeverityCritical, Category: CategoryWorkspace, Code: CodeWorkspaceSetupFailed, Err: err}
}
