package harvester

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// TokenStore persists the continuity token across harvester restarts so a
// restarted process resumes where the previous one stopped instead of
// resetting its window via the cold-start fallback.
// Implementations can be file-based or remote.
type TokenStore interface {
	Load() (ContinuityToken, error)
	Save(token ContinuityToken) error
}

// FileTokenStore keeps the token as JSON in a single file, written atomically.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore returns a store backed by the file at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load implements TokenStore.Load. A missing file is a cold start, not an
// error: it yields an empty token.
func (s *FileTokenStore) Load() (ContinuityToken, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ContinuityToken{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read token %s: %w", s.path, err)
	}
	var token ContinuityToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", s.path, err)
	}
	return token, nil
}

// Save implements TokenStore.Save.
func (s *FileTokenStore) Save(token ContinuityToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write token %s: %w", s.path, err)
	}
	return nil
}

var _ TokenStore = (*FileTokenStore)(nil)
