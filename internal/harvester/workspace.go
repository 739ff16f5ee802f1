package harvester

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ensureWorkspace creates the result, download, and merge roots with their
// per-track subdirectories. Missing directories are self-healed; creating an
// existing directory is not an error.
func ensureWorkspace(cfg Config) error {
	for _, root := range []string{cfg.ResultPath, cfg.DownloadPath, cfg.MergePath} {
		for _, tr := range cfg.Tracks {
			dir := filepath.Join(root, tr.Name)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return newWorkspaceError(fmt.Errorf("create %s: %w", dir, err))
			}
		}
	}
	return nil
}

// clearScratch empties the per-track download and merge subdirectories,
// restoring them for the next cycle. Unconditional: intermediate artifacts
// are discarded to bound disk use. Best-effort; a failed removal is logged,
// not fatal.
func (e *Engine) clearScratch() {
	for _, root := range []string{e.cfg.DownloadPath, e.cfg.MergePath} {
		for _, tr := range e.cfg.Tracks {
			dir := filepath.Join(root, tr.Name)
			entries, err := os.ReadDir(dir)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					e.log.Warn("clear scratch", slog.String("dir", dir), slog.String("error", err.Error()))
				}
				continue
			}
			for _, entry := range entries {
				if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
					e.log.Warn("clear scratch", slog.String("dir", dir), slog.String("error", err.Error()))
				}
			}
		}
	}
}
