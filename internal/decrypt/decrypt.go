// Package decrypt wraps the external decryption executable behind the
// harvester's Decryptor capability so the engine (and its tests) never deal
// with subprocess mechanics directly.
package decrypt

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"hls-harvester/internal/harvester"
)

var commandContext = exec.CommandContext

// CLI invokes the external decryption tool. The tool takes positional
// arguments (keyID key inputPath outputPath workRoot trackSubdir) and signals
// success with exit code 0.
type CLI struct {
	binary string
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "hls-decrypt"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Decrypt runs one decryption job to completion. A non-zero exit is an error
// carrying the tool's combined output.
func (c *CLI) Decrypt(ctx context.Context, job harvester.DecryptionJob) error {
	if job.InputPath == "" {
		return errors.New("input path required")
	}
	if job.OutputPath == "" {
		return errors.New("output path required")
	}

	cmd := commandContext(ctx, c.binary,
		job.KeyID, job.Key, job.InputPath, job.OutputPath, job.WorkDir, job.TrackSubdir)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", c.binary, err, msg)
		}
		return fmt.Errorf("%s failed: %w", c.binary, err)
	}
	return nil
}

var _ harvester.Decryptor = (*CLI)(nil)
