// Package media provides byte-level utilities for reassembling fetched
// segment payloads.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Concat joins the given source files, in order, into one file at destPath.
// The harvester uses it to prepend a track's initialization payload to each
// media payload before decryption.
func Concat(destPath string, srcPaths ...string) error {
	if len(srcPaths) == 0 {
		return errors.New("concat: no source files")
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	for _, srcPath := range srcPaths {
		src, err := os.Open(srcPath)
		if err != nil {
			dst.Close()
			return fmt.Errorf("open %s: %w", srcPath, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		if err != nil {
			dst.Close()
			return fmt.Errorf("append %s to %s: %w", srcPath, destPath, err)
		}
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", destPath, err)
	}
	return nil
}
