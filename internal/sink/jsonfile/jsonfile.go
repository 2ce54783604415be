// Package jsonfile writes the run report to a local JSON file.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"omnicart/internal/sink"
)

// ErrNoPath is returned when the sink has no destination.
var ErrNoPath = errors.New("jsonfile: path is empty")

// Sink writes the report with two-space indentation. The file is replaced
// atomically: readers see either the previous report or the new one.
type Sink struct {
	path string
	perm os.FileMode
}

var _ sink.Sink = (*Sink)(nil)

// New returns a Sink writing to path.
func New(path string) *Sink { return &Sink{path: path, perm: 0o644} }

// Name implements sink.Sink.
func (s *Sink) Name() string { return "jsonfile" }

// Path returns the destination file.
func (s *Sink) Path() string { return s.path }

// Write implements sink.Sink. Missing parent directories are created.
func (s *Sink) Write(ctx context.Context, res sink.Result) error {
	if s.path == "" {
		return ErrNoPath
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := res.Report.MarshalIndent()
	if err != nil {
		return fmt.Errorf("jsonfile: encode report: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("jsonfile: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close: %w", err)
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return fmt.Errorf("jsonfile: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("jsonfile: rename: %w", err)
	}
	return nil
}
