// Package transport delivers generated CI Load documents: to a local output
// directory or to an S3 bucket.
package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Delivery is one generated document ready to hand off.
type Delivery struct {
	// Name is the output file name, already expanded from the name format.
	Name           string
	Data           []byte
	CustomerNumber string
	FileNumber     string
	Dialect        string
}

// Sink accepts deliveries. Deliver returns where the document ended up.
type Sink interface {
	Deliver(ctx context.Context, d Delivery) (string, error)
}

// DirSink writes documents into a directory, with an optional archive copy.
type DirSink struct {
	Dir        string
	ArchiveDir string
}

// NewDirSink creates the target directories if needed.
func NewDirSink(dir, archiveDir string) (*DirSink, error) {
	for _, d := range []string{dir, archiveDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return &DirSink{Dir: dir, ArchiveDir: archiveDir}, nil
}

// Deliver writes the document through a temporary file so readers polling
// the directory never see a partial document.
func (s *DirSink) Deliver(ctx context.Context, d Delivery) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if d.Name == "" || filepath.Base(d.Name) != d.Name {
		return "", fmt.Errorf("invalid output name %q", d.Name)
	}

	path := filepath.Join(s.Dir, d.Name)
	if err := writeAtomic(path, d.Data); err != nil {
		return "", err
	}

	if s.ArchiveDir != "" {
		if err := writeAtomic(filepath.Join(s.ArchiveDir, d.Name), d.Data); err != nil {
			return "", fmt.Errorf("failed to archive output: %w", err)
		}
	}
	return path, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ciload-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
