package documents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DiskSaver writes downloads into a directory.
type DiskSaver struct {
	Dir string
}

func (s DiskSaver) SaveBinary(_ context.Context, data []byte, fileName, _ string) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, filepath.Base(fileName)), data, 0o644)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, data []byte, fileName, mimeType string) error

func (f SaverFunc) SaveBinary(ctx context.Context, data []byte, fileName, mimeType string) error {
	return f(ctx, data, fileName, mimeType)
}
