// Package images places catalog images on disk as <dir>/<item>/<window>.png.
package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/m3rciful/zonebot/core/logger"
	"github.com/m3rciful/zonebot/internal/domain"
)

// ErrInvalidName is returned for item ids that cannot be used as a directory name.
var ErrInvalidName = errors.New("images: invalid item name")

// MaxImageBytes bounds a single stored image.
const MaxImageBytes = 20 << 20

// Store writes images below a root directory.
type Store struct {
	dir string
}

// New returns a Store rooted at dir.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("images: directory is required")
	}
	return &Store{dir: dir}, nil
}

// Path returns the location used for (item, w).
func (s *Store) Path(item string, w domain.Window) (string, error) {
	if item == "" || item == "." || item == ".." || strings.ContainsAny(item, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, item)
	}
	return filepath.Join(s.dir, item, string(w)+".png"), nil
}

// Save stores the image read from r and returns its path. The previous image
// stays in place until the new one is fully written.
func (s *Store) Save(ctx context.Context, item string, w domain.Window, r io.Reader) (string, error) {
	path, err := s.Path(item, w)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if n > MaxImageBytes {
		return "", fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, string(w)+".png.tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		return "", fmt.Errorf("write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("rename to %s: %w", path, err)
	}

	logger.Info(ctx, "catalog", "image.saved",
		slog.String("item", item),
		slog.String("window", string(w)),
		slog.String("path", path),
		slog.Int64("bytes", n),
	)
	return path, nil
}
