package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Store manages the temp directory holding conversion artifacts.
type Store struct {
	TempDir string
}

// NewStore creates a filesystem adapter rooted at tempDir.
func NewStore(tempDir string) *Store {
	return &Store{TempDir: tempDir}
}

// EnsureDirs creates the artifact root. Failure here is fatal at startup.
func (s *Store) EnsureDirs() error {
	return os.MkdirAll(s.TempDir, 0o755)
}

// ArtifactPath validates an artifact name and returns its absolute path.
// Names carrying path separators or escaping the root are rejected.
func (s *Store) ArtifactPath(name string) (string, error) {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" || cleaned != filepath.Base(cleaned) {
		return "", errors.New("invalid file name")
	}
	full := filepath.Join(s.TempDir, cleaned)
	if !isWithinDir(s.TempDir, full) {
		return "", errors.New("invalid file path")
	}
	return full, nil
}

// Open returns a readable handle and stat info for a stored artifact.
func (s *Store) Open(name string) (*os.File, os.FileInfo, error) {
	full, err := s.ArtifactPath(name)
	if err != nil {
		return nil, nil, err
	}
	file, err := os.Open(full)
	if err != nil {
		return nil, nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return file, info, nil
}

// Remove deletes a stored artifact.
func (s *Store) Remove(name string) error {
	full, err := s.ArtifactPath(name)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// CleanupOldFiles deletes artifacts older than maxAge and returns the count.
func (s *Store) CleanupOldFiles(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.TempDir)
	if err != nil {
		return 0, err
	}

	now := time.Now()
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(filepath.Join(s.TempDir, entry.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}

// DirSize returns the total size of stored artifacts in bytes.
func (s *Store) DirSize() (int64, error) {
	entries, err := os.ReadDir(s.TempDir)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, err := entry.Info(); err == nil {
			total += info.Size()
		}
	}
	return total, nil
}

// StartCleanup periodically removes stale artifacts until ctx is done.
func (s *Store) StartCleanup(ctx context.Context, interval, maxAge time.Duration, logger *logrus.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.CleanupOldFiles(maxAge)
				if err != nil {
					logger.WithError(err).Error("artifact cleanup failed")
					continue
				}
				if deleted > 0 {
					logger.WithField("deleted", deleted).Info("cleaned up stale artifacts")
				}
			}
		}
	}()
}

func isWithinDir(basePath, targetPath string) bool {
	baseAbs, err := filepath.Abs(basePath)
	if err != nil {
		return false
	}
	targetAbs, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(baseAbs, targetAbs)
	if err != nil {
		return false
	}
	sep := string(os.PathSeparator)
	if rel == ".." || strings.HasPrefix(rel, ".."+sep) {
		return false
	}
	return true
}
