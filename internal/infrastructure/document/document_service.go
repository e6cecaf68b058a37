package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"evidence-stamp/internal/config"
)

// ErrCollisionLimit is returned when every "(N)" candidate name is taken.
var ErrCollisionLimit = errors.New("output name collision limit reached")

// DocumentService handles output file operations
type DocumentService interface {
	// EnsureDir creates dir (and parents) when missing and checks it is a directory
	EnsureDir(dir string) error

	// UniquePath returns dir/name, or the first free "name(N).ext" variant
	UniquePath(dir, name string) (string, error)

	// WriteUnique writes data under a free name in dir without ever replacing an existing file
	// Returns the path actually written
	WriteUnique(dir, name string, data []byte) (string, error)

	// Backup copies src into backupDir (or next to src when backupDir is empty)
	// Returns the backup path
	Backup(src, backupDir string) (string, error)

	// Exists reports whether path exists
	Exists(path string) bool
}

type documentService struct {
	maxCollisions int
	logger        *zap.Logger
	now           func() time.Time
}

func NewDocumentService(cfg *config.Config, logger *zap.Logger) DocumentService {
	maxCollisions := cfg.Stamp.MaxNameCollisions
	if maxCollisions < 1 {
		maxCollisions = 100
	}

	logger.Info("Document service initialized",
		zap.Int("max_name_collisions", maxCollisions),
	)

	return &documentService{
		maxCollisions: maxCollisions,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *documentService) EnsureDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("output directory is not set")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	return nil
}

func (s *documentService) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// candidate returns "base.ext" for n == 0 and "base(n).ext" otherwise.
func candidate(dir, name string, n int) string {
	if n == 0 {
		return filepath.Join(dir, name)
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, fmt.Sprintf("%s(%d)%s", base, n, ext))
}

func (s *documentService) UniquePath(dir, name string) (string, error) {
	for n := 0; n <= s.maxCollisions; n++ {
		path := candidate(dir, name, n)
		if !s.Exists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: %w", filepath.Join(dir, name), ErrCollisionLimit)
}

func (s *documentService) WriteUnique(dir, name string, data []byte) (string, error) {
	for n := 0; n <= s.maxCollisions; n++ {
		path := candidate(dir, name, n)

		// O_EXCL so a file created between the check and the write is never replaced
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to close %s: %w", path, err)
		}

		if n > 0 {
			s.logger.Info("Output name was taken, used counter suffix",
				zap.String("requested", name),
				zap.String("path", path),
			)
		}

		s.logger.Debug("File written",
			zap.String("path", path),
			zap.Int("size_bytes", len(data)),
		)
		return path, nil
	}

	return "", fmt.Errorf("%s: %w", filepath.Join(dir, name), ErrCollisionLimit)
}

func (s *documentService) Backup(src, backupDir string) (string, error) {
	ts := s.now().Format("20060102150405")

	var dst string
	if backupDir != "" {
		if err := s.EnsureDir(backupDir); err != nil {
			return "", fmt.Errorf("failed to prepare backup directory: %w", err)
		}
		name := filepath.Base(src)
		ext := filepath.Ext(name)
		dst = filepath.Join(backupDir, fmt.Sprintf("%s_backup%s%s", strings.TrimSuffix(name, ext), ts, ext))
	} else {
		dst = fmt.Sprintf("%s.%s.bak", src, ts)
	}

	s.logger.Info("Backing up source",
		zap.String("from", src),
		zap.String("to", dst),
	)

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open source for backup: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return "", fmt.Errorf("failed to copy backup: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close backup file: %w", err)
	}

	return dst, nil
}
