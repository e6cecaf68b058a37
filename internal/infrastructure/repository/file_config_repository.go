package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/domain/repository"
)

type fileStampConfigRepository struct {
	path   string
	logger *zap.Logger
}

// NewFileStampConfigRepository stores the stamp settings as a JSON document at path.
func NewFileStampConfigRepository(path string, logger *zap.Logger) repository.StampConfigRepository {
	return &fileStampConfigRepository{
		path:   path,
		logger: logger,
	}
}

func (r *fileStampConfigRepository) Load(ctx context.Context) (entity.StampConfig, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entity.DefaultStampConfig(), nil
	}
	if err != nil {
		r.logger.Error("Failed to read stamp config",
			zap.String("path", r.path),
			zap.Error(err),
		)
		return entity.StampConfig{}, fmt.Errorf("failed to read stamp config: %w", err)
	}

	return decodeStampConfig(data, r.path, r.logger), nil
}

// Save writes through a temp file in the same directory and renames it over
// the target, so readers never see a partial document.
func (r *fileStampConfigRepository) Save(ctx context.Context, cfg entity.StampConfig) error {
	data, err := encodeStampConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode stamp config: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stamp-config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write stamp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write stamp config: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		r.logger.Error("Failed to save stamp config",
			zap.String("path", r.path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save stamp config: %w", err)
	}

	r.logger.Debug("Stamp config saved", zap.String("path", r.path))
	return nil
}
