package repository

import (
	"context"

	"evidence-stamp/internal/domain/entity"
)

// StampConfigRepository persists the user-editable stamp settings.
type StampConfigRepository interface {
	// Load returns the stored settings. Missing keys take their defaults and
	// a missing document yields DefaultStampConfig.
	Load(ctx context.Context) (entity.StampConfig, error)

	// Save replaces the stored settings
	Save(ctx context.Context, cfg entity.StampConfig) error
}
