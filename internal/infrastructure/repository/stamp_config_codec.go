package repository

import (
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
)

// decodeStampConfig overlays a stored document onto the defaults. Unknown
// keys are ignored; a malformed document falls back to the defaults.
func decodeStampConfig(data []byte, source string, logger *zap.Logger) entity.StampConfig {
	cfg := entity.DefaultStampConfig()
	if len(data) == 0 {
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Well-formed JSON with a bad field; keep what decoded.
			logger.Warn("Stamp config has an invalid field, using default for it",
				zap.String("source", source),
				zap.String("field", typeErr.Field),
				zap.Error(err),
			)
			return cfg
		}
		logger.Warn("Stamp config is unreadable, using defaults",
			zap.String("source", source),
			zap.Error(err),
		)
		return entity.DefaultStampConfig()
	}
	return cfg
}

func encodeStampConfig(cfg entity.StampConfig) ([]byte, error) {
	return json.MarshalIndent(cfg, "", "  ")
}
