package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/infrastructure/database"
	"evidence-stamp/internal/label"
	"evidence-stamp/updater"
)

type HealthHandler struct {
	config   *config.Config
	db       *database.Database
	renderer *label.Renderer
}

func NewHealthHandler(cfg *config.Config, db *database.Database, renderer *label.Renderer) *HealthHandler {
	return &HealthHandler{
		config:   cfg,
		db:       db,
		renderer: renderer,
	}
}

type HealthResponse struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	StoreBackend string    `json:"store_backend"`
	History      bool      `json:"history"`
	Font         string    `json:"font"`
}

// Health godoc
// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} entity.APIResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(entity.NewSuccessResponse(HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Version:      updater.Version,
		StoreBackend: h.config.Store.Backend,
		History:      h.db.Enabled(),
		Font:         h.renderer.FontName(),
	}, "Service is healthy"))
}
