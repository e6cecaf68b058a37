package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/usecase"
)

type ConfigHandler struct {
	usecase usecase.ConfigUsecase
	logger  *zap.Logger
}

func NewConfigHandler(usecase usecase.ConfigUsecase, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// GetConfig godoc
// @Summary Get stamp settings
// @Tags config
// @Produce json
// @Success 200 {object} entity.APIResponse
// @Failure 500 {object} entity.APIResponse
// @Router /api/v1/config [get]
func (h *ConfigHandler) GetConfig(c *fiber.Ctx) error {
	cfg, err := h.usecase.Get(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to load stamp config", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse(entity.ErrCodeConfigStore, err.Error()),
		)
	}

	return c.JSON(entity.NewSuccessResponse(cfg, "Config retrieved successfully"))
}

// UpdateConfig godoc
// @Summary Update stamp settings
// @Description Merge the given keys into the stored settings
// @Tags config
// @Accept json
// @Produce json
// @Param request body entity.StampConfigPatch true "Settings to change"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 500 {object} entity.APIResponse
// @Router /api/v1/config [put]
func (h *ConfigHandler) UpdateConfig(c *fiber.Ctx) error {
	var patch entity.StampConfigPatch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.ErrCodeInvalidRequest, "Invalid request body: "+err.Error()),
		)
	}

	cfg, err := h.usecase.Update(c.UserContext(), patch)
	if err != nil {
		h.logger.Error("Failed to update stamp config", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse(entity.ErrCodeConfigStore, err.Error()),
		)
	}

	return c.JSON(entity.NewSuccessResponse(cfg, "Config updated successfully"))
}

// ResetConfig godoc
// @Summary Reset stamp settings to defaults
// @Tags config
// @Produce json
// @Success 200 {object} entity.APIResponse
// @Failure 500 {object} entity.APIResponse
// @Router /api/v1/config/reset [post]
func (h *ConfigHandler) ResetConfig(c *fiber.Ctx) error {
	cfg, err := h.usecase.Reset(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to reset stamp config", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse(entity.ErrCodeConfigStore, err.Error()),
		)
	}

	return c.JSON(entity.NewSuccessResponse(cfg, "Config reset to defaults"))
}
