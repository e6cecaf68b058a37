package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/usecase"
)

type LabelHandler struct {
	usecase usecase.LabelUsecase
	logger  *zap.Logger
}

func NewLabelHandler(usecase usecase.LabelUsecase, logger *zap.Logger) *LabelHandler {
	return &LabelHandler{
		usecase: usecase,
		logger:  logger,
	}
}

func (h *LabelHandler) labelError(c *fiber.Ctx, err error, code string) error {
	if errors.Is(err, usecase.ErrInvalidMainNumber) {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.ErrCodeInvalidRequest, err.Error()),
		)
	}
	h.logger.Error("Label request failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(
		entity.NewErrorResponse(code, err.Error()),
	)
}

// Preview godoc
// @Summary Preview a label
// @Description Build the label text (and output file name) for a number pair
// @Tags labels
// @Accept json
// @Produce json
// @Param request body LabelRequest true "Label request"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Router /api/v1/labels/preview [post]
func (h *LabelHandler) Preview(c *fiber.Ctx) error {
	var req LabelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.ErrCodeInvalidRequest, "Invalid request body: "+err.Error()),
		)
	}

	preview, err := h.usecase.Preview(c.UserContext(), req.toEntity())
	if err != nil {
		return h.labelError(c, err, entity.ErrCodeConfigStore)
	}

	return c.JSON(entity.NewSuccessResponse(preview, "Label built"))
}

// Image godoc
// @Summary Render a label
// @Description Render the label as a transparent PNG with the stored font size, rotation and color
// @Tags labels
// @Accept json
// @Produce png
// @Param request body LabelRequest true "Label request"
// @Success 200 {file} binary
// @Failure 400 {object} entity.APIResponse
// @Router /api/v1/labels/image [post]
func (h *LabelHandler) Image(c *fiber.Ctx) error {
	var req LabelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.ErrCodeInvalidRequest, "Invalid request body: "+err.Error()),
		)
	}

	png, err := h.usecase.RenderPNG(c.UserContext(), req.toEntity())
	if err != nil {
		return h.labelError(c, err, entity.ErrCodeRender)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// Number godoc
// @Summary Auto-number jobs
// @Description Assign main numbers from start_main to the jobs in order
// @Tags labels
// @Accept json
// @Produce json
// @Param request body JobsRequest true "Jobs to number"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Router /api/v1/numbering [post]
func (h *LabelHandler) Number(c *fiber.Ctx) error {
	var req JobsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.ErrCodeInvalidRequest, "Invalid request body: "+err.Error()),
		)
	}

	jobs, err := h.usecase.Number(c.UserContext(), toJobs(req.Jobs))
	if err != nil {
		return h.labelError(c, err, entity.ErrCodeConfigStore)
	}

	return c.JSON(entity.NewSuccessResponse(jobs, "Jobs numbered"))
}
