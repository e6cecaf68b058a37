package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/domain/repository"
	"evidence-stamp/internal/usecase"
)

type BatchHandler struct {
	usecase usecase.BatchUsecase
	logger  *zap.Logger
}

func NewBatchHandler(usecase usecase.BatchUsecase, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// Validate godoc
// @Summary Validate a batch
// @Description Run the pre-flight checks only; nothing is stamped
// @Tags batches
// @Accept json
// @Produce json
// @Param request body JobsRequest true "Jobs to check"
// @Success 200 {object} entity.APIResponse
// @Failure 422 {object} entity.APIResponse
// @Router /api/v1/batches/validate [post]
func (h *BatchHandler) Validate(c *fiber.Ctx) error {
	var req JobsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.ErrCodeInvalidRequest, "Invalid request body: "+err.Error()),
		)
	}

	report := h.usecase.Validate(c.UserContext(), toJobs(req.Jobs))
	if !report.OK() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(
			entity.NewErrorResponseWithData(
				entity.ErrCodeValidation,
				fmt.Sprintf("%d of %d jobs failed validation", len(report.Issues), report.Total),
				report,
			),
		)
	}

	return c.JSON(entity.NewSuccessResponse(report, "All jobs are valid"))
}

// Run godoc
// @Summary Run a batch
// @Description Validate, stamp every job in order and build the evidence index
// @Tags batches
// @Accept json
// @Produce json
// @Param request body BatchRequest true "Batch request"
// @Success 200 {object} entity.APIResponse
// @Failure 400 {object} entity.APIResponse
// @Failure 409 {object} entity.APIResponse
// @Failure 500 {object} entity.APIResponse
// @Router /api/v1/batches [post]
func (h *BatchHandler) Run(c *fiber.Ctx) error {
	var req BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			entity.NewErrorResponse(entity.ErrCodeInvalidRequest, "Invalid request body: "+err.Error()),
		)
	}

	result, err := h.usecase.Run(c.UserContext(), &entity.BatchRequest{
		OutDir: req.OutDir,
		Jobs:   toJobs(req.Jobs),
		Index:  req.Index,
	})
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrBatchBusy):
			return c.Status(fiber.StatusConflict).JSON(
				entity.NewErrorResponse(entity.ErrCodeBatchBusy, err.Error()),
			)
		case errors.Is(err, usecase.ErrOutputDir):
			return c.Status(fiber.StatusBadRequest).JSON(
				entity.NewErrorResponse(entity.ErrCodeOutputDir, err.Error()),
			)
		case errors.Is(err, usecase.ErrNoJobs):
			return c.Status(fiber.StatusBadRequest).JSON(
				entity.NewErrorResponse(entity.ErrCodeInvalidRequest, err.Error()),
			)
		}
		h.logger.Error("Batch failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse(entity.ErrCodeInternal, err.Error()),
		)
	}

	msg := fmt.Sprintf("Batch finished: %d succeeded, %d failed, %d skipped",
		result.Succeeded, result.Failed, result.Skipped)
	return c.JSON(entity.NewSuccessResponse(result, msg))
}

// List godoc
// @Summary Recent batches
// @Tags batches
// @Produce json
// @Param limit query int false "Maximum rows" default(20)
// @Success 200 {object} entity.APIResponse
// @Failure 503 {object} entity.APIResponse
// @Router /api/v1/batches [get]
func (h *BatchHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	runs, err := h.usecase.History(c.UserContext(), limit)
	if err != nil {
		if errors.Is(err, repository.ErrHistoryDisabled) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(
				entity.NewErrorResponse(entity.ErrCodeHistory, err.Error()),
			)
		}
		h.logger.Error("Failed to list batches", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			entity.NewErrorResponse(entity.ErrCodeInternal, err.Error()),
		)
	}

	return c.JSON(entity.NewSuccessResponse(runs, "Batches retrieved successfully"))
}
