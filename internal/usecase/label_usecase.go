package usecase

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/domain/repository"
	"evidence-stamp/internal/label"
	"evidence-stamp/internal/pdfstamp"
)

var ErrInvalidMainNumber = errors.New("main number must be a positive integer")

type LabelUsecase interface {
	// Preview builds the label text for req under the stored config
	Preview(ctx context.Context, req entity.LabelRequest) (*entity.LabelPreview, error)

	// RenderPNG renders the label for req with the stored font size, rotation and color
	RenderPNG(ctx context.Context, req entity.LabelRequest) ([]byte, error)

	// Number assigns main (and optionally branch) numbers from start_main
	Number(ctx context.Context, jobs []entity.StampJob) ([]entity.StampJob, error)
}

// LabelImageRenderer renders label PNGs.
type LabelImageRenderer interface {
	RenderPNG(text string, fontSize, rotation int, c color.NRGBA) ([]byte, image.Rectangle, error)
}

type labelUsecase struct {
	store    repository.StampConfigRepository
	renderer LabelImageRenderer
	logger   *zap.Logger
}

func NewLabelUsecase(store repository.StampConfigRepository, renderer *label.Renderer, logger *zap.Logger) LabelUsecase {
	return &labelUsecase{
		store:    store,
		renderer: renderer,
		logger:   logger,
	}
}

func (u *labelUsecase) text(cfg entity.StampConfig, req entity.LabelRequest) (string, error) {
	if req.MainNumber < 1 {
		return "", ErrInvalidMainNumber
	}
	if req.Mode != "" {
		cfg.Mode = req.Mode
	}
	if strings.TrimSpace(req.Prefix) != "" {
		cfg.Prefix = req.Prefix
	}
	return label.ForJob(cfg, entity.StampJob{MainNumber: req.MainNumber, BranchLabel: req.BranchLabel}), nil
}

func (u *labelUsecase) Preview(ctx context.Context, req entity.LabelRequest) (*entity.LabelPreview, error) {
	cfg, err := u.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	text, err := u.text(cfg, req)
	if err != nil {
		return nil, err
	}

	preview := &entity.LabelPreview{Text: text}
	if req.SourcePath != "" {
		preview.OutputName, _ = pdfstamp.OutputFileName(cfg.OutputFilenameTemplate, text, req.SourcePath)
	}
	return preview, nil
}

func (u *labelUsecase) RenderPNG(ctx context.Context, req entity.LabelRequest) ([]byte, error) {
	cfg, err := u.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	text, err := u.text(cfg, req)
	if err != nil {
		return nil, err
	}

	png, _, err := u.renderer.RenderPNG(text, cfg.EffectiveFontSize(), cfg.EffectiveRotation(), cfg.EffectiveColor())
	if err != nil {
		u.logger.Error("Failed to render label preview",
			zap.String("label", text),
			zap.Error(err),
		)
		return nil, err
	}
	return png, nil
}

func (u *labelUsecase) Number(ctx context.Context, jobs []entity.StampJob) ([]entity.StampJob, error) {
	cfg, err := u.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return AssignNumbers(cfg, jobs), nil
}
