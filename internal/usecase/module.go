package usecase

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"evidence-stamp/internal/evidence"
	"evidence-stamp/internal/infrastructure/document"
	"evidence-stamp/internal/label"
	"evidence-stamp/internal/pdfstamp"
)

var Module = fx.Module("usecase",
	fx.Provide(label.NewRenderer),
	fx.Provide(newStamper),
	fx.Provide(newGenerator),
	fx.Provide(NewConfigUsecase),
	fx.Provide(NewLabelUsecase),
	fx.Provide(NewBatchUsecase),
)

func newStamper(renderer *label.Renderer, docs document.DocumentService, logger *zap.Logger) *pdfstamp.Stamper {
	return pdfstamp.NewStamper(renderer, docs, logger)
}

func newGenerator(docs document.DocumentService, logger *zap.Logger) *evidence.Generator {
	return evidence.NewGenerator(docs, logger)
}
