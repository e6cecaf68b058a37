package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"go.uber.org/zap"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/evidence"
	"evidence-stamp/internal/infrastructure/document"
	"evidence-stamp/internal/label"
	"evidence-stamp/internal/pdfstamp"
)

type memoryStore struct {
	cfg   entity.StampConfig
	saves int
	err   error
}

func newMemoryStore(cfg entity.StampConfig) *memoryStore {
	return &memoryStore{cfg: cfg}
}

func (m *memoryStore) Load(ctx context.Context) (entity.StampConfig, error) {
	if m.err != nil {
		return entity.StampConfig{}, m.err
	}
	return m.cfg, nil
}

func (m *memoryStore) Save(ctx context.Context, cfg entity.StampConfig) error {
	if m.err != nil {
		return m.err
	}
	m.cfg = cfg
	m.saves++
	return nil
}

type recordingHistory struct {
	runs []entity.BatchRun
	jobs [][]entity.JobResult
}

func (h *recordingHistory) SaveRun(ctx context.Context, run *entity.BatchRun, jobs []entity.JobResult) error {
	h.runs = append(h.runs, *run)
	h.jobs = append(h.jobs, jobs)
	return nil
}

func (h *recordingHistory) ListRuns(ctx context.Context, limit int) ([]entity.BatchRun, error) {
	if len(h.runs) > limit {
		return h.runs[:limit], nil
	}
	return h.runs, nil
}

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{}
	cfg.Font.Path = filepath.Join(t.TempDir(), "missing.ttf")
	cfg.Stamp.RenderScale = 1
	cfg.Stamp.MaxNameCollisions = 100
	return cfg
}

func newTestBatchUsecase(t *testing.T, stampCfg entity.StampConfig) (*batchUsecase, *recordingHistory) {
	t.Helper()
	cfg := testConfig(t)
	logger := zap.NewNop()
	docs := document.NewDocumentService(cfg, logger)
	history := &recordingHistory{}

	u := NewBatchUsecase(
		cfg,
		newMemoryStore(stampCfg),
		history,
		docs,
		pdfstamp.NewStamper(label.NewRenderer(cfg, logger), docs, logger),
		evidence.NewGenerator(docs, logger),
		logger,
	).(*batchUsecase)
	return u, history
}

func writeFixturePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("%s page %d", name, i+1))
	}

	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}
