package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/domain/repository"
	"evidence-stamp/internal/evidence"
	"evidence-stamp/internal/infrastructure/document"
	"evidence-stamp/internal/label"
	"evidence-stamp/internal/pdfstamp"
)

var (
	ErrBatchBusy = errors.New("another batch is already running")
	ErrNoJobs    = errors.New("batch has no jobs")
	ErrOutputDir = errors.New("output directory unavailable")
)

const historyLimit = 20

type BatchUsecase interface {
	// Validate runs the pre-flight checks without stamping anything
	Validate(ctx context.Context, jobs []entity.StampJob) entity.ValidationReport

	// Run validates and stamps jobs in order, then builds the evidence index
	Run(ctx context.Context, req *entity.BatchRequest) (*entity.BatchResult, error)

	// History returns recent batches, newest first
	History(ctx context.Context, limit int) ([]entity.BatchRun, error)
}

// JobStamper stamps one PDF.
type JobStamper interface {
	Stamp(ctx context.Context, req pdfstamp.Request) (*pdfstamp.Result, error)
}

// IndexGenerator writes the evidence index documents.
type IndexGenerator interface {
	Generate(ctx context.Context, entries []entity.IndexEntry, templatePath string, ictx entity.IndexContext, outDir string) (string, error)
	GenerateWorkbook(ctx context.Context, entries []entity.IndexEntry, ictx entity.IndexContext, outDir string) (string, error)
}

type batchUsecase struct {
	config    *config.Config
	store     repository.StampConfigRepository
	history   repository.BatchLogRepository
	docs      document.DocumentService
	stamper   JobStamper
	generator IndexGenerator
	logger    *zap.Logger

	inspect func(path string) (int, error)
	now     func() time.Time
	mu      sync.Mutex
}

func NewBatchUsecase(
	cfg *config.Config,
	store repository.StampConfigRepository,
	history repository.BatchLogRepository,
	docs document.DocumentService,
	stamper *pdfstamp.Stamper,
	generator *evidence.Generator,
	logger *zap.Logger,
) BatchUsecase {
	return &batchUsecase{
		config:    cfg,
		store:     store,
		history:   history,
		docs:      docs,
		stamper:   stamper,
		generator: generator,
		logger:    logger,
		inspect:   pdfstamp.Inspect,
		now:       time.Now,
	}
}

func (u *batchUsecase) Validate(ctx context.Context, jobs []entity.StampJob) entity.ValidationReport {
	report := entity.ValidationReport{
		Total:  len(jobs),
		Issues: []entity.ValidationIssue{},
	}

	for i, job := range jobs {
		if issue := u.check(i, job); issue != nil {
			report.Issues = append(report.Issues, *issue)
			continue
		}
		report.Valid++
	}

	if !report.OK() {
		u.logger.Warn("Batch validation found problems",
			zap.Int("total", report.Total),
			zap.Int("valid", report.Valid),
			zap.Int("issues", len(report.Issues)),
		)
	}
	return report
}

func (u *batchUsecase) check(index int, job entity.StampJob) *entity.ValidationIssue {
	issue := func(status entity.JobStatus, msg string) *entity.ValidationIssue {
		return &entity.ValidationIssue{
			Index:      index,
			SourcePath: job.SourcePath,
			Status:     status,
			Message:    msg,
		}
	}

	if strings.TrimSpace(job.SourcePath) == "" || !u.docs.Exists(job.SourcePath) {
		return issue(entity.JobStatusFileMissing, "source file does not exist")
	}
	if job.MainNumber < 1 {
		return issue(entity.JobStatusNoMainNumber, "main number is missing or not a positive integer")
	}
	if _, err := u.inspect(job.SourcePath); err != nil {
		return issue(entity.JobStatusInvalidPDF, err.Error())
	}
	return nil
}

func (u *batchUsecase) Run(ctx context.Context, req *entity.BatchRequest) (*entity.BatchResult, error) {
	if len(req.Jobs) == 0 {
		return nil, ErrNoJobs
	}
	if !u.mu.TryLock() {
		return nil, ErrBatchBusy
	}
	defer u.mu.Unlock()

	// Snapshot; edits made while the batch runs apply to the next one.
	cfg, err := u.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stamp config: %w", err)
	}

	outDir := strings.TrimSpace(req.OutDir)
	if outDir == "" {
		outDir = u.config.Output.DefaultDir
	}
	if outDir == "" {
		return nil, fmt.Errorf("%w: no output directory given", ErrOutputDir)
	}
	if err := u.docs.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}

	result := &entity.BatchResult{
		BatchID:   uuid.New().String(),
		OutDir:    outDir,
		StartedAt: u.now(),
		Jobs:      make([]entity.JobResult, 0, len(req.Jobs)),
	}
	log := u.logger.With(zap.String("batch_id", result.BatchID))
	log.Info("Batch started",
		zap.Int("jobs", len(req.Jobs)),
		zap.String("out_dir", outDir),
	)

	result.Report = u.Validate(ctx, req.Jobs)
	rejected := make(map[int]entity.ValidationIssue, len(result.Report.Issues))
	for _, issue := range result.Report.Issues {
		rejected[issue.Index] = issue
	}

	var entries []entity.IndexEntry
	for i, job := range req.Jobs {
		jr := entity.JobResult{Index: i, SourcePath: job.SourcePath}

		if issue, ok := rejected[i]; ok {
			jr.Status = issue.Status
			jr.Error = issue.Message
			result.Failed++
			result.Jobs = append(result.Jobs, jr)
			continue
		}

		if err := ctx.Err(); err != nil {
			jr.Status = entity.JobStatusSkipped
			jr.Error = err.Error()
			result.Skipped++
			result.Jobs = append(result.Jobs, jr)
			continue
		}

		jr = u.process(ctx, cfg, outDir, i, job, log)
		switch jr.Status {
		case entity.JobStatusDone:
			result.Succeeded++
			entries = append(entries, evidence.NewEntry(jr.Label, job.SourcePath))
		case entity.JobStatusSkipped:
			result.Skipped++
		default:
			result.Failed++
		}
		result.Jobs = append(result.Jobs, jr)
	}

	u.buildIndex(ctx, cfg, req.Index, entries, outDir, result, log)

	result.FinishedAt = u.now()
	log.Info("Batch finished",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)

	u.saveHistory(ctx, result, log)
	return result, nil
}

func (u *batchUsecase) process(ctx context.Context, cfg entity.StampConfig, outDir string, index int, job entity.StampJob, log *zap.Logger) entity.JobResult {
	text := label.ForJob(cfg, job)
	jr := entity.JobResult{
		Index:      index,
		SourcePath: job.SourcePath,
		Label:      text,
	}
	log = log.With(
		zap.Int("index", index),
		zap.String("source", job.SourcePath),
		zap.String("label", text),
	)

	if cfg.CreateBackup {
		backup, err := u.docs.Backup(job.SourcePath, cfg.BackupDir)
		if err != nil {
			log.Error("Backup failed, job not stamped", zap.Error(err))
			jr.Status = entity.JobStatusFailed
			jr.Error = err.Error()
			return jr
		}
		jr.BackupPath = backup
	}

	res, err := u.stamper.Stamp(ctx, pdfstamp.Request{
		SourcePath:       job.SourcePath,
		OutDir:           outDir,
		Text:             text,
		X:                cfg.OffsetX,
		Y:                cfg.OffsetY,
		FontSize:         cfg.EffectiveFontSize(),
		Rotation:         cfg.EffectiveRotation(),
		Color:            cfg.EffectiveColor(),
		TargetPages:      cfg.EffectiveTargetPages(),
		FilenameTemplate: cfg.OutputFilenameTemplate,
	})
	switch {
	case errors.Is(err, pdfstamp.ErrNoTargetPages):
		log.Warn("Job skipped", zap.Error(err))
		jr.Status = entity.JobStatusSkipped
		jr.Error = err.Error()
	case err != nil:
		log.Error("Job failed", zap.Error(err))
		jr.Status = entity.JobStatusFailed
		jr.Error = err.Error()
	default:
		jr.Status = entity.JobStatusDone
		jr.OutputPath = res.OutputPath
		jr.Pages = res.Pages
	}
	return jr
}

// buildIndex writes the DOCX and XLSX index for the successful entries.
// Index failures are reported on the result and never fail the batch.
func (u *batchUsecase) buildIndex(ctx context.Context, cfg entity.StampConfig, override *entity.IndexRequest, entries []entity.IndexEntry, outDir string, result *entity.BatchResult, log *zap.Logger) {
	makeDocx, makeXLSX := cfg.MakeDocx, cfg.MakeXLSX
	templatePath := cfg.TemplatePath
	submitted := ""
	if override != nil {
		if override.Enabled != nil {
			makeDocx = *override.Enabled
		}
		if override.MakeXLSX != nil {
			makeXLSX = *override.MakeXLSX
		}
		if override.TemplatePath != "" {
			templatePath = override.TemplatePath
		}
		if override.DocPrefix != "" {
			cfg.DocPrefix = override.DocPrefix
		}
		if override.Court != "" {
			cfg.Court = override.Court
		}
		if override.CaseName != "" {
			cfg.CaseName = override.CaseName
		}
		submitted = strings.TrimSpace(override.SubmittedDate)
	}

	if !makeDocx && !makeXLSX {
		return
	}
	if len(entries) == 0 {
		log.Info("No successful jobs, evidence index not generated")
		result.IndexSkipped = true
		return
	}

	ictx := evidence.NewContext(cfg, entries, u.now())
	if submitted != "" {
		ictx.SubmittedDate = submitted
	}

	var errs []string
	if makeDocx {
		path, err := u.generator.Generate(ctx, entries, templatePath, ictx, outDir)
		if err != nil {
			log.Error("Failed to generate evidence index", zap.Error(err))
			errs = append(errs, err.Error())
		}
		result.IndexPath = path
	}
	if makeXLSX {
		path, err := u.generator.GenerateWorkbook(ctx, entries, ictx, outDir)
		if err != nil {
			log.Error("Failed to generate evidence workbook", zap.Error(err))
			errs = append(errs, err.Error())
		}
		result.XLSXPath = path
	}
	result.IndexError = strings.Join(errs, "; ")
}

func (u *batchUsecase) saveHistory(ctx context.Context, result *entity.BatchResult, log *zap.Logger) {
	run := &entity.BatchRun{
		ID:         result.BatchID,
		OutDir:     result.OutDir,
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		IndexPath:  result.IndexPath,
		IndexError: result.IndexError,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
	}
	// The batch outcome is already on disk; a history failure only loses the log row.
	if err := u.history.SaveRun(context.WithoutCancel(ctx), run, result.Jobs); err != nil {
		log.Warn("Failed to record batch history", zap.Error(err))
	}
}

func (u *batchUsecase) History(ctx context.Context, limit int) ([]entity.BatchRun, error) {
	if limit <= 0 || limit > 100 {
		limit = historyLimit
	}
	return u.history.ListRuns(ctx, limit)
}
