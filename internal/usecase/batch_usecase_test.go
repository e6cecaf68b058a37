package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"evidence-stamp/internal/domain/entity"
)

func listFiles(t *testing.T, dir, ext string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ext) {
			names = append(names, e.Name())
		}
	}
	return names
}

func TestRunMissingJobContinuesBatch(t *testing.T) {
	u, history := newTestBatchUsecase(t, entity.DefaultStampConfig())
	in, out := t.TempDir(), t.TempDir()

	req := &entity.BatchRequest{
		OutDir: out,
		Jobs: []entity.StampJob{
			{SourcePath: writeFixturePDF(t, in, "a.pdf", 1), MainNumber: 1},
			{SourcePath: filepath.Join(in, "gone.pdf"), MainNumber: 2},
			{SourcePath: writeFixturePDF(t, in, "c.pdf", 2), MainNumber: 3, BranchLabel: "1"},
		},
	}

	res, err := u.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Succeeded != 2 || res.Failed != 1 || res.Skipped != 0 {
		t.Fatalf("tally = %d/%d/%d", res.Succeeded, res.Failed, res.Skipped)
	}
	if res.Jobs[1].Status != entity.JobStatusFileMissing {
		t.Fatalf("job 2 status = %s", res.Jobs[1].Status)
	}
	if res.Jobs[2].Label != "甲第３号証の１" {
		t.Fatalf("job 3 label = %s", res.Jobs[2].Label)
	}
	if res.BatchID == "" {
		t.Fatal("expected batch id")
	}

	pdfs := listFiles(t, out, ".pdf")
	if len(pdfs) != 2 {
		t.Fatalf("expected exactly 2 PDFs, got %v", pdfs)
	}
	if len(history.runs) != 1 || history.runs[0].ID != res.BatchID || len(history.jobs[0]) != 3 {
		t.Fatalf("history not recorded: %+v", history.runs)
	}
}

func TestRunRejectsConcurrentBatch(t *testing.T) {
	u, _ := newTestBatchUsecase(t, entity.DefaultStampConfig())
	u.mu.Lock()
	defer u.mu.Unlock()

	_, err := u.Run(context.Background(), &entity.BatchRequest{
		OutDir: t.TempDir(),
		Jobs:   []entity.StampJob{{SourcePath: "x.pdf", MainNumber: 1}},
	})
	if !errors.Is(err, ErrBatchBusy) {
		t.Fatalf("expected ErrBatchBusy, got %v", err)
	}
}

func TestRunEmptyIndexIsNoOp(t *testing.T) {
	cfg := entity.DefaultStampConfig()
	cfg.MakeDocx = true
	cfg.TemplatePath = filepath.Join(t.TempDir(), "unused.docx")
	u, _ := newTestBatchUsecase(t, cfg)
	out := t.TempDir()

	res, err := u.Run(context.Background(), &entity.BatchRequest{
		OutDir: out,
		Jobs:   []entity.StampJob{{SourcePath: filepath.Join(out, "nope.pdf"), MainNumber: 1}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.IndexSkipped || res.IndexError != "" || res.IndexPath != "" {
		t.Fatalf("expected skipped index, got %+v", res)
	}
	if docs := listFiles(t, out, ".docx"); len(docs) != 0 {
		t.Fatalf("unexpected index files: %v", docs)
	}
}

func TestRunIndexErrorsDoNotFailBatch(t *testing.T) {
	cfg := entity.DefaultStampConfig()
	cfg.MakeDocx = true
	cfg.MakeXLSX = true
	cfg.TemplatePath = filepath.Join(t.TempDir(), "missing.docx")
	u, _ := newTestBatchUsecase(t, cfg)
	in, out := t.TempDir(), t.TempDir()

	res, err := u.Run(context.Background(), &entity.BatchRequest{
		OutDir: out,
		Jobs:   []entity.StampJob{{SourcePath: writeFixturePDF(t, in, "a.pdf", 1), MainNumber: 1}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Succeeded != 1 {
		t.Fatalf("expected the job to succeed, got %+v", res.Jobs)
	}
	if !strings.Contains(res.IndexError, "template") {
		t.Fatalf("expected template error, got %q", res.IndexError)
	}
	if res.XLSXPath == "" || len(listFiles(t, out, ".xlsx")) != 1 {
		t.Fatalf("expected workbook, got %q", res.XLSXPath)
	}
}

func TestRunIndexOverrideDisablesDocx(t *testing.T) {
	cfg := entity.DefaultStampConfig()
	cfg.MakeDocx = true
	u, _ := newTestBatchUsecase(t, cfg)
	in, out := t.TempDir(), t.TempDir()
	disabled := false

	res, err := u.Run(context.Background(), &entity.BatchRequest{
		OutDir: out,
		Jobs:   []entity.StampJob{{SourcePath: writeFixturePDF(t, in, "a.pdf", 1), MainNumber: 1}},
		Index:  &entity.IndexRequest{Enabled: &disabled},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.IndexError != "" || res.IndexPath != "" || res.IndexSkipped {
		t.Fatalf("index should not have been attempted: %+v", res)
	}
}

func TestRunOutputDirUnavailable(t *testing.T) {
	u, _ := newTestBatchUsecase(t, entity.DefaultStampConfig())
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := u.Run(context.Background(), &entity.BatchRequest{
		OutDir: file,
		Jobs:   []entity.StampJob{{SourcePath: "x.pdf", MainNumber: 1}},
	})
	if !errors.Is(err, ErrOutputDir) {
		t.Fatalf("expected ErrOutputDir, got %v", err)
	}

	_, err = u.Run(context.Background(), &entity.BatchRequest{})
	if !errors.Is(err, ErrNoJobs) {
		t.Fatalf("expected ErrNoJobs, got %v", err)
	}
}

func TestRunCancelledSkipsRemainingJobs(t *testing.T) {
	u, _ := newTestBatchUsecase(t, entity.DefaultStampConfig())
	in, out := t.TempDir(), t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := u.Run(ctx, &entity.BatchRequest{
		OutDir: out,
		Jobs: []entity.StampJob{
			{SourcePath: writeFixturePDF(t, in, "a.pdf", 1), MainNumber: 1},
			{SourcePath: writeFixturePDF(t, in, "b.pdf", 1), MainNumber: 2},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Skipped != 2 || res.Succeeded != 0 {
		t.Fatalf("expected all skipped, got %+v", res)
	}
	if pdfs := listFiles(t, out, ".pdf"); len(pdfs) != 0 {
		t.Fatalf("no output expected, got %v", pdfs)
	}
}

func TestRunWithBackup(t *testing.T) {
	cfg := entity.DefaultStampConfig()
	cfg.CreateBackup = true
	cfg.BackupDir = t.TempDir()
	u, _ := newTestBatchUsecase(t, cfg)
	in, out := t.TempDir(), t.TempDir()

	res, err := u.Run(context.Background(), &entity.BatchRequest{
		OutDir: out,
		Jobs:   []entity.StampJob{{SourcePath: writeFixturePDF(t, in, "a.pdf", 1), MainNumber: 4}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	backup := res.Jobs[0].BackupPath
	if backup == "" || filepath.Dir(backup) != cfg.BackupDir {
		t.Fatalf("backup path = %q", backup)
	}
	if !strings.HasPrefix(filepath.Base(backup), "a_backup") {
		t.Fatalf("backup name = %s", filepath.Base(backup))
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	u, _ := newTestBatchUsecase(t, entity.DefaultStampConfig())
	in := t.TempDir()
	notPDF := filepath.Join(in, "notes.pdf")
	if err := os.WriteFile(notPDF, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := writeFixturePDF(t, in, "good.pdf", 1)

	report := u.Validate(context.Background(), []entity.StampJob{
		{SourcePath: good, MainNumber: 1},
		{SourcePath: filepath.Join(in, "missing.pdf"), MainNumber: 2},
		{SourcePath: good, MainNumber: 0},
		{SourcePath: notPDF, MainNumber: 3},
	})

	if report.Total != 4 || report.Valid != 1 || report.OK() {
		t.Fatalf("unexpected report: %+v", report)
	}
	want := []entity.JobStatus{entity.JobStatusFileMissing, entity.JobStatusNoMainNumber, entity.JobStatusInvalidPDF}
	for i, issue := range report.Issues {
		if issue.Index != i+1 || issue.Status != want[i] {
			t.Fatalf("issue %d = %+v", i, issue)
		}
	}
}

func TestHistoryClampsLimit(t *testing.T) {
	u, history := newTestBatchUsecase(t, entity.DefaultStampConfig())
	for i := 0; i < 30; i++ {
		history.runs = append(history.runs, entity.BatchRun{ID: "r"})
	}

	runs, err := u.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(runs) != historyLimit {
		t.Fatalf("expected %d runs, got %d", historyLimit, len(runs))
	}
}
