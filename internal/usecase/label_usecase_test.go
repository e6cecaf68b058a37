package usecase

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/label"
)

func TestAssignNumbers(t *testing.T) {
	jobs := []entity.StampJob{
		{SourcePath: "a.pdf", BranchLabel: "2"},
		{SourcePath: "b.pdf"},
		{SourcePath: "c.pdf"},
	}

	tests := []struct {
		name       string
		branchAuto bool
		wantMain   []int
		wantBranch []string
	}{
		{"sequential", false, []int{5, 6, 7}, []string{"2", "", ""}},
		{"branch auto", true, []int{5, 5, 5}, []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := entity.DefaultStampConfig()
			cfg.StartMain = 5
			cfg.BranchAuto = tt.branchAuto

			got := AssignNumbers(cfg, jobs)
			var mains []int
			var branches []string
			for _, j := range got {
				if j.Status != entity.JobStatusEdited {
					t.Fatalf("status = %s", j.Status)
				}
				mains = append(mains, j.MainNumber)
				branches = append(branches, j.BranchLabel)
			}
			if !reflect.DeepEqual(mains, tt.wantMain) || !reflect.DeepEqual(branches, tt.wantBranch) {
				t.Fatalf("got %v %v", mains, branches)
			}
		})
	}

	if jobs[0].MainNumber != 0 {
		t.Fatal("input jobs must not be modified")
	}
}

func newTestLabelUsecase(t *testing.T, cfg entity.StampConfig) LabelUsecase {
	t.Helper()
	return NewLabelUsecase(newMemoryStore(cfg), label.NewRenderer(testConfig(t), zap.NewNop()), zap.NewNop())
}

func TestLabelPreview(t *testing.T) {
	u := newTestLabelUsecase(t, entity.DefaultStampConfig())

	got, err := u.Preview(context.Background(), entity.LabelRequest{MainNumber: 3, BranchLabel: "1", SourcePath: "/in/contract.pdf"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got.Text != "甲第３号証の１" || got.OutputName != "甲第３号証の１_contract.pdf" {
		t.Fatalf("unexpected preview: %+v", got)
	}

	got, err = u.Preview(context.Background(), entity.LabelRequest{Mode: entity.ModeAttachment, MainNumber: 12})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got.Text != "添付資料１２" {
		t.Fatalf("attachment label = %s", got.Text)
	}

	if _, err := u.Preview(context.Background(), entity.LabelRequest{}); !errors.Is(err, ErrInvalidMainNumber) {
		t.Fatalf("expected ErrInvalidMainNumber, got %v", err)
	}
}

func TestLabelRenderPNG(t *testing.T) {
	u := newTestLabelUsecase(t, entity.DefaultStampConfig())

	png, err := u.RenderPNG(context.Background(), entity.LabelRequest{MainNumber: 1})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatal("expected PNG output")
	}
}
