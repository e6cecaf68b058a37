package pdfstamp

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"evidence-stamp/internal/config"
	"evidence-stamp/internal/domain/entity"
	"evidence-stamp/internal/infrastructure/document"
	"evidence-stamp/internal/label"
)

func newTestStamper(t *testing.T) *Stamper {
	t.Helper()
	cfg := &config.Config{}
	cfg.Font.Path = filepath.Join(t.TempDir(), "missing.ttf")
	cfg.Stamp.RenderScale = 2
	cfg.Stamp.MaxNameCollisions = 100

	logger := zap.NewNop()
	return NewStamper(label.NewRenderer(cfg, logger), document.NewDocumentService(cfg, logger), logger)
}

func baseRequest(src, outDir string) Request {
	return Request{
		SourcePath:       src,
		OutDir:           outDir,
		Text:             "甲第３号証の１",
		X:                entity.DefaultOffsetX,
		Y:                entity.DefaultOffsetY,
		FontSize:         22,
		Color:            color.NRGBA{R: 255, A: 255},
		TargetPages:      "all",
		FilenameTemplate: entity.DefaultOutputFilenameTemplate,
	}
}

func TestStampAllPages(t *testing.T) {
	s := newTestStamper(t)
	in, out := t.TempDir(), t.TempDir()
	src := writeFixturePDF(t, in, "contract.pdf", 2)

	res, err := s.Stamp(context.Background(), baseRequest(src, out))
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}

	if filepath.Base(res.OutputPath) != "甲第３号証の１_contract.pdf" {
		t.Fatalf("output name = %s", res.OutputPath)
	}
	if !reflect.DeepEqual(res.Pages, []int{0, 1}) {
		t.Fatalf("stamped pages = %v", res.Pages)
	}
	if res.Width <= 0 || res.Height <= 0 {
		t.Fatalf("label size = %vx%v", res.Width, res.Height)
	}

	n, err := Inspect(res.OutputPath)
	if err != nil {
		t.Fatalf("inspect output: %v", err)
	}
	if n != 2 {
		t.Fatalf("output pages = %d, want 2", n)
	}

	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must be left in place: %v", err)
	}
}

func TestStampCollisionAddsCounter(t *testing.T) {
	s := newTestStamper(t)
	in, out := t.TempDir(), t.TempDir()
	src := writeFixturePDF(t, in, "memo.pdf", 1)
	req := baseRequest(src, out)
	req.TargetPages = "first"

	first, err := s.Stamp(context.Background(), req)
	if err != nil {
		t.Fatalf("first stamp: %v", err)
	}
	second, err := s.Stamp(context.Background(), req)
	if err != nil {
		t.Fatalf("second stamp: %v", err)
	}

	if first.OutputPath == second.OutputPath {
		t.Fatal("second stamp reused the first output path")
	}
	if filepath.Base(second.OutputPath) != "甲第３号証の１_memo(1).pdf" {
		t.Fatalf("second output = %s", second.OutputPath)
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(entries))
	}
}

func TestStampNoTargetPages(t *testing.T) {
	s := newTestStamper(t)
	in, out := t.TempDir(), t.TempDir()
	src := writeFixturePDF(t, in, "short.pdf", 2)
	req := baseRequest(src, out)
	req.TargetPages = "5,x"

	_, err := s.Stamp(context.Background(), req)
	if !errors.Is(err, ErrNoTargetPages) {
		t.Fatalf("expected ErrNoTargetPages, got %v", err)
	}

	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Fatalf("no output expected, found %d files", len(entries))
	}
}

func TestStampSourceErrors(t *testing.T) {
	s := newTestStamper(t)
	in, out := t.TempDir(), t.TempDir()

	_, err := s.Stamp(context.Background(), baseRequest(filepath.Join(in, "gone.pdf"), out))
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("expected ErrSourceMissing, got %v", err)
	}

	bad := filepath.Join(in, "bad.pdf")
	if err := os.WriteFile(bad, []byte("%PDF-1.4\nnot really\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = s.Stamp(context.Background(), baseRequest(bad, out))
	if !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}
}

func TestStampTemplateFallback(t *testing.T) {
	s := newTestStamper(t)
	in, out := t.TempDir(), t.TempDir()
	src := writeFixturePDF(t, in, "letter.pdf", 1)
	req := baseRequest(src, out)
	req.FilenameTemplate = "{text}_{unknown}"
	req.Rotation = 90

	res, err := s.Stamp(context.Background(), req)
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if filepath.Base(res.OutputPath) != "甲第３号証の１_letter.pdf" {
		t.Fatalf("output = %s", res.OutputPath)
	}
	if res.Height <= res.Width {
		t.Fatalf("rotated label should be taller than wide: %vx%v", res.Width, res.Height)
	}
}

func TestStampCancelledContext(t *testing.T) {
	s := newTestStamper(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Stamp(ctx, baseRequest("irrelevant.pdf", t.TempDir()))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStampObjectStreamLayout(t *testing.T) {
	s := newTestStamper(t)
	src := testdataPath("objstm.pdf")

	n, err := Inspect(src)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if n != 3 {
		t.Fatalf("page count = %d, want 3", n)
	}

	res, err := s.Stamp(context.Background(), baseRequest(src, t.TempDir()))
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}
	if !reflect.DeepEqual(res.Pages, []int{0, 1, 2}) {
		t.Fatalf("stamped pages = %v", res.Pages)
	}

	out := readPDF(t, res.OutputPath)
	if out.PageCount != 3 {
		t.Fatalf("output pages = %d, want 3", out.PageCount)
	}
	for p := 1; p <= 3; p++ {
		if !hasLabel(t, out, p) {
			t.Errorf("page %d has no label", p)
		}
		if !strings.Contains(pageContent(t, out, p), "72 72 200 100 re") {
			t.Errorf("page %d lost its original content", p)
		}
	}
}

func TestStampKeepsPageGeometry(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"rotated page", "rotated.pdf"},
		{"crop box", "cropbox.pdf"},
		{"object streams", "objstm.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStamper(t)
			src := testdataPath(tt.file)

			res, err := s.Stamp(context.Background(), baseRequest(src, t.TempDir()))
			if err != nil {
				t.Fatalf("stamp: %v", err)
			}

			want, err := readPDF(t, src).PageDims()
			if err != nil {
				t.Fatal(err)
			}
			got, err := readPDF(t, res.OutputPath).PageDims()
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("displayed page size changed: got %v, want %v", got, want)
			}
		})
	}
}

func TestStampRotatedPageDisplaysLandscape(t *testing.T) {
	s := newTestStamper(t)

	res, err := s.Stamp(context.Background(), baseRequest(testdataPath("rotated.pdf"), t.TempDir()))
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}

	out := readPDF(t, res.OutputPath)
	dims, err := out.PageDims()
	if err != nil {
		t.Fatal(err)
	}
	if dims[0] != (types.Dim{Width: 792, Height: 612}) {
		t.Fatalf("page dims = %v, want 792x612", dims[0])
	}
	if !hasLabel(t, out, 1) {
		t.Fatal("rotated page has no label")
	}
}

func TestStampKeepsCropBox(t *testing.T) {
	s := newTestStamper(t)

	res, err := s.Stamp(context.Background(), baseRequest(testdataPath("cropbox.pdf"), t.TempDir()))
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}

	_, inh := pageDict(t, readPDF(t, res.OutputPath), 1)
	want := types.Rectangle{LL: types.Point{X: 36, Y: 36}, UR: types.Point{X: 576, Y: 756}}
	if inh.CropBox == nil || *inh.CropBox != want {
		t.Fatalf("crop box = %v, want %v", inh.CropBox, want)
	}
}

func TestStampKeepsAnnotationsOutlineAndInfo(t *testing.T) {
	s := newTestStamper(t)
	req := baseRequest(testdataPath("annotated.pdf"), t.TempDir())
	req.TargetPages = "first"

	res, err := s.Stamp(context.Background(), req)
	if err != nil {
		t.Fatalf("stamp: %v", err)
	}

	out := readPDF(t, res.OutputPath)
	if out.PageCount != 2 {
		t.Fatalf("output pages = %d, want 2", out.PageCount)
	}
	if !hasLabel(t, out, 1) || hasLabel(t, out, 2) {
		t.Fatal("label should be on page 1 only")
	}

	page, _ := pageDict(t, out, 1)
	obj, ok := page.Find("Annots")
	if !ok {
		t.Fatal("page 1 lost its annotations")
	}
	annots, err := out.DereferenceArray(obj)
	if err != nil || len(annots) != 1 {
		t.Fatalf("annots = %v, err = %v", annots, err)
	}
	annot, err := out.DereferenceDict(annots[0])
	if err != nil {
		t.Fatal(err)
	}
	action, err := out.DereferenceDict(annot["A"])
	if err != nil {
		t.Fatal(err)
	}
	if uri, _ := action["URI"].(types.StringLiteral); string(uri) != "https://example.com" {
		t.Fatalf("link target = %v", action["URI"])
	}

	if _, ok := out.RootDict.Find("Outlines"); !ok {
		t.Fatal("outline dropped")
	}

	if out.Info == nil {
		t.Fatal("document info dropped")
	}
	info, err := out.DereferenceDict(*out.Info)
	if err != nil {
		t.Fatal(err)
	}
	if title, _ := info["Title"].(types.StringLiteral); string(title) != "Evidence bundle" {
		t.Fatalf("title = %v", info["Title"])
	}
}

func TestStampContinuesPastFailingPage(t *testing.T) {
	tests := []struct {
		name string
		fail func()
	}{
		{"error", nil},
		{"panic", func() { panic("broken page tree") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStamper(t)
			s.watermark = func(pdfCtx *model.Context, pages types.IntSet, wm *model.Watermark) error {
				if pages[2] {
					if tt.fail != nil {
						tt.fail()
					}
					return errors.New("corrupt page object")
				}
				return api.WatermarkContext(pdfCtx, pages, wm)
			}

			in := t.TempDir()
			src := writeFixturePDF(t, in, "bundle.pdf", 3)

			res, err := s.Stamp(context.Background(), baseRequest(src, t.TempDir()))
			if err != nil {
				t.Fatalf("stamp: %v", err)
			}
			if !reflect.DeepEqual(res.Pages, []int{0, 2}) {
				t.Fatalf("stamped pages = %v, want [0 2]", res.Pages)
			}

			out := readPDF(t, res.OutputPath)
			if out.PageCount != 3 {
				t.Fatalf("output pages = %d, want 3", out.PageCount)
			}
			if !hasLabel(t, out, 1) || hasLabel(t, out, 2) || !hasLabel(t, out, 3) {
				t.Fatal("expected labels on pages 1 and 3 only")
			}
		})
	}
}

func TestStampFailsWhenNoPageTakesLabel(t *testing.T) {
	s := newTestStamper(t)
	s.watermark = func(*model.Context, types.IntSet, *model.Watermark) error {
		return errors.New("corrupt page object")
	}
	in, out := t.TempDir(), t.TempDir()
	src := writeFixturePDF(t, in, "broken.pdf", 2)

	_, err := s.Stamp(context.Background(), baseRequest(src, out))
	if !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}

	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Fatalf("no output expected, found %d files", len(entries))
	}
}

func TestLabelPlacement(t *testing.T) {
	tests := []struct {
		x, y  float64
		scale int
		want  string
	}{
		{36, 24.5, 2, "position:tl, offset:36 -24.5, scalefactor:0.5 abs, rotation:0"},
		{0, 0, 1, "position:tl, offset:0 0, scalefactor:1 abs, rotation:0"},
		{10, 10, 0, "position:tl, offset:10 -10, scalefactor:1 abs, rotation:0"},
	}
	for _, tt := range tests {
		if got := labelPlacement(tt.x, tt.y, tt.scale); got != tt.want {
			t.Errorf("labelPlacement(%v, %v, %d) = %q, want %q", tt.x, tt.y, tt.scale, got, tt.want)
		}
	}
}
