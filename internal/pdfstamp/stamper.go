// Package pdfstamp overlays rendered labels onto PDF pages.
package pdfstamp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"go.uber.org/zap"

	"evidence-stamp/internal/infrastructure/document"
)

var (
	ErrSourceMissing  = errors.New("source file does not exist")
	ErrInvalidPDF     = errors.New("invalid PDF")
	ErrNoTargetPages  = errors.New("no target pages selected")
	ErrCollisionLimit = document.ErrCollisionLimit
)

// LabelRenderer produces the PNG overlay for a label.
type LabelRenderer interface {
	RenderPNG(text string, fontSize, rotation int, c color.NRGBA) ([]byte, image.Rectangle, error)
	Scale() int
}

// OutputWriter persists a finished document under a collision-free name.
type OutputWriter interface {
	WriteUnique(dir, name string, data []byte) (string, error)
}

// Request describes one stamping operation. X and Y are the top-left corner
// of the label in PDF points, measured from the top-left of the page as it
// is displayed, so rotated pages are measured in their viewing orientation.
type Request struct {
	SourcePath       string
	OutDir           string
	Text             string
	X                float64
	Y                float64
	FontSize         int
	Rotation         int
	Color            color.NRGBA
	TargetPages      string
	FilenameTemplate string
}

// Result describes a stamped output.
type Result struct {
	OutputPath string
	PageCount  int
	Pages      []int // 0-based pages the label was placed on
	Width      float64
	Height     float64
}

// watermarkFunc places wm on the selected 1-based pages of a parsed document.
type watermarkFunc func(pdfCtx *model.Context, pages types.IntSet, wm *model.Watermark) error

type Stamper struct {
	renderer  LabelRenderer
	files     OutputWriter
	logger    *zap.Logger
	watermark watermarkFunc
}

func NewStamper(renderer LabelRenderer, files OutputWriter, logger *zap.Logger) *Stamper {
	return &Stamper{
		renderer:  renderer,
		files:     files,
		logger:    logger,
		watermark: api.WatermarkContext,
	}
}

// Stamp renders req.Text, places it on the selected pages of req.SourcePath
// and writes the result into req.OutDir. The label is added on top of the
// existing page content; annotations, outlines, form fields and document
// info are carried over unchanged. The source is never modified.
func (s *Stamper) Stamp(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("source", req.SourcePath),
		zap.String("label", req.Text),
	)

	src, err := os.ReadFile(req.SourcePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", req.SourcePath, ErrSourceMissing)
		}
		return nil, fmt.Errorf("failed to read %s: %w", req.SourcePath, err)
	}

	pdfCtx, err := readDocument(src)
	if err != nil {
		return nil, err
	}
	pageCount := pdfCtx.PageCount

	pages := ResolvePages(req.TargetPages, pageCount)
	if len(pages) == 0 {
		log.Warn("Target pages resolved to nothing, skipping job",
			zap.String("target_pages", req.TargetPages),
			zap.Int("page_count", pageCount),
		)
		return nil, fmt.Errorf("%q on %d pages: %w", req.TargetPages, pageCount, ErrNoTargetPages)
	}

	png, bounds, err := s.renderer.RenderPNG(req.Text, req.FontSize, req.Rotation, req.Color)
	if err != nil {
		return nil, fmt.Errorf("failed to render label: %w", err)
	}
	scale := s.renderer.Scale()
	width := float64(bounds.Dx()) / float64(scale)
	height := float64(bounds.Dy()) / float64(scale)

	desc := labelPlacement(req.X, req.Y, scale)
	pdfCtx, stamped, err := s.apply(src, pdfCtx, pages, png, desc, log)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pdfCtx, &buf); err != nil {
		return nil, fmt.Errorf("failed to serialise PDF: %w", err)
	}

	name, fallback := OutputFileName(req.FilenameTemplate, req.Text, req.SourcePath)
	if fallback {
		log.Warn("Output filename template rejected, using default",
			zap.String("template", req.FilenameTemplate),
			zap.String("name", name),
		)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outPath, err := s.files.WriteUnique(req.OutDir, name, buf.Bytes())
	if err != nil {
		return nil, err
	}

	log.Info("PDF stamped",
		zap.String("output", outPath),
		zap.Ints("pages", stamped),
		zap.Int("page_count", pageCount),
		zap.Int("size_bytes", buf.Len()),
	)

	return &Result{
		OutputPath: outPath,
		PageCount:  pageCount,
		Pages:      stamped,
		Width:      width,
		Height:     height,
	}, nil
}

// apply places the label on all selected pages in one pass. If that fails
// the document is parsed again and pages are stamped one at a time; pages
// that still fail are logged and left without a label.
func (s *Stamper) apply(src []byte, pdfCtx *model.Context, pages []int, png []byte, desc string, log *zap.Logger) (*model.Context, []int, error) {
	err := s.addLabel(pdfCtx, pages, png, desc)
	if err == nil {
		return pdfCtx, pages, nil
	}
	log.Warn("Stamping selected pages failed, retrying page by page", zap.Error(err))

	pdfCtx, err = readDocument(src)
	if err != nil {
		return nil, nil, err
	}

	stamped := make([]int, 0, len(pages))
	for _, p := range pages {
		if err := s.addLabel(pdfCtx, []int{p}, png, desc); err != nil {
			log.Warn("Failed to stamp page, continuing",
				zap.Int("page", p+1),
				zap.Error(err),
			)
			continue
		}
		stamped = append(stamped, p)
	}
	if len(stamped) == 0 {
		return nil, nil, fmt.Errorf("%w: label could not be placed on any selected page", ErrInvalidPDF)
	}
	return pdfCtx, stamped, nil
}

// addLabel stamps the 0-based pages. pdfcpu panics on some broken page
// trees, so a panic is reported as that page's error.
func (s *Stamper) addLabel(pdfCtx *model.Context, pages []int, png []byte, desc string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	wm, err := api.ImageWatermarkForReader(bytes.NewReader(png), desc, true, false, types.POINTS)
	if err != nil {
		return fmt.Errorf("failed to configure label stamp: %w", err)
	}

	selected := make(types.IntSet, len(pages))
	for _, p := range pages {
		selected[p+1] = true
	}
	return s.watermark(pdfCtx, selected, wm)
}

// labelPlacement anchors the label's top-left corner x points right of and
// y points below the top-left of the visible page. The rendered PNG is
// supersampled by scale, so it is drawn at 1/scale of its pixel size.
// pdfcpu offsets grow upwards.
func labelPlacement(x, y float64, scale int) string {
	if scale < 1 {
		scale = 1
	}
	return fmt.Sprintf("position:tl, offset:%s %s, scalefactor:%s abs, rotation:0",
		formatPoints(x), formatPoints(-y), formatPoints(1/float64(scale)))
}

func formatPoints(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
