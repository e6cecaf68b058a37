// Package evidence builds the evidence index (証拠説明書) for a batch.
package evidence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"evidence-stamp/internal/domain/entity"
)

var (
	ErrTemplateNotFound = errors.New("index template not found")
	ErrNoEntries        = errors.New("no index entries")
)

const (
	DefaultCaseName     = "（事件名）"
	SubmittedDateLayout = "2006年01月02日"
	fileStampLayout     = "200601021504"
)

// OutputWriter persists a finished document under a collision-free name.
type OutputWriter interface {
	WriteUnique(dir, name string, data []byte) (string, error)
}

type Generator struct {
	files  OutputWriter
	logger *zap.Logger
	now    func() time.Time
}

func NewGenerator(files OutputWriter, logger *zap.Logger) *Generator {
	return &Generator{
		files:  files,
		logger: logger,
		now:    time.Now,
	}
}

// Generate renders entries into the DOCX template at templatePath and writes
// "{doc_prefix}_{YYYYMMDDHHMM}.docx" into outDir.
func (g *Generator) Generate(ctx context.Context, entries []entity.IndexEntry, templatePath string, ictx entity.IndexContext, outDir string) (string, error) {
	if len(entries) == 0 {
		return "", ErrNoEntries
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if strings.TrimSpace(templatePath) == "" {
		return "", fmt.Errorf("template path is empty: %w", ErrTemplateNotFound)
	}
	tpl, err := os.ReadFile(templatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", templatePath, ErrTemplateNotFound)
		}
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	data, err := RenderTemplate(tpl, entries, ictx)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", filepath.Base(templatePath), err)
	}

	path, err := g.files.WriteUnique(outDir, g.fileName(ictx, ".docx"), data)
	if err != nil {
		return "", err
	}

	g.logger.Info("Evidence index generated",
		zap.String("path", path),
		zap.String("template", templatePath),
		zap.Int("entries", len(entries)),
	)
	return path, nil
}

// GenerateWorkbook writes the XLSX evidence list into outDir.
func (g *Generator) GenerateWorkbook(ctx context.Context, entries []entity.IndexEntry, ictx entity.IndexContext, outDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := BuildWorkbook(entries, ictx)
	if err != nil {
		return "", err
	}

	path, err := g.files.WriteUnique(outDir, g.fileName(ictx, ".xlsx"), data)
	if err != nil {
		return "", err
	}

	g.logger.Info("Evidence list workbook generated",
		zap.String("path", path),
		zap.Int("entries", len(entries)),
	)
	return path, nil
}

func (g *Generator) fileName(ictx entity.IndexContext, ext string) string {
	prefix := ictx.DocPrefix
	if prefix == "" {
		prefix = ictx.BundleTitle
	}
	if prefix == "" {
		prefix = entity.DefaultDocPrefix
	}
	return safeFilePrefix(prefix) + "_" + g.now().Format(fileStampLayout) + ext
}

func safeFilePrefix(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return r
		}
		return '_'
	}, s)
}

// NewEntry returns the index row for a stamped source file.
func NewEntry(label, sourcePath string) entity.IndexEntry {
	return entity.IndexEntry{
		No:      label,
		Caption: filepath.Base(sourcePath),
		Copy:    entity.DefaultCopyMarker,
	}
}

// NewContext derives the header fields from the config snapshot and entries.
// Empty case name and submitted date fall back to a placeholder and today.
func NewContext(cfg entity.StampConfig, entries []entity.IndexEntry, now time.Time) entity.IndexContext {
	ictx := entity.IndexContext{
		BundleTitle:   cfg.EffectiveDocPrefix(),
		DocPrefix:     cfg.EffectiveDocPrefix(),
		Court:         cfg.EffectiveCourt(),
		CaseName:      cfg.CaseName,
		SubmittedDate: now.Format(SubmittedDateLayout),
	}
	if strings.TrimSpace(ictx.CaseName) == "" {
		ictx.CaseName = DefaultCaseName
	}
	if len(entries) > 0 {
		ictx.First = entries[0].No
		ictx.Last = entries[len(entries)-1].No
	}
	return ictx
}
