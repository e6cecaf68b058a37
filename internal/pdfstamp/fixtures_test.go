package pdfstamp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Files under testdata cover layouts fpdf never writes:
//
//	objstm.pdf     three pages, PDF 1.5 xref stream and object stream
//	rotated.pdf    612x792 page with /Rotate 90
//	cropbox.pdf    CropBox 36 36 576 756 inside a letter MediaBox
//	annotated.pdf  two pages, link annotation on page 1, outline, Info /Title
func testdataPath(name string) string {
	return filepath.Join("testdata", name)
}

// writeFixturePDF creates a simple text PDF with the given number of pages.
func writeFixturePDF(t *testing.T, dir, name string, pages int) string {
	t.Helper()

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 14)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, fmt.Sprintf("fixture page %d", i+1))
	}

	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
	return path
}

func readPDF(t *testing.T, path string) *model.Context {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	pdfCtx, err := readDocument(data)
	if err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return pdfCtx
}

func pageDict(t *testing.T, pdfCtx *model.Context, pageNr int) (types.Dict, *model.InheritedPageAttrs) {
	t.Helper()

	d, _, inh, err := pdfCtx.PageDict(pageNr, false)
	if err != nil {
		t.Fatalf("page %d: %v", pageNr, err)
	}
	return d, inh
}

func pageContent(t *testing.T, pdfCtx *model.Context, pageNr int) string {
	t.Helper()

	d, _ := pageDict(t, pdfCtx, pageNr)
	content, err := pdfCtx.PageContent(d)
	if err != nil {
		t.Fatalf("page %d content: %v", pageNr, err)
	}
	return string(content)
}

// hasLabel reports whether the page content draws a stamp.
func hasLabel(t *testing.T, pdfCtx *model.Context, pageNr int) bool {
	t.Helper()
	content := pageContent(t, pdfCtx, pageNr)
	return strings.Contains(content, "/Subtype /Watermark") && strings.Contains(content, " Do ")
}
