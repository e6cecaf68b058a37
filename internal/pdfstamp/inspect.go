package pdfstamp

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// Inspect opens the PDF at path and returns its page count. A missing file
// yields ErrSourceMissing; anything that cannot be parsed or has no pages
// yields ErrInvalidPDF. Inspect and Stamp share one parser, so a file that
// passes here is one the stamper can open.
func Inspect(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%s: %w", path, ErrSourceMissing)
		}
		return 0, fmt.Errorf("%s: %w: %v", path, ErrInvalidPDF, err)
	}
	return InspectBytes(data)
}

// InspectBytes is Inspect for an in-memory document.
func InspectBytes(data []byte) (int, error) {
	pdfCtx, err := readDocument(data)
	if err != nil {
		return 0, err
	}
	return pdfCtx.PageCount, nil
}

// configuration keeps pdfcpu away from the user config dir; without this it
// creates one on first use and exits the process if it cannot.
func configuration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.Cmd = model.ADDWATERMARKS
	conf.OptimizeDuplicateContentStreams = false
	conf.Offline = true
	return conf
}

// readDocument parses and validates data. Classic xref tables as well as
// xref and object streams are supported.
func readDocument(data []byte) (pdfCtx *model.Context, err error) {
	// the parser panics on some malformed object graphs
	defer func() {
		if r := recover(); r != nil {
			pdfCtx = nil
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: missing PDF header", ErrInvalidPDF)
	}

	pdfCtx, err = api.ReadValidateAndOptimize(bytes.NewReader(data), configuration())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if pdfCtx.PageCount <= 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidPDF)
	}
	return pdfCtx, nil
}
