package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/go-pdf/fpdf"
)

func writePDF(t *testing.T, path string) {
	t.Helper()
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddPage()
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatal(err)
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, filepath.Join(dir, "a.pdf"))
	writePDF(t, filepath.Join(dir, "b.pdf"))
	stampCfg := filepath.Join(dir, "stamp.json")

	good := writeManifest(t, "jobs:\n  - source: "+filepath.Join(dir, "a.pdf")+"\n    main: 1\n  - source: "+filepath.Join(dir, "b.pdf")+"\n    main: 2\n")
	out := filepath.Join(dir, "out")
	if code := run([]string{"--manifest", good, "--out", out, "--config", stampCfg}); code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || !strings.HasPrefix(entries[0].Name(), "甲第") {
		t.Fatalf("outputs = %v", entries)
	}

	bad := writeManifest(t, "jobs:\n  - source: "+filepath.Join(dir, "missing.pdf")+"\n    main: 1\n")
	if code := run([]string{"-m", bad, "-o", out, "-c", stampCfg}); code != 1 {
		t.Fatalf("expected exit 1 for failed job, got %d", code)
	}

	if code := run([]string{"--out", out}); code != 2 {
		t.Fatalf("expected usage exit 2, got %d", code)
	}
}
