package extract

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/attestix/compliance-cli/internal/resilience"
)

// PdfToText extracts text using the pdftotext CLI tool. Plain-text uploads
// bypass the tool and become a single page.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

func (p *PdfToText) Extract(ctx context.Context, data []byte, filename, mimeType string) ([]Page, error) {
	if isPlainText(filename, mimeType) {
		return []Page{{PageNum: 1, Text: string(data)}}, nil
	}
	if !isPDF(filename, mimeType) {
		return nil, resilience.Fatal(eris.Errorf("extract: unsupported file type %q (%s)", filename, mimeType))
	}

	tmp, err := os.CreateTemp("", "extract-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "extract: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "extract: write temp file")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "extract: close temp file")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", tmp.Name(), "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "extract: pdftotext failed for %s: %s", filepath.Base(filename), stderr.String())
	}

	return splitPages(stdout.String()), nil
}
