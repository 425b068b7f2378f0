// Package extract turns uploaded files into ordered per-page text and
// coordinates persisting the result.
package extract

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/attestix/compliance-cli/internal/config"
)

// Page is one page of extracted text, ordered by PageNum starting at 1.
type Page struct {
	PageNum int
	Text    string
}

// Extractor extracts ordered page texts from raw file content.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename, mimeType string) ([]Page, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.ExtractConfig) (Extractor, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("extract: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("extract: unknown provider %q", cfg.Provider)
	}
}

func isPDF(filename, mimeType string) bool {
	return mimeType == "application/pdf" || strings.EqualFold(filepath.Ext(filename), ".pdf")
}

func isPlainText(filename, mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".csv", ".log":
		return true
	}
	return false
}

// splitPages splits pdftotext-style output on form feeds into ordered pages.
// Whitespace-only trailing pages are dropped; interior blank pages keep
// their page number so citations stay aligned with the source document.
func splitPages(text string) []Page {
	chunks := strings.Split(text, "\f")
	for len(chunks) > 0 && strings.TrimSpace(chunks[len(chunks)-1]) == "" {
		chunks = chunks[:len(chunks)-1]
	}

	pages := make([]Page, 0, len(chunks))
	for i, c := range chunks {
		pages = append(pages, Page{PageNum: i + 1, Text: strings.TrimSpace(c)})
	}
	return pages
}
