package extract

import (
	"context"
	"strings"

	"github.com/markdave123-py/Docsage/internal/models"
)

// Extractor produces page-indexed raw text from raw document bytes.
// Every page appears in the result even when it yields no text (empty
// string, not omitted), so downstream stages can react per page.
type Extractor interface {
	Extract(ctx context.Context, data []byte, contentType string) ([]models.PageText, error)

	// PageImage returns the raw bytes of a full-page scan image for the
	// given 1-based page, or nil when the page embeds none. Used as the
	// rendering source for OCR.
	PageImage(data []byte, page int) []byte
}

// Combined routes PDFs to the page-aware extractor and everything else
// through docconv as a single page.
type Combined struct {
	pdf  *PDFExtractor
	conv *DocconvExtractor
}

func NewCombined() *Combined {
	return &Combined{pdf: NewPDFExtractor(), conv: NewDocconvExtractor()}
}

func (c *Combined) Extract(ctx context.Context, data []byte, contentType string) ([]models.PageText, error) {
	if isPDF(data, contentType) {
		return c.pdf.Extract(ctx, data, contentType)
	}
	return c.conv.Extract(ctx, data, contentType)
}

func (c *Combined) PageImage(data []byte, page int) []byte {
	if isPDF(data, "") {
		return c.pdf.PageImage(data, page)
	}
	return nil
}

func isPDF(data []byte, contentType string) bool {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return true
	}
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}

var _ Extractor = (*Combined)(nil)
