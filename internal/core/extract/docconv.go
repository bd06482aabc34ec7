package extract

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/Docsage/internal/models"
)

// DocconvExtractor handles every non-PDF type (docx, html, plain text, ...)
// through docconv. Those formats carry no page structure, so the whole body
// becomes a single page.
type DocconvExtractor struct{}

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, contentType string) ([]models.PageText, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	if contentType == "" {
		contentType = "text/plain"
	}

	res, err := docconv.Convert(bytes.NewReader(data), contentType, false)
	if err != nil {
		return nil, fmt.Errorf("docconv %s: %w", contentType, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return []models.PageText{{Page: 1, Text: res.Body}}, nil
}
