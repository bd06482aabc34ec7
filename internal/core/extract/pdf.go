package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/markdave123-py/Docsage/internal/models"
)

// PDFExtractor reads the native text layer page by page. Pages without a
// text layer come back as empty strings; deciding what that means (scanned
// page, blank page) is the pipeline's job, not ours.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte, contentType string) (pages []models.PageText, err error) {
	// The pdf package panics on some malformed cross-reference tables;
	// surface that as a corrupt-document error instead.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf parse: %v", r)
		}
	}()

	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	pages = make([]models.PageText, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text := ""
		page := reader.Page(i)
		if !page.V.IsNull() {
			if t, err := page.GetPlainText(nil); err == nil {
				text = t
			}
			// A page that fails text decoding is kept as empty rather than
			// failing the document; OCR may still recover it.
		}
		pages = append(pages, models.PageText{Page: i, Text: text})
	}
	return pages, nil
}

// PageImage returns the embedded scan image for the given 1-based page.
// Scanner-produced PDFs store each page as one JPEG XObject in page order,
// which is the case this lookup targets.
func (e *PDFExtractor) PageImage(data []byte, page int) []byte {
	images := jpegStreams(data)
	if page < 1 || page > len(images) {
		return nil
	}
	return images[page-1]
}

var (
	dctMarker = []byte("/DCTDecode")
	streamTok = []byte("stream")
	endTok    = []byte("endstream")
)

// jpegStreams pulls raw DCTDecode (JPEG) stream bodies out of the PDF in
// document order. The pdf package decodes known filters but offers no raw
// stream access, and DCTDecode bodies are already valid JPEG files, so a
// byte scan is the reliable path here.
func jpegStreams(data []byte) [][]byte {
	var out [][]byte
	rest := data
	for {
		idx := bytes.Index(rest, dctMarker)
		if idx < 0 {
			return out
		}
		rest = rest[idx+len(dctMarker):]

		start := bytes.Index(rest, streamTok)
		if start < 0 {
			return out
		}
		body := rest[start+len(streamTok):]
		// The stream keyword is followed by CRLF or LF before the data.
		if len(body) > 0 && body[0] == '\r' {
			body = body[1:]
		}
		if len(body) > 0 && body[0] == '\n' {
			body = body[1:]
		}

		end := bytes.Index(body, endTok)
		if end < 0 {
			return out
		}
		img := bytes.TrimRight(body[:end], "\r\n")
		if len(img) > 0 {
			out = append(out, img)
		}
		rest = body[end+len(endTok):]
	}
}
