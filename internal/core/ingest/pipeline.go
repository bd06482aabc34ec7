package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Docsage/internal/core/chunker"
	"github.com/markdave123-py/Docsage/internal/core/extract"
	"github.com/markdave123-py/Docsage/internal/core/textmerge"
	"github.com/markdave123-py/Docsage/internal/core/vectorindex"
	"github.com/markdave123-py/Docsage/internal/models"
)

// ocrConcurrency bounds simultaneous OCR calls per document.
const ocrConcurrency = 4

var (
	// ErrScannedNoOCR marks a document whose pages carry no text layer
	// while no OCR backend is configured to read the scans.
	ErrScannedNoOCR = errors.New("document appears to be scanned but no OCR engine is configured")

	// ErrNoExtractableText marks a document that produced no usable text
	// even after OCR had its chance.
	ErrNoExtractableText = errors.New("no extractable text found in document")
)

// Recognizer is the slice of the OCR chain the pipeline needs.
type Recognizer interface {
	Configured() bool
	Recognize(ctx context.Context, image []byte) string
}

// DocumentStore is the slice of the database the pipeline writes document
// lifecycle rows through.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error
	CompleteDocument(ctx context.Context, id string, totalPages int) error
}

// Pipeline turns raw uploaded bytes into indexed passages: extract text per
// page, run OCR over page scans and merge, chunk, embed, store.
type Pipeline struct {
	store     DocumentStore
	extractor extract.Extractor
	ocr       Recognizer
	index     *vectorindex.Index

	chunkSize    int
	chunkOverlap int
}

func NewPipeline(store DocumentStore, extractor extract.Extractor, ocr Recognizer, index *vectorindex.Index, chunkSize, chunkOverlap int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = chunker.DefaultMaxSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunker.DefaultOverlap
	}
	return &Pipeline{
		store:        store,
		extractor:    extractor,
		ocr:          ocr,
		index:        index,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Ingest processes one uploaded document end to end. progress is invoked
// with a coarse stage name before each phase; pass nil to skip reporting.
// The document row tracks the same lifecycle, so a crash mid-ingest leaves
// an inspectable "processing" or "failed" record rather than silence.
func (p *Pipeline) Ingest(ctx context.Context, userID, fileName, contentType string, data []byte, progress func(stage string)) (*models.IngestResult, error) {
	report := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	docID := uuid.NewString()
	doc := &models.Document{
		ID:       docID,
		UserID:   userID,
		FileName: fileName,
		Status:   models.DocStatusProcessing,
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document row: %w", err)
	}

	result, err := p.run(ctx, docID, fileName, contentType, data, report)
	if err != nil {
		if uerr := p.store.UpdateDocumentStatus(ctx, docID, models.DocStatusFailed, err.Error()); uerr != nil {
			return nil, fmt.Errorf("%w (and failed to record failure: %v)", err, uerr)
		}
		return nil, err
	}

	if err := p.store.CompleteDocument(ctx, docID, result.TotalPages); err != nil {
		return nil, fmt.Errorf("mark document completed: %w", err)
	}
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, docID, fileName, contentType string, data []byte, report func(stage string)) (*models.IngestResult, error) {
	report("extracting")

	rawPages, err := p.extractor.Extract(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if len(rawPages) == 0 {
		return nil, ErrNoExtractableText
	}

	pages, hadRawText := p.resolvePages(ctx, rawPages, data)
	if allEmpty(pages) {
		if !hadRawText && !p.ocr.Configured() {
			return nil, ErrScannedNoOCR
		}
		return nil, ErrNoExtractableText
	}

	report("chunking")

	var passages []models.Passage
	position := 0
	for _, pg := range pages {
		for _, chunk := range chunker.Split(pg.Text, p.chunkSize, p.chunkOverlap) {
			passages = append(passages, models.Passage{
				ID:         uuid.NewString(),
				DocumentID: docID,
				FileName:   fileName,
				Page:       pg.Page,
				Position:   position,
				Text:       chunk,
			})
			position++
		}
	}
	if len(passages) == 0 {
		return nil, ErrNoExtractableText
	}

	report("embedding")

	if err := p.index.Insert(ctx, passages); err != nil {
		return nil, fmt.Errorf("index passages: %w", err)
	}

	return &models.IngestResult{
		DocumentID:  docID,
		FileName:    fileName,
		TotalPages:  len(pages),
		TotalChunks: len(passages),
		Pages:       pages,
		FullText:    joinPages(pages),
	}, nil
}

// resolvePages merges the extracted text layer with OCR output per page.
// OCR runs only when a backend is configured, and only pages that embed a
// scan image pay its cost; pages are processed concurrently since each OCR
// call is an independent blocking request. hadRawText reports whether the
// text layer alone contained anything, which disambiguates the failure
// reason later.
func (p *Pipeline) resolvePages(ctx context.Context, rawPages []models.PageText, data []byte) (pages []models.PageText, hadRawText bool) {
	pages = make([]models.PageText, len(rawPages))
	ocrReady := p.ocr.Configured()

	for _, pg := range rawPages {
		if strings.TrimSpace(pg.Text) != "" {
			hadRawText = true
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ocrConcurrency)

	for i, pg := range rawPages {
		i, pg := i, pg
		g.Go(func() error {
			var ocrText string
			if ocrReady {
				if img := p.extractor.PageImage(data, pg.Page); len(img) > 0 {
					ocrText = p.ocr.Recognize(gctx, img)
				}
			}
			pages[i] = models.PageText{
				Page: pg.Page,
				Text: textmerge.Merge(pg.Text, ocrText),
			}
			return nil
		})
	}
	_ = g.Wait()

	return pages, hadRawText
}

func allEmpty(pages []models.PageText) bool {
	for _, pg := range pages {
		if strings.TrimSpace(pg.Text) != "" {
			return false
		}
	}
	return true
}

func joinPages(pages []models.PageText) string {
	var b strings.Builder
	for i, pg := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Page %d]\n%s", pg.Page, pg.Text)
	}
	return b.String()
}
