package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Docsage/internal/core/vectorindex"
	"github.com/markdave123-py/Docsage/internal/models"
)

type fakeDocStore struct {
	created   []models.Document
	statuses  map[string][]string
	lastError string
	completed map[string]int
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{statuses: map[string][]string{}, completed: map[string]int{}}
}

func (f *fakeDocStore) CreateDocument(_ context.Context, doc *models.Document) error {
	f.created = append(f.created, *doc)
	return nil
}

func (f *fakeDocStore) UpdateDocumentStatus(_ context.Context, id, status, errMsg string) error {
	f.statuses[id] = append(f.statuses[id], status)
	f.lastError = errMsg
	return nil
}

func (f *fakeDocStore) CompleteDocument(_ context.Context, id string, totalPages int) error {
	f.statuses[id] = append(f.statuses[id], models.DocStatusCompleted)
	f.completed[id] = totalPages
	return nil
}

type fakeExtractor struct {
	pages  []models.PageText
	err    error
	images map[int][]byte
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) ([]models.PageText, error) {
	return f.pages, f.err
}

func (f *fakeExtractor) PageImage(_ []byte, page int) []byte {
	return f.images[page]
}

type fakeOCR struct {
	configured bool
	byPage     map[string]string
	calls      int
}

func (f *fakeOCR) Configured() bool { return f.configured }

func (f *fakeOCR) Recognize(_ context.Context, image []byte) string {
	f.calls++
	return f.byPage[string(image)]
}

type fakePassageStore struct {
	inserted  []models.Passage
	insertErr error
}

func (f *fakePassageStore) InsertPassages(_ context.Context, passages []models.Passage) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, passages...)
	return nil
}

func (f *fakePassageStore) SearchPassages(_ context.Context, _ []float32, _ int) ([]models.ScoredPassage, error) {
	return nil, nil
}

func (f *fakePassageStore) SearchPassagesByDocument(_ context.Context, _ []float32, _ int, _ string) ([]models.ScoredPassage, error) {
	return nil, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

func newPipeline(store *fakeDocStore, ex *fakeExtractor, o *fakeOCR, ps *fakePassageStore) *Pipeline {
	ix := vectorindex.NewIndex(ps, fakeEmbedder{})
	return NewPipeline(store, ex, o, ix, 800, 200)
}

func TestIngestRoundTrip(t *testing.T) {
	store := newFakeDocStore()
	ps := &fakePassageStore{}
	ex := &fakeExtractor{pages: []models.PageText{
		{Page: 1, Text: "Intro text about the system under study."},
		{Page: 2, Text: ""},
		{Page: 3, Text: "Closing remarks and references."},
	}}
	p := newPipeline(store, ex, &fakeOCR{}, ps)

	var stages []string
	res, err := p.Ingest(context.Background(), "user-1", "paper.pdf", "application/pdf", []byte("%PDF-"), func(s string) {
		stages = append(stages, s)
	})
	require.NoError(t, err)

	require.Equal(t, 3, res.TotalPages)
	require.Equal(t, "paper.pdf", res.FileName)
	require.NotEmpty(t, res.DocumentID)
	require.Equal(t, []string{"extracting", "chunking", "embedding"}, stages)

	// Empty page 2 yields no passages but still counts toward total pages.
	require.Equal(t, res.TotalChunks, len(ps.inserted))
	for _, pass := range ps.inserted {
		require.NotEqual(t, 2, pass.Page)
		require.Equal(t, res.DocumentID, pass.DocumentID)
		require.Equal(t, "paper.pdf", pass.FileName)
	}

	// Positions are a single ordinal sequence in page order.
	for i, pass := range ps.inserted {
		require.Equal(t, i, pass.Position)
	}

	require.Contains(t, res.FullText, "[Page 1]")
	require.Contains(t, res.FullText, "[Page 3]")
	require.Equal(t, 3, store.completed[res.DocumentID])
}

func TestIngestScannedWithoutOCRFails(t *testing.T) {
	store := newFakeDocStore()
	ex := &fakeExtractor{pages: []models.PageText{{Page: 1, Text: ""}, {Page: 2, Text: "  "}}}
	p := newPipeline(store, ex, &fakeOCR{configured: false}, &fakePassageStore{})

	_, err := p.Ingest(context.Background(), "user-1", "scan.pdf", "application/pdf", []byte("%PDF-"), nil)
	require.ErrorIs(t, err, ErrScannedNoOCR)

	require.Len(t, store.created, 1)
	docID := store.created[0].ID
	require.Contains(t, store.statuses[docID], models.DocStatusFailed)
	require.Contains(t, store.lastError, "no OCR engine")
}

func TestIngestEmptyAfterOCRFails(t *testing.T) {
	store := newFakeDocStore()
	ex := &fakeExtractor{
		pages:  []models.PageText{{Page: 1, Text: ""}},
		images: map[int][]byte{1: []byte("img1")},
	}
	o := &fakeOCR{configured: true, byPage: map[string]string{}}
	p := newPipeline(store, ex, o, &fakePassageStore{})

	_, err := p.Ingest(context.Background(), "user-1", "blank.pdf", "application/pdf", []byte("%PDF-"), nil)
	require.ErrorIs(t, err, ErrNoExtractableText)
	require.Equal(t, 1, o.calls)
}

func TestIngestMergesOCRIntoPageText(t *testing.T) {
	store := newFakeDocStore()
	ps := &fakePassageStore{}
	ex := &fakeExtractor{
		pages:  []models.PageText{{Page: 1, Text: ""}},
		images: map[int][]byte{1: []byte("img1")},
	}
	o := &fakeOCR{configured: true, byPage: map[string]string{
		"img1": "Recovered caption from the page scan.",
	}}
	p := newPipeline(store, ex, o, ps)

	res, err := p.Ingest(context.Background(), "user-1", "scan.pdf", "application/pdf", []byte("%PDF-"), nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalChunks)
	require.True(t, strings.Contains(ps.inserted[0].Text, "Recovered caption"))
}

func TestIngestIndexFailureMarksDocumentFailed(t *testing.T) {
	store := newFakeDocStore()
	ps := &fakePassageStore{insertErr: errors.New("insert refused")}
	ex := &fakeExtractor{pages: []models.PageText{{Page: 1, Text: "Some indexable content here."}}}
	p := newPipeline(store, ex, &fakeOCR{}, ps)

	_, err := p.Ingest(context.Background(), "user-1", "doc.pdf", "application/pdf", []byte("%PDF-"), nil)
	require.ErrorContains(t, err, "insert refused")

	docID := store.created[0].ID
	require.Contains(t, store.statuses[docID], models.DocStatusFailed)
	require.Empty(t, ps.inserted)
}

func TestIngestExtractionErrorPropagates(t *testing.T) {
	store := newFakeDocStore()
	ex := &fakeExtractor{err: errors.New("corrupt document")}
	p := newPipeline(store, ex, &fakeOCR{}, &fakePassageStore{})

	_, err := p.Ingest(context.Background(), "user-1", "bad.pdf", "application/pdf", []byte("junk"), nil)
	require.ErrorContains(t, err, "corrupt document")
	require.Contains(t, store.statuses[store.created[0].ID], models.DocStatusFailed)
}
