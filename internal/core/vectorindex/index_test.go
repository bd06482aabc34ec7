package vectorindex

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Docsage/internal/models"
)

type fakeEmbedder struct {
	calls [][]string
	fail  bool
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.fail {
		return nil, errors.New("embed quota exceeded")
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	inserted     []models.Passage
	insertErr    error
	filteredErr  error
	hits         []models.ScoredPassage
	filteredHits []models.ScoredPassage
}

func (f *fakeStore) InsertPassages(_ context.Context, passages []models.Passage) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, passages...)
	return nil
}

func (f *fakeStore) SearchPassages(_ context.Context, _ []float32, limit int) ([]models.ScoredPassage, error) {
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func (f *fakeStore) SearchPassagesByDocument(_ context.Context, _ []float32, limit int, documentID string) ([]models.ScoredPassage, error) {
	if f.filteredErr != nil {
		return nil, f.filteredErr
	}
	var out []models.ScoredPassage
	for _, h := range f.filteredHits {
		if h.DocumentID == documentID {
			out = append(out, h)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func scored(id, docID string, page int) models.ScoredPassage {
	return models.ScoredPassage{
		Passage: models.Passage{ID: id, DocumentID: docID, Page: page, Text: "t"},
		Score:   0.5,
	}
}

func TestInsertEmbedsAllTextsInOneBatch(t *testing.T) {
	emb := &fakeEmbedder{}
	store := &fakeStore{}
	ix := NewIndex(store, emb)

	passages := []models.Passage{
		{ID: "p1", Text: "first"},
		{ID: "p2", Text: "second"},
	}
	require.NoError(t, ix.Insert(context.Background(), passages))

	require.Len(t, emb.calls, 1)
	require.Equal(t, []string{"first", "second"}, emb.calls[0])
	require.Len(t, store.inserted, 2)
	require.NotEmpty(t, store.inserted[0].Embedding)
}

func TestInsertNothingStoredWhenEmbeddingFails(t *testing.T) {
	store := &fakeStore{}
	ix := NewIndex(store, &fakeEmbedder{fail: true})

	err := ix.Insert(context.Background(), []models.Passage{{ID: "p1", Text: "a"}})
	require.Error(t, err)
	require.Empty(t, store.inserted)
}

func TestInsertPropagatesStoreError(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	ix := NewIndex(store, &fakeEmbedder{})

	err := ix.Insert(context.Background(), []models.Passage{{ID: "p1", Text: "a"}})
	require.ErrorContains(t, err, "db down")
}

func TestSearchScopedReturnsOnlyRequestedDocument(t *testing.T) {
	store := &fakeStore{
		filteredHits: []models.ScoredPassage{
			scored("a1", "doc-a", 1),
			scored("a2", "doc-a", 2),
			scored("b1", "doc-b", 1),
		},
	}
	ix := NewIndex(store, &fakeEmbedder{})

	hits, err := ix.Search(context.Background(), "question", 8, "doc-a")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		require.Equal(t, "doc-a", h.DocumentID)
	}
}

func TestSearchFallsBackToClientSideFilter(t *testing.T) {
	store := &fakeStore{
		filteredErr: errors.New("index degraded"),
		hits: []models.ScoredPassage{
			scored("b1", "doc-b", 1),
			scored("a1", "doc-a", 1),
			scored("a2", "doc-a", 2),
		},
	}
	ix := NewIndex(store, &fakeEmbedder{})

	hits, err := ix.Search(context.Background(), "question", 2, "doc-a")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		require.Equal(t, "doc-a", h.DocumentID)
	}
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	ix := NewIndex(&fakeStore{}, &fakeEmbedder{})
	hits, err := ix.Search(context.Background(), "", 4, "")
	require.NoError(t, err)
	require.Nil(t, hits)
}
