package vectorindex

import (
	"context"
	"fmt"
	"log"

	"github.com/markdave123-py/Docsage/internal/core"
	"github.com/markdave123-py/Docsage/internal/models"
)

// PassageStore is the slice of the database the index needs. The pgx
// client satisfies it.
type PassageStore interface {
	InsertPassages(ctx context.Context, passages []models.Passage) error
	SearchPassages(ctx context.Context, queryVec []float32, limit int) ([]models.ScoredPassage, error)
	SearchPassagesByDocument(ctx context.Context, queryVec []float32, limit int, documentID string) ([]models.ScoredPassage, error)
}

// Index pairs an embedding provider with passage storage so callers hand
// over plain text and get similarity hits back.
type Index struct {
	store    PassageStore
	embedder core.EmbeddingProvider
}

func NewIndex(store PassageStore, embedder core.EmbeddingProvider) *Index {
	return &Index{store: store, embedder: embedder}
}

// Insert embeds every passage text in one batch call and stores the rows.
// Either all passages land or none do.
func (ix *Index) Insert(ctx context.Context, passages []models.Passage) error {
	if len(passages) == 0 {
		return nil
	}

	texts := make([]string, len(passages))
	for i := range passages {
		texts[i] = passages[i].Text
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed passages: %w", err)
	}
	if len(vectors) != len(passages) {
		return fmt.Errorf("embedder returned %d vectors for %d passages", len(vectors), len(passages))
	}

	for i := range passages {
		passages[i].Embedding = vectors[i]
	}

	if err := ix.store.InsertPassages(ctx, passages); err != nil {
		return fmt.Errorf("store passages: %w", err)
	}
	return nil
}

// Search embeds the query and returns the top-k nearest passages. A
// non-empty documentID restricts results to that document; if the filtered
// query fails we retry unfiltered and drop foreign hits client-side rather
// than surface an error for a degraded index.
func (ix *Index) Search(ctx context.Context, query string, k int, documentID string) ([]models.ScoredPassage, error) {
	if query == "" || k <= 0 {
		return nil, nil
	}

	vectors, err := ix.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}
	queryVec := vectors[0]

	if documentID == "" {
		return ix.store.SearchPassages(ctx, queryVec, k)
	}

	hits, err := ix.store.SearchPassagesByDocument(ctx, queryVec, k, documentID)
	if err == nil {
		return hits, nil
	}
	log.Printf("filtered search failed for document %s, falling back to client-side filter: %v", documentID, err)

	// Over-fetch so the post-filter still has a chance of returning k hits.
	all, ferr := ix.store.SearchPassages(ctx, queryVec, k*10)
	if ferr != nil {
		return nil, fmt.Errorf("fallback search: %w", ferr)
	}
	var filtered []models.ScoredPassage
	for _, h := range all {
		if h.DocumentID == documentID {
			filtered = append(filtered, h)
			if len(filtered) == k {
				break
			}
		}
	}
	return filtered, nil
}
