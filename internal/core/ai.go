package core

import "context"

// EmbeddingProvider turns text into fixed-length vectors. The same provider
// and model must serve every insert and every query against one index;
// mixing models invalidates similarity comparisons.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider is a single-turn text completion; no session state is assumed.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// OcrEngine extracts text from a rendered page image. Implementations may
// be network-backed or local; callers treat any failure as "no text".
type OcrEngine interface {
	Name() string
	Available() bool
	Recognize(ctx context.Context, image []byte) (string, error)
}
