package models

import (
	"time"
)

// Document statuses, written by the ingestion pipeline.
const (
	DocStatusQueued     = "queued"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Job statuses, written by the queue worker.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents one uploaded file, identified by a generated id.
type Document struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	StorageURL string    `db:"storage_url" json:"storage_url"` // S3 URL, empty for sync-only ingests
	TotalPages int       `db:"total_pages" json:"total_pages"`
	Status     string    `db:"status" json:"status"` // queued | processing | completed | failed
	Error      string    `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// PageText is the merged, cleaned text of one page. Immutable after ingestion.
type PageText struct {
	Page int    `json:"page"` // 1-based
	Text string `json:"text"`
}

// Passage is the unit of retrieval: one bounded chunk of one page's text,
// stored in the vector index with its embedding and filter metadata.
type Passage struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	Page       int       `db:"page" json:"page"`
	Position   int       `db:"position" json:"position"` // passage ordinal within the document
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"-"` // pgvector column
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ScoredPassage is a search hit: a stored passage plus its vector distance
// to the query (smaller is closer).
type ScoredPassage struct {
	Passage
	Score float64 `json:"score"`
}

// IngestResult is the summary returned by a completed ingestion, identical
// for the synchronous and the asynchronous path.
type IngestResult struct {
	DocumentID  string     `json:"document_id"`
	FileName    string     `json:"filename"`
	TotalPages  int        `json:"total_pages"`
	TotalChunks int        `json:"total_chunks"`
	Pages       []PageText `json:"pages"`
	FullText    string     `json:"full_text"`
}

// Job tracks one asynchronous ingestion request through its lifecycle.
// Records live in Redis with a bounded TTL; every status write refreshes it.
type Job struct {
	ID        string        `json:"job_id"`
	Status    string        `json:"status"` // queued | processing | completed | failed
	Progress  string        `json:"progress,omitempty"`
	Result    *IngestResult `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// ConversationTurn is a single message in a thread, either the user's
// question or the assistant's answer.
type ConversationTurn struct {
	Role    string `db:"role" json:"role"` // "user" or "assistant"
	Content string `db:"content" json:"content"`
}

// Conversation is the append-only transcript for one thread, scoped to the
// document it discusses.
type Conversation struct {
	ThreadID   string             `db:"thread_id" json:"thread_id"`
	DocumentID string             `db:"document_id" json:"document_id"`
	Turns      []ConversationTurn `json:"turns"`
}

// QueryAnswer is the response of a global (unscoped) query.
type QueryAnswer struct {
	Answer      string `json:"answer"`
	ContextUsed string `json:"context_used"`
}

// DocumentAnswer is the response of a document-scoped query.
type DocumentAnswer struct {
	Answer     string `json:"answer"`
	ThreadID   string `json:"thread_id,omitempty"`
	NotRelated bool   `json:"not_related,omitempty"`
}
