package db

import (
	"context"

	"github.com/markdave123-py/Docsage/internal/models"
)

// DbClient defines all persistence operations the pipelines need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) (err error)
	GetUserByEmail(ctx context.Context, email string) (user *models.User, err error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
	UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error
	CompleteDocument(ctx context.Context, id string, totalPages int) error

	InsertPassages(ctx context.Context, passages []models.Passage) error
	SearchPassages(ctx context.Context, queryVec []float32, limit int) ([]models.ScoredPassage, error)
	SearchPassagesByDocument(ctx context.Context, queryVec []float32, limit int, documentID string) ([]models.ScoredPassage, error)

	AppendConversationTurns(ctx context.Context, threadID, documentID string, turns []models.ConversationTurn) error
	GetConversation(ctx context.Context, threadID string) (*models.Conversation, error)

	Close() error
}
