package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/Docsage/internal/config"
	"github.com/markdave123-py/Docsage/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	sqlDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: sqlDB}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Implementing the db interface for user

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, first_name, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Implementing the db interface for Document

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, storage_url, total_pages, status, error, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), COALESCE($9, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.StorageURL, doc.TotalPages, doc.Status, doc.Error, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, total_pages, status, error, created_at, updated_at
		FROM documents
		WHERE id = $1
	`
	var d models.Document
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.UserID, &d.FileName, &d.StorageURL, &d.TotalPages, &d.Status, &d.Error, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	const q = `
		SELECT id, user_id, file_name, storage_url, total_pages, status, error, created_at, updated_at
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(
			&d.ID, &d.UserID, &d.FileName, &d.StorageURL, &d.TotalPages, &d.Status, &d.Error, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id, status, errMsg string) error {
	const q = `
		UPDATE documents
		SET status = $2, error = $3, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status, errMsg)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) CompleteDocument(ctx context.Context, id string, totalPages int) error {
	const q = `
		UPDATE documents
		SET status = $2, total_pages = $3, error = '', updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, models.DocStatusCompleted, totalPages)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// Implementing the db interface for Passages

// InsertPassages inserts passages in a single transaction, so a failure
// partway leaves nothing behind.
func (c *DatabaseClient) InsertPassages(ctx context.Context, passages []models.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO passages
			(id, document_id, file_name, page, position, text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range passages {
		p := &passages[i]
		vec := pgvector.NewVector(p.Embedding)

		if _, err := stmt.ExecContext(ctx,
			p.ID, p.DocumentID, p.FileName, p.Page, p.Position, p.Text, vec, p.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchPassages finds the top-k similar passages across all documents.
func (c *DatabaseClient) SearchPassages(ctx context.Context, queryVec []float32, limit int) ([]models.ScoredPassage, error) {
	const q = `
		SELECT id, document_id, file_name, page, position, text, embedding <-> $1 AS distance
		FROM passages
		ORDER BY embedding <-> $1
		LIMIT $2
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredPassages(rows)
}

// SearchPassagesByDocument finds the top-k similar passages within one
// document. The equality filter on document_id is the sole mechanism
// preventing cross-document leakage at query time.
func (c *DatabaseClient) SearchPassagesByDocument(ctx context.Context, queryVec []float32, limit int, documentID string) ([]models.ScoredPassage, error) {
	const q = `
		SELECT id, document_id, file_name, page, position, text, embedding <-> $2 AS distance
		FROM passages
		WHERE document_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, documentID, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanScoredPassages(rows)
}

func scanScoredPassages(rows *sql.Rows) ([]models.ScoredPassage, error) {
	var out []models.ScoredPassage
	for rows.Next() {
		var sp models.ScoredPassage
		if err := rows.Scan(
			&sp.ID, &sp.DocumentID, &sp.FileName, &sp.Page, &sp.Position, &sp.Text, &sp.Score,
		); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// Implementing the db interface for Conversations

// AppendConversationTurns upserts the conversation row and appends the new
// turns in one transaction. The upsert takes a row lock on the thread, so
// concurrent appends to the same thread_id serialize while different
// threads proceed independently.
func (c *DatabaseClient) AppendConversationTurns(ctx context.Context, threadID, documentID string, turns []models.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const upsert = `
		INSERT INTO conversations (thread_id, document_id, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (thread_id)
		DO UPDATE SET document_id = EXCLUDED.document_id, updated_at = now()
	`
	if _, err := tx.ExecContext(ctx, upsert, threadID, documentID); err != nil {
		_ = tx.Rollback()
		return err
	}

	const insertTurn = `
		INSERT INTO conversation_turns (thread_id, role, content)
		VALUES ($1, $2, $3)
	`
	for _, t := range turns {
		if _, err := tx.ExecContext(ctx, insertTurn, threadID, t.Role, t.Content); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (c *DatabaseClient) GetConversation(ctx context.Context, threadID string) (*models.Conversation, error) {
	const q = `SELECT thread_id, document_id FROM conversations WHERE thread_id = $1`

	var conv models.Conversation
	err := c.db.QueryRowContext(ctx, q, threadID).Scan(&conv.ThreadID, &conv.DocumentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	const turnsQ = `
		SELECT role, content
		FROM conversation_turns
		WHERE thread_id = $1
		ORDER BY id ASC
	`
	rows, err := c.db.QueryContext(ctx, turnsQ, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var t models.ConversationTurn
		if err := rows.Scan(&t.Role, &t.Content); err != nil {
			return nil, err
		}
		conv.Turns = append(conv.Turns, t)
	}
	return &conv, rows.Err()
}
