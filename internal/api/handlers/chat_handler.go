package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	db "github.com/markdave123-py/Docsage/internal/core/database"
	"github.com/markdave123-py/Docsage/internal/core/query"
)

type ChatHandler struct {
	dbclient db.DbClient
	pipeline *query.Pipeline
}

func NewChatHandler(dbclient db.DbClient, pipeline *query.Pipeline) *ChatHandler {
	return &ChatHandler{dbclient: dbclient, pipeline: pipeline}
}

type queryRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

type documentQueryRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
	ThreadID   string `json:"thread_id"`
}

// Query answers a question against everything the user has indexed.
func (h *ChatHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", 400)
		return
	}
	if req.Question == "" {
		http.Error(w, "question required", 400)
		return
	}

	answer, err := h.pipeline.Query(ctx, userID, req.Question, req.K)
	if err != nil {
		http.Error(w, fmt.Sprintf("query failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(answer)
}

// QueryDocument answers a question scoped to one document the user owns,
// optionally continuing a conversation thread.
func (h *ChatHandler) QueryDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := ctx.Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req documentQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", 400)
		return
	}
	if req.DocumentID == "" || req.Question == "" {
		http.Error(w, "document_id and question required", 400)
		return
	}

	// Confirm document belongs to user
	doc, err := h.dbclient.GetDocumentByID(ctx, req.DocumentID)
	if err != nil || doc == nil {
		http.Error(w, "document not found", http.StatusNotFound)
		return
	}
	if doc.UserID != userID {
		http.Error(w, "you are not authorized to access this document", http.StatusForbidden)
		return
	}

	answer, err := h.pipeline.DocumentQuery(ctx, req.DocumentID, req.ThreadID, req.Question)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(answer)
}

// writeQueryError keeps the failure reasons distinguishable: a missing
// document, one still processing and one that failed ingestion each ask the
// caller to do something different.
func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, query.ErrDocumentNotFound):
		http.Error(w, "document not found", http.StatusNotFound)
	case errors.Is(err, query.ErrDocumentProcessing):
		http.Error(w, "this document is still processing; try again shortly", http.StatusConflict)
	case errors.Is(err, query.ErrDocumentFailed):
		http.Error(w, fmt.Sprintf("this document failed to process: %v; try re-uploading", err), http.StatusUnprocessableEntity)
	default:
		http.Error(w, fmt.Sprintf("query failed: %v", err), http.StatusInternalServerError)
	}
}
