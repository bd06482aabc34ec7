package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	db "github.com/markdave123-py/Docsage/internal/core/database"
	"github.com/markdave123-py/Docsage/internal/core/ingest"
	"github.com/markdave123-py/Docsage/internal/core/jobs"
	"github.com/markdave123-py/Docsage/internal/models"
)

const maxUploadBytes = 52 << 20 // 52 MB

// Extensions docconv or the PDF extractor can actually read. Anything else
// is rejected up front instead of failing mid-pipeline.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".odt":  true,
	".rtf":  true,
	".html": true,
	".txt":  true,
	".md":   true,
}

// Enqueuer is the async path; nil means the queue was never configured.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID, fileName, contentType string, data []byte) (string, error)
}

type DocumentHandler struct {
	dbclient db.DbClient
	pipeline *ingest.Pipeline
	queue    Enqueuer
	jobStore jobs.Store
}

func NewDocumentHandler(dbclient db.DbClient, pipeline *ingest.Pipeline, queue Enqueuer, jobStore jobs.Store) *DocumentHandler {
	return &DocumentHandler{dbclient: dbclient, pipeline: pipeline, queue: queue, jobStore: jobStore}
}

// UploadDocument ingests synchronously: the request blocks until the file
// is extracted, chunked, embedded and indexed, then returns the full result.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, fileName, contentType, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	ingestCtx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := h.pipeline.Ingest(ingestCtx, userID, fileName, contentType, data, nil)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// UploadDocumentAsync enqueues the upload and returns a job ID for polling.
// When the queue is unreachable the upload is processed inline instead, and
// the caller still gets a job ID whose record is already terminal.
func (h *DocumentHandler) UploadDocumentAsync(w http.ResponseWriter, r *http.Request) {
	userID, fileName, contentType, data, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	if h.queue != nil {
		jobID, err := h.queue.Enqueue(r.Context(), userID, fileName, contentType, data)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"job_id": jobID, "status": models.JobStatusQueued})
			return
		}
		log.Printf("enqueue failed, falling back to synchronous ingestion: %v", err)
	}

	ingestCtx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	result, err := h.pipeline.Ingest(ingestCtx, userID, fileName, contentType, data, nil)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GetJobStatus reports the job record as-is. Completed jobs carry the same
// result shape synchronous ingestion returns; expired IDs are a 404.
func (h *DocumentHandler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if jobID == "" {
		http.Error(w, "missing job id", 400)
		return
	}
	if h.jobStore == nil {
		http.Error(w, "job tracking unavailable", http.StatusServiceUnavailable)
		return
	}

	job, err := h.jobStore.Get(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		http.Error(w, "job not found or expired", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("job lookup failed: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return
	}

	documents, err := h.dbclient.ListDocumentsByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documents)
}

// readUpload parses the multipart form and rejects files the extractors
// cannot handle. The bool result reports whether the response was already
// written.
func (h *DocumentHandler) readUpload(w http.ResponseWriter, r *http.Request) (userID, fileName, contentType string, data []byte, ok bool) {
	userID, authed := r.Context().Value("user_id").(string)
	if !authed {
		http.Error(w, "user_id not found in context", http.StatusUnauthorized)
		return "", "", "", nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return "", "", "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "invalid file", http.StatusBadRequest)
		return "", "", "", nil, false
	}
	defer file.Close()

	// Sanitize filename to prevent path traversal or invalid characters
	fileName = filepath.Base(header.Filename)

	ext := strings.ToLower(filepath.Ext(fileName))
	if !allowedExtensions[ext] {
		http.Error(w, fmt.Sprintf("unsupported file type %q", ext), http.StatusBadRequest)
		return "", "", "", nil, false
	}

	contentType = header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err = io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read upload", http.StatusBadRequest)
		return "", "", "", nil, false
	}
	if len(data) == 0 {
		http.Error(w, "empty file", http.StatusBadRequest)
		return "", "", "", nil, false
	}

	return userID, fileName, contentType, data, true
}

// writeIngestError maps pipeline failures to distinct user-facing reasons.
func writeIngestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ingest.ErrScannedNoOCR):
		http.Error(w, "this document appears to be scanned and no OCR engine is configured; install or configure one to ingest scans", http.StatusUnprocessableEntity)
	case errors.Is(err, ingest.ErrNoExtractableText):
		http.Error(w, "no extractable text found in this document", http.StatusUnprocessableEntity)
	default:
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), http.StatusInternalServerError)
	}
}
