package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/Docsage/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Docsage/internal/api/middlewares"
	"github.com/markdave123-py/Docsage/internal/config"
	db "github.com/markdave123-py/Docsage/internal/core/database"
	"github.com/markdave123-py/Docsage/internal/core/ingest"
	"github.com/markdave123-py/Docsage/internal/core/jobs"
	"github.com/markdave123-py/Docsage/internal/core/query"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(ctx context.Context, cfg *config.Config, dbClient db.DbClient, ingestPipeline *ingest.Pipeline, queue handlers.Enqueuer, jobStore jobs.Store, queryPipeline *query.Pipeline) *Server {
	authHandler := handlers.NewAuthHandler(dbClient, cfg)
	docHandler := handlers.NewDocumentHandler(dbClient, ingestPipeline, queue, jobStore)
	chatHandler := handlers.NewChatHandler(dbClient, queryPipeline)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))

			protected.Post("/documents/upload", docHandler.UploadDocument)
			protected.Post("/documents/upload/async", docHandler.UploadDocumentAsync)
			protected.Get("/documents", docHandler.GetDocuments)
			protected.Get("/jobs/{jobID}", docHandler.GetJobStatus)

			protected.Post("/chat/query", chatHandler.Query)
			protected.Post("/chat/document", chatHandler.QueryDocument)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
