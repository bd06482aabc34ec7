package app

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	redisv9 "github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Docsage/internal/api/handlers"
	"github.com/markdave123-py/Docsage/internal/config"
	"github.com/markdave123-py/Docsage/internal/core"
	db "github.com/markdave123-py/Docsage/internal/core/database"
	"github.com/markdave123-py/Docsage/internal/core/extract"
	"github.com/markdave123-py/Docsage/internal/core/ingest"
	"github.com/markdave123-py/Docsage/internal/core/jobs"
	"github.com/markdave123-py/Docsage/internal/core/llm"
	"github.com/markdave123-py/Docsage/internal/core/memory"
	objectclient "github.com/markdave123-py/Docsage/internal/core/object-client"
	"github.com/markdave123-py/Docsage/internal/core/ocr"
	"github.com/markdave123-py/Docsage/internal/core/query"
	"github.com/markdave123-py/Docsage/internal/core/vectorindex"
)

// App owns every long-lived client handle. Each is constructed once at
// startup and injected; nothing is re-created per request.
type App struct {
	DBClient     db.DbClient
	ObjectClient objectclient.ObjectClient
	Redis        *redisv9.Client
	Rabbit       *amqp.Connection
	Embedder     *llm.GeminiEmbedder
	LLM          *llm.GeminiLLM

	Ingest   *ingest.Pipeline
	Query    *query.Pipeline
	JobStore jobs.Store
	Queue    *jobs.Queue
	Server   *Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}

	llmProvider, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the generator, %w", err)
	}

	a := &App{
		DBClient: dbClient,
		Embedder: geminiEmbedder,
		LLM:      llmProvider,
	}

	index := vectorindex.NewIndex(dbClient, geminiEmbedder)
	ocrChain := buildOcrChain(cfg)
	extractor := extract.NewCombined()

	a.Ingest = ingest.NewPipeline(dbClient, extractor, ocrChain, index, cfg.ChunkSize, cfg.ChunkOverlap)

	mem := memory.NewConversationMemory(dbClient)
	a.Query = query.NewPipeline(index, llmProvider, mem, dbClient)

	// The async path needs Redis, RabbitMQ and S3 together. Any of them
	// missing at startup disables enqueueing; uploads then run inline.
	a.wireAsync(appCtx, cfg)

	var enqueuer handlers.Enqueuer
	if a.Queue != nil {
		enqueuer = a.Queue
	}
	a.Server = NewServer(ctx, cfg, dbClient, a.Ingest, enqueuer, a.JobStore, a.Query)

	return a, nil
}

func (a *App) wireAsync(ctx context.Context, cfg *config.Config) {
	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		log.Printf("redis unavailable, async ingestion disabled: %v", err)
		return
	}
	a.Redis = redisClient
	a.JobStore = jobs.NewRedisStore(redisClient, jobs.DefaultJobTTL)

	objClient, err := objectclient.NewS3Client(ctx, cfg)
	if err != nil {
		log.Printf("object storage unavailable, async ingestion disabled: %v", err)
		return
	}
	a.ObjectClient = objClient

	rabbitConn, err := connectRabbit(cfg.RabbitURL)
	if err != nil {
		log.Printf("rabbitmq unavailable, async ingestion disabled: %v", err)
		return
	}
	a.Rabbit = rabbitConn
	a.Queue = jobs.NewQueue(rabbitConn, a.JobStore, objClient, cfg.JobQueueName)
	log.Println("Async ingestion queue initialized and ready.")
}

func connectRedis(ctx context.Context, cfg *config.Config) (*redisv9.Client, error) {
	client := redisv9.NewClient(&redisv9.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPass,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis failed: %w", err)
	}
	return client, nil
}

func connectRabbit(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}
	return conn, nil
}

// buildOcrChain orders engines by preference: the remote API first when
// configured, local Tesseract as the fallback.
func buildOcrChain(cfg *config.Config) *ocr.Chain {
	var engines []core.OcrEngine
	if cfg.OcrAPIURL != "" {
		engines = append(engines, ocr.NewRemoteEngine(cfg.OcrAPIURL, cfg.OcrAPIKey))
	}
	if cfg.OcrTesseract {
		engines = append(engines, ocr.NewTesseractEngine())
	}
	return ocr.NewChain(engines...)
}

func (a *App) Close() {
	if a.Server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = a.Server.Shutdown(shutdownCtx)
	}
	if a.Rabbit != nil {
		_ = a.Rabbit.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.LLM != nil {
		_ = a.LLM.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
