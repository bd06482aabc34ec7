package app

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	redisv9 "github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Docsage/internal/config"
	db "github.com/markdave123-py/Docsage/internal/core/database"
	"github.com/markdave123-py/Docsage/internal/core/extract"
	"github.com/markdave123-py/Docsage/internal/core/ingest"
	"github.com/markdave123-py/Docsage/internal/core/jobs"
	"github.com/markdave123-py/Docsage/internal/core/llm"
	objectclient "github.com/markdave123-py/Docsage/internal/core/object-client"
	"github.com/markdave123-py/Docsage/internal/core/vectorindex"
)

// WorkerApp is the queue-consumer process: no HTTP surface, just the
// ingestion pipeline fed from RabbitMQ. Unlike the API it refuses to start
// without its backing services, because without them it has no job.
type WorkerApp struct {
	DBClient db.DbClient
	Redis    *redisv9.Client
	Rabbit   *amqp.Connection
	Embedder *llm.GeminiEmbedder
	Worker   *jobs.Worker
}

func NewWorkerApp(ctx context.Context, cfg *config.Config) (*WorkerApp, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	redisClient, err := connectRedis(appCtx, cfg)
	if err != nil {
		_ = dbClient.Close()
		return nil, err
	}

	rabbitConn, err := connectRabbit(cfg.RabbitURL)
	if err != nil {
		_ = redisClient.Close()
		_ = dbClient.Close()
		return nil, err
	}

	objClient, err := objectclient.NewS3Client(appCtx, cfg)
	if err != nil {
		_ = rabbitConn.Close()
		_ = redisClient.Close()
		_ = dbClient.Close()
		return nil, err
	}

	geminiEmbedder, err := llm.NewGeminiEmbedder(appCtx, cfg.AIAPIKey, cfg.EmbedModel)
	if err != nil {
		_ = rabbitConn.Close()
		_ = redisClient.Close()
		_ = dbClient.Close()
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}

	index := vectorindex.NewIndex(dbClient, geminiEmbedder)
	pipeline := ingest.NewPipeline(dbClient, extract.NewCombined(), buildOcrChain(cfg), index, cfg.ChunkSize, cfg.ChunkOverlap)

	jobStore := jobs.NewRedisStore(redisClient, jobs.DefaultJobTTL)
	worker := jobs.NewWorker(rabbitConn, jobStore, objClient, pipeline, cfg.JobQueueName)

	return &WorkerApp{
		DBClient: dbClient,
		Redis:    redisClient,
		Rabbit:   rabbitConn,
		Embedder: geminiEmbedder,
		Worker:   worker,
	}, nil
}

func (a *WorkerApp) Close() {
	if a.Worker != nil {
		a.Worker.Close()
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
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
