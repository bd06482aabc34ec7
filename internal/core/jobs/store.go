package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/markdave123-py/Docsage/internal/models"
)

// ErrJobNotFound covers both never-enqueued IDs and records whose TTL
// expired; the two are indistinguishable once Redis drops the key.
var ErrJobNotFound = errors.New("job not found or expired")

// DefaultJobTTL is how long a job record survives after its last update.
// Completed results linger an hour for the caller to collect, then vanish.
const DefaultJobTTL = time.Hour

// Store tracks async ingestion jobs by ID.
type Store interface {
	Put(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, jobID string) (*models.Job, error)
}

// RedisStore keeps job records as JSON values with a sliding TTL: every
// write refreshes the clock, so a job only expires after going quiet.
type RedisStore struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisStore(client *redisv9.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, job *models.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job record needs an ID")
	}
	job.UpdatedAt = time.Now().UTC()

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job record: %w", err)
	}
	if err := s.client.Set(ctx, jobKey(job.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set job failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*models.Job, error) {
	raw, err := s.client.Get(ctx, jobKey(jobID)).Result()
	if err == redisv9.Nil {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get job failed: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job record: %w", err)
	}
	return &job, nil
}

func jobKey(jobID string) string {
	return fmt.Sprintf("ingest:job:%s", jobID)
}

var _ Store = (*RedisStore)(nil)
