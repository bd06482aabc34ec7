package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/markdave123-py/Docsage/internal/models"
)

// Task is the queue message for one ingestion job. Document bytes travel
// through object storage, not the broker; the message carries only the key.
type Task struct {
	JobID       string `json:"job_id"`
	UserID      string `json:"user_id"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	ObjectKey   string `json:"object_key"`
}

// Uploader is the slice of object storage the queue needs for archiving
// upload bytes before publishing.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Queue enqueues ingestion jobs: archive the bytes, create the job record,
// publish a pointer message.
type Queue struct {
	conn      *amqp.Connection
	store     Store
	objects   Uploader
	queueName string
}

func NewQueue(conn *amqp.Connection, store Store, objects Uploader, queueName string) *Queue {
	return &Queue{conn: conn, store: store, objects: objects, queueName: queueName}
}

// Enqueue registers a queued job and publishes it. The job record is
// written before the publish so a poll racing the broker never sees a
// missing job for an ID we just handed out.
func (q *Queue) Enqueue(ctx context.Context, userID, fileName, contentType string, data []byte) (string, error) {
	jobID := uuid.NewString()
	objectKey := fmt.Sprintf("uploads/%s/%s/%s", userID, jobID, fileName)

	if err := q.objects.Upload(ctx, objectKey, data, contentType); err != nil {
		return "", fmt.Errorf("archive upload: %w", err)
	}

	if err := q.store.Put(ctx, &models.Job{ID: jobID, Status: models.JobStatusQueued}); err != nil {
		return "", fmt.Errorf("create job record: %w", err)
	}

	task := Task{
		JobID:       jobID,
		UserID:      userID,
		FileName:    fileName,
		ContentType: contentType,
		ObjectKey:   objectKey,
	}
	if err := q.publish(ctx, task); err != nil {
		failed := &models.Job{ID: jobID, Status: models.JobStatusFailed, Error: "enqueue failed: " + err.Error()}
		_ = q.store.Put(ctx, failed)
		return "", err
	}
	return jobID, nil
}

func (q *Queue) publish(ctx context.Context, task Task) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		q.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task payload failed: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := ch.PublishWithContext(
		pubCtx,
		"",
		q.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish task failed: %w", err)
	}
	return nil
}
