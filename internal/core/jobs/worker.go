package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/markdave123-py/Docsage/internal/models"
)

// JobTimeout bounds one ingestion run. A job still going after this is
// marked failed and its delivery acked so it never loops through the queue.
const JobTimeout = 10 * time.Minute

// Ingestor is the slice of the ingestion pipeline the worker drives.
type Ingestor interface {
	Ingest(ctx context.Context, userID, fileName, contentType string, data []byte, progress func(stage string)) (*models.IngestResult, error)
}

// Downloader fetches archived upload bytes by object key.
type Downloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// Worker consumes ingestion tasks and executes them through the pipeline,
// mirroring every state change onto the job record for pollers.
type Worker struct {
	conn      *amqp.Connection
	store     Store
	objects   Downloader
	pipeline  Ingestor
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(conn *amqp.Connection, store Store, objects Downloader, pipeline Ingestor, queueName string) *Worker {
	return &Worker{
		conn:      conn,
		store:     store,
		objects:   objects,
		pipeline:  pipeline,
		queueName: queueName,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var task Task
				if err := json.Unmarshal(d.Body, &task); err != nil {
					log.Printf("worker decode task failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				w.RunTask(workerCtx, task)
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// RunTask executes one ingestion job under the watchdog timeout. Every
// outcome, including the timeout, lands on the job record; nothing is
// reported through the queue.
func (w *Worker) RunTask(ctx context.Context, task Task) {
	jobCtx, cancel := context.WithTimeout(ctx, JobTimeout)
	defer cancel()

	w.setStatus(jobCtx, task.JobID, models.JobStatusProcessing, "starting")

	data, err := w.objects.Download(jobCtx, task.ObjectKey)
	if err != nil {
		w.fail(task.JobID, fmt.Errorf("fetch archived upload: %w", err))
		return
	}

	result, err := w.pipeline.Ingest(jobCtx, task.UserID, task.FileName, task.ContentType, data, func(stage string) {
		w.setStatus(jobCtx, task.JobID, models.JobStatusProcessing, stage)
	})
	if err != nil {
		if jobCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("job timed out after %s: %w", JobTimeout, err)
		}
		w.fail(task.JobID, err)
		return
	}

	job := &models.Job{ID: task.JobID, Status: models.JobStatusCompleted, Result: result}
	if perr := w.store.Put(jobCtx, job); perr != nil {
		log.Printf("worker record completion for job %s failed: %v", task.JobID, perr)
	}
}

func (w *Worker) setStatus(ctx context.Context, jobID, status, progress string) {
	job := &models.Job{ID: jobID, Status: status, Progress: progress}
	if err := w.store.Put(ctx, job); err != nil {
		log.Printf("worker update job %s failed: %v", jobID, err)
	}
}

// fail writes with a fresh context so a job killed by the watchdog can
// still record its failure.
func (w *Worker) fail(jobID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job := &models.Job{ID: jobID, Status: models.JobStatusFailed, Error: cause.Error()}
	if err := w.store.Put(ctx, job); err != nil {
		log.Printf("worker record failure for job %s failed: %v", jobID, err)
	}
}

func (w *Worker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
