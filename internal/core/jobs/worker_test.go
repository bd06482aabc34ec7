package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Docsage/internal/models"
)

type fakeJobStore struct {
	records map[string]models.Job
	history []models.Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{records: map[string]models.Job{}}
}

func (f *fakeJobStore) Put(_ context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now().UTC()
	f.records[job.ID] = *job
	f.history = append(f.history, *job)
	return nil
}

func (f *fakeJobStore) Get(_ context.Context, jobID string) (*models.Job, error) {
	job, ok := f.records[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

type fakeObjects struct {
	blobs map[string][]byte
	err   error
}

func (f *fakeObjects) Download(_ context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.blobs[key]
	if !ok {
		return nil, errors.New("object missing: " + key)
	}
	return data, nil
}

type fakeIngestor struct {
	result *models.IngestResult
	err    error
	stages []string
	got    []byte
}

func (f *fakeIngestor) Ingest(_ context.Context, _, _, _ string, data []byte, progress func(string)) (*models.IngestResult, error) {
	f.got = data
	if progress != nil {
		for _, s := range []string{"extracting", "chunking", "embedding"} {
			progress(s)
			f.stages = append(f.stages, s)
		}
	}
	return f.result, f.err
}

func testTask() Task {
	return Task{
		JobID:       "job-1",
		UserID:      "user-1",
		FileName:    "paper.pdf",
		ContentType: "application/pdf",
		ObjectKey:   "uploads/job-1/paper.pdf",
	}
}

func TestRunTaskCompletesJobWithResult(t *testing.T) {
	store := newFakeJobStore()
	objects := &fakeObjects{blobs: map[string][]byte{"uploads/job-1/paper.pdf": []byte("%PDF-")}}
	ing := &fakeIngestor{result: &models.IngestResult{DocumentID: "doc-1", TotalPages: 3, TotalChunks: 5}}
	w := NewWorker(nil, store, objects, ing, "ingest")

	w.RunTask(context.Background(), testTask())

	job, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCompleted, job.Status)
	require.NotNil(t, job.Result)
	require.Equal(t, "doc-1", job.Result.DocumentID)
	require.Equal(t, []byte("%PDF-"), ing.got)
}

func TestRunTaskReportsProgressStages(t *testing.T) {
	store := newFakeJobStore()
	objects := &fakeObjects{blobs: map[string][]byte{"uploads/job-1/paper.pdf": []byte("x")}}
	ing := &fakeIngestor{result: &models.IngestResult{}}
	w := NewWorker(nil, store, objects, ing, "ingest")

	w.RunTask(context.Background(), testTask())

	var stages []string
	for _, j := range store.history {
		if j.Status == models.JobStatusProcessing {
			stages = append(stages, j.Progress)
		}
	}
	require.Equal(t, []string{"starting", "extracting", "chunking", "embedding"}, stages)
}

func TestRunTaskIngestFailureMarksJobFailed(t *testing.T) {
	store := newFakeJobStore()
	objects := &fakeObjects{blobs: map[string][]byte{"uploads/job-1/paper.pdf": []byte("x")}}
	ing := &fakeIngestor{err: errors.New("no extractable text found in document")}
	w := NewWorker(nil, store, objects, ing, "ingest")

	w.RunTask(context.Background(), testTask())

	job, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "no extractable text")
}

func TestRunTaskMissingObjectMarksJobFailed(t *testing.T) {
	store := newFakeJobStore()
	objects := &fakeObjects{err: errors.New("bucket unreachable")}
	w := NewWorker(nil, store, objects, &fakeIngestor{}, "ingest")

	w.RunTask(context.Background(), testTask())

	job, err := store.Get(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusFailed, job.Status)
	require.Contains(t, job.Error, "fetch archived upload")
}

func TestStoreGetUnknownJob(t *testing.T) {
	store := newFakeJobStore()
	_, err := store.Get(context.Background(), "never-enqueued")
	require.ErrorIs(t, err, ErrJobNotFound)
}
