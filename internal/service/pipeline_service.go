package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/scoreaudio/api/internal/artifact"
	"github.com/scoreaudio/api/internal/model"
	"github.com/scoreaudio/api/internal/registry"
)

const (
	TaskTypeTranscription = "transcription:process"
	QueueTranscription    = "transcription"
)

// ErrNotCompleted is returned when a result or artifact is requested
// for a job that has not reached the completed state.
var ErrNotCompleted = errors.New("job not completed")

// Enqueuer is the slice of *asynq.Client the service needs; it exists
// so handler tests can run without Redis.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskPayload is the asynq task body for one transcription job.
type TaskPayload struct {
	JobID    string `json:"jobId"`
	Separate bool   `json:"separate"`
}

// PipelineService owns job creation and the API-facing read contracts.
// Processing itself happens in the worker.
type PipelineService struct {
	registry    *registry.Registry
	store       *artifact.Store
	asynqClient Enqueuer
}

func NewPipelineService(reg *registry.Registry, store *artifact.Store, asynqClient Enqueuer) *PipelineService {
	return &PipelineService{
		registry:    reg,
		store:       store,
		asynqClient: asynqClient,
	}
}

// CreateJob persists the upload, registers a queued job and schedules
// background processing. The caller has already validated the
// extension; failures here are storage failures.
func (s *PipelineService) CreateJob(ctx context.Context, fileName string, file io.Reader, opts *model.UploadOptions) (*model.UploadResponse, error) {
	jobID := uuid.New().String()
	ext := filepath.Ext(fileName)

	path, err := s.store.SaveUpload(jobID, ext, file)
	if err != nil {
		return nil, err
	}

	if _, err := s.registry.Create(jobID, fileName, path); err != nil {
		return nil, err
	}

	task, err := newTranscriptionTask(jobID, opts)
	if err != nil {
		return nil, err
	}

	// MaxRetry(0): a failed stage must surface through the job record,
	// never through a silent re-run.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueueTranscription),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		// The record must not stay queued forever with nothing coming.
		_ = s.registry.Fail(jobID, fmt.Sprintf("failed to schedule processing: %v", err))
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.UploadResponse{
		Success: true,
		JobID:   jobID,
		Message: "File uploaded, processing started",
	}, nil
}

// GetStatus returns the polling view of a job.
func (s *PipelineService) GetStatus(jobID string) (*model.JobStatusResponse, error) {
	job, err := s.registry.Get(jobID)
	if err != nil {
		return nil, err
	}

	return &model.JobStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
	}, nil
}

// GetResult returns the result summary of a completed job.
func (s *PipelineService) GetResult(jobID string) (*model.TranscriptionResult, error) {
	job, err := s.registry.Get(jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusCompleted {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotCompleted, jobID, job.Status)
	}
	return job.Result, nil
}

// Cancel requests cancellation of a non-terminal job. The in-flight
// stage, if any, runs to completion; the worker aborts before the next
// stage.
func (s *PipelineService) Cancel(jobID string) (*model.CancelResponse, error) {
	if err := s.registry.Cancel(jobID); err != nil {
		return nil, err
	}

	return &model.CancelResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.JobStatusCancelled,
		Message: "Job cancelled",
	}, nil
}

// ResolveArtifact maps (job, kind) to an absolute file path for
// download, enforcing the completed-only contract.
func (s *PipelineService) ResolveArtifact(jobID, kind string) (string, error) {
	job, err := s.registry.Get(jobID)
	if err != nil {
		return "", err
	}

	if job.Status != model.JobStatusCompleted {
		return "", fmt.Errorf("%w: %s is %s", ErrNotCompleted, jobID, job.Status)
	}
	return s.store.Resolve(job.Artifacts, kind)
}

func newTranscriptionTask(jobID string, opts *model.UploadOptions) (*asynq.Task, error) {
	payload := TaskPayload{
		JobID:    jobID,
		Separate: opts == nil || opts.Separate,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTranscription, data), nil
}
