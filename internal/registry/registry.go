// Package registry holds the in-memory job records that back the API
// and the pipeline worker. It is the single source of truth for job
// status, progress and results; records live for the process lifetime.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scoreaudio/api/internal/model"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrDuplicateID  = errors.New("job id already exists")
	ErrInvalidState = errors.New("operation not valid for job state")
)

// Registry is a thread-safe job store. All mutations for a given job
// are serialized under the lock, so readers never observe a partial
// update. Get returns a snapshot copy; callers never hold a reference
// into the guarded map.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func New() *Registry {
	return &Registry{
		jobs: make(map[string]*model.Job),
	}
}

// Create inserts a fresh queued record for an accepted upload.
func (r *Registry) Create(id, fileName, filePath string) (model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	job := &model.Job{
		ID:             id,
		Status:         model.JobStatusQueued,
		Progress:       0,
		SourceFileName: fileName,
		SourceFilePath: filePath,
		CreatedAt:      time.Now(),
	}
	r.jobs[id] = job
	return snapshot(job), nil
}

// Get returns a snapshot of the job record.
func (r *Registry) Get(id string) (model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return model.Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return snapshot(job), nil
}

// update applies a mutation to the record under the lock. The mutation
// sees the live record and must not retain it.
func (r *Registry) update(id string, mutate func(*model.Job) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return mutate(job)
}

// MarkProcessing transitions queued → processing when the worker picks
// the job up. A terminal record (e.g. cancelled while queued) is left
// untouched and reported via ErrInvalidState.
func (r *Registry) MarkProcessing(id string) error {
	return r.update(id, func(job *model.Job) error {
		if job.Status != model.JobStatusQueued {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, job.Status)
		}
		job.Status = model.JobStatusProcessing
		return nil
	})
}

// SetStage records the stage in flight: human-readable label plus the
// stage's progress checkpoint. Progress never decreases.
func (r *Registry) SetStage(id, label string, checkpoint int) error {
	return r.update(id, func(job *model.Job) error {
		if job.Status != model.JobStatusProcessing {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, job.Status)
		}
		job.CurrentStep = label
		if checkpoint > job.Progress {
			job.Progress = checkpoint
		}
		return nil
	})
}

// Complete transitions processing → completed and attaches the result
// summary and artifact locations. Refuses to overwrite a terminal
// record, which covers the cancel-during-final-stage race.
func (r *Registry) Complete(id string, result *model.TranscriptionResult, artifacts *model.ArtifactPaths) error {
	return r.update(id, func(job *model.Job) error {
		if job.Status != model.JobStatusProcessing {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, job.Status)
		}
		job.Status = model.JobStatusCompleted
		job.Progress = 100
		job.CurrentStep = "processing complete"
		job.Result = result
		job.Artifacts = artifacts
		return nil
	})
}

// Fail transitions a non-terminal record to error, recording the cause.
// Progress stays frozen at the last checkpoint reached.
func (r *Registry) Fail(id, cause string) error {
	return r.update(id, func(job *model.Job) error {
		if job.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, job.Status)
		}
		job.Status = model.JobStatusError
		job.Error = &cause
		return nil
	})
}

// Cancel transitions a queued or processing record to cancelled.
// Terminal records are rejected with ErrInvalidState.
func (r *Registry) Cancel(id string) error {
	return r.update(id, func(job *model.Job) error {
		if job.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidState, id, job.Status)
		}
		job.Status = model.JobStatusCancelled
		return nil
	})
}

// Len returns the number of records, for the health endpoint.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

func snapshot(job *model.Job) model.Job {
	out := *job
	if job.Artifacts != nil {
		paths := *job.Artifacts
		if job.Artifacts.Stems != nil {
			paths.Stems = make(map[model.StemName]string, len(job.Artifacts.Stems))
			for k, v := range job.Artifacts.Stems {
				paths.Stems[k] = v
			}
		}
		out.Artifacts = &paths
	}
	return out
}
