package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/scoreaudio/api/internal/artifact"
	"github.com/scoreaudio/api/internal/client"
	"github.com/scoreaudio/api/internal/model"
	"github.com/scoreaudio/api/internal/registry"
	"github.com/scoreaudio/api/internal/service"
	"github.com/scoreaudio/api/internal/websocket"
)

// PipelineWorker drives one job through the fixed transcription stage
// sequence, updating the registry as it goes. Stages run strictly in
// order; cancellation is honored between stages only, so an in-flight
// collaborator call always runs to completion.
type PipelineWorker struct {
	registry *registry.Registry
	store    *artifact.Store
	runner   client.StageRunner
	storage  client.StorageClient // optional artifact mirror, may be nil
	hub      *websocket.Hub
}

// NewPipelineWorker creates a new pipeline worker
func NewPipelineWorker(reg *registry.Registry, store *artifact.Store, runner client.StageRunner, storage client.StorageClient, hub *websocket.Hub) *PipelineWorker {
	return &PipelineWorker{
		registry: reg,
		store:    store,
		runner:   runner,
		storage:  storage,
		hub:      hub,
	}
}

// pipelineStage pairs a stage's label and progress checkpoint with the
// collaborator call. Adding or reordering stages means editing this
// table, not the loop.
type pipelineStage struct {
	label      string
	checkpoint int
	skip       bool
	run        func(ctx context.Context) error
}

// pipelineRun accumulates the artifact locations produced so far.
type pipelineRun struct {
	jobID     string
	inputPath string
	outDir    string
	separate  bool

	converted string
	midi      string
	musicxml  string
	lilypond  string
	pdf       string
	stems     map[model.StemName]string
	analysis  *model.Analysis
}

// ProcessTask handles one transcription job end to end.
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.TaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := payload.JobID
	job, err := w.registry.Get(jobID)
	if err != nil {
		// Registry is in-memory; a task surviving a restart has no record.
		log.Printf("Dropping task for unknown job %s", jobID)
		return nil
	}
	if job.Status.Terminal() {
		// Cancelled while still queued.
		log.Printf("Job %s already %s, skipping", jobID, job.Status)
		return nil
	}

	if err := w.registry.MarkProcessing(jobID); err != nil {
		return nil
	}
	log.Printf("Starting transcription job %s (%s)", jobID, job.SourceFileName)

	outDir, err := w.store.JobDir(jobID)
	if err != nil {
		w.failJob(jobID, fmt.Sprintf("failed to prepare output directory: %v", err))
		return err
	}

	run := &pipelineRun{
		jobID:     jobID,
		inputPath: job.SourceFilePath,
		outDir:    outDir,
		separate:  payload.Separate,
	}

	for _, stage := range w.stages(run) {
		if w.cancelled(jobID) {
			log.Printf("Job %s cancelled, aborting before %q", jobID, stage.label)
			return nil
		}

		w.updateProgress(jobID, stage.checkpoint, stage.label)
		if stage.skip {
			continue
		}
		if err := stage.run(ctx); err != nil {
			w.failJob(jobID, fmt.Sprintf("%s failed: %v", stage.label, err))
			return err
		}
	}

	if w.cancelled(jobID) {
		log.Printf("Job %s cancelled after final stage", jobID)
		return nil
	}

	result, artifacts, err := w.buildResult(ctx, job, run)
	if err != nil {
		w.failJob(jobID, fmt.Sprintf("failed to record results: %v", err))
		return err
	}

	if err := w.registry.Complete(jobID, result, artifacts); err != nil {
		// Lost the race with a cancellation; the terminal state stands.
		log.Printf("Job %s not completed: %v", jobID, err)
		return nil
	}

	w.hub.BroadcastComplete(jobID, result)
	log.Printf("Transcription job %s completed", jobID)
	return nil
}

// stages returns the fixed sequence. Checkpoints and labels follow the
// processing steps of the pipeline; the checkpoint is applied when the
// stage begins, so a failed stage freezes progress at its own mark.
func (w *PipelineWorker) stages(run *pipelineRun) []pipelineStage {
	return []pipelineStage{
		{label: "format conversion", checkpoint: 25, run: func(ctx context.Context) error {
			out, err := w.runner.Convert(ctx, run.inputPath, run.outDir)
			run.converted = out
			return err
		}},
		{label: "audio analysis", checkpoint: 40, run: func(ctx context.Context) error {
			analysis, err := w.runner.Analyze(ctx, run.converted)
			run.analysis = analysis
			return err
		}},
		{label: "AI transcription", checkpoint: 60, run: func(ctx context.Context) error {
			out, err := w.runner.Transcribe(ctx, run.converted, run.outDir)
			run.midi = out
			return err
		}},
		{label: "score generation", checkpoint: 70, run: func(ctx context.Context) error {
			out, err := w.runner.Notate(ctx, run.midi, run.outDir)
			run.musicxml = out
			return err
		}},
		{label: "engraving", checkpoint: 85, run: func(ctx context.Context) error {
			ly, pdf, err := w.runner.Engrave(ctx, run.musicxml, run.outDir)
			run.lilypond = ly
			run.pdf = pdf
			return err
		}},
		{label: "instrument separation", checkpoint: 95, skip: !run.separate, run: func(ctx context.Context) error {
			stems, err := w.runner.Separate(ctx, run.converted, run.outDir)
			run.stems = stems
			return err
		}},
	}
}

func (w *PipelineWorker) cancelled(jobID string) bool {
	job, err := w.registry.Get(jobID)
	if err != nil {
		return true
	}
	return job.Status == model.JobStatusCancelled
}

func (w *PipelineWorker) updateProgress(jobID string, checkpoint int, label string) {
	if err := w.registry.SetStage(jobID, label, checkpoint); err != nil {
		log.Printf("Failed to update progress for %s: %v", jobID, err)
		return
	}
	w.hub.BroadcastProgress(jobID, checkpoint, model.JobStatusProcessing, label)
}

func (w *PipelineWorker) failJob(jobID, cause string) {
	if err := w.registry.Fail(jobID, cause); err != nil {
		if !errors.Is(err, registry.ErrInvalidState) {
			log.Printf("Failed to mark job %s as failed: %v", jobID, err)
		}
		return
	}
	w.hub.BroadcastError(jobID, "PIPELINE_FAILED", cause)
	log.Printf("Transcription job %s failed: %s", jobID, cause)
}

// buildResult assembles the artifact-path record and the result
// summary from the stage outputs. Stem entries exist only for stems
// the separation stage actually produced.
func (w *PipelineWorker) buildResult(ctx context.Context, job model.Job, run *pipelineRun) (*model.TranscriptionResult, *model.ArtifactPaths, error) {
	artifacts := &model.ArtifactPaths{}
	for _, entry := range []struct {
		abs  string
		dest *string
	}{
		{run.midi, &artifacts.MIDI},
		{run.musicxml, &artifacts.MusicXML},
		{run.lilypond, &artifacts.LilyPond},
		{run.pdf, &artifacts.PDF},
	} {
		rel, err := w.store.Rel(entry.abs)
		if err != nil {
			return nil, nil, err
		}
		*entry.dest = rel
	}

	if len(run.stems) > 0 {
		artifacts.Stems = make(map[model.StemName]string, len(run.stems))
		for name, abs := range run.stems {
			rel, err := w.store.Rel(abs)
			if err != nil {
				return nil, nil, err
			}
			artifacts.Stems[name] = rel
		}
	}

	outputs := model.OutputLinks{
		MIDI:     w.outputLink(ctx, run.jobID, string(model.ArtifactMIDI), run.midi),
		MusicXML: w.outputLink(ctx, run.jobID, string(model.ArtifactMusicXML), run.musicxml),
		LilyPond: w.outputLink(ctx, run.jobID, string(model.ArtifactLilyPond), run.lilypond),
		PDF:      w.outputLink(ctx, run.jobID, string(model.ArtifactPDF), run.pdf),
		Stems:    make(map[model.StemName]string, len(run.stems)),
	}
	for name, abs := range run.stems {
		outputs.Stems[name] = w.outputLink(ctx, run.jobID, string(name), abs)
	}

	var size int64
	if info, err := os.Stat(run.inputPath); err == nil {
		size = info.Size()
	}

	analysis := model.Analysis{}
	if run.analysis != nil {
		analysis = *run.analysis
	}

	result := &model.TranscriptionResult{
		JobID: run.jobID,
		OriginalFile: model.OriginalFile{
			Name:     job.SourceFileName,
			Size:     size,
			Format:   strings.ToLower(filepath.Ext(job.SourceFileName)),
			Duration: formatDuration(analysis.Duration),
		},
		Analysis:  analysis,
		Outputs:   outputs,
		CreatedAt: job.CreatedAt,
	}
	return result, artifacts, nil
}

// outputLink returns the retrieval handle for one artifact: the
// download endpoint, or a public URL when the object-storage mirror
// accepts the upload. Mirroring is best effort.
func (w *PipelineWorker) outputLink(ctx context.Context, jobID, kind, absPath string) string {
	handle := fmt.Sprintf("/api/download/%s/%s", jobID, kind)
	if w.storage == nil {
		return handle
	}

	f, err := os.Open(absPath)
	if err != nil {
		log.Printf("Mirror skipped for %s/%s: %v", jobID, kind, err)
		return handle
	}
	defer f.Close()

	key := fmt.Sprintf("artifacts/%s/%s", jobID, filepath.Base(absPath))
	url, err := w.storage.Upload(ctx, key, f, contentTypeFor(absPath))
	if err != nil {
		log.Printf("Mirror upload failed for %s/%s: %v", jobID, kind, err)
		return handle
	}
	return url
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mid", ".midi":
		return "audio/midi"
	case ".musicxml", ".xml":
		return "application/vnd.recordare.musicxml+xml"
	case ".pdf":
		return "application/pdf"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "0:00"
	}
	total := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
