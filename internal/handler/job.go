package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/scoreaudio/api/internal/artifact"
	"github.com/scoreaudio/api/internal/registry"
	"github.com/scoreaudio/api/internal/service"
	"github.com/scoreaudio/api/pkg/response"
)

type JobHandler struct {
	service   *service.PipelineService
	validator *validator.Validate
}

func NewJobHandler(svc *service.PipelineService, v *validator.Validate) *JobHandler {
	return &JobHandler{
		service:   svc,
		validator: v,
	}
}

// Status handles GET /api/status/:jobId
// @Summary      Poll job status
// @Description  Get the current status, progress and step of a transcription job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.JobStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/status/{jobId} [get]
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID, err := h.jobID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid job ID", nil)
	}

	result, err := h.service.GetStatus(jobID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/result/:jobId
// @Summary      Get job result
// @Description  Get the result summary of a completed transcription job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.TranscriptionResult
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/result/{jobId} [get]
func (h *JobHandler) Result(c *fiber.Ctx) error {
	jobID, err := h.jobID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid job ID", nil)
	}

	result, err := h.service.GetResult(jobID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrNotCompleted) {
			return response.InvalidState(c, "Job not completed yet")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Download handles GET /api/download/:jobId/:artifactKind
// @Summary      Download an artifact
// @Description  Download one produced artifact (midi, musicxml, lilypond, pdf, vocals, drums, bass, other)
// @Tags         Jobs
// @Produce      application/octet-stream
// @Param        jobId        path string true "Job ID"
// @Param        artifactKind path string true "Artifact kind"
// @Success      200 {file} binary
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/download/{jobId}/{artifactKind} [get]
func (h *JobHandler) Download(c *fiber.Ctx) error {
	jobID, err := h.jobID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid job ID", nil)
	}
	kind := c.Params("artifactKind")

	path, err := h.service.ResolveArtifact(jobID, kind)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, service.ErrNotCompleted) {
			return response.InvalidState(c, "Job not completed yet")
		}
		if errors.Is(err, artifact.ErrNotFound) {
			return response.NotFound(c, "Artifact not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return c.Download(path)
}

// Cancel handles POST /api/cancel/:jobId
// @Summary      Cancel a job
// @Description  Request cancellation of a queued or processing job
// @Tags         Jobs
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.CancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Router       /api/cancel/{jobId} [post]
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	jobID, err := h.jobID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid job ID", nil)
	}

	result, err := h.service.Cancel(jobID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		if errors.Is(err, registry.ErrInvalidState) {
			return response.InvalidState(c, "Job already completed or failed")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func (h *JobHandler) jobID(c *fiber.Ctx) (string, error) {
	jobID := c.Params("jobId")
	if err := h.validator.Var(jobID, "required,uuid4"); err != nil {
		return "", err
	}
	return jobID, nil
}
