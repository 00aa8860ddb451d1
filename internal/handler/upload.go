package handler

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/scoreaudio/api/internal/model"
	"github.com/scoreaudio/api/internal/service"
	"github.com/scoreaudio/api/pkg/response"
)

const maxUploadSize = 200 * 1024 * 1024 // 200MB, video containers included

type UploadHandler struct {
	service   *service.PipelineService
	validator *validator.Validate
}

func NewUploadHandler(svc *service.PipelineService, v *validator.Validate) *UploadHandler {
	return &UploadHandler{
		service:   svc,
		validator: v,
	}
}

// Upload handles POST /api/upload
// @Summary      Upload a media file
// @Description  Accept an audio/video file and start the transcription pipeline
// @Tags         Jobs
// @Accept       multipart/form-data
// @Produce      json
// @Param        file     formData file   true  "Media file (.mp3 .wav .flac .mp4 .mov; max 200MB)"
// @Param        title    formData string false "Display title"
// @Param        separate formData bool   false "Run instrument separation (default true)"
// @Success      200 {object} model.UploadResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Router       /api/upload [post]
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !model.AllowedExtensions[ext] {
		return response.ValidationError(c, "Unsupported file format. Supported: "+allowedList(), map[string]interface{}{
			"extension": ext,
		})
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 200MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	opts := &model.UploadOptions{
		Title:    c.FormValue("title"),
		Separate: c.FormValue("separate", "true") != "false",
	}
	if err := h.validator.Struct(opts); err != nil {
		return response.ValidationError(c, "Validation failed", err.Error())
	}

	f, err := file.Open()
	if err != nil {
		return response.StorageError(c, "Failed to open uploaded file")
	}
	defer f.Close()

	result, err := h.service.CreateJob(c.Context(), file.Filename, f, opts)
	if err != nil {
		return response.StorageError(c, "Failed to store uploaded file")
	}

	return response.OK(c, result)
}

func allowedList() string {
	exts := make([]string, 0, len(model.AllowedExtensions))
	for ext := range model.AllowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
