package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/scoreaudio/api/internal/model"
	"github.com/scoreaudio/api/pkg/response"
)

func TestUploadAccepted(t *testing.T) {
	env := setupApp(t, false)

	resp := env.uploadFile(t, "recording.wav", []byte("RIFF fake audio"), nil)
	assertStatus(t, resp, http.StatusOK)

	var out model.UploadResponse
	decodeJSON(t, resp, &out)
	if !out.Success {
		t.Error("expected success true")
	}
	if out.JobID == "" {
		t.Fatal("expected a job id")
	}

	job, err := env.registry.Get(out.JobID)
	if err != nil {
		t.Fatalf("job not registered: %v", err)
	}
	if job.Status != model.JobStatusQueued {
		t.Errorf("expected queued, got %s", job.Status)
	}
	if job.SourceFileName != "recording.wav" {
		t.Errorf("expected original file name recorded, got %q", job.SourceFileName)
	}
}

func TestUploadUnsupportedExtension(t *testing.T) {
	env := setupApp(t, false)

	resp := env.uploadFile(t, "notes.txt", []byte("not audio"), nil)
	assertStatus(t, resp, http.StatusBadRequest)

	out := decodeError(t, resp)
	if out.Error.Code != response.CodeValidationError {
		t.Errorf("expected %s, got %s", response.CodeValidationError, out.Error.Code)
	}
	if !strings.Contains(out.Error.Message, ".wav") {
		t.Errorf("expected supported formats in message, got %q", out.Error.Message)
	}
	if env.registry.Len() != 0 {
		t.Error("rejected upload must not create a job")
	}
}

func TestUploadMissingFile(t *testing.T) {
	env := setupApp(t, false)

	resp := env.uploadFile(t, "", nil, map[string]string{"title": "no file"})
	assertStatus(t, resp, http.StatusBadRequest)

	out := decodeError(t, resp)
	if out.Error.Code != response.CodeValidationError {
		t.Errorf("expected %s, got %s", response.CodeValidationError, out.Error.Code)
	}
}

func TestUploadTitleTooLong(t *testing.T) {
	env := setupApp(t, false)

	resp := env.uploadFile(t, "song.mp3", []byte("ID3 fake audio"), map[string]string{
		"title": strings.Repeat("x", 201),
	})
	assertStatus(t, resp, http.StatusBadRequest)

	if env.registry.Len() != 0 {
		t.Error("rejected upload must not create a job")
	}
}
