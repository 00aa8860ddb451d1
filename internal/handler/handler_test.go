package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/scoreaudio/api/internal/artifact"
	"github.com/scoreaudio/api/internal/client"
	"github.com/scoreaudio/api/internal/registry"
	"github.com/scoreaudio/api/internal/service"
	"github.com/scoreaudio/api/internal/worker"
	ws "github.com/scoreaudio/api/internal/websocket"
	"github.com/scoreaudio/api/pkg/response"
)

// syncEnqueuer runs the pipeline inline instead of handing the task to
// Redis, so handler tests exercise the full upload-to-download flow in
// one process.
type syncEnqueuer struct {
	worker *worker.PipelineWorker
}

func (e *syncEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if e.worker != nil {
		// A stage failure lands on the job record; scheduling itself
		// succeeded.
		_ = e.worker.ProcessTask(context.Background(), task)
	}
	return &asynq.TaskInfo{ID: "inline", Queue: service.QueueTranscription}, nil
}

type testEnv struct {
	app      *fiber.App
	registry *registry.Registry
	store    *artifact.Store
}

// setupApp wires the real registry, store and local runner behind the
// HTTP surface. When inline is false, uploads stay queued.
func setupApp(t *testing.T, inline bool) *testEnv {
	t.Helper()
	root := t.TempDir()
	store, err := artifact.New(filepath.Join(root, "uploads"), filepath.Join(root, "outputs"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	reg := registry.New()
	hub := ws.NewHub()
	go hub.Run()

	enq := &syncEnqueuer{}
	if inline {
		enq.worker = worker.NewPipelineWorker(reg, store, client.NewLocalRunner(), nil, hub)
	}

	svc := service.NewPipelineService(reg, store, enq)
	validate := validator.New()
	uploadHandler := NewUploadHandler(svc, validate)
	jobHandler := NewJobHandler(svc, validate)

	app := fiber.New(fiber.Config{BodyLimit: 200 * 1024 * 1024})
	api := app.Group("/api")
	api.Post("/upload", uploadHandler.Upload)
	api.Get("/status/:jobId", jobHandler.Status)
	api.Get("/result/:jobId", jobHandler.Result)
	api.Get("/download/:jobId/:artifactKind", jobHandler.Download)
	api.Post("/cancel/:jobId", jobHandler.Cancel)

	return &testEnv{app: app, registry: reg, store: store}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

func (e *testEnv) post(t *testing.T, path string) *http.Response {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodPost, path, nil))
}

// uploadFile posts a multipart upload and returns the response.
func (e *testEnv) uploadFile(t *testing.T, fileName string, content []byte, fields map[string]string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("failed to build multipart body: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("failed to build multipart body: %v", err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("failed to build multipart body: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to build multipart body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return e.do(t, req)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("failed to decode %q: %v", body, err)
	}
}

func decodeError(t *testing.T, resp *http.Response) response.ErrorResponse {
	t.Helper()
	var out response.ErrorResponse
	decodeJSON(t, resp, &out)
	return out
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d", want, resp.StatusCode)
	}
}
