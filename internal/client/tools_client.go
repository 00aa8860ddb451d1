package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/scoreaudio/api/internal/config"
	"github.com/scoreaudio/api/internal/model"
)

// ToolsClient implements StageRunner against the Python audio-tools
// microservice (ffmpeg, omnizart, music21, lilypond and demucs behind
// one HTTP surface). Paths are exchanged directly because the service
// shares the storage volume with this process.
type ToolsClient struct {
	httpClient *http.Client
	baseURL    string
}

type stageRequest struct {
	InputPath string `json:"input_path"`
	OutputDir string `json:"output_dir,omitempty"`
}

type stageResponse struct {
	OutputPath string `json:"output_path"`
}

type engraveResponse struct {
	LilyPondPath string `json:"lilypond_path"`
	PDFPath      string `json:"pdf_path"`
}

type separateResponse struct {
	Stems map[model.StemName]string `json:"stems"`
}

// NewToolsClient creates a new audio-tools client
func NewToolsClient(cfg *config.ToolsConfig) *ToolsClient {
	return &ToolsClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
	}
}

func (c *ToolsClient) Convert(ctx context.Context, inputPath, outputDir string) (string, error) {
	var result stageResponse
	if err := c.post(ctx, "/convert", &stageRequest{InputPath: inputPath, OutputDir: outputDir}, &result); err != nil {
		return "", err
	}
	return result.OutputPath, nil
}

func (c *ToolsClient) Analyze(ctx context.Context, audioPath string) (*model.Analysis, error) {
	var result model.Analysis
	if err := c.post(ctx, "/analyze", &stageRequest{InputPath: audioPath}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *ToolsClient) Transcribe(ctx context.Context, audioPath, outputDir string) (string, error) {
	var result stageResponse
	if err := c.post(ctx, "/transcribe", &stageRequest{InputPath: audioPath, OutputDir: outputDir}, &result); err != nil {
		return "", err
	}
	return result.OutputPath, nil
}

func (c *ToolsClient) Notate(ctx context.Context, midiPath, outputDir string) (string, error) {
	var result stageResponse
	if err := c.post(ctx, "/notate", &stageRequest{InputPath: midiPath, OutputDir: outputDir}, &result); err != nil {
		return "", err
	}
	return result.OutputPath, nil
}

func (c *ToolsClient) Engrave(ctx context.Context, musicXMLPath, outputDir string) (string, string, error) {
	var result engraveResponse
	if err := c.post(ctx, "/engrave", &stageRequest{InputPath: musicXMLPath, OutputDir: outputDir}, &result); err != nil {
		return "", "", err
	}
	return result.LilyPondPath, result.PDFPath, nil
}

func (c *ToolsClient) Separate(ctx context.Context, audioPath, outputDir string) (map[model.StemName]string, error) {
	var result separateResponse
	if err := c.post(ctx, "/separate", &stageRequest{InputPath: audioPath, OutputDir: outputDir}, &result); err != nil {
		return nil, err
	}
	return result.Stems, nil
}

// HealthCheck checks if the tools service is available
func (c *ToolsClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tools service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// post sends a POST request with JSON body and parses the response
func (c *ToolsClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tools service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ToolsClient) IsConfigured() bool {
	return c.baseURL != ""
}
