package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dualgen/api/internal/config"
	"github.com/dualgen/api/internal/model"
)

// Dispatcher performs a single endpoint call plus image download.
type Dispatcher interface {
	Dispatch(ctx context.Context, endpoint model.Endpoint, prompt, imageBase64 string, params model.GenerationParams) model.RunOutcome
}

// RenderClient talks to one remote rendering endpoint per call: it posts the
// generation request, then downloads the produced image into the output
// directory. Failures are reported inside the returned RunOutcome, never as
// a Go error, so one endpoint's failure stays local to that endpoint.
type RenderClient struct {
	httpClient *http.Client
	outputDir  string
}

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	Orientation string  `json:"orientation"`
	Size        string  `json:"size"`
	Steps       int     `json:"steps"`
	Seed        *int64  `json:"seed,omitempty"`
	Strength    float64 `json:"strength"`
	Batch       int     `json:"batch"`
	Image       string  `json:"image,omitempty"`
}

type generateResponse struct {
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	Images  []model.ImageStats `json:"images"`
}

// NewRenderClient creates a render client. The timeout is long and fixed:
// generation on the remote box can take minutes.
func NewRenderClient(cfg *config.GenerationConfig, outputDir string) *RenderClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &RenderClient{
		httpClient: &http.Client{Timeout: timeout},
		outputDir:  outputDir,
	}
}

// Dispatch sends one prompt to one endpoint and downloads the result.
func (c *RenderClient) Dispatch(ctx context.Context, endpoint model.Endpoint, prompt, imageBase64 string, params model.GenerationParams) model.RunOutcome {
	start := time.Now()

	reqBody := generateRequest{
		Prompt:      prompt,
		Orientation: params.Orientation,
		Size:        params.Size,
		Steps:       params.Steps,
		Seed:        params.Seed,
		Strength:    params.Strength,
		Batch:       1,
		Image:       imageBase64,
	}

	var genResp generateResponse
	if err := c.post(ctx, endpoint.BaseURL()+"/generate", &reqBody, &genResp); err != nil {
		return c.failure(endpoint, start, err)
	}

	if !genResp.Success {
		return c.failure(endpoint, start, fmt.Errorf("endpoint error: %s", genResp.Error))
	}
	if len(genResp.Images) == 0 {
		return c.failure(endpoint, start, fmt.Errorf("endpoint returned no images"))
	}

	// Batch size is fixed at 1, take the first image
	stats := genResp.Images[0]

	localPath, err := c.download(ctx, endpoint, stats.Filename)
	if err != nil {
		return c.failure(endpoint, start, err)
	}

	return model.RunOutcome{
		Success:   true,
		Endpoint:  endpoint.Name,
		LocalPath: localPath,
		Stats:     &stats,
		Duration:  time.Since(start).Seconds(),
	}
}

// download fetches a generated image from the endpoint and stores it locally.
func (c *RenderClient) download(ctx context.Context, endpoint model.Endpoint, filename string) (string, error) {
	url := endpoint.BaseURL() + "/images/" + filename

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	log.Printf("[Render API] → GET %s", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image download failed (status %d)", resp.StatusCode)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	localName := fmt.Sprintf("gen_%s_%s", strings.ReplaceAll(endpoint.Host, ".", "_"), filename)
	localPath := filepath.Join(c.outputDir, localName)

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create local file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	return localPath, nil
}

// post sends a POST request with JSON body and parses the JSON response.
func (c *RenderClient) post(ctx context.Context, url string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.Printf("[Render API] → POST %s", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Render API] ✗ POST %s — request failed: %v", url, err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[Render API] ← %d POST %s", resp.StatusCode, url)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func (c *RenderClient) failure(endpoint model.Endpoint, start time.Time, err error) model.RunOutcome {
	log.Printf("[Render API] ✗ %s — %v", endpoint.Name, err)
	return model.RunOutcome{
		Success:  false,
		Endpoint: endpoint.Name,
		Error:    err.Error(),
		Duration: time.Since(start).Seconds(),
	}
}
