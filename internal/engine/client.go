// Package engine provides HTTP clients for the external model engines the
// render pipeline calls: video diffusion, voice synthesis, music generation
// and sound-effect generation. Every engine speaks the same contract: JSON
// request in, binary media out, structured JSON errors, and a health endpoint.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// API paths shared by all model engines.
const (
	apiGenerateVideo  = "/v1/generate/video"
	apiGenerateSpeech = "/v1/generate/speech"
	apiGenerateMusic  = "/v1/generate/music"
	apiGenerateSFX    = "/v1/generate/sfx"
	apiHealth         = "/health"
)

// HTTP headers and content types.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
	contentTypeMP4    = "video/mp4"
)

// Static errors.
var (
	// ErrEmptyMedia indicates the engine returned a zero-length body.
	ErrEmptyMedia = errors.New("engine returned empty media data")
	// ErrUnexpectedContentType indicates a response of the wrong media type.
	ErrUnexpectedContentType = errors.New("unexpected content type")
)

// errorResponse is the structured error payload model engines return.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// Client is the shared HTTP transport for one model engine endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for an engine at baseURL. The timeout applies to
// every request; generation calls can run for minutes, so configure it per
// engine.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// generate posts a JSON payload to path and returns the binary media body,
// validating the response content type against accept.
func (c *Client) generate(ctx context.Context, path string, payload any, accept string) ([]byte, error) {
	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, accept)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to engine at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != accept {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedContentType, accept, contentType)
	}

	media, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read media data: %w", err)
	}

	if len(media) == 0 {
		return nil, ErrEmptyMedia
	}

	return media, nil
}

// HealthCheck verifies the engine is reachable and reports healthy.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for engine at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured engine error, falling back to the
// raw body so diagnostics are never lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var engineErr errorResponse

	err := json.NewDecoder(resp.Body).Decode(&engineErr)
	if err == nil && engineErr.Detail != "" {
		return fmt.Errorf("engine error (%s): %s (code: %s)",
			resp.Status, engineErr.Detail, engineErr.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf("engine returned non-OK status: %s, body: %s", resp.Status, string(body))
}
