package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fluentclass/fluentclass-backend/internal/pkg/httpx"
	"github.com/fluentclass/fluentclass-backend/internal/pkg/logger"
	"github.com/fluentclass/fluentclass-backend/internal/utils"
)

const (
	defaultTimeoutSeconds = 45
	minTimeoutSeconds     = 30
	maxTimeoutSeconds     = 60
)

// Client wraps a Stable-Diffusion-style HTTP image endpoint. Unlike the text
// clients it retries internally on retryable statuses: image calls sit outside
// the lesson attempt budget, and per-prompt failures degrade to placeholder
// cards rather than failing the lesson.
type Client struct {
	log        *logger.Logger
	url        string
	apiKey     string
	width      int
	height     int
	steps      int
	maxRetries int
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(log *logger.Logger) (*Client, error) {
	url := strings.TrimSpace(os.Getenv("IMAGE_API_URL"))
	if url == "" {
		return nil, fmt.Errorf("missing IMAGE_API_URL")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	timeoutSec := utils.GetEnvAsInt("IMAGE_TIMEOUT_SECONDS", defaultTimeoutSeconds, log)
	if timeoutSec < minTimeoutSeconds {
		timeoutSec = minTimeoutSeconds
	}
	if timeoutSec > maxTimeoutSeconds {
		timeoutSec = maxTimeoutSeconds
	}

	return &Client{
		log:        log.With("service", "ImageGenClient"),
		url:        url,
		apiKey:     strings.TrimSpace(os.Getenv("IMAGE_API_KEY")),
		width:      utils.GetEnvAsInt("IMAGE_WIDTH", 768, log),
		height:     utils.GetEnvAsInt("IMAGE_HEIGHT", 512, log),
		steps:      utils.GetEnvAsInt("IMAGE_STEPS", 28, log),
		maxRetries: utils.GetEnvAsInt("IMAGE_MAX_RETRIES", 2, log),
		timeout:    time.Duration(timeoutSec) * time.Second,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}, nil
}

func (c *Client) Name() string { return "imagegen" }

// Timeout is the per-call deadline the batch runner should apply.
func (c *Client) Timeout() time.Duration { return c.timeout }

type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("imagegen http %d: %s", e.StatusCode, e.Body)
}

func (e *httpError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type generationRequest struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	Steps          int    `json:"steps,omitempty"`
	OutputFormat   string `json:"output_format,omitempty"`
}

type generationResponse struct {
	Images []string `json:"images"`
	Image  string   `json:"image"`
}

// GenerateImage renders one image for the prompt and returns (bytes, mime).
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, "", errors.New("image prompt required")
	}

	req := generationRequest{
		Prompt:         prompt,
		NegativePrompt: "text, watermark, low quality, distorted faces",
		Width:          c.width,
		Height:         c.height,
		Steps:          c.steps,
		OutputFormat:   "png",
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, req)
		if err == nil {
			return decodeImagePayload(raw)
		}
		lastErr = err

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, "", err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("Image request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.SleepContext(ctx, sleepFor); err != nil {
			return nil, "", err
		}
		backoff *= 2
	}
	return nil, "", lastErr
}

func (c *Client) doOnce(ctx context.Context, body generationRequest) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func decodeImagePayload(raw []byte) ([]byte, string, error) {
	var out generationResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, "", fmt.Errorf("imagegen decode error: %w", err)
	}
	b64 := out.Image
	if b64 == "" && len(out.Images) > 0 {
		b64 = out.Images[0]
	}
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return nil, "", errors.New("no image in response")
	}
	if idx := strings.Index(b64, ";base64,"); idx >= 0 {
		b64 = b64[idx+len(";base64,"):]
	}
	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || len(img) == 0 {
		return nil, "", fmt.Errorf("decode image base64: %w", err)
	}
	return img, "image/png", nil
}
