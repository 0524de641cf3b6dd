package transform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/styleshot/styleshot/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.openai.com/v1"
	defaultModel      = "gpt-image-1"
)

// ProviderError describes a failed provider call. Transient failures
// (network, 5xx, throttling) are eligible for bounded retry; permanent ones
// (bad request, content policy) must surface immediately.
type ProviderError struct {
	StatusCode int
	Message    string
	Transient  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("transform provider: %s (status %d)", e.Message, e.StatusCode)
}

// IsTransient classifies an error for the retry policy. Anything that is not
// an explicit permanent provider rejection counts as transient, including
// network-level failures that never produced a response.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	// No structured provider response: connection reset, timeout, DNS.
	return err != nil
}

// Client calls the external image-edit provider.
type Client struct {
	APIKey     string
	APIBaseURL string
	Model      string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a provider client from environment configuration.
// The timeout bounds a single attempt; retry is layered on top by the caller.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("TRANSFORM_API_KEY", "")),
		APIBaseURL: strings.TrimRight(env.GetEnv("TRANSFORM_API_BASE_URL", defaultAPIBaseURL), "/"),
		Model:      strings.TrimSpace(env.GetEnv("TRANSFORM_MODEL", defaultModel)),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// EditResult is the provider's answer: inline base64 image data or a hosted URL.
type EditResult struct {
	B64JSON string
	URL     string
}

type editResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// EditImage sends the prepared PNG and the style instruction to the
// provider's image-edit endpoint.
func (c *Client) EditImage(ctx context.Context, imagePath, prompt string, size int) (*EditResult, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("TRANSFORM_API_KEY is not configured")
	}

	file, err := os.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("open prepared image: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("model", c.Model); err != nil {
		return nil, err
	}
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, err
	}
	if err := writer.WriteField("size", fmt.Sprintf("%dx%d", size, size)); err != nil {
		return nil, err
	}
	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/images/edits", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024*1024))
	if err != nil {
		return nil, err
	}

	var decoded editResponse
	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &decoded) == nil && decoded.Error.Message != "" {
			message = decoded.Error.Message
		}
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    message,
			Transient:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(decoded.Data) == 0 {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    "no image data in the response",
			Transient:  false,
		}
	}

	return &EditResult{
		B64JSON: decoded.Data[0].B64JSON,
		URL:     decoded.Data[0].URL,
	}, nil
}
