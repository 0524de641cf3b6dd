package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styleshot/styleshot/internal/pkg/pipeline"
	"github.com/styleshot/styleshot/internal/pkg/quota"
	"github.com/styleshot/styleshot/internal/pkg/ratelimit"
	"github.com/styleshot/styleshot/internal/pkg/resultcache"
	"github.com/styleshot/styleshot/internal/pkg/transform"
)

type stubCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (c *stubCounter) IncrementWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int64)
	}
	c.counts[key]++
	return c.counts[key], nil
}

type stubProvider struct {
	mu    sync.Mutex
	calls int
	b64   string
}

func (p *stubProvider) EditImage(_ context.Context, _, _ string, _ int) (*transform.EditResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return &transform.EditResult{B64JSON: p.b64}, nil
}

func newGenerateTestApp(ceiling int) (*fiber.App, *stubProvider, *quota.Service) {
	provider := &stubProvider{b64: base64.StdEncoding.EncodeToString([]byte("generated"))}
	quotaSvc := quota.NewService(quota.NewMemoryRepository())
	pipe := &pipeline.Pipeline{
		Limiter:  ratelimit.NewLimiter(&stubCounter{}, ceiling),
		Cache:    resultcache.NewMemory(100),
		Provider: provider,
		Quota:    quotaSvc,
		Retry:    transform.RetryPolicy{MaxAttempts: 1, Backoff: time.Millisecond},
	}
	controller := NewGenerateController(pipe)

	app := fiber.New()
	app.Post("/api/v1/generate", asUser("user-1"), controller.HandleGenerateImage)
	return app, provider, quotaSvc
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 60), B: uint8(y * 60), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartBody(t *testing.T, imageData []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if imageData != nil {
		part, err := writer.CreateFormFile("image", "photo.png")
		require.NoError(t, err)
		_, err = part.Write(imageData)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func postGenerate(t *testing.T, app *fiber.App, body io.Reader, contentType string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/generate", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var parsed map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	return resp.StatusCode, parsed
}

func TestHandleGenerateImage_Success(t *testing.T) {
	app, provider, quotaSvc := newGenerateTestApp(30)

	body, contentType := multipartBody(t, samplePNG(t), map[string]string{"style": "ecommerce"})
	status, parsed := postGenerate(t, app, body, contentType)

	assert.Equal(t, fiber.StatusOK, status)
	imageURL, ok := parsed["imageUrl"].(string)
	require.True(t, ok)
	assert.Contains(t, imageURL, "data:image/png;base64,")
	assert.Equal(t, 1, provider.calls)

	sub, err := quotaSvc.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sub.RemainingGenerations)
}

func TestHandleGenerateImage_MissingImage(t *testing.T) {
	app, provider, _ := newGenerateTestApp(30)

	body, contentType := multipartBody(t, nil, map[string]string{"style": "ecommerce"})
	status, parsed := postGenerate(t, app, body, contentType)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No image file provided", parsed["error"])
	assert.Equal(t, 0, provider.calls)
}

func TestHandleGenerateImage_MissingStyle(t *testing.T) {
	app, provider, _ := newGenerateTestApp(30)

	body, contentType := multipartBody(t, samplePNG(t), nil)
	status, parsed := postGenerate(t, app, body, contentType)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No style specified", parsed["error"])
	assert.Equal(t, 0, provider.calls)
}

func TestHandleGenerateImage_InvalidAPILimit(t *testing.T) {
	app, _, _ := newGenerateTestApp(30)

	body, contentType := multipartBody(t, samplePNG(t), map[string]string{
		"style":    "ecommerce",
		"apiLimit": "-5",
	})
	status, _ := postGenerate(t, app, body, contentType)
	assert.Equal(t, fiber.StatusBadRequest, status)

	body, contentType = multipartBody(t, samplePNG(t), map[string]string{
		"style":    "ecommerce",
		"apiLimit": "lots",
	})
	status, _ = postGenerate(t, app, body, contentType)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleGenerateImage_RateLimited(t *testing.T) {
	app, provider, _ := newGenerateTestApp(1)

	fields := map[string]string{"style": "ecommerce", "useCache": "false"}
	body, contentType := multipartBody(t, samplePNG(t), fields)
	status, _ := postGenerate(t, app, body, contentType)
	require.Equal(t, fiber.StatusOK, status)

	body, contentType = multipartBody(t, samplePNG(t), fields)
	status, parsed := postGenerate(t, app, body, contentType)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Contains(t, parsed["error"], "Daily API limit")
	assert.Equal(t, 1, provider.calls)
}

func TestHandleGenerateImage_ExhaustedQuota(t *testing.T) {
	app, provider, _ := newGenerateTestApp(30)

	fields := map[string]string{"style": "ecommerce", "useCache": "false"}
	for i := 0; i < 3; i++ {
		body, contentType := multipartBody(t, samplePNG(t), fields)
		status, _ := postGenerate(t, app, body, contentType)
		require.Equal(t, fiber.StatusOK, status)
	}

	body, contentType := multipartBody(t, samplePNG(t), fields)
	status, parsed := postGenerate(t, app, body, contentType)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Contains(t, parsed["error"], "Upgrade")
	assert.Equal(t, 3, provider.calls)
}

func TestHandleGenerateImage_CachedRepeatIsServedWithoutProvider(t *testing.T) {
	app, provider, quotaSvc := newGenerateTestApp(30)

	imageData := samplePNG(t)
	fields := map[string]string{"style": "ecommerce"}

	body, contentType := multipartBody(t, imageData, fields)
	status, first := postGenerate(t, app, body, contentType)
	require.Equal(t, fiber.StatusOK, status)

	body, contentType = multipartBody(t, imageData, fields)
	status, second := postGenerate(t, app, body, contentType)
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, first["imageUrl"], second["imageUrl"])
	assert.Equal(t, 1, provider.calls)

	sub, err := quotaSvc.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, sub.RemainingGenerations)
}
