package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/styleshot/styleshot/internal/pkg/imageprep"
	"github.com/styleshot/styleshot/internal/pkg/quota"
	"github.com/styleshot/styleshot/internal/pkg/ratelimit"
	"github.com/styleshot/styleshot/internal/pkg/resultcache"
	"github.com/styleshot/styleshot/internal/pkg/transform"
	"github.com/styleshot/styleshot/internal/pkg/upload"
)

// Provider is the external image-edit collaborator.
type Provider interface {
	EditImage(ctx context.Context, imagePath, prompt string, size int) (*transform.EditResult, error)
}

// ResultStore persists generated images and returns a hosted URL. Optional;
// without one, results are returned inline as data URLs.
type ResultStore interface {
	StoreImage(ctx context.Context, digest string, data []byte) (string, error)
}

// Request is one transform request after authentication.
type Request struct {
	UserID   string
	Image    []byte
	Filename string
	Style    string
	Quality  string
	UseCache bool
	APILimit int
}

// Response is the successful outcome.
type Response struct {
	ImageURL             string
	RemainingGenerations int
	CacheHit             bool
}

// Pipeline runs the admission sequence for a transform request:
// validate, quota admission, rate-check (free tier only), cache lookup,
// image prep, provider call, result persist, cache write, quota consume.
// No step may incur provider cost before admission passes.
type Pipeline struct {
	Limiter  *ratelimit.Limiter
	Cache    resultcache.Cache
	Provider Provider
	Quota    *quota.Service
	Store    ResultStore
	Retry    transform.RetryPolicy
}

// Process runs one request through the pipeline.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Response, error) {
	if err := upload.ValidateRequest(int64(len(req.Image)), req.Filename, head(req.Image), req.Style); err != nil {
		return nil, &ValidationError{Err: err}
	}
	quality := transform.NormalizeQuality(req.Quality)

	sub, err := p.Quota.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("quota store: %w", err)
	}

	// The daily ceiling bounds provider spend on the free tier; users in an
	// active paid period are not subject to it. Atomic check, and store
	// failure rejects: limiting must fail closed, never silently grant
	// unmetered provider access.
	if !sub.IsActive() {
		limited, err := p.Limiter.CheckAndIncrement(ctx, req.UserID, req.APILimit)
		if err != nil {
			return nil, fmt.Errorf("rate limiter unavailable: %w", err)
		}
		if !limited.Allowed {
			return nil, &QuotaExceededError{Message: "Daily API limit reached. Please try again tomorrow."}
		}
	}

	if !p.Quota.HasBudget(sub) {
		return nil, &QuotaExceededError{Message: "No generations remaining. Upgrade to keep generating."}
	}

	key := resultcache.Key(req.Image, req.Style, quality)
	if req.UseCache {
		cached, hit, err := p.Cache.Get(ctx, key)
		if err != nil {
			// Cache trouble never fails a request.
			fiberlog.Warnf("result cache get failed: %v", err)
		} else if hit {
			return &Response{
				ImageURL:             cached.ImageURL,
				RemainingGenerations: sub.RemainingGenerations,
				CacheHit:             true,
			}, nil
		}
	}

	size := transform.QualitySize(quality)
	imagePath, cleanup, err := imageprep.Prepare(req.Image, size)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	defer cleanup()

	// The provider call keeps running even if the client disconnects, so
	// the deferred cleanup always sees a finished call and nothing leaks.
	callCtx := context.WithoutCancel(ctx)
	prompt := transform.StylePrompt(req.Style)

	var result *transform.EditResult
	err = p.Retry.Do(callCtx, func() error {
		var callErr error
		result, callErr = p.Provider.EditImage(callCtx, imagePath, prompt, size)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	imageURL, err := p.resolveImageURL(callCtx, key, result)
	if err != nil {
		return nil, err
	}

	if req.UseCache {
		if err := p.Cache.Put(callCtx, key, resultcache.Result{ImageURL: imageURL}); err != nil {
			fiberlog.Warnf("result cache put failed: %v", err)
		}
	}

	// Consume strictly after a confirmed successful provider invocation;
	// cache hits short-circuit above and are never charged.
	remaining, err := p.Quota.ConsumeOne(callCtx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("consume generation: %w", err)
	}

	return &Response{
		ImageURL:             imageURL,
		RemainingGenerations: remaining,
	}, nil
}

func (p *Pipeline) resolveImageURL(ctx context.Context, key string, result *transform.EditResult) (string, error) {
	if result.B64JSON == "" {
		if result.URL == "" {
			return "", fmt.Errorf("provider returned neither image data nor URL")
		}
		return result.URL, nil
	}

	if p.Store != nil {
		data, err := base64.StdEncoding.DecodeString(result.B64JSON)
		if err != nil {
			return "", fmt.Errorf("decode provider image data: %w", err)
		}
		url, err := p.Store.StoreImage(ctx, key, data)
		if err == nil {
			return url, nil
		}
		// Hosting is best effort; fall back to the inline form.
		fiberlog.Warnf("result store upload failed: %v", err)
	}

	return "data:image/png;base64," + result.B64JSON, nil
}

func head(data []byte) []byte {
	if len(data) > 512 {
		return data[:512]
	}
	return data
}
