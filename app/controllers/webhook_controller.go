package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/styleshot/styleshot/internal/pkg/billing"
	"github.com/styleshot/styleshot/internal/pkg/env"
)

// WebhookController receives signed billing events from the checkout vendor.
type WebhookController struct {
	billing *billing.Service
}

func NewWebhookController(b *billing.Service) *WebhookController {
	return &WebhookController{billing: b}
}

// HandleBillingWebhook verifies, deduplicates and applies one webhook
// delivery. Delivery is at-least-once: duplicates and unhandled event types
// are acknowledged without mutation, invalid signatures are rejected before
// any payload field is trusted.
func (wc *WebhookController) HandleBillingWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("X-Signature"))
	eventName := strings.TrimSpace(c.Get("X-Event-Name"))
	eventID := strings.TrimSpace(c.Get("X-Event-Id"))
	secret := env.GetEnv("BILLING_WEBHOOK_SECRET", "")

	if signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing signature"})
	}

	ctx := c.UserContext()
	signatureValid := billing.VerifyWebhookSignature(rawBody, signature, secret)

	created, stored, err := wc.billing.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		ProviderEventID: eventID,
		EventType:       eventName,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		fiberlog.Errorf("persist webhook event failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}
	if !signatureValid {
		if created {
			_ = wc.billing.MarkWebhookProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid signature"})
	}
	if !created {
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	event, err := billing.ParseWebhookEvent(rawBody)
	if err != nil {
		_ = wc.billing.MarkWebhookProcessed(ctx, stored.ID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	handled, applyErr := wc.billing.ApplyEvent(ctx, event)
	_ = wc.billing.MarkWebhookProcessed(ctx, stored.ID, applyErr)
	if applyErr != nil {
		fiberlog.Errorf("apply webhook event %s failed: %v", event.Meta.EventName, applyErr)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Webhook processing failed"})
	}
	if !handled {
		return c.JSON(fiber.Map{"received": true, "ignored": true})
	}

	return c.JSON(fiber.Map{"received": true})
}
