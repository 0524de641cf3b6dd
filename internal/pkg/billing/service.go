package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/styleshot/styleshot/app/models"
	"github.com/styleshot/styleshot/internal/pkg/quota"
)

// Provider is the identifier the ledger uses for the checkout vendor.
const Provider = "lemonsqueezy"

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// Service reconciles verified billing webhook events into the quota ledger.
// Delivery is at-least-once, so every mutation it applies is an absolute set
// and replays converge on the same record.
type Service struct {
	repo  Repository
	quota *quota.Service
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, quotaSvc *quota.Service) *Service {
	return &Service{repo: repo, quota: quotaSvc}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, quotaSvc *quota.Service) *Service {
	return NewService(NewRepository(db), quotaSvc)
}

// RecordWebhookEvent persists webhook payloads idempotently. Events without a
// vendor-assigned ID are deduplicated on a payload hash.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		Provider:        Provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	created, stored, err := s.repo.CreateWebhookEventIfNotExists(event)
	if err != nil || created {
		return created, stored, err
	}

	// A delivery that failed signature verification must not occupy the
	// dedup slot: when the vendor resends the same event properly signed,
	// the stored row is upgraded and the event is applied as if new.
	if in.SignatureValid && !stored.SignatureValid {
		if err := s.repo.MarkWebhookSignatureValid(stored.ID); err != nil {
			return false, stored, err
		}
		stored.SignatureValid = true
		stored.ProcessedAt = nil
		stored.ProcessingError = ""
		return true, stored, nil
	}

	return false, stored, nil
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// ApplyEvent mutates the ledger for a verified event. Returns handled=false
// for event types the reconciler deliberately ignores; those are acknowledged
// upstream without any mutation.
func (s *Service) ApplyEvent(ctx context.Context, ev *WebhookEvent) (bool, error) {
	userID := ev.UserID()
	if userID == "" {
		return false, errors.New("no user id in webhook event")
	}

	switch strings.ToLower(strings.TrimSpace(ev.Meta.EventName)) {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return true, s.applySubscriptionEvent(ctx, userID, ev, models.SubscriptionStatusActive)
	case EventSubscriptionCancelled:
		return true, s.applySubscriptionEvent(ctx, userID, ev, models.SubscriptionStatusCancelled)
	case EventSubscriptionExpired:
		return true, s.applySubscriptionEvent(ctx, userID, ev, models.SubscriptionStatusExpired)
	case EventOrderCreated:
		// One-time orders only matter when the product sold is a
		// subscription that slipped past the subscription events.
		if IsSubscriptionProduct(ev.Data.Attributes.ProductName) {
			return true, s.applySubscriptionEvent(ctx, userID, ev, models.SubscriptionStatusActive)
		}
		return false, nil
	default:
		return false, nil
	}
}

func (s *Service) applySubscriptionEvent(ctx context.Context, userID string, ev *WebhookEvent, status string) error {
	active := status == models.SubscriptionStatusActive
	start, end := ev.PeriodBounds()

	remaining := models.FreeTierGenerations
	if active {
		remaining = models.UnlimitedGenerations
	}

	fields := map[string]interface{}{
		"is_subscribed":         active,
		"plan":                  PlanFromProductName(ev.Data.Attributes.ProductName),
		"subscription_id":       strings.TrimSpace(ev.Data.ID),
		"customer_id":           ev.Data.Attributes.CustomerID.String(),
		"status":                status,
		"remaining_generations": remaining,
	}
	if start != nil {
		fields["current_period_start"] = start
	}
	if end != nil {
		fields["current_period_end"] = end
	}

	return s.quota.UpdateFromBilling(ctx, userID, fields)
}
