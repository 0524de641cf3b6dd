package billing

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/styleshot/styleshot/app/models"
)

const (
	EventSubscriptionCreated   = "subscription_created"
	EventSubscriptionUpdated   = "subscription_updated"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventSubscriptionExpired   = "subscription_expired"
	EventOrderCreated          = "order_created"
)

// WebhookEvent is the vendor's event envelope: meta names the event, data
// carries the subscription or order resource.
type WebhookEvent struct {
	Meta struct {
		EventName  string            `json:"event_name"`
		CustomData map[string]string `json:"custom_data"`
	} `json:"meta"`
	Data struct {
		ID         string          `json:"id"`
		Attributes EventAttributes `json:"attributes"`
	} `json:"data"`
}

// EventAttributes is the subset of resource attributes the reconciler reads.
type EventAttributes struct {
	ProductName string            `json:"product_name"`
	CustomerID  json.Number       `json:"customer_id"`
	UserEmail   string            `json:"user_email"`
	Status      string            `json:"status"`
	CreatedAt   string            `json:"created_at"`
	RenewsAt    string            `json:"renews_at"`
	EndsAt      string            `json:"ends_at"`
	CustomData  map[string]string `json:"custom_data"`
}

// ParseWebhookEvent decodes a verified webhook body.
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ev.Meta.EventName) == "" {
		return nil, errors.New("event_name is missing")
	}
	return &ev, nil
}

// UserID resolves the local user the event concerns: the user_id passed as
// custom data at checkout, falling back to the customer email.
func (e *WebhookEvent) UserID() string {
	if id := strings.TrimSpace(e.Data.Attributes.CustomData["user_id"]); id != "" {
		return id
	}
	if id := strings.TrimSpace(e.Meta.CustomData["user_id"]); id != "" {
		return id
	}
	return strings.TrimSpace(e.Data.Attributes.UserEmail)
}

// PeriodBounds extracts the paid period from the event payload. renews_at is
// preferred for the period end, ends_at covers cancelled subscriptions.
func (e *WebhookEvent) PeriodBounds() (start, end *time.Time) {
	if t, err := time.Parse(time.RFC3339, e.Data.Attributes.CreatedAt); err == nil {
		start = &t
	}
	endRaw := e.Data.Attributes.RenewsAt
	if strings.TrimSpace(endRaw) == "" {
		endRaw = e.Data.Attributes.EndsAt
	}
	if t, err := time.Parse(time.RFC3339, endRaw); err == nil {
		end = &t
	}
	return start, end
}

// PlanFromProductName derives the internal plan from the vendor's product
// naming convention.
func PlanFromProductName(productName string) string {
	if strings.Contains(strings.ToLower(productName), "weekly") {
		return models.PlanWeekly
	}
	return models.PlanMonthly
}

// IsSubscriptionProduct reports whether a one-time order actually sold a
// subscription product and should be treated as an activation.
func IsSubscriptionProduct(productName string) bool {
	name := strings.ToLower(productName)
	return strings.Contains(name, "subscription") ||
		strings.Contains(name, "monthly") ||
		strings.Contains(name, "weekly")
}
