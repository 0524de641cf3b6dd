package billing

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/styleshot/styleshot/app/models"
)

// MemoryRepository is an in-process Repository for tests and local
// development without a database.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID uint
	events map[string]*models.BillingWebhookEvent
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[string]*models.BillingWebhookEvent)}
}

func (r *MemoryRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := event.Provider + ":" + event.ProviderEventID
	if existing, ok := r.events[key]; ok {
		clone := *existing
		return false, &clone, nil
	}
	r.nextID++
	event.ID = r.nextID
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	clone := *event
	r.events[key] = &clone
	stored := *event
	return true, &stored, nil
}

func (r *MemoryRepository) MarkWebhookSignatureValid(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.ID == id {
			event.SignatureValid = true
			event.ProcessedAt = nil
			event.ProcessingError = ""
			event.UpdatedAt = time.Now()
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *MemoryRepository) MarkWebhookProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			event.ProcessingError = processingError
			event.UpdatedAt = now
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// GetByEventID looks up a stored event for assertions in tests.
func (r *MemoryRepository) GetByEventID(providerEventID string) (*models.BillingWebhookEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[Provider+":"+providerEventID]
	if !ok {
		return nil, false
	}
	clone := *event
	return &clone, true
}
