package quota

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/styleshot/styleshot/app/models"
)

// MemoryRepository is an in-process Repository for tests and local
// development without a database. Semantics mirror the GORM implementation,
// including the floor on free-tier decrements.
type MemoryRepository struct {
	mu   sync.Mutex
	subs map[string]*models.UserSubscription
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{subs: make(map[string]*models.UserSubscription)}
}

func (r *MemoryRepository) GetByUserID(userID string) (*models.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *sub
	return &clone, nil
}

func (r *MemoryRepository) Create(sub *models.UserSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.subs[sub.UserID]; ok {
		// First writer wins, matching ON CONFLICT DO NOTHING.
		*sub = *existing
		return nil
	}
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	clone := *sub
	r.subs[sub.UserID] = &clone
	return nil
}

func (r *MemoryRepository) UpdateFields(userID string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for name, value := range fields {
		switch name {
		case "is_subscribed":
			sub.IsSubscribed = value.(bool)
		case "plan":
			sub.Plan = value.(string)
		case "subscription_id":
			sub.SubscriptionID = value.(string)
		case "customer_id":
			sub.CustomerID = value.(string)
		case "status":
			sub.Status = value.(string)
		case "current_period_start":
			sub.CurrentPeriodStart = value.(*time.Time)
		case "current_period_end":
			sub.CurrentPeriodEnd = value.(*time.Time)
		case "remaining_generations":
			sub.RemainingGenerations = value.(int)
		case "total_generations":
			sub.TotalGenerations = value.(int)
		}
	}
	sub.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ConsumeFreeGeneration(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if sub.RemainingGenerations > 0 {
		sub.RemainingGenerations--
	}
	sub.TotalGenerations++
	sub.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) IncrementTotalGenerations(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	sub.TotalGenerations++
	sub.UpdatedAt = time.Now()
	return nil
}
