package quota

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/styleshot/styleshot/app/models"
)

// Service is the subscription/quota ledger. It is the only writer of
// generation counts; subscription state itself is additionally written by the
// billing reconciler through UpdateFromBilling.
type Service struct {
	repo Repository
}

// NewService creates a quota service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a quota service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// GetOrCreate returns the user's ledger record, lazily creating the default
// trial record (3 free generations) on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*models.UserSubscription, error) {
	_ = ctx
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user_id is required")
	}

	sub, err := s.repo.GetByUserID(userID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	created := models.NewTrialSubscription(userID)
	if err := s.repo.Create(created); err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateFromBilling applies a partial field update on behalf of the billing
// reconciler, creating the record first if the user has never been seen.
func (s *Service) UpdateFromBilling(ctx context.Context, userID string, fields map[string]interface{}) error {
	if _, err := s.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	return s.repo.UpdateFields(userID, fields)
}

// ConsumeOne records one completed generation. Subscribed users only have
// their lifetime total incremented and keep the unlimited sentinel; free
// users additionally have their remaining count decremented, floored at zero.
// Returns the new remaining count.
func (s *Service) ConsumeOne(ctx context.Context, userID string) (int, error) {
	sub, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}

	if sub.IsSubscribed {
		if err := s.repo.IncrementTotalGenerations(userID); err != nil {
			return 0, err
		}
		return models.UnlimitedGenerations, nil
	}

	if err := s.repo.ConsumeFreeGeneration(userID); err != nil {
		return 0, err
	}
	updated, err := s.repo.GetByUserID(userID)
	if err != nil {
		return 0, err
	}
	return updated.RemainingGenerations, nil
}

// HasBudget reports whether a request may incur provider cost for this user:
// either an active paid period or at least one free generation left.
func (s *Service) HasBudget(sub *models.UserSubscription) bool {
	return sub.IsActive() || sub.RemainingGenerations > 0
}
