package models

import "time"

const (
	PlanFree    = "free"
	PlanWeekly  = "weekly"
	PlanMonthly = "monthly"
)

const (
	SubscriptionStatusTrial     = "trial"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
)

const (
	// FreeTierGenerations is the number of generations a new user starts with.
	FreeTierGenerations = 3
	// UnlimitedGenerations is the sentinel remaining-count for subscribed users.
	UnlimitedGenerations = 999
)

// UserSubscription is the per-user quota and subscription ledger. One row per
// user, created lazily on first access, never deleted. Mutated only by the
// consume-generation path and by the billing reconciler.
type UserSubscription struct {
	ID                   uint       `gorm:"primaryKey" json:"-"`
	UserID               string     `gorm:"type:varchar(191);not null;uniqueIndex" json:"userId"`
	IsSubscribed         bool       `gorm:"default:false" json:"isSubscribed"`
	Plan                 string     `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	SubscriptionID       string     `gorm:"type:varchar(191)" json:"subscriptionId,omitempty"`
	CustomerID           string     `gorm:"type:varchar(191)" json:"customerId,omitempty"`
	Status               string     `gorm:"type:varchar(20);not null;default:'trial';index" json:"status"`
	CurrentPeriodStart   *time.Time `gorm:"type:timestamp;default:null" json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time `gorm:"type:timestamp;default:null" json:"currentPeriodEnd,omitempty"`
	RemainingGenerations int        `gorm:"not null;default:3" json:"remainingGenerations"`
	TotalGenerations     int        `gorm:"not null;default:0" json:"totalGenerations"`
	CreatedAt            time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// IsActive reports whether a paid period is currently in effect.
func (s *UserSubscription) IsActive() bool {
	if !s.IsSubscribed {
		return false
	}
	if s.Status != SubscriptionStatusActive {
		return false
	}
	if s.CurrentPeriodEnd != nil && time.Now().After(*s.CurrentPeriodEnd) {
		return false
	}
	return true
}

// NewTrialSubscription returns the default record for a user seen for the first time.
func NewTrialSubscription(userID string) *UserSubscription {
	return &UserSubscription{
		UserID:               userID,
		IsSubscribed:         false,
		Plan:                 PlanFree,
		Status:               SubscriptionStatusTrial,
		RemainingGenerations: FreeTierGenerations,
		TotalGenerations:     0,
	}
}
