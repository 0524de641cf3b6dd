package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/styleshot/styleshot/app/models"
)

func TestGetOrCreate_LazyTrialRecord(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	sub, err := svc.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub.UserID)
	assert.False(t, sub.IsSubscribed)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, models.SubscriptionStatusTrial, sub.Status)
	assert.Equal(t, models.FreeTierGenerations, sub.RemainingGenerations)
	assert.Equal(t, 0, sub.TotalGenerations)

	// Second access returns the same record, not a fresh trial.
	again, err := svc.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, sub.UserID, again.UserID)
	assert.Equal(t, sub.RemainingGenerations, again.RemainingGenerations)
}

func TestGetOrCreate_RejectsEmptyUserID(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	_, err := svc.GetOrCreate(context.Background(), "   ")
	assert.Error(t, err)
}

func TestConsumeOne_FreeTierDecrementsAndFloors(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	remaining, err := svc.ConsumeOne(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	for _, want := range []int{1, 0} {
		remaining, err = svc.ConsumeOne(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, want, remaining)
	}

	// Already at zero: stays at zero, never negative.
	remaining, err = svc.ConsumeOne(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	sub, err := svc.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 4, sub.TotalGenerations)
}

func TestConsumeOne_SubscribedKeepsUnlimitedSentinel(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	end := time.Now().Add(30 * 24 * time.Hour)
	require.NoError(t, repo.UpdateFields("user-1", map[string]interface{}{
		"is_subscribed":         true,
		"plan":                  models.PlanMonthly,
		"status":                models.SubscriptionStatusActive,
		"remaining_generations": models.UnlimitedGenerations,
		"current_period_end":    &end,
	}))

	remaining, err := svc.ConsumeOne(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.UnlimitedGenerations, remaining)

	sub, err := svc.GetOrCreate(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.UnlimitedGenerations, sub.RemainingGenerations)
	assert.Equal(t, 1, sub.TotalGenerations)
}

func TestHasBudget(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	end := time.Now().Add(24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  *models.UserSubscription
		want bool
	}{
		{
			name: "fresh trial",
			sub:  models.NewTrialSubscription("u"),
			want: true,
		},
		{
			name: "exhausted trial",
			sub:  &models.UserSubscription{UserID: "u", RemainingGenerations: 0},
			want: false,
		},
		{
			name: "active subscription",
			sub: &models.UserSubscription{
				UserID: "u", IsSubscribed: true,
				Status: models.SubscriptionStatusActive, CurrentPeriodEnd: &end,
			},
			want: true,
		},
		{
			name: "lapsed period",
			sub: &models.UserSubscription{
				UserID: "u", IsSubscribed: true,
				Status: models.SubscriptionStatusActive, CurrentPeriodEnd: &past,
			},
			want: false,
		},
		{
			name: "cancelled but free generations left",
			sub: &models.UserSubscription{
				UserID: "u", IsSubscribed: false,
				Status: models.SubscriptionStatusCancelled, RemainingGenerations: 2,
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.HasBudget(tt.sub))
		})
	}
}

func TestUpdateFromBilling_CreatesRecordFirst(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	err := svc.UpdateFromBilling(ctx, "never-seen", map[string]interface{}{
		"is_subscribed":         true,
		"status":                models.SubscriptionStatusActive,
		"remaining_generations": models.UnlimitedGenerations,
	})
	require.NoError(t, err)

	sub, err := svc.GetOrCreate(ctx, "never-seen")
	require.NoError(t, err)
	assert.True(t, sub.IsSubscribed)
	assert.Equal(t, models.UnlimitedGenerations, sub.RemainingGenerations)
}
