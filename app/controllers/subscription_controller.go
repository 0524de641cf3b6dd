package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/styleshot/styleshot/app/models"
	"github.com/styleshot/styleshot/internal/pkg/quota"
	"github.com/styleshot/styleshot/internal/pkg/usercontext"
)

// SubscriptionController serves the quota ledger endpoints. The user is
// always taken from the verified token; a client-asserted userId is never
// trusted for authorization decisions.
type SubscriptionController struct {
	quota *quota.Service
}

func NewSubscriptionController(q *quota.Service) *SubscriptionController {
	return &SubscriptionController{quota: q}
}

type subscriptionResponse struct {
	*models.UserSubscription
	IsActive bool `json:"isActive"`
}

// HandleGetSubscription returns the user's ledger record, creating the
// default trial record on first access.
func (sc *SubscriptionController) HandleGetSubscription(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing credentials"})
	}

	sub, err := sc.quota.GetOrCreate(c.UserContext(), user.UserID)
	if err != nil {
		fiberlog.Errorf("fetch subscription for %s failed: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch subscription"})
	}

	return c.JSON(fiber.Map{
		"subscription": subscriptionResponse{
			UserSubscription: sub,
			IsActive:         sub.IsActive(),
		},
	})
}

// HandleConsumeGeneration records one generation against the ledger and
// returns the new remaining count.
func (sc *SubscriptionController) HandleConsumeGeneration(c *fiber.Ctx) error {
	user := usercontext.GetUserContext(c)
	if !user.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing credentials"})
	}

	remaining, err := sc.quota.ConsumeOne(c.UserContext(), user.UserID)
	if err != nil {
		fiberlog.Errorf("consume generation for %s failed: %v", user.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to consume generation"})
	}

	return c.JSON(fiber.Map{
		"remainingGenerations": remaining,
		"success":              true,
	})
}
