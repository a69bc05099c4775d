package stripewebhooks

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"
	"gorm.io/gorm"
)

// RoleInvalidator drops cached roles after a subscription change.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Handler keeps the subscription columns the role store reads in step with
// Stripe, so a lapsed or upgraded subscription changes premium access.
type Handler struct {
	db             *gorm.DB
	endpointSecret string
	roles          RoleInvalidator
	logger         *slog.Logger
}

func NewHandler(db *gorm.DB, endpointSecret string, roles RoleInvalidator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{db: db, endpointSecret: endpointSecret, roles: roles, logger: logger}
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.endpointSecret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, 65536)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.endpointSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("stripe signature verification failed", slog.Any("error", err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	var apply func(ctx context.Context, sub *stripe.Subscription) (uint, error)
	switch event.Type {
	case "customer.subscription.updated", "customer.subscription.created":
		apply = h.handleSubscriptionUpdated
	case "customer.subscription.deleted":
		apply = h.handleSubscriptionDeleted
	default:
		// acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
		return
	}
	userID, err := apply(c.Request.Context(), &sub)
	if err != nil {
		h.logger.Error("apply stripe event", slog.String("event_id", event.ID), slog.String("type", string(event.Type)), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if userID != 0 {
		h.invalidate(c.Request.Context(), userID)
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func (h *Handler) invalidate(ctx context.Context, userID uint) {
	if h.roles == nil {
		return
	}
	id := strconv.FormatUint(uint64(userID), 10)
	if err := h.roles.Invalidate(ctx, id); err != nil {
		// cached roles expire on their own TTL
		h.logger.Warn("invalidate cached roles", slog.String("user_id", id), slog.Any("error", err))
	}
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
