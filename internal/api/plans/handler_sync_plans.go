package plans

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"content-gate/internal/domain/plans"
	"content-gate/internal/infra/stripe"
)

type Handler struct {
	db              *gorm.DB
	stripeKey       string
	stripeProductID string
	logger          *slog.Logger
}

func NewHandler(db *gorm.DB, stripeKey, stripeProductID string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{db: db, stripeKey: stripeKey, stripeProductID: stripeProductID, logger: logger}
}

// SyncPlansFromStripe refreshes plan tiers from the Stripe catalog. Tiers
// decide which subscriptions carry the premium_user role.
func (h *Handler) SyncPlansFromStripe(c *gin.Context) {
	if h.stripeKey == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe key not configured"})
		return
	}
	res, err := stripe.SyncPlans(c.Request.Context(), h.db, h.stripeKey, h.stripeProductID)
	if err != nil {
		h.logger.Error("sync plans from stripe", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sync plans", "details": err.Error()})
		return
	}
	h.logger.Info("plans synced",
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated),
		slog.Int("skipped", res.Skipped))
	c.JSON(http.StatusOK, res)
}

type planResponse struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	PriceEUR float64 `json:"price_eur"`
	Interval string  `json:"interval"`
	Tier     string  `json:"tier"`
	Premium  bool    `json:"premium"`
}

func (h *Handler) ListPlans(c *gin.Context) {
	var plansList []plans.Plan
	if err := h.db.WithContext(c.Request.Context()).Order("price_eur ASC").Find(&plansList).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}

	out := make([]planResponse, 0, len(plansList))
	for i := range plansList {
		p := plansList[i]
		out = append(out, planResponse{
			ID:       p.ID,
			Name:     p.Name,
			PriceEUR: p.PriceEUR,
			Interval: p.Interval,
			Tier:     p.Tier,
			Premium:  plans.IsPremium(&p),
		})
	}
	c.JSON(http.StatusOK, out)
}
