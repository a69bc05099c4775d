package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"content-gate/internal/app/http/middleware"
	"content-gate/internal/domain/access"
	"content-gate/internal/domain/users"
)

type Handler struct {
	db             *gorm.DB
	engine         *access.Engine
	previewSeconds int
	now            func() time.Time
	logger         *slog.Logger
}

func NewHandler(db *gorm.DB, engine *access.Engine, previewSeconds int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{db: db, engine: engine, previewSeconds: previewSeconds, now: time.Now, logger: logger}
}

// GetCurrentUser describes the caller's subscription and the roles access
// checks currently resolve for them.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID := middleware.UserID(c)
	id, err := strconv.ParseUint(userID, 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	var user users.User
	if err := h.db.WithContext(ctx).Preload("Plan").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	p, err := h.engine.Principal(ctx, userID)
	if err != nil {
		h.logger.Warn("resolve roles for /me", slog.String("user_id", userID), slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": access.ReasonRoleLookupFailed})
		return
	}
	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		roles = append(roles, string(r))
	}

	now := h.now()
	resp := MeResponse{
		User: UserDTO{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
		Billing: BillingDTO{
			Plan:         BuildPlanDTO(user.Plan),
			Subscription: BuildSubscriptionDTO(user),
			Trial:        BuildTrialDTO(now, user.TrialStartAt, user.TrialEndAt),
		},
		Access: AccessDTO{
			State:          string(access.ComputeEffectiveAccessState(now, user)),
			Roles:          roles,
			PreviewSeconds: h.previewSeconds,
		},
	}

	c.JSON(http.StatusOK, resp)
}
