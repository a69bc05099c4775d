package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"content-gate/internal/domain/access"
	"content-gate/internal/domain/users"
	"content-gate/internal/infra/audit"
)

// RoleInvalidator drops cached roles of a user. The redis role cache
// implements it.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

type Handler struct {
	db     *gorm.DB
	audit  *audit.Store
	roles  RoleInvalidator
	now    func() time.Time
	logger *slog.Logger
}

// NewHandler builds the admin endpoints. roles may be nil when no role
// cache is configured.
func NewHandler(db *gorm.DB, auditStore *audit.Store, roles RoleInvalidator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{db: db, audit: auditStore, roles: roles, now: time.Now, logger: logger}
}

type AdminUserAccess struct {
	ID                       uint               `json:"id"`
	Email                    string             `json:"email"`
	Role                     string             `json:"role"`
	PlanName                 *string            `json:"plan_name,omitempty"`
	PlanTier                 *string            `json:"plan_tier,omitempty"`
	StripeSubscriptionStatus *string            `json:"stripe_subscription_status,omitempty"`
	CurrentPeriodEnd         *time.Time         `json:"current_period_end,omitempty"`
	TrialEndAt               *time.Time         `json:"trial_end_at,omitempty"`
	AccessState              access.AccessState `json:"access_state"`
	Roles                    []access.RoleName  `json:"roles"`
}

type AdminStats struct {
	TotalUsers    int            `json:"total_users"`
	Checks24h     int            `json:"checks_24h"`
	Denied24h     int            `json:"denied_24h"`
	UsersPerPlan  map[string]int `json:"users_per_plan"`
	DeniedReasons map[string]int `json:"denied_reasons_24h"`
}

// ListAudit returns recent authorization records, newest first. Query
// parameters: user_id, resource, allowed (bool) and limit.
func (h *Handler) ListAudit(c *gin.Context) {
	f := audit.Filter{
		UserID:   c.Query("user_id"),
		Resource: c.Query("resource"),
	}
	if v := c.Query("allowed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid allowed filter"})
			return
		}
		f.Allowed = &b
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		f.Limit = n
	}

	entries, err := h.audit.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load audit log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// GetUserAccess shows how the engine currently sees one account.
func (h *Handler) GetUserAccess(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user users.User
	if err := h.db.WithContext(c.Request.Context()).Preload("Plan").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		return
	}

	now := h.now()
	res := AdminUserAccess{
		ID:                       user.ID,
		Email:                    user.Email,
		Role:                     user.Role,
		StripeSubscriptionStatus: user.StripeSubscriptionStatus,
		CurrentPeriodEnd:         user.CurrentPeriodEnd,
		TrialEndAt:               user.TrialEndAt,
		AccessState:              access.ComputeEffectiveAccessState(now, user),
		Roles:                    access.RolesFor(now, user),
	}
	if user.Plan != nil {
		res.PlanName = &user.Plan.Name
		res.PlanTier = &user.Plan.Tier
	}
	c.JSON(http.StatusOK, res)
}

// RefreshUserRoles drops the cached roles of a user so the next check reads
// the account database.
func (h *Handler) RefreshUserRoles(c *gin.Context) {
	userID := c.Param("id")
	if _, err := strconv.ParseUint(userID, 10, 64); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	if h.roles == nil {
		c.JSON(http.StatusOK, gin.H{"refreshed": false})
		return
	}
	if err := h.roles.Invalidate(c.Request.Context(), userID); err != nil {
		h.logger.Error("invalidate cached roles", slog.String("user_id", userID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh roles"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": true})
}

func (h *Handler) GetAdminStats(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var stats AdminStats

	var totalUsers, checks, denied int64
	since := h.now().Add(-24 * time.Hour)

	type PlanCount struct {
		Name  *string
		Count int
	}
	type ReasonCount struct {
		Reason string
		Count  int
	}
	var counts []PlanCount
	var reasons []ReasonCount

	queries := []*gorm.DB{
		db.Model(&users.User{}).Count(&totalUsers),
		db.Model(&audit.Entry{}).Where("timestamp >= ?", since).Count(&checks),
		db.Model(&audit.Entry{}).Where("timestamp >= ? AND allowed = ?", since, false).Count(&denied),
		db.Table("users").
			Select("plans.name, COUNT(users.id) as count").
			Joins("LEFT JOIN plans ON users.plan_id = plans.id").
			Group("plans.name").
			Scan(&counts),
		db.Model(&audit.Entry{}).
			Select("reason, COUNT(*) as count").
			Where("timestamp >= ? AND allowed = ?", since, false).
			Group("reason").
			Scan(&reasons),
	}
	for _, q := range queries {
		if q.Error != nil {
			h.logger.Error("load admin stats", slog.Any("error", q.Error))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
			return
		}
	}

	stats.TotalUsers = int(totalUsers)
	stats.Checks24h = int(checks)
	stats.Denied24h = int(denied)

	stats.UsersPerPlan = map[string]int{}
	for _, pc := range counts {
		name := "No Plan"
		if pc.Name != nil {
			name = *pc.Name
		}
		stats.UsersPerPlan[name] = pc.Count
	}

	stats.DeniedReasons = map[string]int{}
	for _, rc := range reasons {
		stats.DeniedReasons[rc.Reason] = rc.Count
	}

	c.JSON(http.StatusOK, stats)
}
