package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	adminapi "content-gate/internal/api/admin"
	contentapi "content-gate/internal/api/content"
	plansapi "content-gate/internal/api/plans"
	previewapi "content-gate/internal/api/preview"
	stripewebhooks "content-gate/internal/api/stripewebhook"
	usersapi "content-gate/internal/api/users"
	"content-gate/internal/app/http/middleware"
	"content-gate/internal/domain/access"
)

// Deps are the handlers and shared components the router mounts. Preview is
// nil when no redis is configured; the watch-time routes are then absent.
type Deps struct {
	Engine    *access.Engine
	JWTSecret []byte
	Content   *contentapi.Handler
	Preview   *previewapi.Handler
	Admin     *adminapi.Handler
	Plans     *plansapi.Handler
	Users     *usersapi.Handler
	Webhook   *stripewebhooks.Handler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// signed raw body; must not pass the sanitizer
	r.POST("/webhook", d.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/")
	api.Use(
		middleware.RequestScope(),
		middleware.OptionalAuth(d.JWTSecret),
		middleware.SanitizeAndCleanInputMiddleware(),
	)

	api.GET("/plans", d.Plans.ListPlans)

	api.GET("/articles/:id", d.Content.GetArticle)
	api.GET("/articles/:id/access", d.Content.GetArticleAccess)
	api.POST("/articles/access", d.Content.BatchArticleAccess)
	api.POST("/access/check", d.Content.CheckAccess)
	api.GET("/videos/:id/playback", d.Content.GetVideoPlayback)

	auth := api.Group("/")
	auth.Use(middleware.AuthMiddleware(d.JWTSecret))
	auth.GET("/me", d.Users.GetCurrentUser)
	if d.Preview != nil {
		auth.POST("/videos/:id/preview", d.Preview.StartPreview)
		auth.POST("/videos/:id/preview/heartbeat", d.Preview.Heartbeat)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAccess(d.Engine, access.ResourceAdminPanel, access.ActionRead))
	admin.GET("/audit", d.Admin.ListAudit)
	admin.GET("/stats", d.Admin.GetAdminStats)
	admin.GET("/users/:id/access", d.Admin.GetUserAccess)
	admin.POST("/users/:id/refresh-roles", d.Admin.RefreshUserRoles)
	admin.POST("/sync-plans", d.Plans.SyncPlansFromStripe)
}
