package preview

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"content-gate/internal/app/http/middleware"
	"content-gate/internal/domain/access"
	"content-gate/internal/infra/watchtime"
)

type Handler struct {
	engine   *access.Engine
	ledger   *watchtime.Ledger
	messages access.Formatter
	sessions sessionSigner
	logger   *slog.Logger
}

func NewHandler(engine *access.Engine, ledger *watchtime.Ledger, messages access.Formatter, secret []byte, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   engine,
		ledger:   ledger,
		messages: messages,
		sessions: sessionSigner{secret: secret, ttl: 6 * time.Hour, now: time.Now},
		logger:   logger,
	}
}

// StartPreview opens (or rejoins) the caller's preview allowance on a
// premium video. Callers entitled to the full video get mode "full" and no
// session.
func (h *Handler) StartPreview(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	videoID := c.Param("id")

	req := access.Request{Kind: access.ResourceVideo, ResourceID: videoID, Action: access.ActionReadPartial, PremiumVideo: true}
	d := h.engine.Authorize(ctx, userID, req, middleware.AuditContext(c))
	if !d.Allowed {
		msg := h.messages.Format(d)
		middleware.AbortWithDecision(c, req, d, &msg)
		return
	}
	if !d.PreviewAllowed {
		c.JSON(http.StatusOK, gin.H{"video_id": videoID, "mode": "full"})
		return
	}

	status, err := h.ledger.Open(ctx, userID, videoID)
	if err != nil {
		h.logger.Error("open preview session", slog.String("user_id", userID), slog.String("video_id", videoID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start preview"})
		return
	}
	if status.Restricted {
		h.respondRestricted(c, videoID, status)
		return
	}

	sessionID, token, err := h.sessions.issue(userID, videoID)
	if err != nil {
		h.logger.Error("issue preview session", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start preview"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"video_id":      videoID,
		"mode":          "preview",
		"session_id":    sessionID,
		"session_token": token,
		"status":        status,
	})
}

type heartbeatRequest struct {
	SessionToken   string `json:"session_token" binding:"required"`
	WatchedSeconds *int   `json:"watched_seconds" binding:"required"`
}

// Heartbeat credits playback time reported by the player since its last
// heartbeat. Once the allowance is spent the answer carries the upgrade
// message the player shows in place of the video.
func (h *Handler) Heartbeat(c *gin.Context) {
	var body heartbeatRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userID := middleware.UserID(c)
	videoID := c.Param("id")
	if _, err := h.sessions.verify(body.SessionToken, userID, videoID); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid preview session"})
		return
	}

	status, err := h.ledger.Confirm(c.Request.Context(), userID, videoID, *body.WatchedSeconds)
	switch {
	case errors.Is(err, watchtime.ErrInvalidReport):
		c.JSON(http.StatusBadRequest, gin.H{"error": "watched_seconds must not be negative"})
		return
	case errors.Is(err, watchtime.ErrUnknownSession):
		c.JSON(http.StatusConflict, gin.H{"error": "Preview session expired"})
		return
	case errors.Is(err, watchtime.ErrContention):
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent preview updates, retry"})
		return
	case err != nil:
		h.logger.Error("confirm preview time", slog.String("user_id", userID), slog.String("video_id", videoID), slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record preview time"})
		return
	}

	if status.Restricted {
		h.respondRestricted(c, videoID, status)
		return
	}
	c.JSON(http.StatusOK, gin.H{"video_id": videoID, "mode": "preview", "status": status})
}

// respondRestricted re-checks the full read so an account upgraded during the
// preview is let through instead of shown the upgrade prompt.
func (h *Handler) respondRestricted(c *gin.Context, videoID string, status watchtime.Status) {
	req := access.Request{Kind: access.ResourceVideo, ResourceID: videoID, Action: access.ActionRead, PremiumVideo: true}
	d := h.engine.Evaluate(c.Request.Context(), middleware.UserID(c), req)
	if d.Allowed {
		c.JSON(http.StatusOK, gin.H{"video_id": videoID, "mode": "full", "status": status})
		return
	}
	msg := h.messages.Format(d)
	c.JSON(http.StatusOK, gin.H{
		"video_id": videoID,
		"mode":     "restricted",
		"status":   status,
		"message":  msg,
	})
}
