package content

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"content-gate/internal/app/http/middleware"
	"content-gate/internal/domain/access"
)

// maxBatch bounds one batch request; listing pages render far fewer cards.
const maxBatch = 200

type Handler struct {
	engine         *access.Engine
	messages       access.Formatter
	previewSeconds int
}

func NewHandler(engine *access.Engine, messages access.Formatter, previewSeconds int) *Handler {
	return &Handler{engine: engine, messages: messages, previewSeconds: previewSeconds}
}

type checkResponse struct {
	Decision access.Decision `json:"decision"`
	Message  *access.Message `json:"message,omitempty"`
}

func (h *Handler) withMessage(d access.Decision) checkResponse {
	res := checkResponse{Decision: d}
	if !d.Allowed {
		msg := h.messages.Format(d)
		res.Message = &msg
	}
	return res
}

// GetArticleAccess reports what the caller may do with an article without
// serving it. Not audited.
func (h *Handler) GetArticleAccess(c *gin.Context) {
	req := access.Request{Kind: access.ResourceArticle, ResourceID: c.Param("id"), Action: access.ActionRead}
	d := h.engine.Evaluate(c.Request.Context(), middleware.UserID(c), req)
	c.JSON(http.StatusOK, h.withMessage(d))
}

// GetArticle gates an article read. Readers without premium fall back to the
// preview rendering when the article allows one.
func (h *Handler) GetArticle(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	rc := middleware.AuditContext(c)
	id := c.Param("id")

	req := access.Request{Kind: access.ResourceArticle, ResourceID: id, Action: access.ActionRead}
	d := h.engine.Authorize(ctx, userID, req, rc)
	if d.Allowed {
		c.JSON(http.StatusOK, gin.H{"id": id, "level": d.Level, "mode": "full"})
		return
	}
	if !d.PreviewAllowed {
		msg := h.messages.Format(d)
		middleware.AbortWithDecision(c, req, d, &msg)
		return
	}

	partial := access.Request{Kind: access.ResourceArticle, ResourceID: id, Action: access.ActionReadPartial}
	pd := h.engine.Authorize(ctx, userID, partial, rc)
	if !pd.Allowed {
		msg := h.messages.Format(pd)
		middleware.AbortWithDecision(c, partial, pd, &msg)
		return
	}
	msg := h.messages.Format(d)
	c.JSON(http.StatusOK, gin.H{"id": id, "level": pd.Level, "mode": "preview", "message": msg})
}

type batchRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// BatchArticleAccess evaluates many articles against one role snapshot, for
// listing pages that badge each card.
func (h *Handler) BatchArticleAccess(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if len(body.IDs) > maxBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many ids", "max": maxBatch})
		return
	}

	reqs := make([]access.Request, 0, len(body.IDs))
	for _, id := range body.IDs {
		reqs = append(reqs, access.Request{Kind: access.ResourceArticle, ResourceID: id, Action: access.ActionRead})
	}
	byKey := h.engine.EvaluateMany(c.Request.Context(), middleware.UserID(c), reqs)
	// every item is an article read, so the id alone is unique here
	decisions := make(map[string]access.Decision, len(byKey))
	for _, req := range reqs {
		decisions[req.ResourceID] = byKey[req.Key()]
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

// CheckAccess evaluates an arbitrary request for the caller. Not audited.
func (h *Handler) CheckAccess(c *gin.Context) {
	var req access.Request
	if err := c.ShouldBindJSON(&req); err != nil || req.Kind == "" || req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	d := h.engine.Evaluate(c.Request.Context(), middleware.UserID(c), req)
	c.JSON(http.StatusOK, h.withMessage(d))
}

// GetVideoPlayback gates playback. The premium query flag defaults to true.
// A premium video the caller cannot watch
// in full answers with preview mode and the preview ceiling; the player
// enforces it locally and confirms watched time through the preview routes.
func (h *Handler) GetVideoPlayback(c *gin.Context) {
	// an omitted flag is gated as premium; free playback must be asked for
	premium := true
	if v := c.Query("premium"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid premium flag"})
			return
		}
		premium = b
	}

	ctx := c.Request.Context()
	userID := middleware.UserID(c)
	rc := middleware.AuditContext(c)
	id := c.Param("id")

	req := access.Request{Kind: access.ResourceVideo, ResourceID: id, Action: access.ActionRead, PremiumVideo: premium}
	d := h.engine.Authorize(ctx, userID, req, rc)
	if d.Allowed {
		c.JSON(http.StatusOK, gin.H{"video_id": id, "level": d.Level, "mode": "full"})
		return
	}
	if !d.PreviewAllowed {
		msg := h.messages.Format(d)
		middleware.AbortWithDecision(c, req, d, &msg)
		return
	}

	partial := req
	partial.Action = access.ActionReadPartial
	pd := h.engine.Authorize(ctx, userID, partial, rc)
	if !pd.Allowed {
		msg := h.messages.Format(pd)
		middleware.AbortWithDecision(c, partial, pd, &msg)
		return
	}
	msg := h.messages.Format(d)
	c.JSON(http.StatusOK, gin.H{
		"video_id":        id,
		"level":           pd.Level,
		"mode":            "preview",
		"preview_seconds": h.previewSeconds,
		"message":         msg,
	})
}
