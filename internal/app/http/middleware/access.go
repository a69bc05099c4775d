package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"content-gate/internal/domain/access"
)

const ContextRequestID = "request_id"

// RequestScope tags the request with an id and a role memo so every access
// check made while serving it shares one role lookup per user.
func RequestScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Request = c.Request.WithContext(access.WithRoleMemo(c.Request.Context()))
		c.Next()
	}
}

// AuditContext collects the request attributes stored with audit records.
func AuditContext(c *gin.Context) access.RequestContext {
	return access.RequestContext{
		RequestID: c.GetString(ContextRequestID),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
	}
}

// RequireAccess authorizes the request against a fixed resource and action
// and aborts with the matching error shape when it is denied.
func RequireAccess(engine *access.Engine, kind access.ResourceKind, action access.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		req := access.Request{Kind: kind, ResourceID: c.Param("id"), Action: action}
		d := engine.Authorize(c.Request.Context(), UserID(c), req, AuditContext(c))
		if !d.Allowed {
			AbortWithDecision(c, req, d, nil)
			return
		}
		c.Next()
	}
}

// AbortWithDecision writes the HTTP form of a denied decision. A login
// requirement is 401 and an unverifiable principal is 503. A malformed
// article id is 400 and everything else is 403. A non-nil message is
// attached for the presentation layer.
func AbortWithDecision(c *gin.Context, req access.Request, d access.Decision, msg *access.Message) {
	body := gin.H{}
	status := http.StatusForbidden
	switch {
	case d.RequiredAction == access.RequireLogin:
		status = http.StatusUnauthorized
		body["error"] = "Authentication required"
	case d.Reason == access.ReasonRoleLookupFailed:
		status = http.StatusServiceUnavailable
		body["error"] = access.ReasonRoleLookupFailed
	case d.Reason == access.ReasonInvalidArticleID:
		status = http.StatusBadRequest
		body["error"] = access.ReasonInvalidArticleID
	default:
		body["error"] = "Insufficient permissions"
		body["required"] = gin.H{"resource": req.Kind, "action": req.Action}
	}
	body["reason"] = d.Reason
	if d.RequiredAction != "" {
		body["required_action"] = d.RequiredAction
	}
	if d.Level != "" {
		body["level"] = d.Level
	}
	if msg != nil {
		body["message"] = msg
	}
	c.AbortWithStatusJSON(status, body)
}
