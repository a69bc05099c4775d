package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"content-gate/internal/domain/access"
)

// AnonymousActor is stored as the user id of unauthenticated checks.
const AnonymousActor = "anonymous"

// Entry is one persisted authorization check. Rows are append-only.
type Entry struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Timestamp  time.Time `gorm:"not null;index:idx_access_audit_timestamp" json:"timestamp"`
	UserID     string    `gorm:"type:varchar(64);not null;index:idx_access_audit_user" json:"user_id"`
	Resource   string    `gorm:"type:varchar(32);not null" json:"resource"`
	Action     string    `gorm:"type:varchar(32);not null" json:"action"`
	ResourceID *string   `gorm:"type:varchar(128)" json:"resource_id,omitempty"`
	Allowed    bool      `gorm:"not null;index:idx_access_audit_allowed" json:"allowed"`
	Reason     string    `gorm:"type:varchar(255)" json:"reason,omitempty"`

	RequestID string `gorm:"type:varchar(64)" json:"request_id,omitempty"`
	IP        string `gorm:"type:varchar(64)" json:"ip,omitempty"`
	UserAgent string `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	Method    string `gorm:"type:varchar(10)" json:"method,omitempty"`
	Path      string `gorm:"type:varchar(255)" json:"path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Entry) TableName() string {
	return "access_audit_logs"
}

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}

// EntryFrom converts an engine audit record into its stored form.
func EntryFrom(rec access.AuditRecord) *Entry {
	e := &Entry{
		Timestamp: rec.Timestamp,
		UserID:    rec.UserID,
		Resource:  string(rec.Resource),
		Action:    string(rec.Action),
		Allowed:   rec.Allowed,
		Reason:    rec.Reason,
		RequestID: rec.RequestContext.RequestID,
		IP:        rec.RequestContext.IP,
		UserAgent: truncate(rec.RequestContext.UserAgent, 255),
		Method:    rec.RequestContext.Method,
		Path:      truncate(rec.RequestContext.Path, 255),
	}
	if e.UserID == "" {
		e.UserID = AnonymousActor
	}
	if rec.ResourceID != "" {
		id := rec.ResourceID
		e.ResourceID = &id
	}
	return e
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
