package access

import (
	"context"
	"log/slog"
	"time"
)

// RoleResolver returns the current roles of a user.
type RoleResolver interface {
	Roles(ctx context.Context, userID string) ([]RoleName, error)
}

// AuditSink receives one record per authorization check made at a trust
// boundary. Record must not block and has no result the engine consumes.
type AuditSink interface {
	Record(ctx context.Context, rec AuditRecord)
}

// RequestContext correlates an audit record with the incoming request.
type RequestContext struct {
	RequestID string `json:"request_id,omitempty"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
}

type AuditRecord struct {
	UserID         string
	Resource       ResourceKind
	Action         Action
	ResourceID     string
	Allowed        bool
	Reason         string
	Timestamp      time.Time
	RequestContext RequestContext
}

type nopSink struct{}

func (nopSink) Record(context.Context, AuditRecord) {}

// Engine resolves principals and evaluates requests. It holds no mutable
// state; per-request role memoization lives in the context (see WithRoleMemo).
type Engine struct {
	roles  RoleResolver
	audit  AuditSink
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds an Engine. A nil sink disables auditing.
func NewEngine(roles RoleResolver, audit AuditSink, opts ...Option) *Engine {
	if audit == nil {
		audit = nopSink{}
	}
	e := &Engine{
		roles:  roles,
		audit:  audit,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Principal resolves the roles of userID. An empty userID is anonymous and
// yields a nil principal.
func (e *Engine) Principal(ctx context.Context, userID string) (*Principal, error) {
	if userID == "" {
		return nil, nil
	}
	var (
		roles []RoleName
		err   error
	)
	if memo := roleMemoFrom(ctx); memo != nil {
		roles, err = memo.resolve(ctx, userID, e.roles)
	} else {
		roles, err = e.roles.Roles(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &Principal{UserID: userID, Roles: knownRoles(roles)}, nil
}

// Evaluate is an informational check: it is not audited.
func (e *Engine) Evaluate(ctx context.Context, userID string, req Request) Decision {
	p, err := e.Principal(ctx, userID)
	if err != nil {
		e.logger.Warn("role resolution failed", slog.String("user_id", userID), slog.Any("error", err))
		return roleLookupFailed()
	}
	return Decide(p, req)
}

// EvaluateMany resolves roles once and evaluates every request against the
// same principal snapshot. Results are keyed by Request.Key.
func (e *Engine) EvaluateMany(ctx context.Context, userID string, reqs []Request) map[ItemKey]Decision {
	p, err := e.Principal(ctx, userID)
	if err != nil {
		e.logger.Warn("role resolution failed", slog.String("user_id", userID), slog.Any("error", err))
		out := make(map[ItemKey]Decision, len(reqs))
		for _, req := range reqs {
			out[req.Key()] = roleLookupFailed()
		}
		return out
	}
	return DecideMany(p, reqs)
}

// Authorize is a trust-boundary check: the decision is returned as computed
// and one audit record is handed to the sink.
func (e *Engine) Authorize(ctx context.Context, userID string, req Request, rc RequestContext) Decision {
	d := e.Evaluate(ctx, userID, req)
	e.audit.Record(ctx, AuditRecord{
		UserID:         userID,
		Resource:       req.Kind,
		Action:         req.Action,
		ResourceID:     req.ResourceID,
		Allowed:        d.Allowed,
		Reason:         d.Reason,
		Timestamp:      e.now().UTC(),
		RequestContext: rc,
	})
	return d
}

func roleLookupFailed() Decision {
	return Decision{Reason: ReasonRoleLookupFailed}
}

// knownRoles drops role names outside the closed set and copies the slice so
// the principal never aliases resolver-owned memory.
func knownRoles(in []RoleName) []RoleName {
	out := make([]RoleName, 0, len(in))
	for _, r := range in {
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}
