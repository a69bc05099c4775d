package access

// AccessState is the effective subscription state of an account.
type AccessState string

const (
	AccessTrial   AccessState = "trial"
	AccessFull    AccessState = "full"
	AccessLimited AccessState = "limited"
	AccessLocked  AccessState = "locked"
)

// RoleName is the closed set of roles the engine understands.
type RoleName string

const (
	RoleFreeUser    RoleName = "free_user"
	RolePremiumUser RoleName = "premium_user"
	RoleAdmin       RoleName = "admin"
	RoleSuperAdmin  RoleName = "super_admin"
)

// Valid reports whether r is one of the known roles.
func (r RoleName) Valid() bool {
	switch r {
	case RoleFreeUser, RolePremiumUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

type ResourceKind string

const (
	ResourceArticle     ResourceKind = "article"
	ResourceVideo       ResourceKind = "video"
	ResourceForum       ResourceKind = "forum"
	ResourceUserProfile ResourceKind = "user_profile"
	ResourceAdminPanel  ResourceKind = "admin_panel"
)

type Action string

const (
	ActionRead        Action = "read"
	ActionReadPartial Action = "read_partial"
	ActionWrite       Action = "write"
	ActionModerate    Action = "moderate"
)

// AccessLevel is ordered: free < partial < premium.
type AccessLevel string

const (
	LevelFree    AccessLevel = "free"
	LevelPartial AccessLevel = "partial"
	LevelPremium AccessLevel = "premium"
)

type RequiredAction string

const (
	RequireLogin   RequiredAction = "login"
	RequireUpgrade RequiredAction = "upgrade"
)

// Principal is the actor a decision is made for. A nil *Principal is anonymous.
// Roles must not be mutated while a decision is being evaluated.
type Principal struct {
	UserID string
	Roles  []RoleName
}

// HasRole reports whether the principal carries any of the given roles.
func (p *Principal) HasRole(roles ...RoleName) bool {
	if p == nil {
		return false
	}
	for _, have := range p.Roles {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func (p *Principal) isAdmin() bool {
	return p.HasRole(RoleAdmin, RoleSuperAdmin)
}

// Request names the resource and action being checked. PremiumVideo is only
// consulted for videos; articles derive their level from ResourceID.
type Request struct {
	Kind         ResourceKind `json:"kind"`
	ResourceID   string       `json:"resource_id"`
	Action       Action       `json:"action"`
	PremiumVideo bool         `json:"premium_video,omitempty"`
}

// Decision is the verdict for one Request. When Allowed is true RequiredAction
// is empty, and PreviewAllowed is only ever set together with LevelPartial.
type Decision struct {
	Allowed        bool           `json:"allowed"`
	Reason         string         `json:"reason"`
	Level          AccessLevel    `json:"level,omitempty"`
	RequiredAction RequiredAction `json:"required_action,omitempty"`
	RequiredRoles  []RoleName     `json:"required_roles,omitempty"`
	PreviewAllowed bool           `json:"preview_allowed,omitempty"`
}

// Reasons carried by decisions. Callers may compare against these to tell a
// policy denial from a verification failure.
const (
	ReasonFreeContent        = "Free content"
	ReasonAuthRequired       = "Authentication required"
	ReasonAdmin              = "Admin access"
	ReasonPreview            = "Preview access"
	ReasonPremium            = "Premium access"
	ReasonUpgradeRequired    = "Premium subscription required"
	ReasonInvalidArticleID   = "Invalid article ID"
	ReasonRoleLookupFailed   = "Failed to verify user permissions"
	ReasonInsufficient       = "Insufficient permissions"
	ReasonPublicForum        = "Public forum"
	ReasonAuthenticated      = "Authenticated access"
	ReasonOwnProfile         = "Own profile"
	ReasonUnsupportedRequest = "Unsupported resource or action"
)
