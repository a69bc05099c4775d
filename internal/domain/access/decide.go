package access

// Decide evaluates one request for an already resolved principal. It performs
// no I/O and keeps no state, so repeated calls with the same inputs return
// equal decisions and it is safe for concurrent use.
func Decide(p *Principal, req Request) Decision {
	switch req.Kind {
	case ResourceArticle:
		return decideArticle(p, req)
	case ResourceVideo:
		return decideVideo(p, req)
	case ResourceForum:
		return decideForum(p, req)
	case ResourceUserProfile:
		return decideUserProfile(p, req)
	case ResourceAdminPanel:
		return decideAdminPanel(p, req)
	}
	return Decision{Reason: ReasonUnsupportedRequest}
}

// ItemKey identifies one batch item. Every field that can change a decision
// is part of the key, so items sharing a resource id never overwrite each
// other.
type ItemKey struct {
	Kind         ResourceKind
	ResourceID   string
	Action       Action
	PremiumVideo bool
}

// Key returns the batch key of req.
func (req Request) Key() ItemKey {
	return ItemKey{Kind: req.Kind, ResourceID: req.ResourceID, Action: req.Action, PremiumVideo: req.PremiumVideo}
}

// DecideMany applies Decide to every request with the same principal. Items
// do not influence each other, so input order never changes a result.
// Identical requests collapse to one entry.
func DecideMany(p *Principal, reqs []Request) map[ItemKey]Decision {
	out := make(map[ItemKey]Decision, len(reqs))
	for _, req := range reqs {
		out[req.Key()] = Decide(p, req)
	}
	return out
}

func isReadAction(a Action) bool {
	return a == ActionRead || a == ActionReadPartial
}

func decideArticle(p *Principal, req Request) Decision {
	level, err := ClassifyID(req.ResourceID)
	if err != nil {
		return Decision{Reason: ReasonInvalidArticleID}
	}
	if level == LevelFree && isReadAction(req.Action) {
		return Decision{Allowed: true, Reason: ReasonFreeContent, Level: LevelFree}
	}
	if p == nil {
		return loginRequired(level)
	}
	if p.isAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdmin, Level: level}
	}
	if !isReadAction(req.Action) {
		return insufficient(level, RoleAdmin)
	}
	return gateTier(p, level, req.Action)
}

// Premium videos expose a time-boxed preview, so they are gated at the
// partial tier; free videos are open to everyone.
func decideVideo(p *Principal, req Request) Decision {
	level := LevelFree
	if req.PremiumVideo {
		level = LevelPartial
	}
	if level == LevelFree && isReadAction(req.Action) {
		return Decision{Allowed: true, Reason: ReasonFreeContent, Level: LevelFree}
	}
	if p == nil {
		return loginRequired(level)
	}
	if p.isAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdmin, Level: level}
	}
	if !isReadAction(req.Action) {
		return insufficient(level, RoleAdmin)
	}
	return gateTier(p, level, req.Action)
}

// gateTier handles non-free content for an authenticated, non-admin principal.
func gateTier(p *Principal, level AccessLevel, action Action) Decision {
	premium := p.HasRole(RolePremiumUser)
	switch level {
	case LevelPartial:
		if premium {
			return Decision{Allowed: true, Reason: ReasonPremium, Level: level}
		}
		if action == ActionReadPartial {
			return Decision{Allowed: true, Reason: ReasonPreview, Level: level, PreviewAllowed: true}
		}
		return Decision{
			Reason:         ReasonUpgradeRequired,
			Level:          level,
			RequiredAction: RequireUpgrade,
			RequiredRoles:  []RoleName{RolePremiumUser},
			PreviewAllowed: true,
		}
	case LevelPremium:
		if premium {
			return Decision{Allowed: true, Reason: ReasonPremium, Level: level}
		}
		return Decision{
			Reason:         ReasonUpgradeRequired,
			Level:          level,
			RequiredAction: RequireUpgrade,
			RequiredRoles:  []RoleName{RolePremiumUser},
		}
	}
	return Decision{Allowed: true, Reason: ReasonFreeContent, Level: level}
}

func decideForum(p *Principal, req Request) Decision {
	if req.Action == ActionRead {
		return Decision{Allowed: true, Reason: ReasonPublicForum}
	}
	if p == nil {
		return loginRequired("")
	}
	if p.isAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}
	switch req.Action {
	case ActionWrite:
		return Decision{Allowed: true, Reason: ReasonAuthenticated}
	case ActionModerate:
		return insufficient("", RoleAdmin)
	}
	return Decision{Reason: ReasonUnsupportedRequest}
}

func decideUserProfile(p *Principal, req Request) Decision {
	if p == nil {
		return loginRequired("")
	}
	if p.isAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}
	switch req.Action {
	case ActionRead:
		return Decision{Allowed: true, Reason: ReasonAuthenticated}
	case ActionWrite:
		if req.ResourceID != "" && req.ResourceID == p.UserID {
			return Decision{Allowed: true, Reason: ReasonOwnProfile}
		}
		return insufficient("", RoleAdmin)
	case ActionModerate:
		return insufficient("", RoleAdmin)
	}
	return Decision{Reason: ReasonUnsupportedRequest}
}

func decideAdminPanel(p *Principal, _ Request) Decision {
	if p == nil {
		return loginRequired("")
	}
	if p.isAdmin() {
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}
	return insufficient("", RoleAdmin, RoleSuperAdmin)
}

func loginRequired(level AccessLevel) Decision {
	return Decision{Reason: ReasonAuthRequired, Level: level, RequiredAction: RequireLogin}
}

func insufficient(level AccessLevel, roles ...RoleName) Decision {
	return Decision{Reason: ReasonInsufficient, Level: level, RequiredRoles: roles}
}
