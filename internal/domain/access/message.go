package access

// Message is the user-facing rendering of a denied decision.
type Message struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	CTAText string `json:"cta_text,omitempty"`
	CTALink string `json:"cta_link,omitempty"`
}

// Formatter maps decisions to messages. It is a pure value; Format may be
// called repeatedly and its output cached by decision shape.
type Formatter struct {
	LoginURL   string
	UpgradeURL string
}

func NewFormatter(loginURL, upgradeURL string) Formatter {
	if loginURL == "" {
		loginURL = "/login"
	}
	if upgradeURL == "" {
		upgradeURL = "/pricing"
	}
	return Formatter{LoginURL: loginURL, UpgradeURL: upgradeURL}
}

func (f Formatter) Format(d Decision) Message {
	switch {
	case d.RequiredAction == RequireLogin:
		return Message{
			Title:   "Sign in to continue",
			Message: "This content is available to members. Sign in or create an account to keep going.",
			CTAText: "Sign in",
			CTALink: f.LoginURL,
		}
	case d.RequiredAction == RequireUpgrade && d.PreviewAllowed:
		return Message{
			Title:   "Continue reading with Premium",
			Message: "You've reached the end of the preview. Upgrade to Premium to unlock the full content.",
			CTAText: "Upgrade to Premium",
			CTALink: f.UpgradeURL,
		}
	case d.RequiredAction == RequireUpgrade:
		return Message{
			Title:   "Premium content",
			Message: "This content is available exclusively to Premium members.",
			CTAText: "Upgrade to Premium",
			CTALink: f.UpgradeURL,
		}
	}
	return Message{
		Title:   "Access denied",
		Message: d.Reason,
	}
}
