package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatter(t *testing.T) {
	f := NewFormatter("", "")

	login := f.Format(Decide(nil, article(10, ActionRead)))
	assert.Equal(t, "/login", login.CTALink)
	assert.Equal(t, "Sign in", login.CTAText)

	cont := f.Format(Decide(freeMember, article(10, ActionRead)))
	assert.Equal(t, "Continue reading with Premium", cont.Title)
	assert.Equal(t, "/pricing", cont.CTALink)

	premiumOnly := f.Format(Decide(freeMember, article(18, ActionRead)))
	assert.Equal(t, "Premium content", premiumOnly.Title)
	assert.Equal(t, "/pricing", premiumOnly.CTALink)

	generic := f.Format(Decision{Reason: ReasonRoleLookupFailed})
	assert.Equal(t, ReasonRoleLookupFailed, generic.Message)
	assert.Empty(t, generic.CTALink)
}

func TestFormatterCustomLinks(t *testing.T) {
	f := NewFormatter("https://example.com/signin", "https://example.com/upgrade")
	assert.Equal(t, "https://example.com/upgrade", f.Format(Decide(freeMember, article(18, ActionRead))).CTALink)
	assert.Equal(t, f.Format(Decide(freeMember, article(18, ActionRead))), f.Format(Decide(freeMember, article(38, ActionRead))))
}
