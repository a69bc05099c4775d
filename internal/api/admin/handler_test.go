package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"content-gate/database"
	"content-gate/internal/domain/access"
	"content-gate/internal/domain/plans"
	"content-gate/internal/domain/users"
	"content-gate/internal/infra/audit"
)

type fakeInvalidator struct {
	calls []string
	err   error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, userID string) error {
	f.calls = append(f.calls, userID)
	return f.err
}

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T, inv RoleInvalidator) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	h := NewHandler(db, audit.NewStore(db), inv, nil)
	h.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/admin/audit", h.ListAudit)
	r.GET("/admin/stats", h.GetAdminStats)
	r.GET("/admin/users/:id/access", h.GetUserAccess)
	r.POST("/admin/users/:id/refresh-roles", h.RefreshUserRoles)
	return r, db
}

func get(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(method, path, nil))
	return res
}

func seedAudit(t *testing.T, db *gorm.DB) {
	t.Helper()
	store := audit.NewStore(db)
	recs := []access.AuditRecord{
		{UserID: "1", Resource: access.ResourceArticle, Action: access.ActionRead, ResourceID: "7", Allowed: false, Reason: access.ReasonUpgradeRequired, Timestamp: now.Add(-3 * time.Hour)},
		{UserID: "1", Resource: access.ResourceArticle, Action: access.ActionReadPartial, ResourceID: "7", Allowed: true, Reason: access.ReasonPreview, Timestamp: now.Add(-2 * time.Hour)},
		{UserID: "", Resource: access.ResourceVideo, Action: access.ActionRead, ResourceID: "v1", Allowed: false, Reason: access.ReasonAuthRequired, Timestamp: now.Add(-time.Hour)},
		{UserID: "2", Resource: access.ResourceAdminPanel, Action: access.ActionRead, Allowed: false, Reason: access.ReasonInsufficient, Timestamp: now.Add(-48 * time.Hour)},
	}
	for _, rec := range recs {
		require.NoError(t, store.Insert(context.Background(), audit.EntryFrom(rec)))
	}
}

func TestListAudit(t *testing.T) {
	r, db := setup(t, nil)
	seedAudit(t, db)

	var body struct {
		Entries []audit.Entry `json:"entries"`
		Count   int           `json:"count"`
	}

	res := get(r, http.MethodGet, "/admin/audit")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, 4, body.Count)
	assert.Equal(t, audit.AnonymousActor, body.Entries[0].UserID)

	res = get(r, http.MethodGet, "/admin/audit?user_id=1&allowed=false")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, access.ReasonUpgradeRequired, body.Entries[0].Reason)

	res = get(r, http.MethodGet, "/admin/audit?resource=video&limit=1")
	require.Equal(t, http.StatusOK, res.Code)
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	assert.Equal(t, http.StatusBadRequest, get(r, http.MethodGet, "/admin/audit?allowed=perhaps").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, http.MethodGet, "/admin/audit?limit=-4").Code)
}

func TestGetAdminStats(t *testing.T) {
	r, db := setup(t, nil)
	seedAudit(t, db)
	require.NoError(t, db.Create(&users.User{Email: "a@example.com", Role: users.RoleUser}).Error)

	res := get(r, http.MethodGet, "/admin/stats")
	require.Equal(t, http.StatusOK, res.Code)
	var stats AdminStats
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalUsers)
	assert.Equal(t, 3, stats.Checks24h)
	assert.Equal(t, 2, stats.Denied24h)
	assert.Equal(t, 1, stats.UsersPerPlan["No Plan"])
	assert.Equal(t, 1, stats.DeniedReasons[access.ReasonAuthRequired])
}

func TestGetAdminStatsReportsQueryFailure(t *testing.T) {
	r, db := setup(t, nil)
	seedAudit(t, db)
	require.NoError(t, db.Migrator().DropTable(&audit.Entry{}))

	res := get(r, http.MethodGet, "/admin/stats")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.JSONEq(t, `{"error":"Failed to load stats"}`, res.Body.String())
}

func TestGetUserAccess(t *testing.T) {
	r, db := setup(t, nil)
	premium := plans.Plan{Name: "Premium", StripePriceID: "price_p", Tier: plans.TierPremium, PriceEUR: 12}
	require.NoError(t, db.Create(&premium).Error)
	status := "active"
	sub := "sub_1"
	u := users.User{Email: "p@example.com", Role: users.RoleUser, PlanID: &premium.ID, SubscriptionId: &sub, StripeSubscriptionStatus: &status}
	require.NoError(t, db.Create(&u).Error)

	res := get(r, http.MethodGet, fmt.Sprintf("/admin/users/%d/access", u.ID))
	require.Equal(t, http.StatusOK, res.Code)
	var body AdminUserAccess
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, access.AccessFull, body.AccessState)
	assert.Equal(t, []access.RoleName{access.RolePremiumUser}, body.Roles)
	require.NotNil(t, body.PlanTier)
	assert.Equal(t, plans.TierPremium, *body.PlanTier)

	assert.Equal(t, http.StatusNotFound, get(r, http.MethodGet, "/admin/users/999/access").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, http.MethodGet, "/admin/users/abc/access").Code)
}

func TestRefreshUserRoles(t *testing.T) {
	inv := &fakeInvalidator{}
	r, _ := setup(t, inv)

	res := get(r, http.MethodPost, "/admin/users/12/refresh-roles")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"refreshed":true}`, res.Body.String())
	assert.Equal(t, []string{"12"}, inv.calls)

	inv.err = errors.New("redis down")
	assert.Equal(t, http.StatusInternalServerError, get(r, http.MethodPost, "/admin/users/12/refresh-roles").Code)

	r, _ = setup(t, nil)
	res = get(r, http.MethodPost, "/admin/users/12/refresh-roles")
	assert.JSONEq(t, `{"refreshed":false}`, res.Body.String())
}
