package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rsvp-bot/internal/campaign"
	"rsvp-bot/internal/models"
	"rsvp-bot/internal/storage"
)

type fakeView struct {
	guests  []models.Guest
	details models.EventDetails
}

func (v *fakeView) GetGuests(context.Context) []models.Guest              { return v.guests }
func (v *fakeView) GetEventDetails(context.Context) models.EventDetails { return v.details }

type fakeCampaigns struct {
	calls []string
	err   error
}

func (f *fakeCampaigns) Run(_ context.Context, tenantID string, forced bool) (int, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s:%t", tenantID, forced))
	if f.err != nil {
		return 0, f.err
	}
	return 4, nil
}

type fakeFollowUps struct {
	flushedAt time.Time
	pending   []models.FollowUp
}

func (f *fakeFollowUps) Flush(_ context.Context, now time.Time) (int, error) {
	f.flushedAt = now
	return 2, nil
}

func (f *fakeFollowUps) Pending() []models.FollowUp { return f.pending }

type fakeDirectory []models.GuestMapping

func (d fakeDirectory) All() []models.GuestMapping { return d }

func (d fakeDirectory) ForTenant(id string) []models.GuestMapping {
	var out []models.GuestMapping
	for _, m := range d {
		if m.TenantID == id {
			out = append(out, m)
		}
	}
	return out
}

type fakeTenants struct {
	tenants []models.Tenant
}

func (f *fakeTenants) All() []models.Tenant { return f.tenants }

func (f *fakeTenants) SetActive(id string, active bool) error {
	for i := range f.tenants {
		if f.tenants[i].ID == id {
			f.tenants[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("%w: %s", storage.ErrTenantNotFound, id)
}

type fixture struct {
	router    *gin.Engine
	campaigns *fakeCampaigns
	followUps *fakeFollowUps
	tenants   *fakeTenants
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	view := &fakeView{
		details: models.EventDetails{Name: "Dana & Avi", Date: "2026-11-15"},
		guests: []models.Guest{
			{Name: "Noa", Phone: "0501234567", Status: models.RSVPConfirmed, PartyCount: 3},
			{Name: "Eli", Phone: "0521112222", Status: models.RSVPDeclined},
			{Name: "Tal", Phone: "0541113333"},
			{Name: "Yael", Phone: "0541114444", Status: models.RSVPPending},
		},
	}
	f := &fixture{
		campaigns: &fakeCampaigns{},
		followUps: &fakeFollowUps{pending: []models.FollowUp{{ID: "f1", Phone: "972501234567", TenantID: "cust_1"}}},
		tenants:   &fakeTenants{tenants: []models.Tenant{{ID: "cust_1", Active: true}}},
		now:       time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	f.router = NewRouter(Deps{
		Guests: func(id string) (GuestView, error) {
			if id != "cust_1" {
				return nil, fmt.Errorf("%w: %s", storage.ErrTenantNotFound, id)
			}
			return view, nil
		},
		Campaigns: f.campaigns,
		FollowUps: f.followUps,
		Directory: fakeDirectory{
			{Phone: "972501234567", TenantID: "cust_1"},
			{Phone: "972521112222", TenantID: "cust_2"},
		},
		Tenants: f.tenants,
		Now:     func() time.Time { return f.now },
	}, zerolog.Nop())
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestRunCampaignPassesForcedFlag(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodPost, "/api/tenants/cust_1/campaign?forced=true", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 4, body["sent"])

	f.do(t, http.MethodPost, "/api/tenants/cust_1/campaign", "")
	assert.Equal(t, []string{"cust_1:true", "cust_1:false"}, f.campaigns.calls)
}

func TestRunCampaignErrors(t *testing.T) {
	f := newFixture(t)

	f.campaigns.err = fmt.Errorf("run cust_1: %w", campaign.ErrTenantInactive)
	code, _ := f.do(t, http.MethodPost, "/api/tenants/cust_1/campaign", "")
	assert.Equal(t, http.StatusConflict, code)

	f.campaigns.err = fmt.Errorf("%w: cust_9", storage.ErrTenantNotFound)
	code, body := f.do(t, http.MethodPost, "/api/tenants/cust_9/campaign", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "cust_9")
}

func TestListGuestsFiltersByStatus(t *testing.T) {
	f := newFixture(t)

	code, body := f.do(t, http.MethodGet, "/api/tenants/cust_1/guests", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 4, body["count"])

	_, body = f.do(t, http.MethodGet, "/api/tenants/cust_1/guests?status=pending", "")
	assert.EqualValues(t, 2, body["count"])

	_, body = f.do(t, http.MethodGet, "/api/tenants/cust_1/guests?status=Confirmed", "")
	require.EqualValues(t, 1, body["count"])
	guest := body["guests"].([]any)[0].(map[string]any)
	assert.Equal(t, "Noa", guest["name"])
	assert.Equal(t, "Noa", guest["Name"])
	assert.Equal(t, "3", guest["GuestCount"])
}

func TestListGuestsUnknownTenant(t *testing.T) {
	f := newFixture(t)
	code, _ := f.do(t, http.MethodGet, "/api/tenants/nope/guests", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodGet, "/api/tenants/cust_1/stats", "")
	require.Equal(t, http.StatusOK, code)

	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 4, summary["total"])
	assert.EqualValues(t, 2, summary["pending"])
	assert.EqualValues(t, 1, summary["confirmed"])
	assert.EqualValues(t, 3, summary["attending"])
	assert.Equal(t, "Dana & Avi", body["event"].(map[string]any)["name"])
}

func TestFlushFollowUpsUsesClock(t *testing.T) {
	f := newFixture(t)
	code, body := f.do(t, http.MethodPost, "/api/followups/flush", "")
	assert.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["sent"])
	assert.True(t, f.now.Equal(f.followUps.flushedAt))

	_, body = f.do(t, http.MethodGet, "/api/followups", "")
	assert.Len(t, body["followups"], 1)
}

func TestDirectoryFiltersByTenant(t *testing.T) {
	f := newFixture(t)

	_, body := f.do(t, http.MethodGet, "/api/directory", "")
	assert.EqualValues(t, 2, body["count"])

	_, body = f.do(t, http.MethodGet, "/api/directory?tenant=cust_2", "")
	assert.EqualValues(t, 1, body["count"])
}

func TestSetActive(t *testing.T) {
	f := newFixture(t)

	code, _ := f.do(t, http.MethodPost, "/api/tenants/cust_1/active", `{"active":false}`)
	assert.Equal(t, http.StatusOK, code)
	assert.False(t, f.tenants.tenants[0].Active)

	code, _ = f.do(t, http.MethodPost, "/api/tenants/cust_1/active", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/api/tenants/cust_9/active", `{"active":true}`)
	assert.Equal(t, http.StatusNotFound, code)
}
