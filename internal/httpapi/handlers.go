package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rsvp-bot/internal/campaign"
	"rsvp-bot/internal/models"
	"rsvp-bot/internal/sheets"
	"rsvp-bot/internal/storage"
)

func (a *api) health(c *gin.Context) {
	respondSuccess(c, gin.H{"status": "ok", "time": a.deps.Now().UTC()})
}

func (a *api) listTenants(c *gin.Context) {
	respondSuccess(c, gin.H{"tenants": a.deps.Tenants.All()})
}

type activeInput struct {
	Active *bool `json:"active" binding:"required"`
}

func (a *api) setActive(c *gin.Context) {
	var in activeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, "active is required", http.StatusBadRequest)
		return
	}
	id := c.Param("id")
	if err := a.deps.Tenants.SetActive(id, *in.Active); err != nil {
		a.fail(c, err)
		return
	}
	respondSuccess(c, gin.H{"tenant": id, "active": *in.Active})
}

func (a *api) runCampaign(c *gin.Context) {
	id := c.Param("id")
	forced, _ := strconv.ParseBool(c.Query("forced"))

	sent, err := a.deps.Campaigns.Run(c.Request.Context(), id, forced)
	if err != nil {
		a.fail(c, err)
		return
	}
	respondSuccess(c, gin.H{"tenant": id, "forced": forced, "sent": sent})
}

func (a *api) listGuests(c *gin.Context) {
	id := c.Param("id")
	view, err := a.deps.Guests(id)
	if err != nil {
		a.fail(c, err)
		return
	}

	guests := view.GetGuests(c.Request.Context())
	if status := c.Query("status"); status != "" {
		guests = sheets.FilterByStatus(guests, status)
	}
	respondSuccess(c, gin.H{"tenant": id, "count": len(guests), "guests": guests})
}

func (a *api) stats(c *gin.Context) {
	id := c.Param("id")
	view, err := a.deps.Guests(id)
	if err != nil {
		a.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	respondSuccess(c, gin.H{
		"tenant":  id,
		"event":   view.GetEventDetails(ctx),
		"summary": sheets.Summarize(view.GetGuests(ctx)),
	})
}

func (a *api) listFollowUps(c *gin.Context) {
	respondSuccess(c, gin.H{"followups": a.deps.FollowUps.Pending()})
}

func (a *api) flushFollowUps(c *gin.Context) {
	sent, err := a.deps.FollowUps.Flush(c.Request.Context(), a.deps.Now())
	if err != nil {
		a.fail(c, err)
		return
	}
	respondSuccess(c, gin.H{"sent": sent})
}

func (a *api) directory(c *gin.Context) {
	var mappings []models.GuestMapping
	if tenantID := c.Query("tenant"); tenantID != "" {
		mappings = a.deps.Directory.ForTenant(tenantID)
	} else {
		mappings = a.deps.Directory.All()
	}
	respondSuccess(c, gin.H{"count": len(mappings), "mappings": mappings})
}

// fail maps domain errors to HTTP status codes.
func (a *api) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrTenantNotFound), errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, campaign.ErrTenantInactive):
		code = http.StatusConflict
	case errors.Is(err, sheets.ErrNoCredentials), errors.Is(err, campaign.ErrBadEventDate):
		code = http.StatusUnprocessableEntity
	}
	if code == http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	respondError(c, err.Error(), code)
}
