// Package httpapi exposes the operator HTTP surface: health, campaign and
// follow-up triggers, and read-only guest and directory views.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rsvp-bot/internal/models"
)

// GuestView is the read side of a tenant's guest store.
type GuestView interface {
	GetGuests(ctx context.Context) []models.Guest
	GetEventDetails(ctx context.Context) models.EventDetails
}

// GuestViewLookup returns the guest store of a tenant.
type GuestViewLookup func(tenantID string) (GuestView, error)

type Campaigns interface {
	Run(ctx context.Context, tenantID string, forced bool) (int, error)
}

type FollowUps interface {
	Flush(ctx context.Context, now time.Time) (int, error)
	Pending() []models.FollowUp
}

type Directory interface {
	All() []models.GuestMapping
	ForTenant(tenantID string) []models.GuestMapping
}

type Tenants interface {
	All() []models.Tenant
	SetActive(id string, active bool) error
}

// Deps are the services the routes operate on.
type Deps struct {
	Guests    GuestViewLookup
	Campaigns Campaigns
	FollowUps FollowUps
	Directory Directory
	Tenants   Tenants
	Now       func() time.Time
}

type api struct {
	deps Deps
	log  zerolog.Logger
}

// NewRouter wires all routes and middlewares.
func NewRouter(deps Deps, log zerolog.Logger) *gin.Engine {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	a := &api{deps: deps, log: log.With().Str("component", "HTTP").Logger()}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(a.requestLogger())

	r.GET("/health", a.health)

	g := r.Group("/api")
	g.GET("/tenants", a.listTenants)
	g.POST("/tenants/:id/active", a.setActive)
	g.POST("/tenants/:id/campaign", a.runCampaign)
	g.GET("/tenants/:id/guests", a.listGuests)
	g.GET("/tenants/:id/stats", a.stats)
	g.GET("/followups", a.listFollowUps)
	g.POST("/followups/flush", a.flushFollowUps)
	g.GET("/directory", a.directory)

	return r
}

// requestLogger logs method, path, status and latency.
func (a *api) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}

func respondError(c *gin.Context, msg string, code int) {
	c.JSON(code, gin.H{"error": msg})
}

func respondSuccess(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
