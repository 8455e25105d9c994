package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/phone"
)

var ErrTenantInactive = errors.New("tenant is not active")

// GuestSource is the part of a tenant's guest store a campaign reads.
type GuestSource interface {
	GetGuests(ctx context.Context) []models.Guest
	GetEventDetails(ctx context.Context) models.EventDetails
	MarkContacted(ctx context.Context, phone string) bool
}

// GuestSourceLookup returns a tenant's guest store.
type GuestSourceLookup func(tenantID string) (GuestSource, error)

// Mapper records which tenant invited a phone.
type Mapper interface {
	Map(guestPhone, tenantID, guestName string) error
}

type Sender interface {
	SendMessage(ctx context.Context, to string, msg models.OutboundMessage) error
}

type Tenants interface {
	Get(id string) (models.Tenant, error)
	Active() []models.Tenant
}

// Runner sends one campaign batch per call.
type Runner struct {
	sources   GuestSourceLookup
	directory Mapper
	sender    Sender
	tenants   Tenants
	scheduler *Scheduler
	state     *State
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewRunner builds a runner that waits delay between consecutive sends.
func NewRunner(sources GuestSourceLookup, directory Mapper, sender Sender, tenants Tenants, scheduler *Scheduler, state *State, delay time.Duration, log zerolog.Logger) *Runner {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Runner{
		sources:   sources,
		directory: directory,
		sender:    sender,
		tenants:   tenants,
		scheduler: scheduler,
		state:     state,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log.With().Str("component", "campaign").Logger(),
	}
}

// Run sends today's batch for one tenant and reports how many messages went
// out. forced ignores the date windows and the tenant's active flag.
func (r *Runner) Run(ctx context.Context, tenantID string, forced bool) (int, error) {
	tenant, err := r.tenants.Get(tenantID)
	if err != nil {
		return 0, err
	}
	if !tenant.Active && !forced {
		return 0, fmt.Errorf("%w: %s", ErrTenantInactive, tenantID)
	}

	source, err := r.sources(tenantID)
	if err != nil {
		return 0, fmt.Errorf("guest store for %s: %w", tenantID, err)
	}

	logger := r.log.With().Str("tenant", tenantID).Bool("forced", forced).Logger()

	details := source.GetEventDetails(ctx)
	if _, err := ParseEventDate(details.Date, r.scheduler.Location); err == nil {
		tenant.EventDate = details.Date
	}
	days, err := r.scheduler.DaysRemaining(tenant.EventDate)
	if err != nil {
		logger.Warn().Err(err).Msg("Cannot compute days remaining")
		if !forced {
			return 0, err
		}
		days = -1
	}

	guests := source.GetGuests(ctx)
	recipients := r.scheduler.SelectRecipients(tenant, guests, r.state.Contacted(tenantID), forced)
	logger.Info().Int("days_remaining", days).Int("guests", len(guests)).Int("recipients", len(recipients)).Msg("Campaign batch selected")

	sent := 0
	for _, guest := range recipients {
		to := phone.Normalize(guest.Phone)
		if !to.IsValid() {
			logger.Warn().Str("phone", guest.Phone).Str("guest", guest.Name).Msg("Skipping guest with invalid phone")
			continue
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return sent, err
		}

		// Map before sending so a fast reply can already be routed.
		if err := r.directory.Map(guest.Phone, tenantID, guest.Name); err != nil {
			logger.Error().Err(err).Str("phone", to.String()).Msg("Failed to persist guest mapping")
		}

		if err := r.sender.SendMessage(ctx, to.Digits(), InvitationMessage(days, details, guest.Name)); err != nil {
			logger.Error().Err(err).Str("phone", to.String()).Msg("Failed to send campaign message")
			continue
		}

		r.state.MarkContacted(tenantID, ContactKey(guest.Phone))
		source.MarkContacted(ctx, to.Digits())
		sent++
	}

	logger.Info().Int("sent", sent).Msg("Campaign batch finished")
	return sent, nil
}

// RunAll runs a batch for every active tenant. Per-tenant failures are
// logged and do not stop the others.
func (r *Runner) RunAll(ctx context.Context, forced bool) int {
	total := 0
	for _, tenant := range r.tenants.Active() {
		n, err := r.Run(ctx, tenant.ID, forced)
		if err != nil {
			r.log.Error().Err(err).Str("tenant", tenant.ID).Msg("Campaign failed")
		}
		total += n
	}
	return total
}
