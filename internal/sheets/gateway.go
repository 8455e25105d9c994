// Package sheets is the client for a tenant's remote guest store.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rsvp-bot/internal/models"
)

var (
	ErrAllFormatsFailed = errors.New("all request formats failed")
	ErrNoCredentials    = errors.New("tenant has no guest store credentials")
)

// Config tunes every gateway built by a Registry.
type Config struct {
	Timeout       time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
	CacheTTL      time.Duration
	Location      *time.Location
}

// DefaultConfig matches the remote store's observed limits.
func DefaultConfig() Config {
	return Config{
		Timeout:       10 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    2 * time.Second,
		CacheTTL:      5 * time.Minute,
		Location:      time.UTC,
	}
}

type cacheEntry[T any] struct {
	value     T
	fetchedAt time.Time
	valid     bool
}

func (e cacheEntry[T]) fresh(now time.Time, ttl time.Duration) bool {
	return e.valid && now.Sub(e.fetchedAt) < ttl
}

type response struct {
	Success bool             `json:"success"`
	Guests  []map[string]any `json:"guests"`
	Details map[string]any   `json:"details"`
	Error   string           `json:"error"`
	Message string           `json:"message"`
}

func (r *response) failure() string {
	if r.Error != "" {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	return "response has no success flag"
}

// Gateway talks to one tenant's guest store. Reads are cached for CacheTTL;
// writes invalidate the guest cache.
type Gateway struct {
	tenantID string
	endpoint string
	secret   string
	client   *http.Client
	cfg      Config
	formats  []RequestFormat
	defaults models.EventDetails
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	guests  cacheEntry[[]models.Guest]
	details cacheEntry[models.EventDetails]
	// generation changes on every invalidation; a fetch started under an
	// older generation is returned but not cached.
	generation uint64
}

// NewGateway builds a gateway for tenant. defaults fill event detail fields
// the remote store leaves empty.
func NewGateway(tenant models.Tenant, creds models.Credentials, cfg Config, client *http.Client, log zerolog.Logger) *Gateway {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Gateway{
		tenantID: tenant.ID,
		endpoint: creds.Endpoint,
		secret:   creds.Secret,
		client:   client,
		cfg:      cfg,
		formats:  DefaultFormats,
		defaults: models.EventDetails{Name: tenant.EventName, Date: tenant.EventDate},
		log:      log.With().Str("component", "sheets").Str("tenant", tenant.ID).Logger(),
		now:      time.Now,
	}
}

// GetGuests returns the tenant's guest list. A failed fetch yields an empty
// list; the error is logged, not returned.
func (g *Gateway) GetGuests(ctx context.Context) []models.Guest {
	g.mu.Lock()
	if g.guests.fresh(g.now(), g.cfg.CacheTTL) {
		guests := cloneGuests(g.guests.value)
		g.mu.Unlock()
		return guests
	}
	generation := g.generation
	g.mu.Unlock()

	resp, err := g.dispatch(ctx, ActionGetGuests, nil)
	if err != nil {
		g.log.Error().Err(err).Msg("Failed to fetch guest list")
		return []models.Guest{}
	}

	guests := make([]models.Guest, 0, len(resp.Guests))
	for _, raw := range resp.Guests {
		guests = append(guests, toCanonicalGuest(raw))
	}
	if len(guests) == 0 {
		g.log.Warn().Msg("Guest list is empty")
	}

	g.mu.Lock()
	if g.generation == generation {
		g.guests = cacheEntry[[]models.Guest]{value: guests, fetchedAt: g.now(), valid: true}
	} else {
		g.log.Debug().Msg("Guest list changed during fetch, not caching")
	}
	g.mu.Unlock()

	return cloneGuests(guests)
}

// GetEventDetails returns the event header. A failed fetch yields the
// tenant's registered event name and date.
func (g *Gateway) GetEventDetails(ctx context.Context) models.EventDetails {
	g.mu.Lock()
	if g.details.fresh(g.now(), g.cfg.CacheTTL) {
		details := g.details.value
		g.mu.Unlock()
		return details
	}
	g.mu.Unlock()

	resp, err := g.dispatch(ctx, ActionGetEventDetails, nil)
	if err != nil {
		g.log.Error().Err(err).Msg("Failed to fetch event details")
		return g.defaults
	}

	details := toCanonicalDetails(resp.Details, g.defaults)

	g.mu.Lock()
	g.details = cacheEntry[models.EventDetails]{value: details, fetchedAt: g.now(), valid: true}
	g.mu.Unlock()

	return details
}

// UpdateGuestStatus sets a guest's status and party size. The write is a
// status-set, so retrying it cannot accumulate counts. It reports false once
// every attempt has failed.
func (g *Gateway) UpdateGuestStatus(ctx context.Context, phone string, status models.RSVPStatus, partyCount int, notes string) bool {
	fields := map[string]any{
		"phone":         phone,
		"status":        string(status),
		"guestCount":    partyCount,
		"notes":         notes,
		"lastContacted": g.timestamp(),
	}

	_, err := withRetry(ctx, g.cfg.RetryAttempts, g.cfg.RetryDelay, func() (*response, error) {
		return g.dispatch(ctx, ActionUpdateGuestStatus, fields)
	}, func(err error, next time.Duration) {
		g.log.Warn().Err(err).Str("phone", phone).Dur("retry_in", next).Msg("Guest status update failed, retrying")
	})
	if err != nil {
		g.log.Error().Err(err).Str("phone", phone).Str("status", string(status)).Msg("Failed to update guest status")
		return false
	}

	g.InvalidateGuests()
	g.log.Info().Str("phone", phone).Str("status", string(status)).Int("count", partyCount).Msg("Updated guest status")
	return true
}

// MarkContacted stamps the guest's last-contacted time.
func (g *Gateway) MarkContacted(ctx context.Context, phone string) bool {
	_, err := g.dispatch(ctx, ActionMarkGuestContacted, map[string]any{
		"phone":         phone,
		"lastContacted": g.timestamp(),
	})
	if err != nil {
		g.log.Warn().Err(err).Str("phone", phone).Msg("Failed to mark guest contacted")
		return false
	}
	return true
}

// InvalidateGuests drops the cached guest list.
func (g *Gateway) InvalidateGuests() {
	g.mu.Lock()
	g.guests = cacheEntry[[]models.Guest]{}
	g.generation++
	g.mu.Unlock()
}

// dispatch tries each request format in order. A transport error or a
// response without a success flag moves on to the next format.
func (g *Gateway) dispatch(ctx context.Context, action Action, fields map[string]any) (*response, error) {
	var errs []error
	for _, format := range g.formats {
		resp, err := g.post(ctx, format.Build(action, g.secret, fields))
		if err == nil && !resp.Success {
			err = errors.New(resp.failure())
		}
		if err != nil {
			g.log.Debug().Err(err).Str("action", string(action)).Str("format", format.Name).Msg("Request format rejected")
			errs = append(errs, fmt.Errorf("%s format: %w", format.Name, err))
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %s: %w", ErrAllFormatsFailed, action, errors.Join(errs...))
}

func (g *Gateway) post(ctx context.Context, body map[string]any) (*response, error) {
	if g.endpoint == "" {
		return nil, ErrNoCredentials
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("guest store error: status=%d body=%s", resp.StatusCode, truncate(string(data), 200))
	}

	var decoded response
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &decoded, nil
}

func (g *Gateway) timestamp() string {
	return g.now().In(g.cfg.Location).Format(time.RFC3339)
}

func cloneGuests(guests []models.Guest) []models.Guest {
	out := make([]models.Guest, len(guests))
	copy(out, guests)
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// CountByStatus tallies guests per status, with empty statuses as Pending.
func CountByStatus(guests []models.Guest) map[models.RSVPStatus]int {
	counts := map[models.RSVPStatus]int{
		models.RSVPPending:   0,
		models.RSVPConfirmed: 0,
		models.RSVPDeclined:  0,
		models.RSVPMaybe:     0,
	}
	for _, guest := range guests {
		status := guest.Status
		if status.IsPending() {
			status = models.RSVPPending
		}
		counts[status]++
	}
	return counts
}
