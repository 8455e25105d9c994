package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/phone"
	"rsvp-bot/internal/sheets"
)

// Sender delivers outbound messages to a phone number.
type Sender interface {
	SendMessage(ctx context.Context, to string, msg models.OutboundMessage) error
}

// TenantResolver maps a sender phone to the tenant that invited it.
type TenantResolver interface {
	ResolveTenant(senderPhone string) (string, bool)
}

// GuestStore is the per-tenant guest store the handler writes answers to.
type GuestStore interface {
	GetGuests(ctx context.Context) []models.Guest
	GetEventDetails(ctx context.Context) models.EventDetails
	UpdateGuestStatus(ctx context.Context, phone string, status models.RSVPStatus, partyCount int, notes string) bool
	InvalidateGuests()
}

// StoreLookup returns the guest store of a tenant.
type StoreLookup func(tenantID string) (GuestStore, error)

// TenantLister lists the tenants that take part in routing.
type TenantLister interface {
	Active() []models.Tenant
}

// FollowUps schedules a re-prompt for a guest who answered maybe.
type FollowUps interface {
	Enqueue(entry models.FollowUp) error
}

// CampaignTrigger runs campaigns on behalf of admin commands.
type CampaignTrigger interface {
	Run(ctx context.Context, tenantID string, forced bool) (int, error)
	RunAll(ctx context.Context, forced bool) int
}

type Config struct {
	// BotPhone is the bot's own number; messages from it are dropped.
	BotPhone string
	// AdminNumbers may run admin commands for every tenant.
	AdminNumbers []string
	Location     *time.Location
	FollowUpHour int
}

type RSVPHandler struct {
	sender    Sender
	resolver  TenantResolver
	stores    StoreLookup
	tenants   TenantLister
	followUps FollowUps
	campaigns CampaignTrigger
	cfg       Config
	log       zerolog.Logger
	now       func() time.Time
}

// NewRSVPHandler creates a new RSVP handler. campaigns may be nil, which
// disables the !sendrsvp command.
func NewRSVPHandler(sender Sender, resolver TenantResolver, stores StoreLookup, tenants TenantLister, followUps FollowUps, campaigns CampaignTrigger, cfg Config, log zerolog.Logger) *RSVPHandler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.FollowUpHour == 0 {
		cfg.FollowUpHour = 12
	}
	return &RSVPHandler{
		sender:    sender,
		resolver:  resolver,
		stores:    stores,
		tenants:   tenants,
		followUps: followUps,
		campaigns: campaigns,
		cfg:       cfg,
		log:       log.With().Str("component", "rsvp").Logger(),
		now:       time.Now,
	}
}

// HandleMessage processes one inbound reply. Failures are logged and never
// returned to the transport, so the message loop keeps running.
func (h *RSVPHandler) HandleMessage(ctx context.Context, msg models.InboundMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Interface("panic", r).Str("sender", msg.SenderPhone).Msg("Recovered while handling message")
			err = nil
		}
	}()

	if reason := h.discardReason(msg); reason != "" {
		h.log.Debug().Str("sender", msg.SenderPhone).Str("reason", reason).Msg("Ignoring message")
		return nil
	}

	sender := phone.Normalize(msg.SenderPhone)
	if !sender.IsValid() {
		h.log.Info().Str("sender", msg.SenderPhone).Msg("Ignoring message from unparseable number")
		return nil
	}

	if h.handleAdminCommand(ctx, sender, msg.Text) {
		return nil
	}

	intent := Classify(msg)
	if intent.Kind == IntentIgnore {
		return nil
	}

	logger := h.log.With().Str("phone", sender.String()).Str("intent", intent.Kind.String()).Logger()

	tenantID, ok := h.resolver.ResolveTenant(sender.String())
	if !ok {
		logger.Info().Msg("No tenant for sender")
		h.reply(ctx, sender, models.OutboundMessage{Text: replyUnknownEvent})
		return nil
	}
	logger = logger.With().Str("tenant", tenantID).Logger()

	store, err := h.stores(tenantID)
	if err != nil {
		logger.Error().Err(err).Msg("Guest store unavailable")
		h.reply(ctx, sender, models.OutboundMessage{Text: replyUnknownEvent})
		return nil
	}

	// The store keys guests by bare international digits.
	guestPhone := sender.Digits()

	switch intent.Kind {
	case IntentYes:
		h.reply(ctx, sender, askPartyCount())

	case IntentNo:
		text := replyDeclined
		if !store.UpdateGuestStatus(ctx, guestPhone, models.RSVPDeclined, 0, "") {
			text = replyDeclinedSaved
		}
		h.reply(ctx, sender, models.OutboundMessage{Text: text})

	case IntentMaybe:
		store.UpdateGuestStatus(ctx, guestPhone, models.RSVPMaybe, 0, "Answered maybe, follow-up scheduled")
		entry := models.FollowUp{
			Phone:    guestPhone,
			Name:     guestName(ctx, store, guestPhone),
			TenantID: tenantID,
			DueAt:    nextFollowUp(h.now(), h.cfg.Location, h.cfg.FollowUpHour),
		}
		if err := h.followUps.Enqueue(entry); err != nil {
			logger.Error().Err(err).Msg("Failed to schedule follow-up")
		}
		h.reply(ctx, sender, models.OutboundMessage{Text: replyMaybe})

	case IntentCountMore:
		h.reply(ctx, sender, models.OutboundMessage{Text: replyAskExact})

	case IntentCount:
		text := confirmedReply(intent.Count)
		if !store.UpdateGuestStatus(ctx, guestPhone, models.RSVPConfirmed, intent.Count, "") {
			text = replyConfirmedSave
		}
		h.reply(ctx, sender, models.OutboundMessage{Text: text})

	case IntentClarify:
		h.reply(ctx, sender, models.OutboundMessage{Text: replyClarify})
	}

	logger.Info().Int("count", intent.Count).Msg("Handled RSVP reply")
	return nil
}

func (h *RSVPHandler) discardReason(msg models.InboundMessage) string {
	switch {
	case msg.IsGroup:
		return "group"
	case msg.IsFromBot:
		return "from_bot"
	case msg.IsStatusBroadcast:
		return "status_broadcast"
	case h.cfg.BotPhone != "" && phone.Digits(msg.SenderPhone) == phone.Digits(h.cfg.BotPhone):
		return "own_number"
	case isAutoReply(msg.Text):
		return "auto_reply"
	}
	return ""
}

// handleAdminCommand runs !sendrsvp, !status and !reload. Global admins act
// on every active tenant; a tenant's own contact number acts on that tenant.
func (h *RSVPHandler) handleAdminCommand(ctx context.Context, sender phone.Canonical, text string) bool {
	command := strings.ToLower(strings.TrimSpace(text))
	if command != "!sendrsvp" && command != "!status" && command != "!reload" {
		return false
	}

	global, tenants := h.adminScope(sender)
	if !global && len(tenants) == 0 {
		return false
	}

	logger := h.log.With().Str("phone", sender.String()).Str("command", command).Logger()
	logger.Info().Bool("global", global).Int("tenants", len(tenants)).Msg("Admin command")

	switch command {
	case "!sendrsvp":
		if h.campaigns == nil {
			return true
		}
		h.reply(ctx, sender, models.OutboundMessage{Text: "Starting RSVP message batch..."})
		sent := 0
		if global {
			sent = h.campaigns.RunAll(ctx, true)
		} else {
			for _, t := range tenants {
				n, err := h.campaigns.Run(ctx, t.ID, true)
				if err != nil {
					logger.Error().Err(err).Str("tenant", t.ID).Msg("Campaign failed")
				}
				sent += n
			}
		}
		h.reply(ctx, sender, models.OutboundMessage{Text: fmt.Sprintf("RSVP message batch completed! Sent %d messages.", sent)})

	case "!status":
		reports := make([]string, 0, len(tenants))
		for _, t := range tenants {
			store, err := h.stores(t.ID)
			if err != nil {
				logger.Error().Err(err).Str("tenant", t.ID).Msg("Guest store unavailable")
				continue
			}
			reports = append(reports, statusReport(t, store.GetEventDetails(ctx), sheets.Summarize(store.GetGuests(ctx))))
		}
		if len(reports) == 0 {
			reports = append(reports, "Error getting status. Check logs for details.")
		}
		h.reply(ctx, sender, models.OutboundMessage{Text: strings.Join(reports, "\n\n")})

	case "!reload":
		total := 0
		for _, t := range tenants {
			store, err := h.stores(t.ID)
			if err != nil {
				logger.Error().Err(err).Str("tenant", t.ID).Msg("Guest store unavailable")
				continue
			}
			store.InvalidateGuests()
			total += len(store.GetGuests(ctx))
		}
		h.reply(ctx, sender, models.OutboundMessage{Text: fmt.Sprintf("Successfully reloaded %d guests.", total)})
	}
	return true
}

func (h *RSVPHandler) adminScope(sender phone.Canonical) (bool, []models.Tenant) {
	active := h.tenants.Active()
	digits := sender.Digits()
	for _, admin := range h.cfg.AdminNumbers {
		if d := phone.Digits(admin); d != "" && strings.Contains(digits, d) {
			return true, active
		}
	}

	var own []models.Tenant
	for _, t := range active {
		if phone.SuffixOverlap(digits, phone.Digits(t.ContactPhone)) {
			own = append(own, t)
		}
	}
	return false, own
}

func (h *RSVPHandler) reply(ctx context.Context, to phone.Canonical, msg models.OutboundMessage) {
	if err := h.sender.SendMessage(ctx, to.Digits(), msg); err != nil {
		h.log.Error().Err(err).Str("phone", to.String()).Msg("Failed to send reply")
	}
}

func guestName(ctx context.Context, store GuestStore, guestPhone string) string {
	for _, g := range store.GetGuests(ctx) {
		if phone.Normalize(g.Phone).Digits() == guestPhone || phone.SuffixOverlap(guestPhone, phone.Digits(g.Phone)) {
			return g.Name
		}
	}
	return ""
}

// nextFollowUp is hour:00 local time on the day after now.
func nextFollowUp(now time.Time, loc *time.Location, hour int) time.Time {
	local := now.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, hour, 0, 0, 0, loc)
}
