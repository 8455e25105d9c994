// Package tenant routes a guest phone to the tenant whose event it belongs to.
package tenant

import (
	"github.com/rs/zerolog"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/phone"
)

// Directory is the guest phone to tenant mapping populated at send time.
type Directory interface {
	Candidates(guestPhone string) []models.GuestMapping
}

// Registry lists the tenants currently being served.
type Registry interface {
	Active() []models.Tenant
}

type Resolver struct {
	directory Directory
	tenants   Registry
	log       zerolog.Logger
}

func NewResolver(directory Directory, tenants Registry, log zerolog.Logger) *Resolver {
	return &Resolver{
		directory: directory,
		tenants:   tenants,
		log:       log.With().Str("component", "resolver").Logger(),
	}
}

// ResolveTenant returns the tenant for a guest phone. Lookup order: guest
// directory, exact match on a tenant's contact phone, then suffix overlap of
// the digit strings. A miss is a normal outcome for unknown senders.
func (r *Resolver) ResolveTenant(senderPhone string) (string, bool) {
	key := lookupKey(senderPhone)
	if key == "" {
		return "", false
	}

	active := r.tenants.Active()
	isActive := make(map[string]bool, len(active))
	for _, t := range active {
		isActive[t.ID] = true
	}

	for _, m := range r.directory.Candidates(key) {
		if isActive[m.TenantID] {
			r.log.Debug().Str("phone", key).Str("tenant", m.TenantID).Msg("Resolved tenant from guest directory")
			return m.TenantID, true
		}
		r.log.Info().Str("phone", key).Str("tenant", m.TenantID).Msg("Skipping inactive tenant mapping")
	}

	for _, t := range active {
		if contactKey(t.ContactPhone) == key {
			return t.ID, true
		}
	}

	for _, t := range active {
		if phone.SuffixOverlap(key, t.ContactPhone) {
			return t.ID, true
		}
	}

	r.log.Info().Str("phone", key).Msg("No tenant found for sender")
	return "", false
}

func lookupKey(raw string) string {
	if canonical := phone.Normalize(raw); canonical.IsValid() {
		return canonical.String()
	}
	return phone.Digits(raw)
}

func contactKey(raw string) string {
	if raw == "" {
		return ""
	}
	return lookupKey(raw)
}
