package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/phone"
)

// Directory maps guest phones to the tenant that invited them. Entries are
// keyed by (phone, tenant), so a guest invited by two tenants keeps both
// routes and the most recent invitation wins on lookup.
type Directory struct {
	mu       sync.RWMutex
	mappings []models.GuestMapping
	file     jsonFile
	log      zerolog.Logger
	now      func() time.Time
}

// NewDirectory creates a directory backed by filePath, loading existing
// mappings if the file is present.
func NewDirectory(filePath string, log zerolog.Logger) (*Directory, error) {
	d := &Directory{
		mappings: make([]models.GuestMapping, 0),
		file:     jsonFile{path: filePath},
		log:      log.With().Str("component", "directory").Logger(),
		now:      time.Now,
	}

	if d.file.exists() {
		if err := d.file.load(&d.mappings); err != nil {
			return nil, fmt.Errorf("failed to load guest directory: %w", err)
		}
	}
	d.log.Info().Int("mappings", len(d.mappings)).Msg("Loaded guest mappings")

	return d, nil
}

// Map records that guestPhone belongs to tenantID under both the "+"-prefixed
// and the bare-digit key. Mapping a phone to the tenant it already resolves
// to is a no-op; otherwise the mapping becomes the newest for that phone. The
// mapping is kept in memory even when persisting fails; the write error is
// returned so the caller can log it.
func (d *Directory) Map(guestPhone, tenantID, guestName string) error {
	keys := mappingKeys(guestPhone)
	if len(keys) == 0 || tenantID == "" {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	changed := false
	for _, key := range keys {
		other := d.latest(key)
		if other == tenantID {
			continue
		}
		if i := d.indexOf(key, tenantID); i >= 0 {
			// Re-invited after another tenant: move the entry to the newest slot.
			m := d.mappings[i]
			m.MappedAt = d.now().UTC()
			if guestName != "" {
				m.GuestName = guestName
			}
			d.mappings = append(append(d.mappings[:i:i], d.mappings[i+1:]...), m)
			changed = true
			continue
		}
		if other != "" {
			d.log.Warn().
				Str("phone", key).
				Str("tenant", tenantID).
				Str("previous_tenant", other).
				Msg("Guest phone already mapped to another tenant, most recent invitation wins")
		}
		d.mappings = append(d.mappings, models.GuestMapping{
			Phone:     key,
			TenantID:  tenantID,
			GuestName: guestName,
			MappedAt:  d.now().UTC(),
		})
		changed = true
	}
	if !changed {
		return nil
	}

	d.log.Info().Str("guest", guestName).Str("phone", keys[0]).Str("tenant", tenantID).Msg("Mapped guest to tenant")
	if err := d.file.save(d.mappings); err != nil {
		return fmt.Errorf("failed to persist guest directory: %w", err)
	}
	return nil
}

// Resolve returns the tenant most recently mapped to guestPhone: an exact key
// match first, then a digit-only comparison against every stored key.
func (d *Directory) Resolve(guestPhone string) (string, bool) {
	candidates := d.Candidates(guestPhone)
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[0].TenantID, true
}

// Candidates returns every tenant mapped to guestPhone, most recent first.
func (d *Directory) Candidates(guestPhone string) []models.GuestMapping {
	key := cleanKey(guestPhone)
	if key == "" {
		return nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if found := d.collect(func(m models.GuestMapping) bool { return m.Phone == key }); len(found) > 0 {
		return found
	}

	digits := phone.Digits(key)
	return d.collect(func(m models.GuestMapping) bool { return phone.Digits(m.Phone) == digits })
}

// ForTenant returns the mappings that route to tenantID.
func (d *Directory) ForTenant(tenantID string) []models.GuestMapping {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []models.GuestMapping
	for _, m := range d.mappings {
		if m.TenantID == tenantID {
			result = append(result, m)
		}
	}
	return result
}

// All returns a copy of every mapping.
func (d *Directory) All() []models.GuestMapping {
	d.mu.RLock()
	defer d.mu.RUnlock()

	mappings := make([]models.GuestMapping, len(d.mappings))
	copy(mappings, d.mappings)
	return mappings
}

// collect walks newest to oldest, returning each tenant once.
func (d *Directory) collect(match func(models.GuestMapping) bool) []models.GuestMapping {
	var result []models.GuestMapping
	seen := make(map[string]bool)
	for i := len(d.mappings) - 1; i >= 0; i-- {
		m := d.mappings[i]
		if !match(m) || seen[m.TenantID] {
			continue
		}
		seen[m.TenantID] = true
		result = append(result, m)
	}
	return result
}

func (d *Directory) indexOf(key, tenantID string) int {
	for i, m := range d.mappings {
		if m.Phone == key && m.TenantID == tenantID {
			return i
		}
	}
	return -1
}

func (d *Directory) latest(key string) string {
	for i := len(d.mappings) - 1; i >= 0; i-- {
		if d.mappings[i].Phone == key {
			return d.mappings[i].TenantID
		}
	}
	return ""
}

// mappingKeys returns the keys a guest phone is stored under. Numbers outside
// the default region are kept as cleaned digits in both forms.
func mappingKeys(raw string) []string {
	if canonical := phone.Normalize(raw); canonical.IsValid() {
		return phone.Variants(canonical)
	}
	digits := phone.Digits(raw)
	if digits == "" {
		return nil
	}
	return []string{"+" + digits, digits}
}

// cleanKey drops everything but digits and "+".
func cleanKey(raw string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' {
			return r
		}
		return -1
	}, raw)
}
