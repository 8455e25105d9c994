// Package campaign selects and messages guests according to how close a
// tenant's event is, and re-prompts guests who answered maybe.
package campaign

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/phone"
)

var ErrBadEventDate = errors.New("unrecognized event date")

var eventDateLayouts = []string{"2006-01-02", "02.01.2006", "2.1.2006", "02/01/2006", time.RFC3339}

// ParseEventDate reads an event date as a calendar day in loc.
func ParseEventDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range eventDateLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			y, m, d := t.In(loc).Date()
			return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadEventDate, value)
}

// DaysRemaining counts calendar days from now to the event date, both taken
// as local midnights in loc. Negative once the event has passed.
func DaysRemaining(eventDate string, now time.Time, loc *time.Location) (int, error) {
	event, err := ParseEventDate(eventDate, loc)
	if err != nil {
		return 0, err
	}
	y, m, d := now.In(loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return int(math.Round(event.Sub(today).Hours() / 24)), nil
}

// Window is a range of days-remaining with the cohort it messages.
type Window struct {
	Name    string
	MinDays int
	MaxDays int
	// IncludeContacted re-selects guests already messaged by this process.
	IncludeContacted bool
	// IncludeConfirmed adds confirmed guests to the pending ones.
	IncludeConfirmed bool
}

func (w Window) contains(days int) bool {
	return days >= w.MinDays && days <= w.MaxDays
}

// Windows are the days before an event on which campaigns run.
var Windows = []Window{
	{Name: "invitation", MinDays: 28, MaxDays: 30},
	{Name: "reminder", MinDays: 14, MaxDays: 14},
	{Name: "week", MinDays: 7, MaxDays: 7, IncludeContacted: true},
	{Name: "final", MinDays: 2, MaxDays: 3, IncludeContacted: true, IncludeConfirmed: true},
}

// forcedWindow is used for manual runs outside every window.
var forcedWindow = Window{Name: "forced"}

// WindowFor returns the window covering days, if any.
func WindowFor(days int) (Window, bool) {
	if days < 0 {
		return Window{}, false
	}
	for _, w := range Windows {
		if w.contains(days) {
			return w, true
		}
	}
	return Window{}, false
}

// Scheduler decides who gets a campaign message today.
type Scheduler struct {
	Location  *time.Location
	BatchSize int
	Now       func() time.Time
}

func NewScheduler(loc *time.Location, batchSize int) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{Location: loc, BatchSize: batchSize, Now: time.Now}
}

// DaysRemaining counts days until the tenant's event in the scheduler's
// calendar.
func (s *Scheduler) DaysRemaining(eventDate string) (int, error) {
	return DaysRemaining(eventDate, s.Now(), s.Location)
}

// SelectRecipients picks the guests to message for tenant today. Outside
// every window, or once the event date has passed, nothing is selected
// unless forced, in which case every uncontacted pending guest is. A phone
// is selected at most once per call and at most BatchSize guests are
// returned.
func (s *Scheduler) SelectRecipients(tenant models.Tenant, guests []models.Guest, contacted ContactedSet, forced bool) []models.Guest {
	window, ok := s.windowFor(tenant.EventDate)
	if !ok {
		if !forced {
			return nil
		}
		window = forcedWindow
	}

	var selected []models.Guest
	seen := make(map[string]bool)
	for _, guest := range guests {
		if s.BatchSize > 0 && len(selected) >= s.BatchSize {
			break
		}
		key := ContactKey(guest.Phone)
		if key == "" || seen[key] {
			continue
		}
		if !window.IncludeContacted && contacted.Has(key) {
			continue
		}
		if !guest.Status.IsPending() && !(window.IncludeConfirmed && guest.Status == models.RSVPConfirmed) {
			continue
		}
		seen[key] = true
		selected = append(selected, guest)
	}
	return selected
}

func (s *Scheduler) windowFor(eventDate string) (Window, bool) {
	days, err := s.DaysRemaining(eventDate)
	if err != nil {
		return Window{}, false
	}
	return WindowFor(days)
}

// ContactKey is the form under which a guest phone is tracked as contacted.
func ContactKey(raw string) string {
	if p := phone.Normalize(raw); p.IsValid() {
		return p.Digits()
	}
	return phone.Digits(raw)
}
