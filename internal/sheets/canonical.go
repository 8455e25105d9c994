package sheets

import (
	"strconv"
	"strings"

	"rsvp-bot/internal/models"
)

// toCanonicalGuest is the single place where the remote store's mixed field
// casing is folded into models.Guest. Missing fields default to zero values.
func toCanonicalGuest(raw map[string]any) models.Guest {
	status := canonicalStatus(field(raw, "status", "Status"))
	return models.Guest{
		Name:          field(raw, "name", "Name"),
		Phone:         field(raw, "phone", "Phone"),
		Email:         field(raw, "email", "Email"),
		Status:        status,
		PartyCount:    count(field(raw, "count", "guestCount", "GuestCount")),
		Notes:         field(raw, "notes", "Notes"),
		LastContacted: field(raw, "lastContacted", "LastContacted"),
	}
}

var knownStatuses = []models.RSVPStatus{
	models.RSVPPending, models.RSVPConfirmed, models.RSVPDeclined, models.RSVPMaybe,
}

// canonicalStatus maps status cells to the known values regardless of case.
// Unknown values are kept as written.
func canonicalStatus(value string) models.RSVPStatus {
	if value == "" {
		return models.RSVPPending
	}
	for _, known := range knownStatuses {
		if strings.EqualFold(value, string(known)) {
			return known
		}
	}
	return models.RSVPStatus(value)
}

// toCanonicalDetails folds event details, taking defaults for missing fields.
func toCanonicalDetails(raw map[string]any, defaults models.EventDetails) models.EventDetails {
	details := models.EventDetails{
		Name:        field(raw, "name", "Name"),
		Date:        field(raw, "date", "Date"),
		Time:        field(raw, "time", "Time"),
		Location:    field(raw, "location", "Location"),
		Description: field(raw, "description", "Description"),
	}
	if details.Name == "" {
		details.Name = defaults.Name
	}
	if details.Date == "" {
		details.Date = defaults.Date
	}
	if details.Time == "" {
		details.Time = defaults.Time
	}
	if details.Location == "" {
		details.Location = defaults.Location
	}
	if details.Description == "" {
		details.Description = defaults.Description
	}
	return details
}

// field returns the first non-empty value among keys, rendered as a string.
func field(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := raw[key]
		if !ok || value == nil {
			continue
		}
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(v)
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func count(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
