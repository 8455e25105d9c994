package sheets

import (
	"strings"

	"rsvp-bot/internal/models"
)

// Stats summarizes a guest list.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Declined  int `json:"declined"`
	Maybe     int `json:"maybe"`
	// Attending sums party sizes of confirmed guests.
	Attending int `json:"attending"`
}

func Summarize(guests []models.Guest) Stats {
	counts := CountByStatus(guests)
	stats := Stats{
		Total:     len(guests),
		Pending:   counts[models.RSVPPending],
		Confirmed: counts[models.RSVPConfirmed],
		Declined:  counts[models.RSVPDeclined],
		Maybe:     counts[models.RSVPMaybe],
	}
	for _, guest := range guests {
		if guest.Status == models.RSVPConfirmed {
			stats.Attending += guest.PartyCount
		}
	}
	return stats
}

// FilterByStatus keeps the guests whose status matches, ignoring case.
// "Pending" also matches guests with an empty status cell.
func FilterByStatus(guests []models.Guest, status string) []models.Guest {
	pending := strings.EqualFold(status, string(models.RSVPPending))
	filtered := make([]models.Guest, 0, len(guests))
	for _, g := range guests {
		if (pending && g.Status.IsPending()) || strings.EqualFold(string(g.Status), status) {
			filtered = append(filtered, g)
		}
	}
	return filtered
}
