package handler

import (
	"fmt"
	"strings"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/sheets"
)

const (
	replyDeclined      = "Thank you for letting us know. We're sorry you can't make it!"
	replyDeclinedSaved = "Thank you for your response!"
	replyAskExact      = "Please reply with the total number of people attending (including yourself):"
	replyConfirmedSave = "Thank you for your RSVP! We've noted your attendance."
	replyMaybe         = "Thanks for letting us know you're not sure yet. We'll follow up with you tomorrow."
	replyClarify       = "I'm not sure I understand your response. Please reply with 'Yes' if you're attending, or 'No' if you can't attend. If you're attending, please also let me know how many people total will be coming."
	replyUnknownEvent  = "Sorry, we couldn't find your event. Please contact the event organizer directly."
)

// autoReplyPrefixes open the bot's own replies. A message starting with one
// is an echo and must not be answered.
var autoReplyPrefixes = []string{
	"thank you for letting us know",
	"thank you for your response",
	"thank you for your rsvp",
	"thank you for confirming!",
	"thanks for letting us know you're not sure",
	"please reply with the total number",
	"i'm not sure i understand your response",
	"sorry, we couldn't find your event",
	"great! how many people",
	"rsvp message batch completed",
}

// isAutoReply reports whether text opens like one of the bot's replies.
func isAutoReply(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, prefix := range autoReplyPrefixes {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func askPartyCount() models.OutboundMessage {
	return models.OutboundMessage{
		Text:   "Great! How many people will be attending in total (including yourself)?",
		Footer: "Please select an option below",
		Buttons: []models.Button{
			{ID: ButtonGuest1, Label: "1 (Just me)"},
			{ID: ButtonGuest2, Label: "2 people"},
			{ID: ButtonGuestMore, Label: "3 or more"},
		},
	}
}

func confirmedReply(count int) string {
	noun := "people"
	if count == 1 {
		noun = "person"
	}
	return fmt.Sprintf("Thank you for confirming! We've noted that %d %s will be attending.", count, noun)
}

func statusReport(tenant models.Tenant, details models.EventDetails, stats sheets.Stats) string {
	var b strings.Builder
	b.WriteString("*Event RSVP Bot Status*\n\n")
	fmt.Fprintf(&b, "*Tenant:* %s (%s)\n", tenant.Name, tenant.ID)
	fmt.Fprintf(&b, "*Event:* %s\n", details.Name)
	fmt.Fprintf(&b, "*Date:* %s\n", details.Date)
	fmt.Fprintf(&b, "*Time:* %s\n", details.Time)
	fmt.Fprintf(&b, "*Location:* %s\n\n", details.Location)
	b.WriteString("*RSVP Statistics:*\n")
	fmt.Fprintf(&b, "- Total Invitees: %d\n", stats.Total)
	fmt.Fprintf(&b, "- Confirmed: %d\n", stats.Confirmed)
	fmt.Fprintf(&b, "- Declined: %d\n", stats.Declined)
	fmt.Fprintf(&b, "- Maybe: %d\n", stats.Maybe)
	fmt.Fprintf(&b, "- Pending: %d\n", stats.Pending)
	fmt.Fprintf(&b, "- Total Attending: %d people", stats.Attending)
	return b.String()
}
