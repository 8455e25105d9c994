package campaign

import (
	"fmt"
	"strings"

	"rsvp-bot/internal/models"
)

// Button ids must match what the reply classifier understands.
var rsvpButtons = []models.Button{
	{ID: "yes", Label: "כן, אגיע / Yes"},
	{ID: "no", Label: "לא אוכל להגיע / No"},
	{ID: "maybe", Label: "אולי / Maybe"},
}

const footer = "בחרו אחת מהאפשרויות / Please choose an option"

// InvitationMessage builds the campaign message for a guest, worded by how
// close the event is.
func InvitationMessage(days int, details models.EventDetails, guestName string) models.OutboundMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s - הזמנה לאירוע*\n\nשלום %s,\n\n", details.Name, guestName)

	var english string
	switch {
	case days >= 28:
		fmt.Fprintf(&b, "אתם מוזמנים ל%s!\n\n", details.Name)
		english = fmt.Sprintf("You're invited to %s! Will you be able to attend?", details.Name)
	case days == 14:
		fmt.Fprintf(&b, "אנו מזכירים לכם את ההזמנה ל%s.\n\n", details.Name)
		english = fmt.Sprintf("A reminder about your invitation to %s. Will you be able to attend?", details.Name)
	case days == 7:
		fmt.Fprintf(&b, "בעוד שבוע יתקיים %s.\n\n", details.Name)
		english = fmt.Sprintf("%s is one week away. Please let us know if you can make it.", details.Name)
	case days >= 0 && days <= 3:
		fmt.Fprintf(&b, "בעוד %d ימים יתקיים %s.\n\n", days, details.Name)
		english = fmt.Sprintf("%s is in %d days. This is a final reminder.", details.Name, days)
	default:
		fmt.Fprintf(&b, "אתם מוזמנים ל%s!\n\n", details.Name)
		english = fmt.Sprintf("You're invited to %s! Will you be able to attend?", details.Name)
	}

	b.WriteString(eventInfo(details))

	switch {
	case days == 7:
		b.WriteString("\n\nנשמח לקבל את תשובתכם בהקדם.")
	case days >= 0 && days <= 3:
		b.WriteString("\n\nזוהי תזכורת אחרונה. נשמח לראותכם!")
	case days == 14:
		b.WriteString("\n\nנשמח לדעת האם תוכלו להגיע?")
	default:
		b.WriteString("\n\nהאם תוכלו להגיע?")
	}
	b.WriteString("\n\n")
	b.WriteString(english)

	return models.OutboundMessage{Text: b.String(), Buttons: rsvpButtons, Footer: footer}
}

// FollowUpMessage re-asks a guest who answered maybe.
func FollowUpMessage(details models.EventDetails, guestName string) models.OutboundMessage {
	greeting := "שלום"
	if guestName != "" {
		greeting += " " + guestName
	}
	text := fmt.Sprintf("%s,\n\nרצינו לבדוק שוב לגבי %s.\n\n%s\n\nהאם תוכלו להגיע?\n\nJust checking in again about %s. Will you be able to attend?",
		greeting, details.Name, eventInfo(details), details.Name)
	return models.OutboundMessage{Text: text, Buttons: rsvpButtons[:2], Footer: footer}
}

func eventInfo(details models.EventDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📅 תאריך: %s\n⏰ שעה: %s\n📍 מיקום: %s", details.Date, details.Time, details.Location)
	if details.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(details.Description)
	}
	return b.String()
}
