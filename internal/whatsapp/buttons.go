package whatsapp

import (
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"google.golang.org/protobuf/proto"

	"rsvp-bot/internal/models"
)

// BuildMessage renders an outbound message as a plain conversation message,
// or as a buttons message when it carries quick replies. The button labels
// are also listed, unnumbered, in the text for clients that do not render buttons.
func BuildMessage(msg models.OutboundMessage) *waE2E.Message {
	if len(msg.Buttons) == 0 {
		return &waE2E.Message{Conversation: proto.String(msg.Text)}
	}

	var text strings.Builder
	text.WriteString(msg.Text)
	text.WriteString("\n")
	buttons := make([]*waE2E.ButtonsMessage_Button, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		fmt.Fprintf(&text, "\n• %s", b.Label)
		buttons = append(buttons, &waE2E.ButtonsMessage_Button{
			ButtonID: proto.String(b.ID),
			ButtonText: &waE2E.ButtonsMessage_Button_ButtonText{
				DisplayText: proto.String(b.Label),
			},
			Type: waE2E.ButtonsMessage_Button_RESPONSE.Enum(),
		})
	}

	bm := &waE2E.ButtonsMessage{
		ContentText: proto.String(text.String()),
		HeaderType:  waE2E.ButtonsMessage_EMPTY.Enum(),
		Buttons:     buttons,
	}
	if msg.Footer != "" {
		bm.FooterText = proto.String(msg.Footer)
	}
	return &waE2E.Message{ButtonsMessage: bm}
}
