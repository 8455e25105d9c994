package models

// InboundMessage is a reply delivered by the chat transport
type InboundMessage struct {
	SenderPhone       string
	IsGroup           bool
	IsFromBot         bool
	IsStatusBroadcast bool
	ButtonID          string
	ButtonDisplayText string
	Text              string
}

// HasButton reports whether the message is a structured button selection.
func (m InboundMessage) HasButton() bool {
	return m.ButtonID != "" || m.ButtonDisplayText != ""
}

// Button is one quick-reply option of an outbound message
type Button struct {
	ID    string
	Label string
}

// OutboundMessage is either plain text or text with quick-reply buttons
type OutboundMessage struct {
	Text    string
	Buttons []Button
	Footer  string
}
