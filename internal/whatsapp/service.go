package whatsapp

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/phone"
)

// MessageHandler receives every inbound message converted to the bot's model
type MessageHandler func(context.Context, models.InboundMessage) error

type Config struct {
	DataDir string
}

type Service struct {
	client         *whatsmeow.Client
	cfg            *Config
	log            zerolog.Logger
	messageHandler MessageHandler
}

// NewService creates a new WhatsApp service
func NewService(cfg *Config, log zerolog.Logger) (*Service, error) {
	ctx := context.Background()
	logger := log.With().Str("component", "WhatsApp").Logger()

	// Use nil logger - sqlstore will use a no-op logger by default
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)

	service := &Service{
		client: client,
		cfg:    cfg,
		log:    logger,
	}

	client.AddEventHandler(func(evt interface{}) {
		service.eventHandler(evt)
	})

	return service, nil
}

// Connect connects to WhatsApp, printing a pairing QR code on first login
func (s *Service) Connect() error {
	if s.client.Store.ID == nil {
		qrChan, _ := s.client.GetQRChannel(context.Background())
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		for evt := range qrChan {
			if evt.Event == "code" {
				q, err := qrcode.New(evt.Code, qrcode.Medium)
				if err != nil {
					fmt.Printf("QR Code: %s\n", evt.Code)
					fmt.Println("Please scan this QR code with WhatsApp to connect.")
				} else {
					fmt.Println("\n" + q.ToSmallString(false))
					fmt.Println("📱 Scan the QR code above with WhatsApp (Settings > Linked Devices > Link a Device)")
				}
			} else {
				s.log.Info().Str("event", evt.Event).Msg("Login event")
			}
		}
	} else {
		err := s.client.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
	}
	return nil
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	s.client.Disconnect()
}

// OwnPhone returns the paired account's number, or "" before pairing.
func (s *Service) OwnPhone() string {
	if s.client.Store.ID == nil {
		return ""
	}
	return s.client.Store.ID.User
}

// SendMessage sends text, or text with quick-reply buttons, to a phone number
func (s *Service) SendMessage(ctx context.Context, to string, msg models.OutboundMessage) error {
	phoneNumber := to
	if p := phone.Normalize(to); p.IsValid() {
		phoneNumber = p.Digits()
	}

	// Verify the number is on WhatsApp before sending
	resp, err := s.client.IsOnWhatsApp(ctx, []string{phoneNumber})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("number %s is not registered on WhatsApp", phoneNumber)
	}
	jid := resp[0].JID

	s.log.Debug().Str("jid", jid.String()).Str("phone", phoneNumber).Int("buttons", len(msg.Buttons)).Msg("Sending message")

	sent, err := s.client.SendMessage(ctx, jid, BuildMessage(msg))
	if err != nil {
		if strings.Contains(err.Error(), "unknown server") || strings.Contains(err.Error(), "can't send message") {
			return fmt.Errorf("failed to send message to %s (JID: %s), the recipient may need to message first: %w", phoneNumber, jid.String(), err)
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	s.log.Info().Str("phone", phoneNumber).Str("id", sent.ID).Time("timestamp", sent.Timestamp).Msg("Message sent")
	return nil
}

// eventHandler handles incoming WhatsApp events
func (s *Service) eventHandler(evt interface{}) {
	if evt == nil {
		return
	}
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

// handleMessage processes incoming messages
func (s *Service) handleMessage(msg *events.Message) {
	inbound, ok := ToInbound(msg)
	if !ok {
		return
	}

	if s.messageHandler != nil {
		if err := s.messageHandler(context.Background(), inbound); err != nil {
			s.log.Error().Err(err).Msg("Error handling message")
		}
	} else {
		s.log.Info().
			Str("sender", inbound.SenderPhone).
			Str("message", inbound.Text).
			Msg("Received message")
	}
}

// SetMessageHandler sets a custom handler for incoming messages
func (s *Service) SetMessageHandler(handler MessageHandler) {
	s.messageHandler = handler
}

// ToInbound converts a whatsmeow message event. It reports false for events
// that carry no message payload.
func ToInbound(evt *events.Message) (models.InboundMessage, bool) {
	if evt == nil || evt.Message == nil {
		return models.InboundMessage{}, false
	}
	m := evt.Message

	inbound := models.InboundMessage{
		SenderPhone:       evt.Info.Sender.User,
		IsGroup:           evt.Info.IsGroup || evt.Info.Chat.Server == types.GroupServer,
		IsFromBot:         evt.Info.IsFromMe,
		IsStatusBroadcast: evt.Info.Chat.Server == types.BroadcastServer,
	}

	switch {
	case m.GetButtonsResponseMessage() != nil:
		resp := m.GetButtonsResponseMessage()
		inbound.ButtonID = resp.GetSelectedButtonID()
		inbound.ButtonDisplayText = resp.GetSelectedDisplayText()
	case m.GetTemplateButtonReplyMessage() != nil:
		resp := m.GetTemplateButtonReplyMessage()
		inbound.ButtonID = resp.GetSelectedID()
		inbound.ButtonDisplayText = resp.GetSelectedDisplayText()
	case m.GetExtendedTextMessage() != nil:
		inbound.Text = m.GetExtendedTextMessage().GetText()
	default:
		inbound.Text = m.GetConversation()
	}

	if !inbound.HasButton() && inbound.Text == "" {
		return models.InboundMessage{}, false
	}
	return inbound, true
}
