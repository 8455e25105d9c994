package handler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"rsvp-bot/internal/models"
	"rsvp-bot/internal/storage"
	"rsvp-bot/internal/tenant"
)

type statusCall struct {
	Phone  string
	Status models.RSVPStatus
	Count  int
	Notes  string
}

type fakeStore struct {
	guests      []models.Guest
	details     models.EventDetails
	fail        bool
	calls       []statusCall
	invalidated int
}

func (s *fakeStore) GetGuests(context.Context) []models.Guest { return s.guests }

func (s *fakeStore) GetEventDetails(context.Context) models.EventDetails { return s.details }

func (s *fakeStore) UpdateGuestStatus(_ context.Context, phone string, status models.RSVPStatus, partyCount int, notes string) bool {
	s.calls = append(s.calls, statusCall{Phone: phone, Status: status, Count: partyCount, Notes: notes})
	return !s.fail
}

func (s *fakeStore) InvalidateGuests() { s.invalidated++ }

type sentMessage struct {
	To  string
	Msg models.OutboundMessage
}

type fakeSender struct {
	sent []sentMessage
}

func (s *fakeSender) SendMessage(_ context.Context, to string, msg models.OutboundMessage) error {
	s.sent = append(s.sent, sentMessage{To: to, Msg: msg})
	return nil
}

func (s *fakeSender) last() sentMessage {
	if len(s.sent) == 0 {
		return sentMessage{}
	}
	return s.sent[len(s.sent)-1]
}

type mapResolver map[string]string

func (r mapResolver) ResolveTenant(senderPhone string) (string, bool) {
	id, ok := r[senderPhone]
	return id, ok
}

type tenantList []models.Tenant

func (l tenantList) Active() []models.Tenant { return l }

type fakeQueue struct {
	entries []models.FollowUp
}

func (q *fakeQueue) Enqueue(entry models.FollowUp) error {
	q.entries = append(q.entries, entry)
	return nil
}

type fakeCampaigns struct {
	runs   []string
	forced []bool
}

func (c *fakeCampaigns) Run(_ context.Context, tenantID string, forced bool) (int, error) {
	c.runs = append(c.runs, tenantID)
	c.forced = append(c.forced, forced)
	return 3, nil
}

func (c *fakeCampaigns) RunAll(_ context.Context, forced bool) int {
	c.runs = append(c.runs, "*")
	c.forced = append(c.forced, forced)
	return 7
}

const guestPhone = "972501234567"

type RSVPHandlerSuite struct {
	suite.Suite
	store     *fakeStore
	sender    *fakeSender
	queue     *fakeQueue
	campaigns *fakeCampaigns
	handler   *RSVPHandler
}

func TestRSVPHandler(t *testing.T) {
	suite.Run(t, new(RSVPHandlerSuite))
}

func (s *RSVPHandlerSuite) SetupTest() {
	s.store = &fakeStore{
		guests:  []models.Guest{{Name: "Dana", Phone: "0501234567"}},
		details: models.EventDetails{Name: "Dana & Avi", Date: "2026-11-15"},
	}
	s.sender = &fakeSender{}
	s.queue = &fakeQueue{}
	s.campaigns = &fakeCampaigns{}

	stores := func(tenantID string) (GuestStore, error) {
		if tenantID != "cust_1" {
			return nil, errors.New("unknown tenant")
		}
		return s.store, nil
	}
	tenants := tenantList{{ID: "cust_1", Name: "Dana", ContactPhone: "+972529999999", Active: true}}
	loc := time.FixedZone("IDT", 3*60*60)

	s.handler = NewRSVPHandler(s.sender, mapResolver{"+" + guestPhone: "cust_1"}, stores, tenants, s.queue, s.campaigns, Config{
		BotPhone:     "+972500000000",
		AdminNumbers: []string{"+972541111111"},
		Location:     loc,
		FollowUpHour: 12,
	}, zerolog.Nop())
	s.handler.now = func() time.Time { return time.Date(2026, 10, 17, 22, 30, 0, 0, time.UTC) }
}

func (s *RSVPHandlerSuite) handle(msg models.InboundMessage) {
	s.Require().NoError(s.handler.HandleMessage(context.Background(), msg))
}

func (s *RSVPHandlerSuite) TestNoButtonDeclinesOnce() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, ButtonID: "no"})

	s.Require().Len(s.store.calls, 1)
	assert.Equal(s.T(), statusCall{Phone: guestPhone, Status: models.RSVPDeclined, Count: 0}, s.store.calls[0])
	assert.Equal(s.T(), replyDeclined, s.sender.last().Msg.Text)
}

func (s *RSVPHandlerSuite) TestReplayedDeclineWritesSameValue() {
	msg := models.InboundMessage{SenderPhone: guestPhone, ButtonID: "no"}
	s.handle(msg)
	s.handle(msg)

	s.Require().Len(s.store.calls, 2)
	assert.Equal(s.T(), s.store.calls[0], s.store.calls[1])
}

func (s *RSVPHandlerSuite) TestFreeTextNumberConfirms() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, Text: "3"})

	s.Require().Len(s.store.calls, 1)
	assert.Equal(s.T(), models.RSVPConfirmed, s.store.calls[0].Status)
	assert.Equal(s.T(), 3, s.store.calls[0].Count)
	assert.Contains(s.T(), s.sender.last().Msg.Text, "3 people")
}

func (s *RSVPHandlerSuite) TestPhoneNumberIsNotAPartySize() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, Text: "0501234567"})

	assert.Empty(s.T(), s.store.calls)
	assert.Equal(s.T(), replyClarify, s.sender.last().Msg.Text)
}

func (s *RSVPHandlerSuite) TestQuotedBotPhraseInsideReplyIsHandled() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, Text: "Sorry, we can't come. Thank you for letting us know about the date"})

	s.Require().Len(s.store.calls, 1)
	assert.Equal(s.T(), models.RSVPDeclined, s.store.calls[0].Status)
}

func (s *RSVPHandlerSuite) TestYesAsksForPartyCountWithoutWriting() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, Text: "Yes!"})

	assert.Empty(s.T(), s.store.calls)
	buttons := s.sender.last().Msg.Buttons
	s.Require().Len(buttons, 3)
	assert.Equal(s.T(), []string{ButtonGuest1, ButtonGuest2, ButtonGuestMore}, []string{buttons[0].ID, buttons[1].ID, buttons[2].ID})
}

func (s *RSVPHandlerSuite) TestGuestMoreAsksForExactNumber() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, ButtonID: "guest_more"})

	assert.Empty(s.T(), s.store.calls)
	assert.Equal(s.T(), replyAskExact, s.sender.last().Msg.Text)
}

func (s *RSVPHandlerSuite) TestFailedWriteStillAcknowledges() {
	s.store.fail = true
	s.handle(models.InboundMessage{SenderPhone: guestPhone, ButtonID: "guest_1"})

	s.Require().Len(s.sender.sent, 1)
	assert.Equal(s.T(), replyConfirmedSave, s.sender.last().Msg.Text)
}

func (s *RSVPHandlerSuite) TestMaybeSchedulesFollowUpNextDayNoon() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, ButtonID: "maybe"})

	s.Require().Len(s.store.calls, 1)
	assert.Equal(s.T(), models.RSVPMaybe, s.store.calls[0].Status)
	s.Require().Len(s.queue.entries, 1)

	entry := s.queue.entries[0]
	assert.Equal(s.T(), "cust_1", entry.TenantID)
	assert.Equal(s.T(), guestPhone, entry.Phone)
	assert.Equal(s.T(), "Dana", entry.Name)

	// 22:30 UTC is already the 18th at UTC+3.
	local := entry.DueAt.In(s.handler.cfg.Location)
	assert.Equal(s.T(), 19, local.Day())
	assert.Equal(s.T(), 12, local.Hour())
	assert.Equal(s.T(), replyMaybe, s.sender.last().Msg.Text)
}

func (s *RSVPHandlerSuite) TestClarificationForRSVPRelatedText() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, Text: "what is this rsvp about"})

	assert.Empty(s.T(), s.store.calls)
	assert.Equal(s.T(), replyClarify, s.sender.last().Msg.Text)
}

func (s *RSVPHandlerSuite) TestUnrelatedTextIsIgnored() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, Text: "good morning"})

	assert.Empty(s.T(), s.store.calls)
	assert.Empty(s.T(), s.sender.sent)
}

func (s *RSVPHandlerSuite) TestUnknownSenderGetsNeutralReply() {
	s.handle(models.InboundMessage{SenderPhone: "972531234567", ButtonID: "yes"})

	assert.Empty(s.T(), s.store.calls)
	s.Require().Len(s.sender.sent, 1)
	assert.Equal(s.T(), replyUnknownEvent, s.sender.last().Msg.Text)
}

func (s *RSVPHandlerSuite) TestGuardsDiscardBeforeClassification() {
	for _, msg := range []models.InboundMessage{
		{SenderPhone: guestPhone, ButtonID: "no", IsGroup: true},
		{SenderPhone: guestPhone, ButtonID: "no", IsFromBot: true},
		{SenderPhone: guestPhone, ButtonID: "no", IsStatusBroadcast: true},
		{SenderPhone: "+972 50-000-0000", ButtonID: "no"},
		{SenderPhone: guestPhone, Text: "Thank you for letting us know. We're sorry you can't make it!"},
		{SenderPhone: guestPhone, Text: replyClarify},
	} {
		s.handle(msg)
	}

	assert.Empty(s.T(), s.store.calls)
	assert.Empty(s.T(), s.sender.sent)
}

func (s *RSVPHandlerSuite) TestAdminSendRSVPRunsAllTenants() {
	s.handle(models.InboundMessage{SenderPhone: "972541111111", Text: "!sendrsvp"})

	assert.Equal(s.T(), []string{"*"}, s.campaigns.runs)
	assert.Equal(s.T(), []bool{true}, s.campaigns.forced)
	assert.Contains(s.T(), s.sender.last().Msg.Text, "Sent 7 messages")
}

func (s *RSVPHandlerSuite) TestTenantContactRunsOwnCampaign() {
	s.handle(models.InboundMessage{SenderPhone: "0529999999", Text: "!sendrsvp"})

	assert.Equal(s.T(), []string{"cust_1"}, s.campaigns.runs)
}

func (s *RSVPHandlerSuite) TestStatusReportsCounts() {
	s.store.guests = []models.Guest{
		{Name: "Dana", Status: models.RSVPConfirmed, PartyCount: 2},
		{Name: "Avi", Status: models.RSVPDeclined},
		{Name: "Noa"},
	}
	s.handle(models.InboundMessage{SenderPhone: "972541111111", Text: "!status"})

	text := s.sender.last().Msg.Text
	assert.Contains(s.T(), text, "Dana & Avi")
	assert.Contains(s.T(), text, "- Confirmed: 1")
	assert.Contains(s.T(), text, "- Pending: 1")
	assert.Contains(s.T(), text, "- Total Attending: 2 people")
}

func (s *RSVPHandlerSuite) TestAdminCommandFromGuestIsNotACommand() {
	s.handle(models.InboundMessage{SenderPhone: guestPhone, Text: "!sendrsvp"})

	assert.Empty(s.T(), s.campaigns.runs)
}

func (s *RSVPHandlerSuite) TestReloadInvalidatesCache() {
	s.handle(models.InboundMessage{SenderPhone: "972541111111", Text: "!reload"})

	assert.Equal(s.T(), 1, s.store.invalidated)
	assert.Contains(s.T(), s.sender.last().Msg.Text, "reloaded 1 guests")
}

func TestInviteToConfirmedPartyOfTwo(t *testing.T) {
	dir, err := storage.NewDirectory(filepath.Join(t.TempDir(), "guest_map.json"), zerolog.Nop())
	require.NoError(t, err)
	tenants := tenantList{{ID: "cust_1", ContactPhone: "+972529999999", Active: true}}
	resolver := tenant.NewResolver(dir, tenants, zerolog.Nop())

	// Invite sent: the directory learns the guest.
	require.NoError(t, dir.Map("0501234567", "cust_1", "Dana"))

	store := &fakeStore{}
	sender := &fakeSender{}
	h := NewRSVPHandler(sender, resolver, func(string) (GuestStore, error) { return store, nil }, tenants, &fakeQueue{}, nil, Config{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, h.HandleMessage(ctx, models.InboundMessage{SenderPhone: "972501234567", ButtonID: "yes"}))
	require.Len(t, sender.sent, 1)
	assert.Len(t, sender.last().Msg.Buttons, 3)
	assert.Empty(t, store.calls)

	require.NoError(t, h.HandleMessage(ctx, models.InboundMessage{SenderPhone: "972501234567", ButtonID: "guest_2"}))
	require.Len(t, store.calls, 1)
	assert.Equal(t, statusCall{Phone: "972501234567", Status: models.RSVPConfirmed, Count: 2}, store.calls[0])
	assert.Contains(t, sender.last().Msg.Text, "2")
}

type panickingResolver struct{}

func (panickingResolver) ResolveTenant(string) (string, bool) { panic("boom") }

func TestHandleMessageRecoversFromPanics(t *testing.T) {
	h := NewRSVPHandler(&fakeSender{}, panickingResolver{}, nil, tenantList{}, &fakeQueue{}, nil, Config{}, zerolog.Nop())

	err := h.HandleMessage(context.Background(), models.InboundMessage{SenderPhone: guestPhone, ButtonID: "yes"})
	assert.NoError(t, err)
}
