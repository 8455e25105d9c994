package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rsvp-bot/internal/models"
)

// FollowUpStore persists the pending follow-up list.
type FollowUpStore interface {
	Load() ([]models.FollowUp, error)
	Save(entries []models.FollowUp) error
}

// FollowUpQueue holds guests who answered maybe until their re-prompt is
// due. There is at most one pending entry per phone.
type FollowUpQueue struct {
	mu      sync.Mutex
	entries []models.FollowUp
	store   FollowUpStore
	sources GuestSourceLookup
	sender  Sender
	log     zerolog.Logger
}

func NewFollowUpQueue(store FollowUpStore, sources GuestSourceLookup, sender Sender, log zerolog.Logger) (*FollowUpQueue, error) {
	entries, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &FollowUpQueue{
		entries: entries,
		store:   store,
		sources: sources,
		sender:  sender,
		log:     log.With().Str("component", "followups").Logger(),
	}, nil
}

// Enqueue schedules entry, replacing any pending entry for the same phone.
func (q *FollowUpQueue) Enqueue(entry models.FollowUp) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	key := ContactKey(entry.Phone)

	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.entries[:0:0]
	for _, e := range q.entries {
		if ContactKey(e.Phone) != key {
			kept = append(kept, e)
		}
	}
	q.entries = append(kept, entry)

	q.log.Info().Str("phone", entry.Phone).Str("tenant", entry.TenantID).Time("due_at", entry.DueAt).Msg("Follow-up scheduled")
	if err := q.store.Save(q.entries); err != nil {
		return fmt.Errorf("failed to persist follow-ups: %w", err)
	}
	return nil
}

// Pending returns a copy of the queued entries.
func (q *FollowUpQueue) Pending() []models.FollowUp {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.FollowUp, len(q.entries))
	copy(out, q.entries)
	return out
}

// Flush sends every entry due at or before now and removes it. An entry
// whose send fails stays queued for the next flush unless it was replaced
// meanwhile. Entries use the tenant recorded at enqueue time.
func (q *FollowUpQueue) Flush(ctx context.Context, now time.Time) (int, error) {
	due := q.takeDue(now)
	if len(due) == 0 {
		return 0, nil
	}

	var failed []models.FollowUp
	sent := 0
	for _, entry := range due {
		if err := q.send(ctx, entry); err != nil {
			q.log.Error().Err(err).Str("phone", entry.Phone).Str("tenant", entry.TenantID).Msg("Follow-up failed")
			failed = append(failed, entry)
			continue
		}
		sent++
	}

	q.log.Info().Int("due", len(due)).Int("sent", sent).Msg("Follow-ups flushed")
	return sent, q.requeue(failed)
}

func (q *FollowUpQueue) takeDue(now time.Time) []models.FollowUp {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due, kept []models.FollowUp
	for _, e := range q.entries {
		if !e.DueAt.After(now) {
			due = append(due, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(due) == 0 {
		return nil
	}
	q.entries = kept
	if err := q.store.Save(q.entries); err != nil {
		q.log.Error().Err(err).Msg("Failed to persist follow-ups")
	}
	return due
}

func (q *FollowUpQueue) requeue(failed []models.FollowUp) error {
	if len(failed) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pending := make(map[string]bool, len(q.entries))
	for _, e := range q.entries {
		pending[ContactKey(e.Phone)] = true
	}
	for _, e := range failed {
		if !pending[ContactKey(e.Phone)] {
			q.entries = append(q.entries, e)
		}
	}
	if err := q.store.Save(q.entries); err != nil {
		return fmt.Errorf("failed to persist follow-ups: %w", err)
	}
	return nil
}

func (q *FollowUpQueue) send(ctx context.Context, entry models.FollowUp) error {
	source, err := q.sources(entry.TenantID)
	if err != nil {
		return err
	}
	details := source.GetEventDetails(ctx)
	return q.sender.SendMessage(ctx, entry.Phone, FollowUpMessage(details, entry.Name))
}
