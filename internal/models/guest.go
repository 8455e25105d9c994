package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// Guest represents an invitee as presented by a tenant's guest store
type Guest struct {
	Name          string
	Phone         string
	Email         string
	Status        RSVPStatus
	PartyCount    int
	Notes         string
	LastContacted string
}

// RSVPStatus represents the attendance confirmation status
type RSVPStatus string

const (
	RSVPPending   RSVPStatus = "Pending"
	RSVPConfirmed RSVPStatus = "Confirmed"
	RSVPDeclined  RSVPStatus = "Declined"
	RSVPMaybe     RSVPStatus = "Maybe"
)

// IsPending reports whether the guest has not answered yet. The remote store
// leaves the status cell empty for freshly imported rows.
func (s RSVPStatus) IsPending() bool {
	return s == "" || s == RSVPPending
}

// MarshalJSON emits every field under both its camelCase and PascalCase name,
// since consumers of the remote store were written against either casing.
func (g Guest) MarshalJSON() ([]byte, error) {
	status := g.Status
	if status == "" {
		status = RSVPPending
	}
	count := strconv.Itoa(g.PartyCount)
	return json.Marshal(map[string]any{
		"name":          g.Name,
		"phone":         g.Phone,
		"email":         g.Email,
		"status":        status,
		"count":         count,
		"notes":         g.Notes,
		"lastContacted": g.LastContacted,
		"Name":          g.Name,
		"Phone":         g.Phone,
		"Email":         g.Email,
		"Status":        status,
		"GuestCount":    count,
		"Notes":         g.Notes,
		"LastContacted": g.LastContacted,
	})
}

// EventDetails is the event header row of a tenant's guest store
type EventDetails struct {
	Name        string
	Date        string
	Time        string
	Location    string
	Description string
}

// MarshalJSON emits both casings, like Guest.
func (d EventDetails) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"name":        d.Name,
		"date":        d.Date,
		"time":        d.Time,
		"location":    d.Location,
		"description": d.Description,
		"Name":        d.Name,
		"Date":        d.Date,
		"Time":        d.Time,
		"Location":    d.Location,
		"Description": d.Description,
	})
}

// GuestMapping routes a guest phone to the tenant that invited it
type GuestMapping struct {
	Phone     string    `json:"phone"`
	TenantID  string    `json:"tenant_id"`
	GuestName string    `json:"guest_name,omitempty"`
	MappedAt  time.Time `json:"mapped_at"`
}

// FollowUp is a deferred re-prompt for a guest who answered "maybe"
type FollowUp struct {
	ID       string    `json:"id"`
	Phone    string    `json:"phone"`
	Name     string    `json:"name,omitempty"`
	TenantID string    `json:"tenant_id"`
	DueAt    time.Time `json:"due_at"`
}
