package model

import "time"

// Intent types mirror the product's meeting contexts. Social meetings
// use the social calendar link; every business intent uses the
// business link.
const (
	IntentSocial             = "social"
	IntentBusinessMentorship = "business_mentorship"
	IntentBusinessInvesting  = "business_investing"
	IntentBusinessNetworking = "business_networking"
)

func ValidIntent(intent string) bool {
	switch intent {
	case IntentSocial, IntentBusinessMentorship, IntentBusinessInvesting, IntentBusinessNetworking:
		return true
	}
	return false
}

// MeetingRequest statuses. Accepted, declined and cancelled are
// terminal.
const (
	MeetingPending   = "pending"
	MeetingAccepted  = "accepted"
	MeetingDeclined  = "declined"
	MeetingCancelled = "cancelled"
)

type MeetingRequest struct {
	ID              string
	SenderID        string
	ReceiverID      string
	IntentType      string
	VenueID         *string
	ProposedTime    *time.Time
	DurationMinutes int
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Venue struct {
	ID      string
	Name    string
	Address string
}

// Profile carries only the fields the availability engine needs.
type Profile struct {
	UserID               string
	DisplayName          string
	CalendarLinkSocial   string
	CalendarLinkBusiness string
}

// CalendarLinkFor returns the calendar link matching a meeting intent,
// or "" when the user has not linked one.
func (p Profile) CalendarLinkFor(intent string) string {
	if intent == IntentSocial {
		return p.CalendarLinkSocial
	}
	return p.CalendarLinkBusiness
}
