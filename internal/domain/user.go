package domain

import "strings"

// User is an eligible workspace member.
type User struct {
	ID             string `json:"id"`
	DisplayName    string `json:"displayName"`
	ContactAddress string `json:"contactAddress"`
}

// Member is a raw roster record as returned by the chat platform.
type Member struct {
	ID                string
	Name              string
	RealName          string
	ProfileRealName   string
	Deleted           bool
	IsBot             bool
	IsRestricted      bool
	IsUltraRestricted bool
}

// Group is the set of users sharing one meeting.
type Group []User

// Host returns the member whose contact address requests the meeting.
func (g Group) Host() User {
	if len(g) == 0 {
		return User{}
	}
	return g[0]
}

// Others returns every member except the one with the given id.
func (g Group) Others(id string) []User {
	others := make([]User, 0, len(g))
	for _, u := range g {
		if u.ID != id {
			others = append(others, u)
		}
	}
	return others
}

// Names joins display names the way they read in a sentence.
func Names(users []User) string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.DisplayName)
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}

// MeetingResult is the outcome of one meeting creation request.
type MeetingResult struct {
	JoinURL string `json:"joinUrl"`
}

type Presence string

const (
	PresenceActive  Presence = "active"
	PresenceAway    Presence = "away"
	PresenceUnknown Presence = "unknown"
)
