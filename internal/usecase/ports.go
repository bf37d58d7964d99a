package usecase

import (
	"context"

	"github.com/totegamma/roulette/internal/domain"
)

// MemberDirectory lists the raw workspace roster.
type MemberDirectory interface {
	ListMembers(ctx context.Context) ([]domain.Member, error)
}

// ChannelRoster lists the member ids of one channel.
type ChannelRoster interface {
	ListChannelMembers(ctx context.Context, channelID string) ([]string, error)
}

// PresenceChecker reports the current presence of one user.
type PresenceChecker interface {
	GetPresence(ctx context.Context, userID string) (domain.Presence, error)
}

// MeetingProvider creates an instant meeting hosted by the given address.
type MeetingProvider interface {
	CreateMeeting(ctx context.Context, hostAddress, topic string) (domain.MeetingResult, error)
}

// MessageSender delivers a direct message to one user.
type MessageSender interface {
	SendDirectMessage(ctx context.Context, userID, text string) error
}

// Responder replies to the requester only.
type Responder interface {
	Ephemeral(ctx context.Context, cmd domain.Command, text string) error
}

// EventPublisher fans pairing events out to listeners.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
