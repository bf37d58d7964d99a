package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/totegamma/roulette/internal/domain"
)

var tracer = otel.Tracer("gateway")

const conversationPageSize = 200

// SlackOptions configures the workspace gateway.
type SlackOptions struct {
	BotToken string
	// APIURL overrides the Web API base url, with a trailing slash.
	APIURL        string
	PresenceRate  rate.Limit
	PresenceBurst int
	Timeout       time.Duration
}

// SlackGateway talks to the workspace through the Web API.
type SlackGateway struct {
	api      *slack.Client
	presence *rate.Limiter
}

func NewSlackGateway(opts SlackOptions) *SlackGateway {
	options := []slack.Option{}
	if opts.APIURL != "" {
		options = append(options, slack.OptionAPIURL(opts.APIURL))
	}
	if opts.Timeout > 0 {
		options = append(options, slack.OptionHTTPClient(&http.Client{Timeout: opts.Timeout}))
	}

	limit := opts.PresenceRate
	if limit <= 0 {
		limit = rate.Inf
	}
	burst := opts.PresenceBurst
	if burst <= 0 {
		burst = 1
	}

	return &SlackGateway{
		api:      slack.New(opts.BotToken, options...),
		presence: rate.NewLimiter(limit, burst),
	}
}

// ListMembers returns the full roster, following pagination.
func (g *SlackGateway) ListMembers(ctx context.Context) ([]domain.Member, error) {
	ctx, span := tracer.Start(ctx, "Roulette.Gateway.ListMembers")
	defer span.End()

	users, err := g.api.GetUsersContext(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "users.list failed")
	}
	span.SetAttributes(attribute.Int("Members", len(users)))

	members := make([]domain.Member, 0, len(users))
	for _, u := range users {
		members = append(members, domain.Member{
			ID:                u.ID,
			Name:              u.Name,
			RealName:          u.RealName,
			ProfileRealName:   u.Profile.RealName,
			Deleted:           u.Deleted,
			IsBot:             u.IsBot,
			IsRestricted:      u.IsRestricted,
			IsUltraRestricted: u.IsUltraRestricted,
		})
	}
	return members, nil
}

// ListChannelMembers returns every member id of a conversation.
func (g *SlackGateway) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Roulette.Gateway.ListChannelMembers")
	defer span.End()

	var ids []string
	cursor := ""
	for {
		page, next, err := g.api.GetUsersInConversationContext(ctx, &slack.GetUsersInConversationParameters{
			ChannelID: channelID,
			Cursor:    cursor,
			Limit:     conversationPageSize,
		})
		if err != nil {
			span.RecordError(err)
			return nil, errors.Wrapf(err, "conversations.members failed for %s", channelID)
		}
		ids = append(ids, page...)
		if next == "" {
			return ids, nil
		}
		cursor = next
	}
}

// GetPresence waits for the presence limiter before asking the API.
func (g *SlackGateway) GetPresence(ctx context.Context, userID string) (domain.Presence, error) {
	ctx, span := tracer.Start(ctx, "Roulette.Gateway.GetPresence")
	defer span.End()

	if err := g.presence.Wait(ctx); err != nil {
		span.RecordError(err)
		return domain.PresenceUnknown, errors.Wrap(err, "presence limiter")
	}

	presence, err := g.api.GetUserPresenceContext(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return domain.PresenceUnknown, errors.Wrapf(err, "users.getPresence failed for %s", userID)
	}

	switch domain.Presence(presence.Presence) {
	case domain.PresenceActive:
		return domain.PresenceActive, nil
	case domain.PresenceAway:
		return domain.PresenceAway, nil
	default:
		return domain.PresenceUnknown, nil
	}
}

// SendDirectMessage posts into the app's direct message with the user.
func (g *SlackGateway) SendDirectMessage(ctx context.Context, userID, text string) error {
	ctx, span := tracer.Start(ctx, "Roulette.Gateway.SendDirectMessage")
	defer span.End()

	_, _, err := g.api.PostMessageContext(ctx, userID, slack.MsgOptionText(text, false))
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "chat.postMessage failed for %s", userID)
	}
	return nil
}

// Ephemeral answers through the command's response url, or posts an
// ephemeral message in the channel when no url is available.
func (g *SlackGateway) Ephemeral(ctx context.Context, cmd domain.Command, text string) error {
	ctx, span := tracer.Start(ctx, "Roulette.Gateway.Ephemeral")
	defer span.End()

	var err error
	if cmd.ResponseURL != "" {
		_, _, err = g.api.PostMessageContext(ctx, cmd.ChannelID,
			slack.MsgOptionText(text, false),
			slack.MsgOptionResponseURL(cmd.ResponseURL, slack.ResponseTypeEphemeral),
		)
	} else {
		_, err = g.api.PostEphemeralContext(ctx, cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false))
	}
	if err != nil {
		span.RecordError(err)
		return errors.Wrapf(err, "ephemeral response failed for %s", cmd.UserID)
	}
	return nil
}
