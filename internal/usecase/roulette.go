package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/totegamma/roulette/internal/domain"
)

var tracer = otel.Tracer("usecase")

const CommandName = "/roulette"

// RouletteOptions tunes the orchestrator.
type RouletteOptions struct {
	MaxGroupSize int
}

// Roulette runs one slash command from validation to notification.
type Roulette struct {
	directory  *DirectoryCache
	roster     ChannelRoster
	sampler    *Sampler
	dispatcher *Dispatcher
	responder  Responder
	events     EventPublisher
	opts       RouletteOptions
}

// NewRoulette wires the pipeline. events may be nil.
func NewRoulette(
	directory *DirectoryCache,
	roster ChannelRoster,
	sampler *Sampler,
	dispatcher *Dispatcher,
	responder Responder,
	events EventPublisher,
	opts RouletteOptions,
) *Roulette {
	if opts.MaxGroupSize < 2 {
		opts.MaxGroupSize = DefaultMaxGroupSize
	}
	return &Roulette{
		directory:  directory,
		roster:     roster,
		sampler:    sampler,
		dispatcher: dispatcher,
		responder:  responder,
		events:     events,
		opts:       opts,
	}
}

type invocation struct {
	cmd     domain.Command
	log     *slog.Logger
	outcome domain.Outcome
}

func (inv *invocation) advance(state domain.State) {
	inv.outcome.State = state
	if state.Terminal() {
		inv.log.Info("roulette finished", slog.String("state", string(state)))
		return
	}
	inv.log.Debug("state changed", slog.String("state", string(state)))
}

// Handle blocks until every group has been dispatched and notified.
func (r *Roulette) Handle(ctx context.Context, cmd domain.Command) domain.Outcome {
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}

	ctx, span := tracer.Start(ctx, "Roulette.Usecase.Handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("RequestID", cmd.RequestID),
		attribute.String("RequesterId", cmd.UserID),
		attribute.String("Text", cmd.Text),
	)

	inv := &invocation{
		cmd: cmd,
		log: slog.With(
			slog.String("request", cmd.RequestID),
			slog.String("module", "roulette"),
		),
		outcome: domain.Outcome{RequestID: cmd.RequestID},
	}
	inv.advance(domain.StateReceived)

	directory := r.directory.Snapshot(ctx)
	if len(directory) == 0 {
		r.reject(ctx, inv, domain.StateInsufficientUsers, domain.ErrInsufficientUsers,
			"The member directory is unavailable right now, try again in a little while.")
		return inv.outcome
	}
	requester, ok := lo.Find(directory, func(u domain.User) bool {
		return u.ID == cmd.UserID
	})
	if !ok {
		r.reject(ctx, inv, domain.StateRejectedUnauthorized, domain.ErrUnauthorized,
			"Sorry, only active members of the workspace can spin the roulette.")
		return inv.outcome
	}

	variant, err := ParseVariant(cmd.Text, r.opts.MaxGroupSize)
	if err != nil {
		r.reject(ctx, inv, domain.StateRejectedArgument, err,
			fmt.Sprintf("I don't know the option `%s`.\n%s", strings.TrimSpace(cmd.Text), Usage(CommandName, r.opts.MaxGroupSize)))
		return inv.outcome
	}

	if err := checkContext(cmd, variant); err != nil {
		msg := "The roulette cannot be spun from a private channel."
		if cmd.ChannelName == domain.ChannelNameDirectMessage {
			msg = "Channel roulette only works in a public channel."
		}
		r.reject(ctx, inv, domain.StateRejectedContext, err, msg)
		return inv.outcome
	}
	inv.advance(domain.StateValidated)

	if variant.Grouping == domain.GroupingNone {
		r.respond(ctx, inv, Usage(CommandName, r.opts.MaxGroupSize))
		inv.advance(domain.StateResponded)
		return inv.outcome
	}

	selected := r.selectUsers(ctx, inv, directory, requester, variant)
	inv.advance(domain.StatePoolSelected)

	groups, err := Partition(selected)
	if err != nil {
		r.reject(ctx, inv, domain.StateInsufficientUsers, err,
			"Nobody else is active right now, try again in a little while.")
		return inv.outcome
	}
	inv.outcome.Groups = groups
	inv.advance(domain.StatePartitioned)
	span.SetAttributes(attribute.Int("Groups", len(groups)))

	r.respond(ctx, inv, summary(groups, requester))
	for _, group := range groups {
		r.publish(ctx, inv, domain.Event{
			Type:      domain.EventPairingCreated,
			RequestID: cmd.RequestID,
			Members:   memberIDs(group),
		})
	}

	inv.outcome.Results = r.dispatcher.Dispatch(ctx, groups, func(res domain.GroupResult) {
		r.report(ctx, inv, res)
	})
	inv.advance(domain.StateDispatched)

	failed := lo.CountBy(inv.outcome.Results, func(res domain.GroupResult) bool {
		return res.Err != nil
	})
	if failed < len(groups) {
		inv.advance(domain.StateNotified)
	}
	inv.log.Info(
		"meetings dispatched",
		slog.Int("groups", len(groups)),
		slog.Int("failed", failed),
	)
	inv.advance(domain.StateResponded)
	return inv.outcome
}

func checkContext(cmd domain.Command, variant domain.Variant) error {
	if cmd.ChannelName == domain.ChannelNamePrivate {
		return domain.ErrDisallowedContext
	}
	if variant.Selection == domain.SelectChannelRoster && cmd.ChannelName == domain.ChannelNameDirectMessage {
		return domain.ErrDisallowedContext
	}
	return nil
}

// selectUsers returns the chosen users with the requester last, so the
// partitioner places the requester in the first group as its host.
func (r *Roulette) selectUsers(ctx context.Context, inv *invocation, directory []domain.User, requester domain.User, variant domain.Variant) []domain.User {
	pool := lo.Filter(directory, func(u domain.User, _ int) bool {
		return u.ID != requester.ID
	})

	count := variant.Size - 1
	if variant.Selection == domain.SelectChannelRoster {
		ids, err := r.roster.ListChannelMembers(ctx, inv.cmd.ChannelID)
		if err != nil {
			inv.log.Warn("failed to list channel members", slog.String("error", err.Error()))
			ids = nil
		}
		inChannel := lo.SliceToMap(ids, func(id string) (string, struct{}) {
			return id, struct{}{}
		})
		pool = lo.Filter(pool, func(u domain.User, _ int) bool {
			_, ok := inChannel[u.ID]
			return ok
		})
		count = len(pool)
	}

	selected := r.sampler.Sample(ctx, &pool, count, true)
	return append(selected, requester)
}

func (r *Roulette) report(ctx context.Context, inv *invocation, res domain.GroupResult) {
	if res.Err == nil {
		r.publish(ctx, inv, domain.Event{
			Type:      domain.EventMeetingCreated,
			RequestID: inv.cmd.RequestID,
			Members:   memberIDs(res.Group),
			JoinURL:   res.Meeting.JoinURL,
		})
		return
	}

	r.publish(ctx, inv, domain.Event{
		Type:      domain.EventMeetingFailed,
		RequestID: inv.cmd.RequestID,
		Members:   memberIDs(res.Group),
		Error:     res.Err.Error(),
	})

	names := domain.Names(res.Group)
	if errors.Is(res.Err, domain.ErrQuotaExceeded) {
		r.respond(ctx, inv, fmt.Sprintf("The daily meeting quota has been reached, no meeting could be created for %s.", names))
		return
	}
	r.respond(ctx, inv, fmt.Sprintf("Something went wrong while creating the meeting for %s, please try again later.", names))
}

func (r *Roulette) reject(ctx context.Context, inv *invocation, state domain.State, reason error, text string) {
	trace.SpanFromContext(ctx).RecordError(reason)
	inv.log.Info("roulette rejected", slog.String("reason", reason.Error()))
	inv.advance(state)
	r.respond(ctx, inv, text)
}

func (r *Roulette) respond(ctx context.Context, inv *invocation, text string) {
	if err := r.responder.Ephemeral(ctx, inv.cmd, text); err != nil {
		inv.log.Warn("failed to send ephemeral response", slog.String("error", err.Error()))
	}
}

func (r *Roulette) publish(ctx context.Context, inv *invocation, event domain.Event) {
	if r.events == nil {
		return
	}
	if err := r.events.Publish(ctx, event); err != nil {
		inv.log.Warn("failed to publish event", slog.String("type", event.Type), slog.String("error", err.Error()))
	}
}

func summary(groups []domain.Group, requester domain.User) string {
	var b strings.Builder
	b.WriteString(":game_die: The roulette has spoken!")
	for _, group := range groups {
		if lo.ContainsBy(group, func(u domain.User) bool { return u.ID == requester.ID }) {
			fmt.Fprintf(&b, " You are meeting *%s*.", domain.Names(group.Others(requester.ID)))
			break
		}
	}
	if len(groups) > 1 {
		fmt.Fprintf(&b, " %d meetings are being set up.", len(groups))
	}
	b.WriteString(" Check your direct messages for the link.")
	return b.String()
}

func memberIDs(group domain.Group) []string {
	return lo.Map(group, func(u domain.User, _ int) string {
		return u.ID
	})
}
