package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/totegamma/roulette/internal/domain"
)

type harness struct {
	members   *fakeMembers
	roster    *fakeRoster
	presence  *fakePresence
	meetings  *fakeMeetings
	sender    *fakeSender
	responder *fakeResponder
	events    *fakeEvents
	roulette  *Roulette
}

func newHarness(ids ...string) *harness {
	h := &harness{
		members:   &fakeMembers{members: members(ids...)},
		roster:    &fakeRoster{},
		presence:  &fakePresence{states: map[string]domain.Presence{}},
		meetings:  &fakeMeetings{fail: map[string]error{}},
		sender:    &fakeSender{},
		responder: &fakeResponder{},
		events:    &fakeEvents{},
	}
	directory := NewDirectoryCache(NewDirectory(h.members, DirectoryOptions{ContactDomain: "example.com"}), 0)
	dispatcher := NewDispatcher(h.meetings, NewNotifier(h.sender, time.Second), "Roulette", time.Second, 0)
	h.roulette = NewRoulette(
		directory,
		h.roster,
		NewSampler(h.presence, newRand()),
		dispatcher,
		h.responder,
		h.events,
		RouletteOptions{MaxGroupSize: 6},
	)
	return h
}

func (h *harness) activate(ids ...string) {
	for _, id := range ids {
		h.presence.states[id] = domain.PresenceActive
	}
}

func command(user, text string) domain.Command {
	return domain.Command{
		RequestID:   "req-1",
		UserID:      user,
		ChannelID:   "C1",
		ChannelName: "general",
		Text:        text,
	}
}

func TestRouletteDuoPairsRequesterWithActiveUser(t *testing.T) {
	h := newHarness("A", "B", "C", "D", "E")
	h.presence.states["B"] = domain.PresenceAway
	h.activate("C")

	outcome := h.roulette.Handle(context.Background(), command("A", ""))

	require.Equal(t, domain.StateResponded, outcome.State)
	require.Len(t, outcome.Groups, 1)
	require.ElementsMatch(t, users("A", "C"), []domain.User(outcome.Groups[0]))
	require.Equal(t, []string{"A@example.com"}, h.meetings.hosts)
	require.NotContains(t, h.presence.calls, "A")

	require.Len(t, h.sender.sent, 2)
	require.Contains(t, h.sender.sent["A"], "*User C*")
	require.Contains(t, h.sender.sent["C"], "*User A*")

	require.Len(t, h.responder.texts, 1)
	require.Contains(t, h.responder.texts[0], "You are meeting *User C*")

	types := []string{}
	for _, e := range h.events.events {
		types = append(types, e.Type)
	}
	require.Equal(t, []string{domain.EventPairingCreated, domain.EventMeetingCreated}, types)
}

func TestRouletteQuotaExceeded(t *testing.T) {
	h := newHarness("A", "B")
	h.activate("B")
	h.meetings.fail["A@example.com"] = domain.ErrQuotaExceeded

	outcome := h.roulette.Handle(context.Background(), command("A", ""))

	require.Equal(t, domain.StateResponded, outcome.State)
	require.ErrorIs(t, outcome.Results[0].Err, domain.ErrQuotaExceeded)
	require.Empty(t, h.sender.seen)

	texts := h.responder.all()
	require.Len(t, texts, 2)
	require.Contains(t, texts[1], "daily meeting quota")

	// the next command is served normally
	delete(h.meetings.fail, "A@example.com")
	outcome = h.roulette.Handle(context.Background(), command("A", ""))
	require.NoError(t, outcome.Results[0].Err)
	require.Len(t, h.sender.sent, 2)
}

func TestRouletteChannelWide(t *testing.T) {
	h := newHarness("A", "B", "C", "D", "E", "F", "G", "X", "Y")
	h.roster.ids = []string{"A", "B", "C", "D", "E", "F", "G", "Y", "BOT"}
	h.activate("B", "C", "D", "E", "F", "G", "X")

	outcome := h.roulette.Handle(context.Background(), command("A", "channel"))

	require.Equal(t, domain.StateResponded, outcome.State)
	sizes := []int{}
	covered := []string{}
	for _, g := range outcome.Groups {
		sizes = append(sizes, len(g))
		for _, u := range g {
			covered = append(covered, u.ID)
		}
	}
	require.Equal(t, []int{2, 2, 3}, sizes)
	require.ElementsMatch(t, []string{"A", "B", "C", "D", "E", "F", "G"}, covered)
	require.Equal(t, "A", outcome.Groups[0].Host().ID)
	require.Equal(t, 3, h.meetings.hostCount())
	require.Len(t, h.sender.sent, 7)
	require.NotContains(t, h.presence.calls, "X")
}

func TestRouletteUnauthorizedMakesNoCalls(t *testing.T) {
	h := newHarness("A", "B", "C")
	h.activate("B", "C")

	outcome := h.roulette.Handle(context.Background(), command("Z", ""))

	require.Equal(t, domain.StateRejectedUnauthorized, outcome.State)
	require.True(t, outcome.State.Terminal())
	require.Equal(t, 1, h.members.calls)
	require.Zero(t, h.presence.callCount())
	require.Zero(t, h.meetings.hostCount())
	require.Empty(t, h.sender.seen)
	require.Len(t, h.responder.texts, 1)
}

func TestRouletteInsufficientUsers(t *testing.T) {
	h := newHarness("A", "B", "C")

	outcome := h.roulette.Handle(context.Background(), command("A", ""))

	require.Equal(t, domain.StateInsufficientUsers, outcome.State)
	require.Zero(t, h.meetings.hostCount())
	require.Contains(t, h.responder.texts[0], "Nobody else is active")
}

func TestRouletteEmptyDirectory(t *testing.T) {
	h := newHarness()

	outcome := h.roulette.Handle(context.Background(), command("A", ""))

	require.Equal(t, domain.StateInsufficientUsers, outcome.State)
	require.Zero(t, h.presence.callCount())
	require.Equal(t, 1, h.members.calls)
	require.Equal(t, []string{"The member directory is unavailable right now, try again in a little while."}, h.responder.all())
}

func TestRouletteRejectsContext(t *testing.T) {
	h := newHarness("A", "B")
	h.activate("B")

	cmd := command("A", "")
	cmd.ChannelName = domain.ChannelNamePrivate
	outcome := h.roulette.Handle(context.Background(), cmd)
	require.Equal(t, domain.StateRejectedContext, outcome.State)

	cmd = command("A", "channel")
	cmd.ChannelName = domain.ChannelNameDirectMessage
	outcome = h.roulette.Handle(context.Background(), cmd)
	require.Equal(t, domain.StateRejectedContext, outcome.State)
	require.Contains(t, h.responder.texts[1], "public channel")

	cmd = command("A", "")
	cmd.ChannelName = domain.ChannelNameDirectMessage
	outcome = h.roulette.Handle(context.Background(), cmd)
	require.Equal(t, domain.StateResponded, outcome.State)

	require.Equal(t, 1, h.meetings.hostCount())
}

func TestRouletteGroupOfN(t *testing.T) {
	h := newHarness("A", "B", "C", "D", "E", "F")
	h.activate("B", "C", "D", "E", "F")

	outcome := h.roulette.Handle(context.Background(), command("A", "4"))

	require.Equal(t, domain.StateResponded, outcome.State)
	require.Len(t, outcome.Groups, 2)
	require.Equal(t, "A", outcome.Groups[0].Host().ID)
	require.Len(t, h.sender.sent, 4)
	require.Contains(t, h.responder.texts[0], "2 meetings")
}

func TestRouletteInvalidArgumentAndHelp(t *testing.T) {
	h := newHarness("A", "B")
	h.activate("B")

	outcome := h.roulette.Handle(context.Background(), command("A", "banana"))
	require.Equal(t, domain.StateRejectedArgument, outcome.State)
	require.True(t, strings.Contains(h.responder.texts[0], "`banana`"))

	outcome = h.roulette.Handle(context.Background(), command("A", "help"))
	require.Equal(t, domain.StateResponded, outcome.State)
	require.Contains(t, h.responder.texts[1], "/roulette channel")
	require.Empty(t, outcome.Groups)
	require.True(t, outcome.State.Terminal())

	require.Zero(t, h.presence.callCount())
	require.Zero(t, h.meetings.hostCount())
	require.Empty(t, h.events.events)
}

func TestParseVariant(t *testing.T) {
	tests := []struct {
		text     string
		expected domain.Variant
		err      bool
	}{
		{"", domain.Variant{Selection: domain.SelectRequesterPlusActive, Size: 2}, false},
		{"  Channel ", domain.Variant{Selection: domain.SelectChannelRoster}, false},
		{"all", domain.Variant{Selection: domain.SelectChannelRoster}, false},
		{"3", domain.Variant{Selection: domain.SelectRequesterPlusActive, Size: 3}, false},
		{"6", domain.Variant{Selection: domain.SelectRequesterPlusActive, Size: 6}, false},
		{"help", domain.Variant{Selection: domain.SelectHelp, Grouping: domain.GroupingNone}, false},
		{"1", domain.Variant{}, true},
		{"7", domain.Variant{}, true},
		{"dance", domain.Variant{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			v, err := ParseVariant(tc.text, 6)
			if tc.err {
				require.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, v)
		})
	}
}
