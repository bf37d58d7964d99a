package usecase

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/totegamma/roulette/internal/domain"
)

type fakeMembers struct {
	members []domain.Member
	err     error
	calls   int
}

func (f *fakeMembers) ListMembers(ctx context.Context) ([]domain.Member, error) {
	f.calls++
	return f.members, f.err
}

type fakeRoster struct {
	ids []string
	err error
}

func (f *fakeRoster) ListChannelMembers(ctx context.Context, channelID string) ([]string, error) {
	return f.ids, f.err
}

type fakePresence struct {
	mu     sync.Mutex
	states map[string]domain.Presence
	errs   map[string]error
	calls  []string
}

func (f *fakePresence) GetPresence(ctx context.Context, userID string) (domain.Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, userID)
	if err, ok := f.errs[userID]; ok {
		return domain.PresenceUnknown, err
	}
	if state, ok := f.states[userID]; ok {
		return state, nil
	}
	return domain.PresenceAway, nil
}

func (f *fakePresence) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type alwaysActive struct{}

func (alwaysActive) GetPresence(ctx context.Context, userID string) (domain.Presence, error) {
	return domain.PresenceActive, nil
}

type fakeMeetings struct {
	mu    sync.Mutex
	fail  map[string]error
	hosts []string
}

func (f *fakeMeetings) CreateMeeting(ctx context.Context, hostAddress, topic string) (domain.MeetingResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = append(f.hosts, hostAddress)
	if err, ok := f.fail[hostAddress]; ok {
		return domain.MeetingResult{}, err
	}
	return domain.MeetingResult{JoinURL: "https://meet.example.com/j/" + hostAddress}, nil
}

func (f *fakeMeetings) hostCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hosts)
}

type fakeSender struct {
	mu   sync.Mutex
	fail map[string]error
	sent map[string]string
	seen []string
}

func (f *fakeSender) SendDirectMessage(ctx context.Context, userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, userID)
	if err, ok := f.fail[userID]; ok {
		return err
	}
	if f.sent == nil {
		f.sent = make(map[string]string)
	}
	f.sent[userID] = text
	return nil
}

type fakeResponder struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeResponder) Ephemeral(ctx context.Context, cmd domain.Command, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeResponder) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeEvents) Publish(ctx context.Context, event domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 1024))
}

func users(ids ...string) []domain.User {
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.User{ID: id, DisplayName: "User " + id, ContactAddress: id + "@example.com"})
	}
	return out
}

func members(ids ...string) []domain.Member {
	out := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Member{ID: id, Name: id, RealName: "user " + id})
	}
	return out
}
