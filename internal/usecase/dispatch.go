package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/totegamma/roulette/internal/domain"
)

// Dispatcher creates one meeting per group and hands the link to the notifier.
type Dispatcher struct {
	provider MeetingProvider
	notifier *Notifier
	topic    string
	timeout  time.Duration
	limit    int
}

func NewDispatcher(provider MeetingProvider, notifier *Notifier, topic string, timeout time.Duration, limit int) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		notifier: notifier,
		topic:    topic,
		timeout:  timeout,
		limit:    limit,
	}
}

// Dispatch processes every group concurrently. A failed group never
// affects another one. report, when set, is called once per group as soon
// as that group finishes and must be safe for concurrent use.
func (d *Dispatcher) Dispatch(ctx context.Context, groups []domain.Group, report func(domain.GroupResult)) []domain.GroupResult {
	results := make([]domain.GroupResult, len(groups))

	var eg errgroup.Group
	if d.limit > 0 {
		eg.SetLimit(d.limit)
	}
	for i, group := range groups {
		eg.Go(func() error {
			results[i] = d.dispatchGroup(ctx, group)
			if report != nil {
				report(results[i])
			}
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

func (d *Dispatcher) dispatchGroup(ctx context.Context, group domain.Group) domain.GroupResult {
	ctx, span := tracer.Start(ctx, "Roulette.Usecase.DispatchGroup")
	defer span.End()

	host := group.Host()

	callCtx, cancel := withTimeout(ctx, d.timeout)
	meeting, err := d.provider.CreateMeeting(callCtx, host.ContactAddress, d.topic)
	cancel()
	if err == nil && meeting.JoinURL == "" {
		err = domain.ProviderError{Message: "response carried no join url"}
	}
	if err != nil {
		span.RecordError(err)
		slog.ErrorContext(
			ctx, "failed to create meeting",
			slog.String("host", host.ID),
			slog.String("error", err.Error()),
			slog.String("module", "dispatcher"),
		)
		return domain.GroupResult{Group: group, Err: err}
	}

	d.notifier.Notify(ctx, group, meeting.JoinURL)

	return domain.GroupResult{Group: group, Meeting: meeting}
}
