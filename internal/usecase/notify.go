package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/totegamma/roulette/internal/domain"
)

// Notifier sends the join link to every member of a group.
type Notifier struct {
	sender  MessageSender
	timeout time.Duration
}

func NewNotifier(sender MessageSender, timeout time.Duration) *Notifier {
	return &Notifier{
		sender:  sender,
		timeout: timeout,
	}
}

// NotificationText names the other members of the group.
func NotificationText(group domain.Group, recipientID, joinURL string) string {
	return fmt.Sprintf("Here is your roulette with *%s*: %s", domain.Names(group.Others(recipientID)), joinURL)
}

// Notify attempts every recipient independently; failures are only logged.
func (n *Notifier) Notify(ctx context.Context, group domain.Group, joinURL string) {
	ctx, span := tracer.Start(ctx, "Roulette.Usecase.Notify")
	defer span.End()

	var eg errgroup.Group
	for _, member := range group {
		eg.Go(func() error {
			callCtx, cancel := withTimeout(ctx, n.timeout)
			defer cancel()

			err := n.sender.SendDirectMessage(callCtx, member.ID, NotificationText(group, member.ID, joinURL))
			if err != nil {
				span.RecordError(err)
				slog.WarnContext(
					ctx, "failed to deliver meeting link",
					slog.String("user", member.ID),
					slog.String("error", err.Error()),
					slog.String("module", "notifier"),
				)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
