package usecase

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/roulette/internal/domain"
)

// Sampler draws active users from a candidate pool.
type Sampler struct {
	presence PresenceChecker

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSampler(presence PresenceChecker, rng *rand.Rand) *Sampler {
	return &Sampler{
		presence: presence,
		rng:      rng,
	}
}

// Sample pops candidates off the end of pool until count active users are
// found or the pool runs dry. The pool is shuffled at most once, before the
// first draw. A short result is not an error.
func (s *Sampler) Sample(ctx context.Context, pool *[]domain.User, count int, shuffleFirst bool) []domain.User {
	ctx, span := tracer.Start(ctx, "Roulette.Usecase.Sample")
	defer span.End()
	span.SetAttributes(
		attribute.Int("PoolSize", len(*pool)),
		attribute.Int("Count", count),
	)

	if shuffleFirst {
		s.shuffle(*pool)
	}

	selected := make([]domain.User, 0, max(count, 0))
	draws := 0
	for count > 0 && len(*pool) > 0 {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			slog.WarnContext(
				ctx, "sampling interrupted",
				slog.String("error", err.Error()),
				slog.String("module", "sampler"),
			)
			break
		}

		last := len(*pool) - 1
		candidate := (*pool)[last]
		*pool = (*pool)[:last]
		draws++

		presence, err := s.presence.GetPresence(ctx, candidate.ID)
		if err != nil {
			slog.WarnContext(
				ctx, "presence check failed",
				slog.String("user", candidate.ID),
				slog.String("error", err.Error()),
				slog.String("module", "sampler"),
			)
			continue
		}
		if presence != domain.PresenceActive {
			continue
		}

		selected = append(selected, candidate)
		count--
	}

	span.SetAttributes(
		attribute.Int("Draws", draws),
		attribute.Int("Selected", len(selected)),
	)
	return selected
}

// shuffle is a Fisher-Yates permutation in place.
func (s *Sampler) shuffle(users []domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(users) - 1; i > 0; i-- {
		j := s.rng.IntN(i + 1)
		users[i], users[j] = users[j], users[i]
	}
}
