package service

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/roulette/internal/domain"
)

var tracer = otel.Tracer("service")

const DefaultEventChannel = "roulette:events"

// Publisher is the part of the redis client the service needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// SignalService broadcasts pairing events over redis pub/sub.
type SignalService struct {
	rdb     Publisher
	channel string
}

func NewSignalService(redisClient Publisher, channel string) *SignalService {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &SignalService{
		rdb:     redisClient,
		channel: channel,
	}
}

func (s *SignalService) Publish(ctx context.Context, event domain.Event) error {
	ctx, span := tracer.Start(ctx, "Roulette.Service.Publish")
	defer span.End()

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = s.rdb.Publish(ctx, s.channel, jsonstr).Err()
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "SignalService.Publish: redis publish failed")
	}

	return nil
}
