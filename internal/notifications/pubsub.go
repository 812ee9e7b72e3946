package notifications

import (
	"context"
	"encoding/json"

	pubsub "cloud.google.com/go/pubsub/v2"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
)

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

type pubsubSink struct {
	publisher publisher
	logg      *logger.Logger
}

// NewPubSubSink builds a sink that fans events out through a Pub/Sub topic.
// Publish failures are logged and dropped; an order transaction must never
// roll back because the notification pipe is down.
func NewPubSubSink(pub *pubsub.Publisher, logg *logger.Logger) Sink {
	return &pubsubSink{publisher: pub, logg: logg}
}

func (s *pubsubSink) Publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		s.logError(ctx, event, err)
		return
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": event.Type,
		},
	})
	go func() {
		if _, err := result.Get(context.WithoutCancel(ctx)); err != nil {
			s.logError(ctx, event, err)
		}
	}()
}

func (s *pubsubSink) logError(ctx context.Context, event Event, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_type": event.Type,
		"order_id":   event.OrderID.String(),
	})
	s.logg.Error(ctx, "publishing notification event", err)
}
