package notifications

import (
	"context"

	"github.com/mdnaeem95/hbbtool-sub002/pkg/logger"
)

type logSink struct {
	logg *logger.Logger
}

// NewLogSink builds a sink that just records events in the structured log.
// Used when no Pub/Sub project is configured, and as the test double.
func NewLogSink(logg *logger.Logger) Sink {
	return &logSink{logg: logg}
}

func (s *logSink) Publish(ctx context.Context, event Event) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_type":  event.Type,
		"merchant_id": event.MerchantID.String(),
		"order_id":    event.OrderID.String(),
	})
	s.logg.Info(ctx, "notification event")
}
