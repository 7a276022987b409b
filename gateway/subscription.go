package gateway

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"boardsync/domain"
)

const tracerName = "boardsync/gateway"

// SubscribeEvents listens on the events channel and fans each event out to
// the board's room. Blocks until ctx is cancelled or the channel closes.
func SubscribeEvents(ctx context.Context, logger *log.Logger, rc *redis.Client, eventsChannel string, hub *Hub) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	sub := rc.Subscribe(ctx, eventsChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				logger.Error("events subscription channel closed")
				return
			}
			fanOut(ctx, logger, hub, []byte(msg.Payload))
		}
	}
}

func fanOut(ctx context.Context, logger *log.Logger, hub *Hub, payload []byte) {
	start := time.Now()

	var ev domain.Event
	if err := sonic.Unmarshal(payload, &ev); err != nil {
		logger.Errorf("unable to parse event: %v", err)
		return
	}
	if ev.BoardID == "" {
		logger.Warnf("event %q carries no board id, dropping it", ev.Name)
		return
	}

	_, span := otel.Tracer(tracerName).Start(ctx, "gateway.fanout")
	span.SetAttributes(
		attribute.String("board.event", ev.Name),
		attribute.String("board.id", ev.BoardID),
	)

	delivered := hub.Broadcast(ev.BoardID, payload)

	span.SetAttributes(attribute.Int("board.sessions_delivered", delivered))
	span.SetStatus(codes.Ok, "")
	span.End()

	logger.WithFields(log.Fields{
		"event":     ev.Name,
		"board":     ev.BoardID,
		"delivered": delivered,
		"fanout_ms": float64(time.Since(start)) / float64(time.Millisecond),
	}).Debug("event.fanout")
}
