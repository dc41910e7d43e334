package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/internal/metrics"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
	"github.com/rs/zerolog"
)

type Invalidator interface {
	Invalidate(ctx context.Context, ownerID string) int
}

// Watcher consumes workout events and evicts the owner's cached metrics.
// It covers writers that bypass this service, such as bulk importers.
type Watcher struct {
	brokers []string
	topic   string
	group   string
	inv     Invalidator
	logger  zerolog.Logger
}

var _ sarama.ConsumerGroupHandler = (*Watcher)(nil)

func NewWatcher(brokers []string, topic, group string, inv Invalidator, logger zerolog.Logger) *Watcher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Watcher{
		brokers: brokers,
		topic:   topic,
		group:   group,
		inv:     inv,
		logger:  logger.With().Str("component", "watcher").Logger(),
	}
}

// Run consumes until ctx is done. Broker errors are logged and retried.
func (w *Watcher) Run(ctx context.Context) error {
	group, err := sarama.NewConsumerGroup(w.brokers, w.group, newConfig("fitmetrics-watcher"))
	if err != nil {
		return err
	}
	defer group.Close()

	w.logger.Info().Str("topic", w.topic).Str("group", w.group).Msg("watching workout events")

	for {
		if err := group.Consume(ctx, []string{w.topic}, w); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			w.logger.Warn().Err(err).Msg("consume failed")

			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Second):
			}
		}

		if ctx.Err() != nil {
			w.logger.Info().Msg("stopped")
			return nil
		}
	}
}

func (w *Watcher) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (w *Watcher) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (w *Watcher) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			w.handle(sess.Context(), msg)
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

func (w *Watcher) handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	if kind := header(msg, eventTypeHeader); kind != "" && kind != WorkoutRecordedEvent {
		metrics.EventsConsumedTotal.WithLabelValues("ignored").Inc()
		return
	}

	var ev types.WorkoutRecorded
	if err := json.Unmarshal(msg.Value, &ev); err != nil || ev.UserID == uuid.Nil {
		metrics.EventsConsumedTotal.WithLabelValues("malformed").Inc()
		w.logger.Warn().Err(err).
			Int32("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("dropping malformed workout event")
		return
	}

	n := w.inv.Invalidate(ctx, ev.UserID.String())
	metrics.EventsConsumedTotal.WithLabelValues("ok").Inc()
	w.logger.Debug().Str("owner", ev.UserID.String()).Int("deleted", n).Msg("invalidated from event")
}

func header(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}
