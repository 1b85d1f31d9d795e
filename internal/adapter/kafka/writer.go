package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/urban3d-etl/internal/config"
	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

// Notifier publishes a message per exported layer so downstream consumers
// (tile builders, CDN sync) can pick up fresh files.
// It implements pipeline.Notifier.
type Notifier struct {
	writer     *kafkago.Writer
	logger     *slog.Logger
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

const (
	publishAttempts   = 3
	initialBackoff    = 200 * time.Millisecond
	maxPublishBackoff = 2 * time.Second
)

// NewNotifier creates a Kafka producer for the configured layer topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{
		writer:     w,
		logger:     logger,
		attempts:   publishAttempts,
		backoff:    initialBackoff,
		maxBackoff: maxPublishBackoff,
	}
}

// Notify publishes all layer announcements of a run in a single
// WriteMessages call. Messages are keyed by city and kind so a compacted
// topic keeps the latest file per layer. Broker errors are retried with
// exponential backoff.
func (n *Notifier) Notify(ctx context.Context, layers []domain.LayerExported) error {
	if len(layers) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(layers))
	for i := range layers {
		msg, err := serializeToMessage(layers[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	var err error
	backoff := n.backoff
	for attempt := 1; attempt <= n.attempts; attempt++ {
		if err = n.writer.WriteMessages(ctx, msgs...); err == nil {
			break
		}
		if attempt == n.attempts {
			return fmt.Errorf("publish layer notifications after %d attempts: %w", attempt, err)
		}
		n.logger.Warn("layer notification publish failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, n.maxBackoff)
	}
	n.logger.Debug("layer notifications published", "topic", n.writer.Topic, "count", len(msgs))
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a LayerExported event into a Kafka message.
func serializeToMessage(event domain.LayerExported) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize layer event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(domain.CitySlug(event.City) + "/" + string(event.Kind)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(event.Kind)},
			{Key: "exported_at", Value: []byte(event.ExportedAt.Format(time.RFC3339))},
		},
	}, nil
}
