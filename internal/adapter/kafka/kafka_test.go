package kafka

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/urban3d-etl/internal/config"
	"github.com/couchcryptid/urban3d-etl/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 11, 13, 9, 30, 0, 0, time.UTC)
	event := domain.LayerExported{
		City:       "Bolzano, Italy",
		Kind:       domain.KindRoads,
		Path:       "data/processed/bolzano_italy/roads.geojson",
		Features:   4210,
		Bytes:      1_048_576,
		ExportedAt: now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("bolzano_italy/roads"), msg.Key)
	assert.JSONEq(t, `{
		"city": "Bolzano, Italy",
		"kind": "roads",
		"path": "data/processed/bolzano_italy/roads.geojson",
		"features": 4210,
		"bytes": 1048576,
		"exported_at": "2024-11-13T09:30:00Z"
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("roads"), msg.Headers[0].Value)
	assert.Equal(t, "exported_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestNotifier_EmptyBatchIsNoop(t *testing.T) {
	n := NewNotifier(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaTopic: "layers"}, slog.Default())
	t.Cleanup(func() { _ = n.Close() })

	require.NoError(t, n.Notify(context.Background(), nil))
}

func TestNotifier_StopsRetryingWhenContextCancelled(t *testing.T) {
	n := NewNotifier(&config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: "layers"}, slog.Default())
	n.backoff = time.Millisecond
	t.Cleanup(func() { _ = n.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, []domain.LayerExported{{City: "Bolzano, Italy", Kind: domain.KindPOIs}})
	require.ErrorIs(t, err, context.Canceled)
}
