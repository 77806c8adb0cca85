package kafka

import (
	"testing"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestGetPayloadBytes(t *testing.T) {
	committedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &usecase.GenerationCommittedEvent{
		EventID:        "evt-1",
		GenerationID:   "gen-1",
		ItemsProcessed: 42,
		Feeds:          []string{"nakd_products.csv", "vuori_products.csv"},
		CommittedAt:    committedAt,
	}

	raw, err := GetPayloadBytes(event)
	require.NoError(t, err)

	var payload structpb.Struct
	require.NoError(t, proto.Unmarshal(raw, &payload))

	fields := payload.GetFields()
	assert.Equal(t, "gen-1", fields["generation_id"].GetStringValue())
	assert.Equal(t, "evt-1", fields["event_id"].GetStringValue())
	assert.Equal(t, float64(42), fields["items_processed"].GetNumberValue())
	assert.Equal(t, "2026-03-01T12:00:00Z", fields["committed_at"].GetStringValue())

	feeds := fields["feeds"].GetListValue().GetValues()
	require.Len(t, feeds, 2)
	assert.Equal(t, "vuori_products.csv", feeds[1].GetStringValue())
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(logger.NewNopLogger(), &cfg.KafkaCfg{Topic: "catalog.generation.committed"})
	assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
}
