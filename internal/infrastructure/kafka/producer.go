package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
	"github.com/DRSN-tech/style-catalog/internal/usecase"
	"github.com/DRSN-tech/style-catalog/pkg/e"
	"github.com/DRSN-tech/style-catalog/pkg/logger"
	"github.com/jimlawless/whereami"
	"github.com/segmentio/kafka-go"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Producer публикует события о зафиксированных поколениях каталога.
type Producer struct {
	writer *kafka.Writer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: KAFKA_BROKERS", e.ErrIncorrectEnvVariable))
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    1,
		WriteTimeout: 10 * time.Second,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Warnf("Kafka producer error: %s", err.Error())
			}
		},
	}

	return &Producer{
		writer: writer,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// PublishGenerationCommitted отправляет событие с ключом generation_id.
func (p *Producer) PublishGenerationCommitted(ctx context.Context, event *usecase.GenerationCommittedEvent) error {
	value, err := GetPayloadBytes(event)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.GenerationID),
		Value: value,
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	p.logger.Infof("published generation %s event to %s", event.GenerationID, p.cfg.Topic)
	return nil
}

func (p *Producer) EnsureTopic(timeout time.Duration) error {
	conn, err := kafka.Dial(p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions(p.cfg.Topic)
	if err == nil && len(partitions) > 0 {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		err := conn.CreateTopics(kafka.TopicConfig{
			Topic:             p.cfg.Topic,
			NumPartitions:     p.cfg.Partitions,
			ReplicationFactor: p.cfg.ReplicationFactor,
		})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), fmt.Errorf("failed to create topic %s: %w", p.cfg.Topic, err))
		}
		return nil
	case <-time.After(timeout):
		_ = conn.Close()
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("timeout: %v, topic: %s", timeout, p.cfg.Topic))
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// GetPayloadBytes кодирует событие в protobuf Struct.
func GetPayloadBytes(event *usecase.GenerationCommittedEvent) ([]byte, error) {
	feeds := make([]any, 0, len(event.Feeds))
	for _, f := range event.Feeds {
		feeds = append(feeds, f)
	}

	payload, err := structpb.NewStruct(map[string]any{
		"event_id":        event.EventID,
		"generation_id":   event.GenerationID,
		"items_processed": event.ItemsProcessed,
		"feeds":           feeds,
		"committed_at":    event.CommittedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return proto.Marshal(payload)
}
