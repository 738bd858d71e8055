package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// RecordProcessor handles one stream record. A nil value marks a tombstone;
// processors must treat it as ignored and return nil so the offset advances.
// A returned error aborts the current batch: the offset is not committed and
// the records are redelivered.
type RecordProcessor interface {
	Process(ctx context.Context, value []byte) error
}

// Consumer wraps a sarama consumer group for a single topic. Offsets are
// committed manually, only after the processor has handled a record, so a
// crash mid-batch replays from the last committed offset (at-least-once).
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler sarama.ConsumerGroupHandler
	logger  *slog.Logger
}

// ConsumerGroupID derives a per-topic group id. Each consumer subscribes to a
// single topic; sharing one group id across them would put heterogeneous
// members in the same group and rebalance all of them whenever one joins or
// leaves.
func ConsumerGroupID(base, topic string) string {
	return base + "." + topic
}

// NewConsumer creates a consumer group for the topic.
func NewConsumer(
	brokers []string,
	groupID string,
	topic string,
	processor RecordProcessor,
	logger *slog.Logger,
) (*Consumer, error) {
	cfg := sarama.NewConfig()

	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	// Commit by hand after successful processing only.
	cfg.Consumer.Offsets.AutoCommit.Enable = false

	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{
		sarama.NewBalanceStrategyRange(),
	}
	cfg.Consumer.Group.Session.Timeout = 30 * time.Second
	cfg.Consumer.Group.Heartbeat.Interval = 3 * time.Second

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}

	h := &groupHandler{
		processor: processor,
		logger:    logger.With("topic", topic),
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		handler: h,
		logger:  logger.With("topic", topic),
	}, nil
}

// Start runs the consume loop until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("consumer group error", "error", err)
		}
	}()

	for {
		err := c.group.Consume(ctx, []string{c.topic}, c.handler)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("consume loop error", "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

// Close shuts down the consumer group.
func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	processor RecordProcessor
	logger    *slog.Logger
}

func (h *groupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(
	session sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	for kafkaMsg := range claim.Messages() {
		if err := h.processor.Process(session.Context(), kafkaMsg.Value); err != nil {
			h.logger.Error("record processing failed, batch will be redelivered",
				"partition", kafkaMsg.Partition,
				"offset", kafkaMsg.Offset,
				"error", err,
			)
			// Offset not marked or committed: the batch is retried verbatim.
			return err
		}

		// Only after success:
		session.MarkMessage(kafkaMsg, "")
		session.Commit()
	}
	return nil
}
