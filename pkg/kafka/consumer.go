package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Record represents a consumed Kafka record
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time

	raw *kgo.Record
}

// Header returns a header value, or empty string if absent
func (r *Record) Header(key string) string {
	return r.Headers[key]
}

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topics        []string
	ClientID      string
	MaxRetries    int
	RetryInterval time.Duration
	PollTimeout   time.Duration
}

// Consumer wraps a franz-go client in a consumer group with manual commits
type Consumer struct {
	client *kgo.Client
	config *ConsumerConfig
}

// NewConsumer creates a new Kafka consumer. Auto-commit is disabled; callers
// must commit records explicitly after processing.
func NewConsumer(ctx context.Context, cfg *ConsumerConfig) (*Consumer, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("consumer group id is required")
	}
	if len(cfg.Topics) == 0 {
		return nil, fmt.Errorf("at least one topic is required")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.BlockRebalanceOnPoll(),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 && cfg.RetryInterval > 0 {
			select {
			case <-ctx.Done():
				client.Close()
				return nil, ctx.Err()
			case <-time.After(cfg.RetryInterval):
			}
		}
		if lastErr = client.Ping(ctx); lastErr == nil {
			return &Consumer{client: client, config: cfg}, nil
		}
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to kafka after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}

// Poll fetches the next batch of records. Returns an empty slice when the
// poll timeout elapses without new records.
func (c *Consumer) Poll(ctx context.Context) ([]*Record, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.config.PollTimeout)
	defer cancel()

	fetches := c.client.PollFetches(pollCtx)
	defer c.client.AllowRebalance()

	if fetches.IsClientClosed() {
		return nil, fmt.Errorf("kafka client is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var fetchErr error
	fetches.EachError(func(topic string, partition int32, err error) {
		if err == context.DeadlineExceeded || err == context.Canceled {
			return
		}
		fetchErr = fmt.Errorf("fetch error on %s[%d]: %w", topic, partition, err)
	})
	if fetchErr != nil {
		return nil, fetchErr
	}

	var records []*Record
	fetches.EachRecord(func(r *kgo.Record) {
		headers := make(map[string]string, len(r.Headers))
		for _, h := range r.Headers {
			headers[h.Key] = string(h.Value)
		}
		records = append(records, &Record{
			Topic:     r.Topic,
			Partition: r.Partition,
			Offset:    r.Offset,
			Key:       r.Key,
			Value:     r.Value,
			Headers:   headers,
			Timestamp: r.Timestamp,
			raw:       r,
		})
	})

	return records, nil
}

// CommitRecords commits the offsets of the given records
func (c *Consumer) CommitRecords(ctx context.Context, records []*Record) error {
	raw := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		if r.raw != nil {
			raw = append(raw, r.raw)
		}
	}
	if len(raw) == 0 {
		return nil
	}
	if err := c.client.CommitRecords(ctx, raw...); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// Close leaves the consumer group and closes the client
func (c *Consumer) Close() {
	c.client.Close()
}
