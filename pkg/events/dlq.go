package events

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
)

// DeadLetter is the record written to the dead-letter topic when a
// message exhausts its retries or cannot be decoded. It preserves the
// original record so operators can inspect and replay it.
type DeadLetter struct {
	OriginalTopic     string    `json:"originalTopic"`
	OriginalPartition int32     `json:"originalPartition"`
	OriginalOffset    int64     `json:"originalOffset"`
	Key               string    `json:"key"`
	Value             string    `json:"value"`
	ErrorMessage      string    `json:"errorMessage"`
	StackTrace        string    `json:"stackTrace"`
	Timestamp         time.Time `json:"timestamp"`
}

// DeadLetterPublisher routes poison messages to the dead-letter topic
type DeadLetterPublisher struct {
	producer BusProducer
	topic    string
	log      *logger.Logger
}

// NewDeadLetterPublisher creates a DeadLetterPublisher
func NewDeadLetterPublisher(producer BusProducer) *DeadLetterPublisher {
	return &DeadLetterPublisher{
		producer: producer,
		topic:    TopicDeadLetter,
		log:      logger.Get(),
	}
}

// Send writes the original record to the dead-letter topic. A failed
// DLQ write is logged and reported; callers must still acknowledge the
// poison message so the partition is not blocked.
func (d *DeadLetterPublisher) Send(ctx context.Context, rec *kafka.Record, cause error) error {
	dead := &DeadLetter{
		OriginalTopic:     rec.Topic,
		OriginalPartition: rec.Partition,
		OriginalOffset:    rec.Offset,
		Key:               string(rec.Key),
		Value:             string(rec.Value),
		ErrorMessage:      cause.Error(),
		StackTrace:        string(debug.Stack()),
		Timestamp:         time.Now().UTC(),
	}

	if err := d.producer.ProduceJSON(ctx, d.topic, dead.Key, dead, nil); err != nil {
		d.log.Error("dead-letter write failed",
			"original_topic", rec.Topic,
			"partition", rec.Partition,
			"offset", rec.Offset,
			"cause", cause,
			"error", err,
		)
		return err
	}

	d.log.Warn("message routed to dead-letter",
		"original_topic", rec.Topic,
		"partition", rec.Partition,
		"offset", rec.Offset,
		"cause", cause,
	)
	return nil
}
