package events

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/paymentsaga/payment-saga/pkg/kafka"
	"github.com/paymentsaga/payment-saga/pkg/logger"
	"github.com/paymentsaga/payment-saga/pkg/retry"
)

// Handler processes a single decoded event. A nil return acknowledges
// the message; an error counts against the per-delivery retry budget.
type Handler func(ctx context.Context, env *Envelope) error

// BusConsumer is the consumer surface the listener needs.
// *kafka.Consumer satisfies it.
type BusConsumer interface {
	Poll(ctx context.Context) ([]*kafka.Record, error)
	CommitRecords(ctx context.Context, records []*kafka.Record) error
	Close()
}

// ListenerConfig holds listener configuration
type ListenerConfig struct {
	// Name identifies the listener in logs
	Name string
	// WorkerCount is the number of concurrent processing workers
	WorkerCount int
	// RetryConfig governs per-delivery handler retries; defaults to the
	// handler policy (2s base, 2x multiplier, 30s cap, 3 retries)
	RetryConfig *retry.Config
}

// Listener runs the consume-process-publish loop shared by all
// participants: decode, dispatch by eventType, retry with backoff,
// dead-letter on exhaustion, and commit only after success.
type Listener struct {
	consumer BusConsumer
	dlq      *DeadLetterPublisher
	handlers map[EventType]Handler
	retrier  *retry.Retrier
	config   *ListenerConfig
	log      *logger.Logger

	wg      sync.WaitGroup
	stopCh  chan struct{}
	mu      sync.RWMutex
	running bool
}

// NewListener creates a Listener
func NewListener(consumer BusConsumer, dlq *DeadLetterPublisher, cfg *ListenerConfig) *Listener {
	if cfg == nil {
		cfg = &ListenerConfig{}
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 5
	}
	retryCfg := cfg.RetryConfig
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}

	return &Listener{
		consumer: consumer,
		dlq:      dlq,
		handlers: make(map[EventType]Handler),
		retrier:  retry.New(retryCfg),
		config:   cfg,
		log:      logger.Get().With("listener", cfg.Name),
		stopCh:   make(chan struct{}),
	}
}

// On registers a handler for an event type. Events with no registered
// handler are acknowledged without side effects.
func (l *Listener) On(eventType EventType, handler Handler) {
	l.handlers[eventType] = handler
}

// Start begins polling and processing. Handlers must be registered
// before Start is called.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return fmt.Errorf("listener is already running")
	}
	l.running = true
	l.mu.Unlock()

	l.log.Info("starting listener", "workers", l.config.WorkerCount)

	// One queue per worker, records routed by topic/partition. All
	// records of a partition land on the same worker, so partition order
	// is preserved and offsets commit strictly in order: a later offset
	// is never committed while an earlier one of the same partition is
	// still in flight.
	queues := make([]chan *kafka.Record, l.config.WorkerCount)
	for i := range queues {
		queues[i] = make(chan *kafka.Record, 64)
		l.wg.Add(1)
		go l.worker(ctx, i, queues[i])
	}

	l.wg.Add(1)
	go l.poll(ctx, queues)

	return nil
}

func (l *Listener) poll(ctx context.Context, queues []chan *kafka.Record) {
	defer l.wg.Done()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			l.log.Info("context cancelled, stopping poll")
			return
		case <-l.stopCh:
			l.log.Info("stop signal received, stopping poll")
			return
		default:
			records, err := l.consumer.Poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.log.Error("poll failed", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for _, record := range records {
				q := queues[queueIndex(record, len(queues))]
				select {
				case q <- record:
				case <-ctx.Done():
					return
				case <-l.stopCh:
					return
				}
			}
		}
	}
}

// queueIndex maps a record's topic/partition to a worker queue
func queueIndex(record *kafka.Record, queueCount int) int {
	h := fnv.New32a()
	h.Write([]byte(record.Topic))
	var part [4]byte
	binary.BigEndian.PutUint32(part[:], uint32(record.Partition))
	h.Write(part[:])
	return int(h.Sum32() % uint32(queueCount))
}

func (l *Listener) worker(ctx context.Context, id int, recordsCh <-chan *kafka.Record) {
	defer l.wg.Done()

	for record := range recordsCh {
		if err := l.processRecord(ctx, record); err != nil {
			if errors.Is(err, retry.ErrContextCanceled) {
				// Shutdown: stop before a later record of this partition
				// could commit past the uncommitted one
				return
			}
			l.log.Error("record processing failed", "worker", id, "error", err)
		}
	}
}

// processRecord applies the acknowledgment policy: commit only after
// the handler succeeds, after retry exhaustion the record goes to the
// dead-letter topic and is committed so the partition advances.
func (l *Listener) processRecord(ctx context.Context, record *kafka.Record) error {
	env, err := Decode(record.Value)
	if err != nil {
		// Malformed envelopes can never succeed; dead-letter and advance
		_ = l.dlq.Send(ctx, record, err)
		return l.commit(ctx, record)
	}

	handler, ok := l.handlers[env.EventType]
	if !ok {
		return l.commit(ctx, record)
	}

	result := l.retrier.DoWithCallback(ctx, func(ctx context.Context) error {
		return handler(ctx, env)
	}, func(attempt int, err error, next time.Duration) {
		env.Metadata.RetryCount = attempt
		l.log.Warn("handler failed, retrying",
			"event_type", env.EventType,
			"saga_id", env.SagaID,
			"attempt", attempt,
			"next_interval", next,
			"error", err,
		)
	})

	if result.Err != nil {
		if errors.Is(result.Err, retry.ErrContextCanceled) {
			// Shutdown mid-processing: leave uncommitted for redelivery
			return result.Err
		}
		_ = l.dlq.Send(ctx, record, result.LastError)
		return l.commit(ctx, record)
	}

	l.log.Debug("event handled",
		"event_type", env.EventType,
		"saga_id", env.SagaID,
		"attempts", result.Attempts,
	)
	return l.commit(ctx, record)
}

func (l *Listener) commit(ctx context.Context, record *kafka.Record) error {
	if err := l.consumer.CommitRecords(ctx, []*kafka.Record{record}); err != nil {
		return fmt.Errorf("commit failed for %s[%d]@%d: %w", record.Topic, record.Partition, record.Offset, err)
	}
	return nil
}

// Stop drains workers and closes the consumer
func (l *Listener) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	l.log.Info("stopping listener")
	close(l.stopCh)
	l.wg.Wait()
	l.consumer.Close()
	l.log.Info("listener stopped")
}

// IsRunning reports whether the listener is active
func (l *Listener) IsRunning() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.running
}
