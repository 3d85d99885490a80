package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/shida/shida-core/internal/metrics"
)

const (
	sinkKafka = "kafka"

	defaultQueueSize    = 1024
	defaultWriteTimeout = 5 * time.Second
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher emits notifications as JSON events keyed by user id, so
// a user's events stay ordered within a partition.
//
// Notify only enqueues. A single goroutine drains the queue into the
// writer; when the queue is full the event is dropped and logged, so a
// slow or unreachable broker never holds up the caller.
type KafkaPublisher struct {
	writer  MessageWriter
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	queue     chan kafka.Message
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type KafkaOption func(*KafkaPublisher)

// WithQueueSize bounds the number of events waiting for the broker.
func WithQueueSize(n int) KafkaOption {
	return func(p *KafkaPublisher) {
		if n > 0 {
			p.queue = make(chan kafka.Message, n)
		}
	}
}

// WithWriteTimeout bounds a single write to the broker.
func WithWriteTimeout(d time.Duration) KafkaOption {
	return func(p *KafkaPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewKafkaWriter builds the writer for topic. Batches are flushed quickly
// since the publisher already hands messages over one at a time.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// NewKafkaPublisher starts the drain goroutine. Call Close to flush what
// is queued and stop it.
func NewKafkaPublisher(w MessageWriter, logger *slog.Logger, m *metrics.Metrics, opts ...KafkaOption) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:  w,
		logger:  logger,
		metrics: m,
		timeout: defaultWriteTimeout,
		queue:   make(chan kafka.Message, defaultQueueSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) Notify(_ context.Context, n Notification) {
	if p == nil || p.writer == nil {
		return
	}
	n = stamp(n)

	value, err := json.Marshal(n)
	if err != nil {
		p.logger.Warn("failed to encode notification", "event_id", n.EventID, "err", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(n.UserID, 10)),
		Value: value,
		Time:  n.CreatedAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Type)},
		},
	}

	select {
	case <-p.quit:
		p.logger.Warn("notification after publisher close", "event_id", n.EventID, "user_id", n.UserID)
		p.metrics.NotifyLost(sinkKafka, "closed")
		return
	default:
	}

	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("notification queue full, dropping event", "event_id", n.EventID, "user_id", n.UserID)
		p.metrics.NotifyLost(sinkKafka, "queue_full")
	}
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for {
		select {
		case msg := <-p.queue:
			p.write(msg)
		case <-p.quit:
			for {
				select {
				case msg := <-p.queue:
					p.write(msg)
				default:
					return
				}
			}
		}
	}
}

func (p *KafkaPublisher) write(msg kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	typ := headerValue(msg, "type")
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("failed to publish notification", "user_id", string(msg.Key), "type", typ, "err", err)
		p.metrics.NotifyLost(sinkKafka, "write_failed")
		return
	}
	p.metrics.Notified(typ, sinkKafka)
}

// Close stops accepting events, writes what is still queued and waits for
// the drain goroutine. It does not close the underlying writer.
func (p *KafkaPublisher) Close() {
	if p == nil || p.quit == nil {
		return
	}
	p.closeOnce.Do(func() { close(p.quit) })
	<-p.done
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
