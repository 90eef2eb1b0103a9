package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const defaultBuffer = 1024

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues events in memory and writes them from a single background goroutine.
type KafkaPublisher struct {
	w       messageWriter
	inbox   chan kafka.Message
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
	logger  zerolog.Logger
}

// NewKafkaPublisher creates a publisher for topic and starts its writer loop.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return newKafkaPublisher(w, defaultBuffer, logger)
}

func newKafkaPublisher(w messageWriter, buffer int, logger zerolog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		w:       w,
		inbox:   make(chan kafka.Message, buffer),
		done:    make(chan struct{}),
		timeout: 15 * time.Second,
		logger:  logger.With().Str("component", "event-publisher").Logger(),
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for msg := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.w.WriteMessages(ctx, msg); err != nil {
			p.logger.Error().
				Err(err).
				Str("key", string(msg.Key)).
				Msg("failed to publish event")
		}
		cancel()
	}
}

// Publish enqueues events. When the queue is full the event is dropped and logged.
func (p *KafkaPublisher) Publish(_ context.Context, events ...Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}

	for _, ev := range events {
		value, err := json.Marshal(ev)
		if err != nil {
			p.logger.Error().Err(err).Str("type", ev.Type).Msg("failed to encode event")
			continue
		}
		msg := kafka.Message{
			Key:   []byte(ev.OrderID.String()),
			Value: value,
			Time:  ev.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(ev.Type)},
			},
		}
		select {
		case p.inbox <- msg:
		default:
			p.logger.Warn().
				Str("type", ev.Type).
				Str("order_id", ev.OrderID.String()).
				Msg("event queue full, dropping event")
		}
	}
}

// Close stops accepting events, flushes the queue and closes the writer.
func (p *KafkaPublisher) Close() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.inbox)
		p.mu.Unlock()

		<-p.done
		err = p.w.Close()
		p.logger.Info().Msg("event publisher closed")
	})
	return err
}
