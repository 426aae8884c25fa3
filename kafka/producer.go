package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/fernandomesquita/stenopro/events"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/resilience"
)

// MessageWriter is the part of *kafkago.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

var errPublisherClosed = errors.New("kafka publisher closed")

// Publisher writes transcription events to the configured topic, keyed by
// transcription so one record's events stay ordered within a partition.
// Write failures are logged and counted, never returned to the pipeline.
type Publisher struct {
	cfg     Config
	log     *logger.Logger
	timeout time.Duration
	retry   resilience.RetryConfig
	failed  atomic.Int64

	mu     sync.Mutex
	writer MessageWriter
	closed bool
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher validates cfg. The kafka-go writer is built on the first
// publish so the service starts while the brokers are down.
func NewPublisher(cfg Config, log *logger.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, errors.New("kafka is disabled")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka publisher config: %w", err)
	}
	return newPublisher(cfg, nil, log), nil
}

// NewPublisherWithWriter publishes through w.
func NewPublisherWithWriter(cfg Config, w MessageWriter, log *logger.Logger) *Publisher {
	cfg.ApplyDefaults()
	return newPublisher(cfg, w, log)
}

func newPublisher(cfg Config, w MessageWriter, log *logger.Logger) *Publisher {
	return &Publisher{
		cfg:     cfg,
		log:     log.WithComponent("kafka.publisher"),
		timeout: cfg.PublishTimeout,
		writer:  w,
		retry: resilience.RetryConfig{
			MaxAttempts:    cfg.Retries,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     time.Second,
			BackoffFactor:  2,
			RetryIf:        Retryable,
		},
	}
}

func (p *Publisher) writerFor() (MessageWriter, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return nil, errPublisherClosed
	case p.writer != nil:
		return p.writer, nil
	}

	transport, err := CreateTransport(&p.cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka transport: %w", err)
	}
	p.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(p.cfg.Brokers...),
		Topic:        p.cfg.Topic,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    p.cfg.BatchSize,
		BatchTimeout: p.cfg.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(p.cfg.RequiredAcks),
		Compression:  ResolveCompression(p.cfg.Compression),
		WriteTimeout: p.cfg.WriteTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			p.log.Error(fmt.Sprintf("writer: "+msg, args...))
		}),
	}
	p.log.Info("Kafka writer created", logger.Fields(
		"brokers", p.cfg.Brokers,
		"topic", p.cfg.Topic,
		"compression", p.cfg.Compression,
	))
	return p.writer, nil
}

// Message encodes e as a Kafka record keyed by transcription ID.
func Message(e events.Event) (kafkago.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafkago.Message{
		Key:   strconv.AppendUint(nil, uint64(e.TranscriptionID), 10),
		Value: value,
		Time:  e.At,
		Headers: []kafkago.Header{
			{Key: "event-type", Value: []byte(e.Type)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}, nil
}

// Publish writes e, retrying transient broker errors.
func (p *Publisher) Publish(ctx context.Context, e events.Event) {
	err := p.write(ctx, e)
	if err == nil {
		return
	}
	p.failed.Add(1)
	p.log.Warn("Event not published", logger.Fields(
		logger.FieldTranscriptionID, e.TranscriptionID,
		"type", e.Type,
		logger.FieldError, err.Error(),
	))
}

func (p *Publisher) write(ctx context.Context, e events.Event) error {
	w, err := p.writerFor()
	if err != nil {
		return err
	}
	msg, err := Message(e)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return resilience.RetryFunc(ctx, p.retry, func(ctx context.Context) error {
		return w.WriteMessages(ctx, msg)
	})
}

// Failed counts events that could not be published.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

// Stats returns writer statistics. They are zero before the first publish.
func (p *Publisher) Stats() kafkago.WriterStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writer == nil {
		return kafkago.WriterStats{}
	}
	return p.writer.Stats()
}

// Close flushes pending batches and closes the writer. Later calls are
// no-ops.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.writer == nil {
		return nil
	}
	p.log.Info("Closing Kafka writer")
	return p.writer.Close()
}
