// Package producer publishes records to Kafka with franz-go. The consent
// service uses it as the audit event sink.
package producer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultClientID identifies the service to the brokers.
const DefaultClientID = "attrconsent-audit"

// ErrClosed is returned by Produce after Close.
var ErrClosed = errors.New("kafka producer is closed")

// Record is a single message. Headers are sent in key order.
type Record struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Config holds producer settings.
type Config struct {
	Brokers  string // comma separated
	ClientID string
	// Acks is "all", "leader" or "none". Anything weaker than "all" disables
	// idempotent writes.
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	FlushTimeout    time.Duration
}

// DefaultConfig returns the settings used for the audit sink: every record is
// acknowledged by all in-sync replicas before Produce returns.
func DefaultConfig(brokers string) Config {
	return Config{
		Brokers:         brokers,
		ClientID:        DefaultClientID,
		Acks:            "all",
		Retries:         3,
		DeliveryTimeout: 30 * time.Second,
		FlushTimeout:    10 * time.Second,
	}
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var brokers []string
	for b := range strings.SplitSeq(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Producer sends records synchronously.
type Producer struct {
	client       *kgo.Client
	logger       *slog.Logger
	flushTimeout time.Duration
	closed       atomic.Bool
}

// New creates a producer. The client connects lazily, so an unreachable
// broker surfaces on the first Produce or Ping rather than here.
func New(cfg Config, logger *slog.Logger) (*Producer, error) {
	brokers := ParseBrokers(cfg.Brokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(clientID),
		kgo.RecordRetries(cfg.Retries),
		kgo.ProducerLinger(5 * time.Millisecond),
		kgo.AllowAutoTopicCreation(),
	}
	switch cfg.Acks {
	case "none":
		opts = append(opts, kgo.RequiredAcks(kgo.NoAck()), kgo.DisableIdempotentWrite())
	case "leader":
		opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite())
	case "", "all":
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
	default:
		return nil, fmt.Errorf("unknown kafka acks %q", cfg.Acks)
	}
	if cfg.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	flush := cfg.FlushTimeout
	if flush <= 0 {
		flush = 10 * time.Second
	}
	return &Producer{client: client, logger: logger, flushTimeout: flush}, nil
}

// Produce sends rec and waits for its acknowledgement.
func (p *Producer) Produce(ctx context.Context, rec *Record) error {
	if p.closed.Load() {
		return ErrClosed
	}

	keys := make([]string, 0, len(rec.Headers))
	for k := range rec.Headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	headers := make([]kgo.RecordHeader, 0, len(keys))
	for _, k := range keys {
		headers = append(headers, kgo.RecordHeader{Key: k, Value: []byte(rec.Headers[k])})
	}

	results := p.client.ProduceSync(ctx, &kgo.Record{
		Topic:   rec.Topic,
		Key:     rec.Key,
		Value:   rec.Value,
		Headers: headers,
	})
	if err := results.FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", rec.Topic, err)
	}
	return nil
}

// Ping checks that at least one broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("kafka brokers unreachable: %w", err)
	}
	return nil
}

// Healthy reports whether Ping succeeds.
func (p *Producer) Healthy(ctx context.Context) bool {
	return p.Ping(ctx) == nil
}

// Close flushes buffered records and closes the client. It is idempotent.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.flushTimeout)
	defer cancel()
	if err := p.client.Flush(ctx); err != nil {
		p.logger.Warn("kafka producer closed with unflushed records", "error", err)
	}
	p.client.Close()
	return nil
}
