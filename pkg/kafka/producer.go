package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by Producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer wraps Kafka writer.
type Producer struct {
	writer  MessageWriter
	comp    string
	metrics *producerMetrics
}

// NewProducer creates a new Kafka producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "snappy",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
		BatchSize:    100,
		BatchTimeout: 200 * time.Millisecond,
		Registerer:   prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	bal := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            parseCompression(cfg.Compression),
		MaxAttempts:            cfg.MaxAttempts,
		WriteTimeout:           cfg.WriteTimeout,
		ReadTimeout:            cfg.ReadTimeout,
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, cfg.Compression, cfg.Registerer), nil
}

// NewProducerWithWriter builds a producer on an existing writer.
func NewProducerWithWriter(w MessageWriter, compression string, reg prometheus.Registerer) *Producer {
	return &Producer{writer: w, comp: compression, metrics: metricsFor(reg)}
}

// Publish sends a message to the specified topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	start := time.Now()
	v, err := encodeValue(value)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   key,
		Value: v,
		Time:  time.Now(),
	}

	err = p.writer.WriteMessages(ctx, msg)
	p.metrics.observe(topic, p.comp, int64(len(v)), 1, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

// PublishBatch sends multiple messages to the specified topic.
func (p *Producer) PublishBatch(ctx context.Context, topic string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	start := time.Now()
	msgs := make([]kafka.Message, 0, len(messages))
	var totalBytes int64
	for _, m := range messages {
		v, err := encodeValue(m.Value)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Topic: topic,
			Key:   m.Key,
			Value: v,
			Time:  time.Now(),
		})
		totalBytes += int64(len(v))
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	p.metrics.observe(topic, p.comp, totalBytes, len(messages), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka publish batch %s: %w", topic, err)
	}
	return nil
}

// Close closes the producer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// Message represents a Kafka message.
type Message struct {
	Key   []byte
	Value interface{}
}

func encodeValue(value interface{}) ([]byte, error) {
	switch val := value.(type) {
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	default:
		v, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return v, nil
	}
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}

type producerMetrics struct {
	msgs    *prometheus.CounterVec
	errs    *prometheus.CounterVec
	bytes   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	metricsMu    sync.Mutex
	metricsByReg = map[prometheus.Registerer]*producerMetrics{}
)

// metricsFor registers producer collectors once per registerer.
func metricsFor(reg prometheus.Registerer) *producerMetrics {
	if reg == nil {
		return nil
	}
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if m, ok := metricsByReg[reg]; ok {
		return m
	}
	f := promauto.With(reg)
	m := &producerMetrics{
		msgs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_kafka_producer_messages_total",
				Help: "Total messages published to Kafka",
			},
			[]string{"topic", "compression", "result"},
		),
		errs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_kafka_producer_errors_total",
				Help: "Total producer errors",
			},
			[]string{"topic"},
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradepilot_kafka_producer_bytes_total",
				Help: "Total payload bytes published",
			},
			[]string{"topic", "compression"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradepilot_kafka_producer_publish_seconds",
				Help:    "Publish latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
	}
	metricsByReg[reg] = m
	return m
}

func (m *producerMetrics) observe(topic, comp string, bytes int64, count int, dur time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		m.errs.WithLabelValues(topic).Inc()
	}
	m.msgs.WithLabelValues(topic, comp, result).Add(float64(count))
	m.bytes.WithLabelValues(topic, comp).Add(float64(bytes))
	m.latency.WithLabelValues(topic).Observe(dur.Seconds())
}
