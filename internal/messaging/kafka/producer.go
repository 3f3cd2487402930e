package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	headerContentType = "content-type"
	contentTypeJSON   = "application/json"
	defaultMaxRetries = 5
)

// ErrProducerClosed возвращается при публикации после Close.
var ErrProducerClosed = errors.New("kafka producer is closed")

// ProducerConfig — параметры подключения producer'а.
type ProducerConfig struct {
	Brokers    []string
	ClientID   string
	MaxRetries int
}

func (c ProducerConfig) saramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	if c.ClientID != "" {
		config.ClientID = c.ClientID
	}
	retries := c.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	// Событие о заказе не должно теряться и дублироваться брокером:
	// подтверждение всеми ISR и идемпотентный producer.
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = retries
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// Producer публикует JSON-события в Kafka синхронно.
type Producer struct {
	producer sarama.SyncProducer
	logger   *log.Entry
	now      func() time.Time
	closed   bool
}

// NewProducer создаёт producer с настройками по умолчанию.
func NewProducer(brokers []string, clientID string) (*Producer, error) {
	return NewProducerWithConfig(ProducerConfig{Brokers: brokers, ClientID: clientID})
}

// NewProducerWithConfig создаёт producer и подключается к брокерам.
func NewProducerWithConfig(cfg ProducerConfig) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka producer requires at least one broker")
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, cfg.saramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newProducerFromSync(producer), nil
}

func newProducerFromSync(producer sarama.SyncProducer) *Producer {
	return &Producer{
		producer: producer,
		logger:   log.WithField("component", "kafka-producer"),
		now:      time.Now,
	}
}

// PublishEvent публикует событие с ключом партиционирования key. Trace
// context из ctx передаётся в заголовках сообщения.
func (p *Producer) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	if p.closed {
		return ErrProducerClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(payload),
		Headers:   messageHeaders(ctx),
		Timestamp: p.now(),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": topic,
			"key":   key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     topic,
		"key":       key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")
	return nil
}

func messageHeaders(ctx context.Context) []sarama.RecordHeader {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := make([]sarama.RecordHeader, 0, len(carrier)+1)
	headers = append(headers, sarama.RecordHeader{Key: []byte(headerContentType), Value: []byte(contentTypeJSON)})
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return headers
}

// Close закрывает producer. Повторный вызов ничего не делает.
func (p *Producer) Close() error {
	if p == nil || p.closed {
		return nil
	}
	p.closed = true
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
