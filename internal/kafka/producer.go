package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/TianYu-Yieldera/dexapi/internal/metrics"
)

type Producer struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	wg       sync.WaitGroup
	done     chan struct{}
}

type ProducerConfig struct {
	Brokers         []string
	MaxRetries      int
	RequiredAcks    sarama.RequiredAcks
	CompressionType sarama.CompressionCodec
}

// ParseCompression maps a config name to a sarama codec. Unknown names
// disable compression.
func ParseCompression(name string) sarama.CompressionCodec {
	switch name {
	case "gzip":
		return sarama.CompressionGZIP
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionNone
	}
}

func NewSaramaConfig(cfg ProducerConfig) *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = cfg.RequiredAcks
	config.Producer.Retry.Max = cfg.MaxRetries
	config.Producer.Compression = cfg.CompressionType
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	return config
}

func NewProducer(cfg ProducerConfig, logger *zap.Logger) (*Producer, error) {
	producer, err := sarama.NewAsyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return NewProducerFrom(producer, logger), nil
}

// NewProducerFrom wraps an existing sarama producer. Its config must have
// Return.Successes and Return.Errors enabled.
func NewProducerFrom(producer sarama.AsyncProducer, logger *zap.Logger) *Producer {
	p := &Producer{
		producer: producer,
		logger:   logger.Named("kafka"),
		done:     make(chan struct{}),
	}

	p.wg.Add(2)
	go p.handleSuccesses()
	go p.handleErrors()

	return p
}

func (p *Producer) handleSuccesses() {
	defer p.wg.Done()
	for {
		select {
		case msg, ok := <-p.producer.Successes():
			if !ok {
				return
			}
			if msg != nil {
				metrics.KafkaMessagesProduced.WithLabelValues(msg.Topic).Inc()
				if sent, ok := msg.Metadata.(time.Time); ok {
					metrics.KafkaProduceLatency.WithLabelValues(msg.Topic).Observe(time.Since(sent).Seconds())
				}
				p.logger.Debug("message sent successfully",
					zap.String("topic", msg.Topic),
					zap.Int32("partition", msg.Partition),
					zap.Int64("offset", msg.Offset))
			}
		case <-p.done:
			return
		}
	}
}

func (p *Producer) handleErrors() {
	defer p.wg.Done()
	for {
		select {
		case err, ok := <-p.producer.Errors():
			if !ok {
				return
			}
			if err != nil {
				metrics.KafkaProduceErrors.WithLabelValues(err.Msg.Topic).Inc()
				p.logger.Error("failed to send message",
					zap.String("topic", err.Msg.Topic),
					zap.Error(err.Err))
			}
		case <-p.done:
			return
		}
	}
}

// Send publishes value as JSON.
func (p *Producer) Send(ctx context.Context, topic string, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.SendBytes(ctx, topic, key, data)
}

// SendBytes publishes an already encoded payload, e.g. Avro binary.
func (p *Producer) SendBytes(ctx context.Context, topic string, key string, data []byte) error {
	msg := &sarama.ProducerMessage{
		Topic:    topic,
		Key:      sarama.StringEncoder(key),
		Value:    sarama.ByteEncoder(data),
		Metadata: time.Now(),
	}

	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes pending messages before stopping the result handlers.
func (p *Producer) Close() error {
	err := p.producer.Close()
	close(p.done)
	p.wg.Wait()
	return err
}
