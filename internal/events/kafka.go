package events

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// flushTimeoutMs bounds how long Close waits for queued messages.
const flushTimeoutMs = 15 * 1000

type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	logger   logrus.FieldLogger
}

func NewKafkaPublisher(broker, topic string, logger logrus.FieldLogger) (*KafkaPublisher, error) {
	config := kafka.ConfigMap{
		"bootstrap.servers": broker,
		"acks":              "all",
	}

	producer, err := kafka.NewProducer(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	p := &KafkaPublisher{producer: producer, topic: topic, logger: logger}
	go p.logEvents()
	return p, nil
}

// logEvents drains producer-level events (errors, stats). Per-message
// delivery reports go to the channel passed to Produce.
func (p *KafkaPublisher) logEvents() {
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.logger.Errorf("Message delivery failed: %v", ev.TopicPartition.Error)
			}
		case kafka.Error:
			p.logger.Errorf("Kafka error: %v", ev)
		}
	}
}

// Publish produces the event and waits for its delivery report.
func (p *KafkaPublisher) Publish(ctx context.Context, e DayArchived) error {
	value, err := e.Encode()
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            e.Key(),
		Value:          value,
	}, delivery)
	if err != nil {
		return fmt.Errorf("produce %s: %w", e.ID, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-delivery:
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver %s: %w", e.ID, m.TopicPartition.Error)
		}
		return nil
	}
}

// Close flushes pending messages and closes the producer.
func (p *KafkaPublisher) Close() {
	if left := p.producer.Flush(flushTimeoutMs); left > 0 {
		p.logger.Warnf("%d events were not delivered before close", left)
	}
	p.producer.Close()
}
