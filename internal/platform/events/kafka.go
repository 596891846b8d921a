package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"salgsmotor/internal/platform/logger"
)

// KafkaPublisher produces SyncOutcome events as JSON records keyed by
// organization number, so every event for one company lands on the same
// partition in order.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// KafkaOption configures a KafkaPublisher.
type KafkaOption func(*kafkaOptions)

type kafkaOptions struct {
	clientID    string
	logger      *slog.Logger
	ensureTopic bool
	partitions  int32
	replicas    int16
}

// WithClientID sets the Kafka client id.
func WithClientID(id string) KafkaOption {
	return func(o *kafkaOptions) { o.clientID = id }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) KafkaOption {
	return func(o *kafkaOptions) { o.logger = l }
}

// WithEnsureTopic creates the topic at startup when it does not exist.
func WithEnsureTopic(partitions int32, replicas int16) KafkaOption {
	return func(o *kafkaOptions) {
		o.ensureTopic = true
		o.partitions = partitions
		o.replicas = replicas
	}
}

// NewKafkaPublisher connects to brokers and verifies them with a ping.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, opts ...KafkaOption) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	o := kafkaOptions{clientID: "salgsmotor", partitions: 1, replicas: 1}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Discard()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ClientID(o.clientID),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}

	p := &KafkaPublisher{client: client, topic: topic, logger: o.logger}
	if o.ensureTopic {
		if err := p.ensureTopic(ctx, o.partitions, o.replicas); err != nil {
			client.Close()
			return nil, err
		}
	}
	return p, nil
}

func (p *KafkaPublisher) ensureTopic(ctx context.Context, partitions int32, replicas int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicas, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	p.logger.Info("event topic ready", "topic", p.topic)
	return nil
}

// Publish produces one event synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, outcome SyncOutcome) error {
	value, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode sync outcome: %w", err)
	}
	key := outcome.OrgNumber
	if key == "" {
		key = outcome.RecordID
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "run_id", Value: []byte(outcome.RunID)},
			{Key: "status", Value: []byte(outcome.Status)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce sync outcome: %w", err)
	}
	return nil
}

// Close flushes buffered records and closes the client.
func (p *KafkaPublisher) Close() error {
	p.client.Close()
	return nil
}
