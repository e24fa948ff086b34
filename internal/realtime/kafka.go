package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/kafka"
)

// MessageReader is the consuming side of a Kafka-backed stream.
type MessageReader interface {
	Read(ctx context.Context) (kafkaGo.Message, error)
	Close() error
}

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// KafkaTransport reads namespace events from <prefix>.<namespace> topics,
// for deployments where the backends relay their socket events to Kafka.
// Each stream joins a fresh consumer group so every view sees every event.
type KafkaTransport struct {
	prefix    string
	publisher Publisher
	newReader func(groupID, topic string) MessageReader
	logger    logrus.FieldLogger
}

func NewKafkaTransport(brokers []string, prefix string, publisher Publisher, logger logrus.FieldLogger) *KafkaTransport {
	return &KafkaTransport{
		prefix:    prefix,
		publisher: publisher,
		newReader: func(groupID, topic string) MessageReader {
			return kafka.NewConsumer(brokers, groupID, topic, kafka.FromLatest())
		},
		logger: logger.WithField("transport", "kafka"),
	}
}

// Topic maps a namespace to its topic name.
func (t *KafkaTransport) Topic(namespace string) string {
	return t.prefix + "." + strings.TrimPrefix(namespace, "/")
}

func (t *KafkaTransport) Dial(_ context.Context, namespace string) (Stream, error) {
	groupID := "airdash-" + uuid.NewString()
	topic := t.Topic(namespace)
	t.logger.WithFields(logrus.Fields{"topic": topic, "group": groupID}).Debug("subscribing")
	return &kafkaStream{
		reader:    t.newReader(groupID, topic),
		publisher: t.publisher,
		presence:  t.prefix + ".presence",
		namespace: namespace,
	}, nil
}

type kafkaEnvelope struct {
	Event     string          `json:"event"`
	Namespace string          `json:"namespace,omitempty"`
	Data      json.RawMessage `json:"data"`
}

type kafkaStream struct {
	reader    MessageReader
	publisher Publisher
	presence  string
	namespace string
}

func (s *kafkaStream) Recv(ctx context.Context) (Frame, error) {
	for {
		msg, err := s.reader.Read(ctx)
		if err != nil {
			return Frame{}, err
		}
		var env kafkaEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil || env.Event == "" {
			continue
		}
		return Frame{Name: env.Event, Payload: env.Data}, nil
	}
}

func (s *kafkaStream) Emit(ctx context.Context, name string, payload interface{}) error {
	if s.publisher == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	key := s.namespace
	var join joinRoom
	if json.Unmarshal(data, &join) == nil && join.UserID != 0 {
		key = strconv.FormatInt(join.UserID, 10)
	}
	return s.publisher.PublishWithRetry(ctx, s.presence, key, kafkaEnvelope{Event: name, Namespace: s.namespace, Data: data}, 3)
}

func (s *kafkaStream) Close() error {
	return s.reader.Close()
}
