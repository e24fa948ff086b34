package notify

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
)

// LogSink writes notifications to the log at a level matching their kind.
type LogSink struct {
	logger logrus.FieldLogger
}

func NewLogSink(logger logrus.FieldLogger) *LogSink {
	return &LogSink{logger: logger.WithField("component", "toast")}
}

func (s *LogSink) Deliver(_ context.Context, n Notification) error {
	entry := s.logger.WithFields(logrus.Fields{"id": n.ID, "title": n.Title})
	switch n.Level {
	case LevelError:
		entry.Error(n.Body)
	case LevelWarning:
		entry.Warn(n.Body)
	default:
		entry.Info(n.Body)
	}
	return nil
}

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// KafkaSink forwards notifications to a topic, keyed by the viewer, so other
// channels (mail, push) can pick them up.
type KafkaSink struct {
	publisher Publisher
	topic     string
	viewer    func() int64
}

func NewKafkaSink(publisher Publisher, topic string, viewer func() int64) *KafkaSink {
	return &KafkaSink{publisher: publisher, topic: topic, viewer: viewer}
}

// Relayed is the record KafkaSink publishes.
type Relayed struct {
	Notification
	UserID int64 `json:"user_id,omitempty"`
}

func (s *KafkaSink) Deliver(ctx context.Context, n Notification) error {
	userID := s.viewer()
	return s.publisher.PublishWithRetry(ctx, s.topic, strconv.FormatInt(userID, 10), Relayed{Notification: n, UserID: userID}, 3)
}
