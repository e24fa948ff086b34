package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airdash/internal/logger"
)

type MockReader struct {
	mock.Mock
}

func (m *MockReader) Read(ctx context.Context) (kafkaGo.Message, error) {
	args := m.Called(ctx)
	return args.Get(0).(kafkaGo.Message), args.Error(1)
}

func (m *MockReader) Close() error {
	return m.Called().Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error {
	return m.Called(ctx, topic, key, payload, maxRetries).Error(0)
}

func TestKafkaTransport_Stream(t *testing.T) {
	ctx := context.Background()
	reader := &MockReader{}
	reader.On("Read", ctx).Return(kafkaGo.Message{Value: []byte(`not json`)}, nil).Once()
	reader.On("Read", ctx).Return(kafkaGo.Message{Value: []byte(`{"event":"flight_cancelled","data":{"flight":{"id":3}}}`)}, nil).Once()
	reader.On("Read", ctx).Return(kafkaGo.Message{}, errors.New("closed")).Once()
	reader.On("Close").Return(nil).Once()
	pub := &MockPublisher{}
	pub.On("PublishWithRetry", ctx, "airdash.presence", "7", mock.MatchedBy(func(p interface{}) bool {
		env, ok := p.(kafkaEnvelope)
		return ok && env.Event == "join_room" && env.Namespace == "/flights"
	}), 3).Return(nil).Once()

	var topic, group string
	tr := NewKafkaTransport([]string{"k:9092"}, "airdash", pub, logger.Discard())
	tr.newReader = func(g, tp string) MessageReader {
		group, topic = g, tp
		return reader
	}

	stream, err := tr.Dial(ctx, "/flights")
	require.NoError(t, err)
	assert.Equal(t, "airdash.flights", topic)
	assert.Contains(t, group, "airdash-")

	require.NoError(t, stream.Emit(ctx, "join_room", joinRoom{UserID: 7}))

	f, err := stream.Recv(ctx)
	require.NoError(t, err)
	assert.Equal(t, "flight_cancelled", f.Name)
	assert.JSONEq(t, `{"flight":{"id":3}}`, string(f.Payload))

	_, err = stream.Recv(ctx)
	assert.Error(t, err)
	require.NoError(t, stream.Close())

	reader.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestKafkaEnvelope_Encoding(t *testing.T) {
	raw, err := json.Marshal(kafkaEnvelope{Event: "join_room", Data: json.RawMessage(`{"user_id":1}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"join_room","data":{"user_id":1}}`, string(raw))
}
