package channel

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimvieware/phaseflow/transport"
)

func TestRegister(t *testing.T) {
	original := transport.DefaultRegistry
	transport.DefaultRegistry = transport.NewRegistry()
	defer func() { transport.DefaultRegistry = original }()

	Register()

	caps := transport.GetCapabilities(TransportName)
	assert.Equal(t, "channel", caps.Name)
	assert.True(t, caps.SupportsAck)
	assert.True(t, caps.SupportsNack)
	assert.False(t, caps.DiscardsOnNack)
	assert.Equal(t, caps, transport.GetCapabilities("gochannel"))
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, transport.ChannelCapabilities, Capabilities())
}

func TestBuild(t *testing.T) {
	t.Run("publisher and subscriber share one channel", func(t *testing.T) {
		tr, err := Build(context.Background(), &mockConfig{}, watermill.NopLogger{})
		require.NoError(t, err)
		defer func() { _ = tr.Close() }()

		require.NoError(t, tr.Publisher.Publish("jobs.submitted", message.NewMessage("1", []byte(`{"job_id":"abc"}`))))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		messages, err := tr.Subscriber.Subscribe(ctx, "jobs.submitted")
		require.NoError(t, err)

		select {
		case msg := <-messages:
			assert.Equal(t, `{"job_id":"abc"}`, string(msg.Payload))
			msg.Ack()
		case <-time.After(5 * time.Second):
			t.Fatal("message published before subscribing was not delivered")
		}
	})

	t.Run("uses custom factory", func(t *testing.T) {
		originalFactory := Factory
		defer func() { Factory = originalFactory }()

		mockPub := &mockPublisher{}
		mockSub := &mockSubscriber{}
		Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
			assert.True(t, cfg.Persistent)
			return mockPub, mockSub
		}

		tr, err := Build(context.Background(), &mockConfig{}, nil)
		require.NoError(t, err)
		assert.Equal(t, mockPub, tr.Publisher)
		assert.Equal(t, mockSub, tr.Subscriber)
		assert.Nil(t, tr.Closer)
	})
}

type mockConfig struct{}

func (m *mockConfig) GetPubSubSystem() string             { return "channel" }
func (m *mockConfig) GetServiceName() string              { return "test" }
func (m *mockConfig) GetRabbitMQURL() string              { return "" }
func (m *mockConfig) GetHeartbeat() time.Duration         { return 0 }
func (m *mockConfig) GetConnectionTimeout() time.Duration { return 0 }
func (m *mockConfig) GetConnectMaxRetries() int           { return 0 }
func (m *mockConfig) GetConnectRetryDelay() time.Duration { return 0 }

type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
