package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	configpkg "github.com/kimvieware/phaseflow/internal/runtime/config"
	"github.com/kimvieware/phaseflow/internal/runtime/envelope"
	loggingpkg "github.com/kimvieware/phaseflow/internal/runtime/logging"
	transportpkg "github.com/kimvieware/phaseflow/internal/runtime/transport"
	"github.com/kimvieware/phaseflow/transport"
)

type publishedMessage struct {
	queue string
	msg   *message.Message
}

type testPublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	attempts  int
	// failFirst fails that many Publish calls before succeeding.
	failFirst int
	err       error
	closed    bool
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.err != nil && (p.failFirst == 0 || p.attempts <= p.failFirst) {
		return p.err
	}
	for _, msg := range messages {
		p.published = append(p.published, publishedMessage{queue: topic, msg: msg})
	}
	return nil
}

func (p *testPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *testPublisher) Messages() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	clone := make([]publishedMessage, len(p.published))
	copy(clone, p.published)
	return clone
}

func (p *testPublisher) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func (p *testPublisher) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

type testSubscriber struct {
	mu           sync.Mutex
	deliveries   chan *message.Message
	initialized  []string
	subscribed   []string
	initErr      error
	subscribeErr error
	closed       bool
	// unsettled holds deliveries handed to the consumer. Like the AMQP
	// subscriber, Close nacks the ones still unsettled unless the connection
	// was dropped first, in which case the broker requeues them.
	unsettled      []*message.Message
	requeued       []*message.Message
	connectionLost bool
}

func newTestSubscriber() *testSubscriber {
	return &testSubscriber{deliveries: make(chan *message.Message, 16)}
}

func (s *testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.subscribed = append(s.subscribed, topic)

	out := make(chan *message.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-s.deliveries:
				s.mu.Lock()
				s.unsettled = append(s.unsettled, msg)
				s.mu.Unlock()
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *testSubscriber) SubscribeInitialize(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initErr != nil {
		return s.initErr
	}
	s.initialized = append(s.initialized, topic)
	return nil
}

func (s *testSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if !s.connectionLost {
		for _, msg := range s.pendingLocked() {
			msg.Nack()
		}
	}
	s.unsettled = nil
	return nil
}

// dropConnection models the broker losing the consumer connection: every
// unsettled delivery goes back to the queue.
func (s *testSubscriber) dropConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectionLost = true
	s.requeued = append(s.requeued, s.pendingLocked()...)
	s.unsettled = nil
}

func (s *testSubscriber) pendingLocked() []*message.Message {
	var pending []*message.Message
	for _, msg := range s.unsettled {
		select {
		case <-msg.Acked():
		case <-msg.Nacked():
		default:
			pending = append(pending, msg)
		}
	}
	return pending
}

func (s *testSubscriber) Requeued() []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*message.Message(nil), s.requeued...)
}

// testConnection is the broker connection shared by the fake publisher and
// subscriber.
type testConnection struct {
	sub *testSubscriber
}

func (c testConnection) Abort() error {
	c.sub.dropConnection()
	return nil
}

func (testConnection) Close() error { return nil }

func (s *testSubscriber) Initialized() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.initialized...)
}

func (s *testSubscriber) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// deliver queues a delivery carrying body and returns it so tests can wait on
// its Acked or Nacked channel.
func (s *testSubscriber) deliver(body []byte) *message.Message {
	msg := message.NewMessage(watermill.NewUUID(), body)
	s.deliveries <- msg
	return msg
}

type recordingServiceLogger struct {
	mu     sync.Mutex
	infos  []string
	debugs []string
	errors []string
}

func (r *recordingServiceLogger) With(loggingpkg.LogFields) loggingpkg.ServiceLogger { return r }

func (r *recordingServiceLogger) Debug(msg string, _ loggingpkg.LogFields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debugs = append(r.debugs, msg)
}

func (r *recordingServiceLogger) Info(msg string, _ loggingpkg.LogFields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, msg)
}

func (r *recordingServiceLogger) Error(msg string, _ error, _ loggingpkg.LogFields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}


func (r *recordingServiceLogger) Infos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.infos...)
}

func (r *recordingServiceLogger) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func (r *recordingServiceLogger) debugCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.debugs)
}

func testConfig() *configpkg.Config {
	conf := &configpkg.Config{
		ServiceName:          "validator",
		InputQueue:           "jobs.submitted",
		OutputQueue:          "jobs.validated",
		PubSubSystem:         "channel",
		PublishMaxRetries:    2,
		PublishRetryInterval: time.Millisecond,
	}
	conf.ApplyDefaults()
	return conf
}

// fakeFactory hands out the given publisher and subscriber as a transport.
func fakeFactory(pub *testPublisher, sub *testSubscriber, caps transport.Capabilities) transportpkg.Factory {
	return transportpkg.FactoryFunc{
		BuildFunc: func(context.Context, *configpkg.Config, watermill.LoggerAdapter) (transportpkg.Transport, error) {
			return transportpkg.Transport{Publisher: pub, Subscriber: sub, Closer: testConnection{sub: sub}}, nil
		},
		Caps: caps,
	}
}

func waitAcked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		t.Fatal("delivery was rejected, expected ack")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ack")
	}
}

func waitNacked(t *testing.T, msg *message.Message) {
	t.Helper()
	select {
	case <-msg.Nacked():
	case <-msg.Acked():
		t.Fatal("delivery was acked, expected reject")
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reject")
	}
}

func decodePublished(t *testing.T, pm publishedMessage) envelope.Fields {
	t.Helper()
	f := envelope.Parse(pm.msg.Payload)
	require.NotNil(t, f, "published payload is not a JSON object: %s", pm.msg.Payload)
	return f
}
