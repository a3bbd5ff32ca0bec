package transport

import (
	"context"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimvieware/phaseflow/internal/runtime/config"
	"github.com/kimvieware/phaseflow/internal/runtime/logging"
)

func testLogger() watermill.LoggerAdapter {
	return logging.NewWatermillAdapter(logging.Discard())
}

func TestDefaultFactory_Build_Channel(t *testing.T) {
	factory := DefaultFactory()
	cfg := &config.Config{PubSubSystem: "channel"}

	tr, err := factory.Build(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer func() { _ = tr.Close() }()

	assert.NotNil(t, tr.Publisher)
	assert.NotNil(t, tr.Subscriber)
}

func TestDefaultFactory_Build_NilConfig(t *testing.T) {
	_, err := DefaultFactory().Build(context.Background(), nil, testLogger())
	assert.ErrorContains(t, err, "config is required")
}

func TestDefaultFactory_Build_InvalidTransport(t *testing.T) {
	cfg := &config.Config{PubSubSystem: "kafka"}
	_, err := DefaultFactory().Build(context.Background(), cfg, testLogger())
	assert.ErrorContains(t, err, "unknown transport")
}

func TestDefaultFactory_Capabilities(t *testing.T) {
	factory := DefaultFactory()

	assert.True(t, factory.Capabilities(&config.Config{PubSubSystem: "rabbitmq"}).SupportsReject())
	assert.False(t, factory.Capabilities(&config.Config{PubSubSystem: "gochannel"}).DiscardsOnNack)
	assert.Equal(t, Capabilities{}, factory.Capabilities(nil))
}

func TestFactoryFunc(t *testing.T) {
	called := false
	f := FactoryFunc{
		BuildFunc: func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
			called = true
			return Transport{}, nil
		},
		Caps: Capabilities{Name: "fake"},
	}

	_, err := f.Build(context.Background(), &config.Config{}, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "fake", f.Capabilities(nil).Name)
}
