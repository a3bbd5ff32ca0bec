package transport

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/kimvieware/phaseflow/internal/runtime/config"
	newtransport "github.com/kimvieware/phaseflow/transport"

	// Register the built-in transports.
	_ "github.com/kimvieware/phaseflow/transport/transports"
)

// Transport combines a publisher and subscriber pair produced by a factory.
type Transport = newtransport.Transport

// Capabilities describes the delivery semantics of a transport.
type Capabilities = newtransport.Capabilities

// Factory abstracts how the engine initialises message transports.
type Factory interface {
	Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
	Capabilities(conf *config.Config) Capabilities
}

// DefaultFactory returns the built-in transport factory that uses the
// modular transport registry.
func DefaultFactory() Factory {
	return defaultFactory{}
}

type defaultFactory struct{}

func (defaultFactory) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	if conf == nil {
		return Transport{}, fmt.Errorf("phaseflow: config is required")
	}
	return newtransport.Build(ctx, conf, logger)
}

func (defaultFactory) Capabilities(conf *config.Config) Capabilities {
	if conf == nil {
		return Capabilities{}
	}
	return newtransport.GetCapabilities(conf.PubSubSystem)
}

// FactoryFunc adapts a plain function into a Factory reporting caps.
type FactoryFunc struct {
	BuildFunc func(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error)
	Caps      Capabilities
}

func (f FactoryFunc) Build(ctx context.Context, conf *config.Config, logger watermill.LoggerAdapter) (Transport, error) {
	return f.BuildFunc(ctx, conf, logger)
}

func (f FactoryFunc) Capabilities(*config.Config) Capabilities {
	return f.Caps
}
