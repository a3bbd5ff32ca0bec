// Package transports registers the built-in transports (channel and rabbitmq)
// with the default registry when imported.
package transports

import (
	_ "github.com/kimvieware/phaseflow/transport/channel"
	_ "github.com/kimvieware/phaseflow/transport/rabbitmq"
)
