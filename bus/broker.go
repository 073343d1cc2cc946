package bus

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360/eventgraph/errors"
)

// Broker is the transport under the bus. *natsclient.Client satisfies it.
//
// Connect makes one connection attempt and must be safe to call again after a
// failure. Subscriptions registered through Subscribe last until Close.
type Broker interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error
	Close(ctx context.Context) error
}

// unconfiguredBroker stands in for a transport whose address is incomplete.
// It never connects, so the bus keeps backing off until shut down.
type unconfiguredBroker struct {
	backend string
	missing []string
}

func (u *unconfiguredBroker) Connect(context.Context) error {
	return errors.WrapTransient(
		fmt.Errorf("%w: %s bus needs %s", errors.ErrMissingConfig, u.backend, strings.Join(u.missing, ", ")),
		"Bus", "Connect", "resolve broker address")
}

func (u *unconfiguredBroker) Publish(context.Context, string, []byte) error {
	return errors.ErrNoConnection
}

func (u *unconfiguredBroker) Subscribe(context.Context, string, func(context.Context, []byte)) error {
	return errors.ErrNoConnection
}

func (u *unconfiguredBroker) Close(context.Context) error { return nil }
