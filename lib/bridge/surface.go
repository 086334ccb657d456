package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/snowmerak/bridge.go/lib/channel"
	"github.com/snowmerak/bridge.go/lib/wire"
)

// SendFunc sends one payload on the channel it was minted for. It is
// fire-and-forget: the send returns once the message is written, and there is
// no reply and no delivery confirmation.
type SendFunc func(ctx context.Context, payload string) error

// SubscribeFunc registers a listener on the channel it was minted for and
// returns a cancel function releasing exactly that registration. Calling
// cancel more than once is a no-op. Registering twice delivers every message
// twice; pair each SubscribeFunc call with its cancel, or use a Scope.
type SubscribeFunc func(fn func(payload string)) (cancel func())

// Sender mints the send capability for a declared outbound channel. The
// channel identifier is resolved against the closed set here, once; the
// returned function can never reach any other route.
func (e *Endpoint) Sender(id channel.ID) (SendFunc, error) {
	decl, err := e.set.Require(id, channel.Outbound)
	if err != nil {
		return nil, fmt.Errorf("cannot mint sender: %w", err)
	}

	return func(ctx context.Context, payload string) error {
		if e.closed.Load() {
			return fmt.Errorf("endpoint is closed")
		}

		data, err := wire.Data(string(decl.ID), []byte(payload)).MarshalBinary()
		if err != nil {
			return fmt.Errorf("failed to marshal envelope for %s: %w", decl.ID, err)
		}
		return e.link.WriteMessage(ctx, data)
	}, nil
}

// Receiver mints the subscribe capability for a declared inbound channel.
func (e *Endpoint) Receiver(id channel.ID) (SubscribeFunc, error) {
	decl, err := e.set.Require(id, channel.Inbound)
	if err != nil {
		return nil, fmt.Errorf("cannot mint receiver: %w", err)
	}

	return func(fn func(string)) func() {
		token := e.subscribe(decl.ID, fn)

		var once sync.Once
		return func() {
			once.Do(func() {
				e.unsubscribe(decl.ID, token)
			})
		}
	}, nil
}

// MustSender is Sender that panics on error, for channels known at build time.
func (e *Endpoint) MustSender(id channel.ID) SendFunc {
	send, err := e.Sender(id)
	if err != nil {
		panic(err)
	}
	return send
}

// MustReceiver is Receiver that panics on error, for channels known at build time.
func (e *Endpoint) MustReceiver(id channel.ID) SubscribeFunc {
	subscribe, err := e.Receiver(id)
	if err != nil {
		panic(err)
	}
	return subscribe
}
