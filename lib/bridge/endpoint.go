// Package bridge implements the consumer-side boundary of the bridge.
//
// An Endpoint owns the transport and is built before any consumer logic
// runs. Consumer code never touches the endpoint or the transport directly:
// it receives bound capabilities (SendFunc, SubscribeFunc) minted for
// channels declared in the closed set, and nothing else.
package bridge

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/snowmerak/bridge.go/lib/channel"
	"github.com/snowmerak/bridge.go/lib/frame"
	"github.com/snowmerak/bridge.go/lib/logx"
	"github.com/snowmerak/bridge.go/lib/wire"
)

// Endpoint is the consumer-process side of the boundary. It dispatches
// inbound data envelopes to registered listeners and answers the host's
// shutdown handshake.
type Endpoint struct {
	link *frame.Link
	set  *channel.Set

	listenerMu sync.RWMutex
	listeners  map[channel.ID]map[string]func(string)

	shutdown     chan struct{}
	shutdownOnce sync.Once
	closed       atomic.Bool

	log zerolog.Logger
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithLogger replaces the endpoint's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Endpoint) {
		e.log = log
	}
}

// Attach builds an Endpoint over the given reader and writer. The channel
// set is the complete enumeration of routes this boundary will ever carry.
func Attach(reader io.Reader, writer io.Writer, set *channel.Set, opts ...Option) *Endpoint {
	e := &Endpoint{
		link:      frame.New(reader, writer),
		set:       set,
		listeners: make(map[channel.ID]map[string]func(string)),
		shutdown:  make(chan struct{}),
		log:       logx.Log.With().Str("component", "bridge").Logger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// AttachStdio builds an Endpoint over standard input and output, the default
// transport when the host forked this process.
func AttachStdio(set *channel.Set, opts ...Option) *Endpoint {
	return Attach(os.Stdin, os.Stdout, set, opts...)
}

// Run announces readiness and dispatches messages until the stream ends, the
// context is cancelled, or the host completes the shutdown handshake.
// Listeners are invoked synchronously on this loop, one message at a time.
func (e *Endpoint) Run(ctx context.Context) error {
	recv, err := e.link.Messages(ctx)
	if err != nil {
		return fmt.Errorf("failed to start message reader: %w", err)
	}

	if err := e.sendControl(ctx, wire.KindReady, []byte("ready")); err != nil {
		return fmt.Errorf("failed to send ready signal: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-recv:
			if !ok {
				// Stream ended: the host is gone.
				return nil
			}

			var envelope wire.Envelope
			if err := envelope.UnmarshalBinary(msg.Data); err != nil {
				e.log.Debug().Err(err).Msg("dropping malformed envelope")
				continue
			}

			switch envelope.Kind {
			case wire.KindData:
				e.dispatch(&envelope)

			case wire.KindShutdown:
				e.markShutdown()
				if err := e.sendControl(ctx, wire.KindShutdownAck, []byte("shutting down")); err != nil {
					e.log.Debug().Err(err).Msg("failed to acknowledge shutdown")
				}
				return nil

			case wire.KindForceShutdown:
				e.markShutdown()
				if err := e.sendControl(ctx, wire.KindForceShutdownAck, []byte("force shutting down")); err != nil {
					e.log.Debug().Err(err).Msg("failed to acknowledge force shutdown")
				}
				return nil

			default:
				// Control kinds that only travel consumer-to-host are
				// ignored when echoed back.
				e.log.Debug().Str("kind", envelope.Kind.String()).Msg("ignoring unexpected envelope")
			}
		}
	}
}

// dispatch delivers one data envelope to every listener registered for its
// channel. Undeclared channels and channels with no listener are no-ops.
func (e *Endpoint) dispatch(envelope *wire.Envelope) {
	id := channel.ID(envelope.Channel)
	if _, err := e.set.Require(id, channel.Inbound); err != nil {
		e.log.Debug().Str("channel", envelope.Channel).Msg("dropping envelope for undeclared channel")
		return
	}

	e.listenerMu.RLock()
	registered := e.listeners[id]
	fns := make([]func(string), 0, len(registered))
	for _, fn := range registered {
		fns = append(fns, fn)
	}
	e.listenerMu.RUnlock()

	// Listeners see the payload only; sequence numbers and envelope kind
	// stay below the boundary.
	payload := string(envelope.Payload)
	for _, fn := range fns {
		fn(payload)
	}
}

// sendControl sends a control envelope to the host.
func (e *Endpoint) sendControl(ctx context.Context, kind wire.Kind, payload []byte) error {
	data, err := wire.Control(kind, payload).MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", kind, err)
	}
	return e.link.WriteMessage(ctx, data)
}

func (e *Endpoint) markShutdown() {
	e.shutdownOnce.Do(func() {
		close(e.shutdown)
	})
}

// ShuttingDown reports whether the host has requested shutdown.
func (e *Endpoint) ShuttingDown() bool {
	select {
	case <-e.shutdown:
		return true
	default:
		return false
	}
}

// Close marks the endpoint closed and discards transport state. It does not
// close the underlying reader or writer.
func (e *Endpoint) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("endpoint already closed")
	}
	return e.link.Close()
}

// subscribe registers fn for a declared inbound channel and returns the
// registration token.
func (e *Endpoint) subscribe(id channel.ID, fn func(string)) string {
	token := uuid.NewString()

	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	if _, exists := e.listeners[id]; !exists {
		e.listeners[id] = make(map[string]func(string))
	}
	e.listeners[id][token] = fn

	return token
}

// unsubscribe removes one registration. Unknown tokens are a no-op, which
// makes cancel functions safe to call more than once.
func (e *Endpoint) unsubscribe(id channel.ID, token string) {
	e.listenerMu.Lock()
	defer e.listenerMu.Unlock()
	if registered, exists := e.listeners[id]; exists {
		delete(registered, token)
		if len(registered) == 0 {
			delete(e.listeners, id)
		}
	}
}

// listenerCount returns the number of active registrations for a channel.
func (e *Endpoint) listenerCount(id channel.ID) int {
	e.listenerMu.RLock()
	defer e.listenerMu.RUnlock()
	return len(e.listeners[id])
}
