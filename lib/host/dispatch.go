package host

import (
	"context"
	"fmt"
	"time"

	"github.com/snowmerak/bridge.go/lib/channel"
	"github.com/snowmerak/bridge.go/lib/wire"
)

// handlerTimeout bounds a single handler invocation.
const handlerTimeout = 30 * time.Second

// Publish sends one payload to the consumer on a declared inbound channel.
// It is fire-and-forget; whether any listener is registered on the consumer
// side is invisible to the host.
func (h *Host) Publish(ctx context.Context, id channel.ID, payload string) error {
	if h.closed.Load() {
		return fmt.Errorf("host is closed")
	}
	if h.link == nil {
		return fmt.Errorf("host not started")
	}

	decl, err := h.set.Require(id, channel.Inbound)
	if err != nil {
		return err
	}

	data, err := wire.Data(string(decl.ID), []byte(payload)).MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope for %s: %w", decl.ID, err)
	}

	if err := h.link.WriteMessage(ctx, data); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", decl.ID, err)
	}

	h.metrics.published.WithLabelValues(string(decl.ID)).Inc()
	return nil
}

// sendControl sends a control envelope to the consumer.
func (h *Host) sendControl(ctx context.Context, kind wire.Kind, payload []byte) error {
	data, err := wire.Control(kind, payload).MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal %s envelope: %w", kind, err)
	}
	return h.link.WriteMessage(ctx, data)
}

// handleMessages reads envelopes from the consumer and dispatches them until
// the run context is cancelled or the stream ends.
func (h *Host) handleMessages() {
	defer h.wg.Done()

	recv, err := h.link.Messages(h.runCtx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to start message reader")
		return
	}

	for {
		select {
		case <-h.runCtx.Done():
			return
		case msg, ok := <-recv:
			if !ok {
				return
			}

			var envelope wire.Envelope
			if err := envelope.UnmarshalBinary(msg.Data); err != nil {
				h.log.Debug().Err(err).Msg("dropping malformed envelope")
				continue
			}

			switch envelope.Kind {
			case wire.KindReady:
				select {
				case h.ready <- struct{}{}:
				default:
				}

			case wire.KindShutdownAck:
				select {
				case h.shutdownAck <- struct{}{}:
				default:
				}

			case wire.KindForceShutdownAck:
				select {
				case h.forceShutdownAck <- struct{}{}:
				default:
				}

			case wire.KindData:
				h.dispatch(&envelope)

			default:
				h.log.Debug().Str("kind", envelope.Kind.String()).Msg("ignoring unexpected envelope")
			}
		}
	}
}

// dispatch routes one data envelope to the handler registered for its
// channel. The handler runs on its own goroutine so a slow handler cannot
// stall the dispatch loop.
func (h *Host) dispatch(envelope *wire.Envelope) {
	id := channel.ID(envelope.Channel)

	if _, err := h.set.Require(id, channel.Outbound); err != nil {
		h.metrics.dropped.WithLabelValues(envelope.Channel).Inc()
		h.log.Debug().Str("channel", envelope.Channel).Msg("dropping envelope for undeclared channel")
		return
	}

	h.metrics.received.WithLabelValues(envelope.Channel).Inc()

	fn, exists := h.handler(id)
	if !exists {
		h.metrics.dropped.WithLabelValues(envelope.Channel).Inc()
		h.log.Debug().Str("channel", envelope.Channel).Msg("no handler registered, dropping")
		return
	}

	payload := string(envelope.Payload)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ctx, cancel := context.WithTimeout(h.runCtx, handlerTimeout)
		defer cancel()

		if err := fn(ctx, payload); err != nil {
			h.metrics.handlerErrors.WithLabelValues(string(id)).Inc()
			h.log.Error().Err(err).Str("channel", string(id)).Msg("handler failed")
		}
	}()
}
