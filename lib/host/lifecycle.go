package host

import (
	"context"
	"fmt"
	"time"

	"github.com/snowmerak/bridge.go/lib/frame"
	"github.com/snowmerak/bridge.go/lib/wire"
)

const (
	readyTimeout         = 10 * time.Second
	shutdownSendTimeout  = 500 * time.Millisecond
	shutdownAckTimeout   = 2 * time.Second
	forceSendTimeout     = 200 * time.Millisecond
	forceAckTimeout      = 500 * time.Millisecond
	goroutineWaitTimeout = 2 * time.Second
)

// Start opens the transport, begins dispatching, and blocks until the
// consumer endpoint announces readiness.
func (h *Host) Start(ctx context.Context) error {
	if h.closed.Load() {
		return fmt.Errorf("host is closed")
	}

	reader, writer, err := h.provider.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open transport: %w", err)
	}
	h.link = frame.New(reader, writer)

	h.runCtx, h.cancelRun = context.WithCancel(ctx)

	h.wg.Add(1)
	go h.handleMessages()

	if waiter, ok := h.provider.(ConsumerWaiter); ok {
		h.wg.Add(1)
		go h.monitorConsumer(waiter)
	}

	if err := h.waitForReady(ctx); err != nil {
		h.cancelRun()
		h.provider.Close()
		return err
	}

	h.log.Info().Msg("consumer boundary is ready")
	return nil
}

// waitForReady blocks until the consumer sends its ready envelope.
func (h *Host) waitForReady(ctx context.Context) error {
	select {
	case <-h.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(readyTimeout):
		return fmt.Errorf("timeout waiting for consumer ready signal")
	}
}

// Close shuts the bridge down gracefully: it asks the consumer to stop,
// waits briefly for the acknowledgment, then tears the transport down.
func (h *Host) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("host already closed")
	}

	if h.link != nil && h.runCtx != nil {
		sendCtx, cancel := context.WithTimeout(context.Background(), shutdownSendTimeout)
		defer cancel()

		if err := h.sendControl(sendCtx, wire.KindShutdown, []byte("graceful shutdown")); err == nil {
			select {
			case <-h.shutdownAck:
			case <-time.After(shutdownAckTimeout):
				h.log.Warn().Msg("timeout waiting for shutdown acknowledgment")
			}
		}
	}

	return h.teardown(goroutineWaitTimeout)
}

// ForceClose shuts the bridge down immediately, giving the consumer only a
// short window to acknowledge.
func (h *Host) ForceClose() error {
	if !h.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("host already closed")
	}

	if h.link != nil && h.runCtx != nil {
		sendCtx, cancel := context.WithTimeout(context.Background(), forceSendTimeout)
		defer cancel()

		if err := h.sendControl(sendCtx, wire.KindForceShutdown, []byte("force shutdown")); err == nil {
			select {
			case <-h.forceShutdownAck:
			case <-time.After(forceAckTimeout):
			}
		}
	}

	return h.teardown(forceAckTimeout)
}

// teardown cancels the dispatch loop, closes the transport, and waits for
// the host's goroutines with a bounded timeout.
func (h *Host) teardown(wait time.Duration) error {
	if h.cancelRun != nil {
		h.cancelRun()
	}

	var closeErr error
	if h.provider != nil {
		closeErr = h.provider.Close()
	}
	if h.link != nil {
		h.link.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wait):
		h.log.Warn().Msg("timeout waiting for host goroutines to finish")
	}

	return closeErr
}

// monitorConsumer watches the consumer process and shuts the host down when
// it exits on its own.
func (h *Host) monitorConsumer(waiter ConsumerWaiter) {
	defer h.wg.Done()

	waiter.Wait()
	h.consumerExited.Store(true)

	if !h.closed.Load() {
		h.log.Warn().Msg("consumer exited unexpectedly")
		h.closed.Store(true)
		if h.cancelRun != nil {
			h.cancelRun()
		}
	}
}
