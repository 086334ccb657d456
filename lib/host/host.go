// Package host implements the privileged side of the bridge.
//
// A Host owns the consumer process (or another transport to it), registers
// handlers for the channels the consumer may send on, and publishes messages
// on the channels the consumer may subscribe to. Both directions are bounded
// by the same closed channel set the consumer endpoint was built with.
package host

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/snowmerak/bridge.go/lib/channel"
	"github.com/snowmerak/bridge.go/lib/frame"
	"github.com/snowmerak/bridge.go/lib/logx"
)

// HandlerFunc processes one message the consumer sent on a declared outbound
// channel. The returned error is logged and counted; it does not stop the
// dispatch loop.
type HandlerFunc func(ctx context.Context, payload string) error

// Host is the privileged endpoint of the bridge.
type Host struct {
	set      *channel.Set
	provider LinkProvider
	link     *frame.Link

	handlerMu sync.RWMutex
	handlers  map[channel.ID]HandlerFunc

	runCtx    context.Context
	cancelRun context.CancelFunc
	closed    atomic.Bool
	wg        sync.WaitGroup

	ready            chan struct{}
	shutdownAck      chan struct{}
	forceShutdownAck chan struct{}

	consumerExited atomic.Bool

	log     zerolog.Logger
	metrics *metrics
}

// Option configures a Host.
type Option func(*Host)

// WithLogger replaces the host's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(h *Host) {
		h.log = log
	}
}

// WithRegisterer registers the host's Prometheus collectors with reg instead
// of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(h *Host) {
		h.metrics = newMetrics(reg)
	}
}

// New creates a Host over the given transport provider and channel set.
func New(set *channel.Set, provider LinkProvider, opts ...Option) *Host {
	h := &Host{
		set:              set,
		provider:         provider,
		handlers:         make(map[channel.ID]HandlerFunc),
		ready:            make(chan struct{}, 1),
		shutdownAck:      make(chan struct{}, 1),
		forceShutdownAck: make(chan struct{}, 1),
		log:              logx.Log.With().Str("component", "host").Logger(),
	}

	for _, opt := range opts {
		opt(h)
	}

	if h.metrics == nil {
		h.metrics = newMetrics(prometheus.NewRegistry())
	}

	return h
}

// RegisterHandler binds fn to a declared outbound channel. Registering again
// replaces the previous handler.
func (h *Host) RegisterHandler(id channel.ID, fn HandlerFunc) error {
	decl, err := h.set.Require(id, channel.Outbound)
	if err != nil {
		return err
	}

	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	h.handlers[decl.ID] = fn
	return nil
}

// UnregisterHandler removes the handler for a channel, if any.
func (h *Host) UnregisterHandler(id channel.ID) {
	h.handlerMu.Lock()
	defer h.handlerMu.Unlock()
	delete(h.handlers, id)
}

func (h *Host) handler(id channel.ID) (HandlerFunc, bool) {
	h.handlerMu.RLock()
	defer h.handlerMu.RUnlock()
	fn, exists := h.handlers[id]
	return fn, exists
}

// Alive reports whether the consumer is still reachable.
func (h *Host) Alive() bool {
	return !h.consumerExited.Load() && !h.closed.Load()
}
