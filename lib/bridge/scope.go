package bridge

import (
	"sync"
)

// Scope ties listener registrations to a lifetime. Acquire subscriptions
// through the scope while it is open, then release all of them with one
// Close when the owning component goes away. This keeps subscribe/cancel
// pairs balanced structurally instead of by convention.
type Scope struct {
	mu      sync.Mutex
	cancels []func()
	closed  bool
}

// NewScope creates an open scope.
func NewScope() *Scope {
	return &Scope{}
}

// Listen subscribes fn through the given capability and retains the cancel
// function until the scope closes. Listening on a closed scope is a no-op.
func (s *Scope) Listen(subscribe SubscribeFunc, fn func(payload string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.cancels = append(s.cancels, subscribe(fn))
}

// Close releases every registration acquired through this scope. Closing
// more than once is a no-op.
func (s *Scope) Close() {
	s.mu.Lock()
	cancels := s.cancels
	s.cancels = nil
	s.closed = true
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// Active returns the number of registrations the scope currently holds.
func (s *Scope) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancels)
}
