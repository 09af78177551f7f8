package telemetry

import (
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
)

// MockTransport is a sentry.Transport that captures events in memory
// instead of sending them over the network, so tests can assert on what
// would have been reported without touching a real Sentry project.
type MockTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

// NewMockTransport returns an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Configure implements sentry.Transport; the mock needs no client options.
func (t *MockTransport) Configure(sentry.ClientOptions) {}

// SendEvent implements sentry.Transport by appending to the in-memory log.
func (t *MockTransport) SendEvent(event *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

// Flush implements sentry.Transport; there is nothing buffered to flush.
func (t *MockTransport) Flush(time.Duration) bool { return true }

// Close implements sentry.Transport.
func (t *MockTransport) Close() {}

// Events returns a snapshot of all captured events.
func (t *MockTransport) Events() []*sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*sentry.Event, len(t.events))
	copy(out, t.events)
	return out
}

// Count returns the number of captured events.
func (t *MockTransport) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Last returns the most recently captured event, or nil if none.
func (t *MockTransport) Last() *sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return nil
	}
	return t.events[len(t.events)-1]
}

// FindByMessage returns the first captured event whose Message matches,
// or nil if none matches.
func (t *MockTransport) FindByMessage(message string) *sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.events {
		if e.Message == message {
			return e
		}
	}
	return nil
}

// Clear discards all captured events.
func (t *MockTransport) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = nil
}
