package utilities

import "sync"

// Assessment lifecycle events.
const (
	EventAssessmentSubmitted = "assessment_submitted"
	EventAssessmentReviewed  = "assessment_reviewed"
	EventReportExported      = "report_exported"
)

type EventHandler func(interface{})

type EventBus struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex

	// pending counts running handlers; idle is signalled when it drops to 0.
	pendingMu sync.Mutex
	pending   int
	idle      *sync.Cond
}

func NewEventBus() *EventBus {
	eb := &EventBus{
		handlers: make(map[string][]EventHandler),
	}
	eb.idle = sync.NewCond(&eb.pendingMu)
	return eb
}

func (eb *EventBus) Subscribe(event string, handler EventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[event] = append(eb.handlers[event], handler)
}

func (eb *EventBus) Publish(event string, data interface{}) {
	eb.mu.RLock()
	handlers := append([]EventHandler(nil), eb.handlers[event]...)
	eb.mu.RUnlock()
	if len(handlers) == 0 {
		return
	}

	eb.pendingMu.Lock()
	eb.pending += len(handlers)
	eb.pendingMu.Unlock()

	for _, handler := range handlers {
		go func(h EventHandler) {
			defer eb.done()
			h(data)
		}(handler) // Run handlers asynchronously
	}
}

func (eb *EventBus) done() {
	eb.pendingMu.Lock()
	defer eb.pendingMu.Unlock()
	eb.pending--
	if eb.pending == 0 {
		eb.idle.Broadcast()
	}
}

// Wait blocks until no handler is running, including handlers published
// while waiting. It is safe to publish from other goroutines or from
// handlers during Wait.
func (eb *EventBus) Wait() {
	eb.pendingMu.Lock()
	defer eb.pendingMu.Unlock()
	for eb.pending > 0 {
		eb.idle.Wait()
	}
}

// Global instance
var GlobalEventBus = NewEventBus()
