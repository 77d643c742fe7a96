package events

import "sync"

type Handler interface {
	Handle(event Event)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(event Event)

func (f HandlerFunc) Handle(event Event) { f(event) }

// Bus is an in-process publish/subscribe dispatcher. Handlers run
// synchronously on the publishing goroutine, in subscription order.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

// Subscribe registers handler for the given event types.
func (b *Bus) Subscribe(handler Handler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subs[t] = append(b.subs[t], handler)
	}
}

func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs[event.Type()]))
	copy(handlers, b.subs[event.Type()])
	b.mu.RUnlock()

	for _, h := range handlers {
		h.Handle(event)
	}
}
