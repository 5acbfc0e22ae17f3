package cart

import "sync"

// Event describes the cart after a mutation, for badge/indicator consumers.
type Event struct {
	Items     []LineItem
	ItemCount int
}

// Notifier fans a cart-changed event out to subscribers. Publishing is
// fire-and-forget: a subscriber cannot fail a cart operation.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

// NewNotifier builds an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: map[int]func(Event){}}
}

// Subscribe registers a listener and returns its unsubscribe function.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	if fn == nil {
		return func() {}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *Notifier) publish(event Event) {
	n.mu.Lock()
	listeners := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		listeners = append(listeners, fn)
	}
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}
}
