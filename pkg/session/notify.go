package session

import (
	"slices"
	"sync"
	"time"
)

// Change describes one state transition.
type Change struct {
	From   State
	To     State
	Reason string
	Err    error
	At     time.Time
}

// Observer is called after state transitions, outside the controller lock
// and in transition order. Observers may call back into the controller.
type Observer func(Change)

// Subscription is an active observer registration.
type Subscription struct {
	id       uint64
	notifier *notifier
}

// Unsubscribe removes the observer. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.notifier != nil {
		s.notifier.unsubscribe(s.id)
	}
}

type notifier struct {
	mu        sync.RWMutex
	observers map[uint64]Observer
	nextID    uint64

	pendingMu sync.Mutex
	pending   []Change
	flushing  bool
}

func newNotifier() *notifier {
	return &notifier{observers: make(map[uint64]Observer)}
}

func (n *notifier) subscribe(observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.observers[id] = observer
	return &Subscription{id: id, notifier: n}
}

func (n *notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.observers, id)
}

// enqueue must be called with the controller lock held so pending keeps
// transition order.
func (n *notifier) enqueue(change Change) {
	n.pendingMu.Lock()
	n.pending = append(n.pending, change)
	n.pendingMu.Unlock()
}

// flush delivers pending changes. A nested or concurrent flush returns at
// once and leaves delivery to the goroutine already flushing.
func (n *notifier) flush() {
	n.pendingMu.Lock()
	if n.flushing {
		n.pendingMu.Unlock()
		return
	}
	n.flushing = true
	for len(n.pending) > 0 {
		batch := n.pending
		n.pending = nil
		n.pendingMu.Unlock()

		observers := n.snapshot()
		for _, change := range batch {
			for _, obs := range observers {
				obs(change)
			}
		}

		n.pendingMu.Lock()
	}
	n.flushing = false
	n.pendingMu.Unlock()
}

func (n *notifier) snapshot() []Observer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := make([]uint64, 0, len(n.observers))
	for id := range n.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	observers := make([]Observer, len(ids))
	for i, id := range ids {
		observers[i] = n.observers[id]
	}
	return observers
}
