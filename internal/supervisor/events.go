package supervisor

import (
	"sync"
	"time"
)

// Event kinds delivered to subscribers.
const (
	EventSnapshot  = "snapshot"
	EventLifecycle = "lifecycle"
)

// Event is a status-change notification. Snapshot events carry the monitor's
// latest ServiceInfo; lifecycle events name the operation that succeeded.
type Event struct {
	Kind string       `json:"kind"`
	Op   string       `json:"op,omitempty"`
	Info *ServiceInfo `json:"info,omitempty"`
	At   time.Time    `json:"at"`
}

const subscriberBuffer = 16

// broadcaster fans events out to subscribers. A subscriber that is not
// keeping up misses events rather than blocking the publisher.
type broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[int]chan Event)}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *broadcaster) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (s *Supervisor) notify(op string) {
	s.bus.publish(Event{Kind: EventLifecycle, Op: op, At: s.now()})
}
