package pages

import (
	"sync"

	"github.com/pylon-dev/pylon/wsproto"
)

// Well-known topic prefixes, per §4.10/§6.
const (
	TopicDBEvent         = "dbevent"
	TopicSystemBroadcast = "system.broadcast"
)

// UserTopic returns the per-user notification topic "user.<id>.notify".
func UserTopic(userID string) string {
	return "user." + userID + ".notify"
}

// Bus is a topic-addressed publish/subscribe fan-out, interface-first per
// the session-subsystem Open Question: this in-memory implementation is the
// reference; a real multi-process deployment swaps in a message-bus-backed
// Bus without changing callers (§4.10 design notes).
type Bus interface {
	Publish(topic string, frame wsproto.Frame)
	Subscribe(topic string) (ch <-chan wsproto.Frame, unsubscribe func())
}

// memoryBus is the in-process reference Bus implementation.
type memoryBus struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan wsproto.Frame
	next int
}

// NewMemoryBus returns the in-memory reference Bus.
func NewMemoryBus() Bus {
	return &memoryBus{subs: make(map[string]map[int]chan wsproto.Frame)}
}

func (b *memoryBus) Publish(topic string, frame wsproto.Frame) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[topic] {
		select {
		case ch <- frame:
		default:
			// a slow subscriber never blocks publication; it simply
			// misses this event, matching the bus's best-effort
			// fan-out contract.
		}
	}
}

func (b *memoryBus) Subscribe(topic string) (<-chan wsproto.Frame, func()) {
	ch := make(chan wsproto.Frame, 64)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]chan wsproto.Frame)
	}
	id := b.next
	b.next++
	b.subs[topic][id] = ch
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[topic]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(b.subs, topic)
			}
		}
		close(ch)
	}

	return ch, unsubscribe
}
