// Package eventbus is a small synchronous-dispatch, async-delivery pub/sub
// used to decouple the device tracker and other producers from whatever
// consumes their events (the HTTP/WS surface, an external key-recovery
// tool watching for handshake captures). Grounded on the
// observer/subject pattern in the teacher's device registry, generalized
// from two hardcoded callbacks into a named-topic bus.
package eventbus

import "sync"

// Topic names the well-known event channels this daemon publishes.
const (
	TopicDeviceAdded   = "DEVICE_ADDED"
	TopicDeviceUpdated = "DEVICE_UPDATED"
	TopicDeviceRemoved = "DEVICE_REMOVED"
	TopicKeyDiscovered = "KEY_DISCOVERED" // an external cracking tool's result, replayed for subscribers
)

// Handler receives one published event. Handlers run in their own
// goroutine, so a slow subscriber never blocks the publisher.
type Handler func(payload interface{})

// Bus is a topic-keyed set of subscriber lists.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]Handler)}
}

// Subscribe registers fn to receive every future Publish on topic.
func (b *Bus) Subscribe(topic string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], fn)
}

// Publish delivers payload to every subscriber of topic, each in its own
// goroutine so a blocked handler cannot stall the publisher.
func (b *Bus) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(payload)
	}
}
