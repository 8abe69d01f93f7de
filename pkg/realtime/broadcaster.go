package realtime

import "sync"

// Topic names a class of view update pushed to stream subscribers.
type Topic string

// DefaultSubscriberBuffer is how many topics a subscriber may lag behind.
const DefaultSubscriberBuffer = 16

// Broadcaster fans view updates out to stream subscribers. A subscriber
// whose buffer is full loses the topic and is marked as lagged.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan Topic]bool
	buffer int
}

// NewBroadcaster creates an empty broadcaster. A non-positive buffer falls back
// to DefaultSubscriberBuffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:   make(map[chan Topic]bool),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its topic channel.
func (b *Broadcaster) Subscribe() chan Topic {
	ch := make(chan Topic, b.buffer)
	b.mu.Lock()
	b.subs[ch] = false
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan Topic) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers a topic to all subscribers.
func (b *Broadcaster) Publish(topic Topic) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- topic:
		default:
			b.subs[ch] = true
		}
	}
	b.mu.Unlock()
}

// Lagged reports whether a topic was dropped for ch since the last call and
// clears the mark. A drop only happens while ch is full, so a subscriber that
// checks after draining ch never misses one.
func (b *Broadcaster) Lagged(ch chan Topic) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	lagged := b.subs[ch]
	if lagged {
		b.subs[ch] = false
	}
	return lagged
}

// Len reports the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
