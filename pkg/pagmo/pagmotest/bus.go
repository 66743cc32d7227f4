// Package pagmotest provides in-memory fakes for the registry and
// control-channel boundaries, in the same spirit as this corpus's own
// test helper package: fixtures that let higher-level tests exercise
// real protocol logic without dialing a live broker.
package pagmotest

import "sync"

// Bus is a small in-process stand-in for the shared registry broker:
// membership sets plus pub/sub control channels. Multiple FakeRegistry
// and FakeControlSubscriber instances bound to the same Bus behave as
// if they were independent clients of one real broker, which is what
// lets tests wire up several islands against each other.
type Bus struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
	subs map[string][]chan string
}

// NewBus creates an empty shared broker.
func NewBus() *Bus {
	return &Bus{
		sets: make(map[string]map[string]struct{}),
		subs: make(map[string][]chan string),
	}
}

func (b *Bus) addMember(key, member string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.sets[key]
	if !ok {
		set = make(map[string]struct{})
		b.sets[key] = set
	}
	set[member] = struct{}{}
}

func (b *Bus) removeMember(key, member string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sets[key], member)
}

func (b *Bus) members(key string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.sets[key]))
	for m := range b.sets[key] {
		out = append(out, m)
	}
	return out
}

func (b *Bus) subscribe(channel string) chan string {
	ch := make(chan string, 16)
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], ch)
	b.mu.Unlock()
	return ch
}

func (b *Bus) unsubscribe(channel string, target chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[channel]
	for i, ch := range subs {
		if ch == target {
			b.subs[channel] = append(subs[:i], subs[i+1:]...)
			close(target)
			return
		}
	}
}

func (b *Bus) publish(channel, payload string) {
	b.mu.Lock()
	subs := append([]chan string(nil), b.subs[channel]...)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- payload:
		default:
		}
	}
}
