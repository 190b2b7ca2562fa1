package bus

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/registrar/core"
)

type subscription struct {
	id      uint64
	handler core.Handler
}

// Bus is an in-process core.MessageBus.
// Handlers run synchronously, in subscription order, on the publishing goroutine.
type Bus struct {
	logger core.Logger

	mu     sync.RWMutex
	lastID uint64
	subs   map[string][]subscription
}

var _ core.MessageBus = (*Bus)(nil)

func New(logger core.Logger) *Bus {
	return &Bus{
		logger: logger,
		subs:   make(map[string][]subscription),
	}
}

func (b *Bus) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	subs := b.subs[topic]
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(topic, sub.handler, payload)
	}
}

// deliver keeps a panicking handler from taking the publisher down.
func (b *Bus) deliver(topic string, handler core.Handler, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.Errorf("%v", r)
			b.logger.Error(fmt.Sprintf("bus: handler of %q panicked", topic), err)
		}
	}()
	handler(payload)
}

func (b *Bus) Subscribe(topic string, handler core.Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	id := b.lastID
	// copy on write: Publish iterates over a snapshot
	subs := make([]subscription, 0, len(b.subs[topic])+1)
	subs = append(subs, b.subs[topic]...)
	b.subs[topic] = append(subs, subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := make([]subscription, 0, len(b.subs[topic]))
	for _, sub := range b.subs[topic] {
		if sub.id != id {
			subs = append(subs, sub)
		}
	}
	if len(subs) == 0 {
		delete(b.subs, topic)
		return
	}
	b.subs[topic] = subs
}
