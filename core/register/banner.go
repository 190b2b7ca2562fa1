package register

import (
	"sync"
	"time"
)

// DefaultErrorDisplayDelay is how long an error message stays visible.
const DefaultErrorDisplayDelay = 5 * time.Second

var afterFunc = time.AfterFunc // mockable

// banner holds the last error message of a family of operations.
// Each message is cleared delay after it was set, unless a newer one replaced it.
type banner struct {
	mu    sync.Mutex
	msg   string
	gen   uint64
	delay time.Duration
	timer *time.Timer
}

func newBanner(delay time.Duration) *banner {
	if delay <= 0 {
		delay = DefaultErrorDisplayDelay
	}
	return &banner{delay: delay}
}

func (b *banner) set(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	gen := b.gen
	b.msg = msg
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = afterFunc(b.delay, func() { b.expire(gen) })
}

func (b *banner) expire(gen uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen == gen {
		b.msg = ""
	}
}

func (b *banner) get() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.msg
}

func (b *banner) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
	}
}
