package authflow

import (
	"sync"
	"time"
)

// CountdownOption customizes countdown behavior.
type CountdownOption func(*Countdown)

// WithTickInterval overrides the one-second tick (useful for tests).
func WithTickInterval(d time.Duration) CountdownOption {
	return func(c *Countdown) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithCountdownTick registers an observer invoked after every decrement
// with the seconds remaining.
func WithCountdownTick(fn func(remaining int)) CountdownOption {
	return func(c *Countdown) {
		c.onTick = fn
	}
}

// Countdown counts seconds down from n and performs a single transition
// action when it reaches zero. Starting a new run cancels the previous
// one; Cancel stops ticking without firing. Owners must call Cancel on
// teardown so a stale countdown can never navigate a dead view.
type Countdown struct {
	mu        sync.Mutex
	interval  time.Duration
	onTick    func(remaining int)
	remaining int
	active    bool
	gen       int
	stop      chan struct{}
}

// NewCountdown returns an idle countdown ticking once per second.
func NewCountdown(opts ...CountdownOption) *Countdown {
	c := &Countdown{interval: time.Second}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Start begins counting down from n seconds and invokes fire exactly once
// when zero is reached. An outstanding run is cancelled first, so at most
// one countdown is ever pending.
func (c *Countdown) Start(n int, fire func()) {
	c.mu.Lock()
	c.cancelLocked()

	if n < 0 {
		n = 0
	}

	c.gen++
	gen := c.gen
	c.remaining = n
	c.active = true
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	go c.run(gen, stop, fire)
}

// Cancel stops ticking and returns to idle without firing.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

// Remaining returns the seconds left and whether a countdown is active.
func (c *Countdown) Remaining() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return 0, false
	}
	return c.remaining, true
}

func (c *Countdown) cancelLocked() {
	if !c.active {
		return
	}
	c.active = false
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) run(gen int, stop chan struct{}, fire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		remaining := c.remaining
		onTick := c.onTick
		c.mu.Unlock()

		if remaining <= 0 {
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.active = false
			c.stop = nil
			c.mu.Unlock()
			if fire != nil {
				fire()
			}
			return
		}

		select {
		case <-stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.gen != gen {
				c.mu.Unlock()
				return
			}
			c.remaining--
			if c.remaining < 0 {
				c.remaining = 0
			}
			remaining = c.remaining
			c.mu.Unlock()
			if onTick != nil {
				onTick(remaining)
			}
		}
	}
}
