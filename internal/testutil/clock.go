// Package testutil has fakes shared by the package tests
package testutil

import (
	"sync"
	"time"
)

// Clock is a fake clock where Sleep advances time immediately instead of blocking. It records every
// sleep so tests can assert on loop timing.
type Clock struct {
	mtx    sync.Mutex
	now    time.Time
	slept  []time.Duration
	onTick func(time.Duration)
}

// NewClock creates a Clock starting at an arbitrary fixed time
func NewClock() *Clock {
	return &Clock{now: time.Date(2020, time.September, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

func (c *Clock) Sleep(d time.Duration) {
	c.mtx.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	onTick := c.onTick
	c.mtx.Unlock()

	if onTick != nil {
		onTick(d)
	}
}

// Add moves time forward without recording a sleep. It simulates work being done.
func (c *Clock) Add(d time.Duration) {
	c.mtx.Lock()
	c.now = c.now.Add(d)
	c.mtx.Unlock()
}

// Slept returns a copy of all recorded sleeps
func (c *Clock) Slept() []time.Duration {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// OnSleep registers a callback that runs after every Sleep
func (c *Clock) OnSleep(f func(time.Duration)) {
	c.mtx.Lock()
	c.onTick = f
	c.mtx.Unlock()
}
