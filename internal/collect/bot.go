package collect

import (
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/agent-panel/internal/status"
)

// BotTracker holds the last bot state reported over MQTT.
// A tracker that has not heard from the bot within Stale reports offline.
type BotTracker struct {
	mu      sync.Mutex
	state   status.BotState
	updated time.Time
	stale   time.Duration
	now     func() time.Time
}

// NewBotTracker returns a tracker starting offline. A zero stale duration
// disables expiry.
func NewBotTracker(stale time.Duration) *BotTracker {
	return &BotTracker{stale: stale, now: time.Now}
}

// Set records a new state.
func (b *BotTracker) Set(s status.BotState) {
	b.mu.Lock()
	b.state = s
	b.updated = b.now()
	b.mu.Unlock()
}

// SetName records a state given its wire name.
func (b *BotTracker) SetName(name string) error {
	s, ok := status.ParseBotState(name)
	if !ok {
		return fmt.Errorf("unknown bot state %q", name)
	}
	b.Set(s)
	return nil
}

// CurrentState returns the last state, or offline once it has gone stale.
func (b *BotTracker) CurrentState() status.BotState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stale > 0 && !b.updated.IsZero() && b.now().Sub(b.updated) > b.stale {
		return status.BotOffline
	}
	return b.state
}
