// Package collect gathers the facts shown on the panel from their providers
// and assembles them into a status snapshot.
package collect

import (
	"time"

	"github.com/sweeney/agent-panel/internal/status"
)

// NetworkProvider reports the network link.
type NetworkProvider interface {
	IsConnected() bool
	CurrentAddress() (string, bool)
	Signal() (int8, bool)
}

// BotProvider reports the chat-bot client's state.
type BotProvider interface {
	CurrentState() status.BotState
}

// MemoryProvider reports memory usage in bytes.
type MemoryProvider interface {
	FreeBytes() uint32
	TotalBytes() uint32
}

// Derived state labels.
const (
	LabelReady    = "Ready"
	LabelLinkOnly = "WiFi OK"
	LabelStarting = "Starting"
)

// Refresher builds full snapshots from its providers.
// A nil provider is treated as reporting nothing.
type Refresher struct {
	Network NetworkProvider
	Bot     BotProvider
	Memory  MemoryProvider
	Boot    time.Time
	Now     func() time.Time
}

// Collect queries every provider once and returns a normalized snapshot.
func (r *Refresher) Collect() status.Snapshot {
	var snap status.Snapshot

	if r.Network != nil {
		snap.LinkConnected = r.Network.IsConnected()
		if ip, ok := r.Network.CurrentAddress(); ok {
			snap.IPAddress = ip
		}
		snap.LinkSignal, snap.HasSignal = r.Network.Signal()
	}

	if r.Bot != nil {
		snap.BotState = r.Bot.CurrentState()
		snap.BotConnected = snap.BotState.Connected()
	}

	if r.Memory != nil {
		snap.FreeMemoryBytes = r.Memory.FreeBytes()
		snap.TotalMemoryBytes = r.Memory.TotalBytes()
	}

	snap.UptimeSeconds = r.uptimeSeconds()
	snap.StateLabel = DeriveLabel(snap)
	return snap.Normalize()
}

// Refresh collects a snapshot and writes it to store.
func (r *Refresher) Refresh(store *status.Store) status.Snapshot {
	snap := r.Collect()
	store.UpdateFull(snap)
	return snap
}

func (r *Refresher) uptimeSeconds() uint32 {
	if r.Boot.IsZero() {
		return 0
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	d := now().Sub(r.Boot)
	if d < 0 {
		return 0
	}
	return uint32(d / time.Second)
}

// DeriveLabel picks the state label for a snapshot. A bot mid-conversation
// wins over the connectivity summary.
func DeriveLabel(snap status.Snapshot) string {
	switch {
	case snap.BotState.Busy():
		return snap.BotState.Label()
	case snap.LinkConnected && snap.BotConnected:
		return LabelReady
	case snap.LinkConnected:
		return LabelLinkOnly
	default:
		return LabelStarting
	}
}
