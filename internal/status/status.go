// Package status provides the thread-safe status snapshot store for agent-panel.
// It is written by the refresh activity and read by the renderer, HTTP and MQTT.
package status

import (
	"net"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Field bounds and placeholders.
const (
	MaxIPLen    = 15
	MaxLabelLen = 32

	PlaceholderIP = "0.0.0.0"
	InitialLabel  = "Initializing"
	UnknownLabel  = "Unknown"
)

// Snapshot is a point-in-time view of every externally observed fact.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	LinkConnected bool
	// LinkSignal is the RSSI in dBm, valid only when HasSignal is set.
	LinkSignal       int8
	HasSignal        bool
	IPAddress        string
	BotConnected     bool
	BotState         BotState
	UptimeSeconds    uint32
	FreeMemoryBytes  uint32
	TotalMemoryBytes uint32
	StateLabel       string
}

// Initial returns the snapshot shown before the first refresh.
func Initial() Snapshot {
	return Snapshot{
		IPAddress:  PlaceholderIP,
		StateLabel: InitialLabel,
	}
}

// Normalize enforces the snapshot invariants: bounded strings, placeholders for
// missing or malformed values and free <= total memory.
func (s Snapshot) Normalize() Snapshot {
	s.IPAddress = normalizeIP(s.IPAddress)
	if s.StateLabel == "" {
		s.StateLabel = UnknownLabel
	}
	s.StateLabel = truncate(s.StateLabel, MaxLabelLen)
	if s.TotalMemoryBytes > 0 && s.FreeMemoryBytes > s.TotalMemoryBytes {
		s.FreeMemoryBytes = s.TotalMemoryBytes
	}
	if !s.BotState.Valid() {
		s.BotState = BotOffline
	}
	return s
}

// MemoryUtilization returns used memory as an integer percentage.
// It reports 0 when the total is unknown.
func (s Snapshot) MemoryUtilization() uint32 {
	if s.TotalMemoryBytes == 0 {
		return 0
	}
	used := uint64(s.TotalMemoryBytes - s.FreeMemoryBytes)
	return uint32(used * 100 / uint64(s.TotalMemoryBytes))
}

// Uptime returns the uptime as a duration.
func (s Snapshot) Uptime() time.Duration {
	return time.Duration(s.UptimeSeconds) * time.Second
}

// normalizeIP returns the dotted-quad form of a valid IPv4 address and the
// placeholder for anything else.
func normalizeIP(addr string) string {
	ip := net.ParseIP(strings.TrimSpace(addr)).To4()
	if ip == nil {
		return PlaceholderIP
	}
	return ip.String()
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Store holds the current snapshot behind an RWMutex.
// Every write replaces the record under the lock, so readers never see a mix
// of old and new fields.
type Store struct {
	mu        sync.RWMutex
	snap      Snapshot
	version   uint64
	updatedAt time.Time
	now       func() time.Time
	changed   []chan struct{}
}

// NewStore creates a Store holding the initial placeholder snapshot.
func NewStore() *Store {
	return &Store{
		snap: Initial(),
		now:  time.Now,
	}
}

// UpdateFull replaces the whole record and returns the new version.
func (s *Store) UpdateFull(snap Snapshot) uint64 {
	snap = snap.Normalize()
	s.mu.Lock()
	s.snap = snap
	v := s.bumpLocked()
	s.mu.Unlock()
	return v
}

// UpdateText replaces only the state label.
func (s *Store) UpdateText(label string) uint64 {
	s.mu.Lock()
	next := s.snap
	next.StateLabel = label
	s.snap = next.Normalize()
	v := s.bumpLocked()
	s.mu.Unlock()
	return v
}

// Read returns a consistent copy of the current record.
func (s *Store) Read() Snapshot {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	return snap
}

// ReadVersioned returns the current record with its version and update time.
func (s *Store) ReadVersioned() (Snapshot, uint64, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.version, s.updatedAt
}

// Changes returns a channel signalled after every write.
// Notifications coalesce; a reader that falls behind sees one pending signal.
func (s *Store) Changes() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.changed = append(s.changed, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) bumpLocked() uint64 {
	s.version++
	s.updatedAt = s.now()
	for _, ch := range s.changed {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return s.version
}
