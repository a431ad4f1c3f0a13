package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/agent-panel/internal/logic"
)

// Report bundles a snapshot with the panel state that surrounds it.
// It is assembled by the caller from the store, mode controller and backlight.
type Report struct {
	Snapshot      Snapshot
	Version       uint64
	UpdatedAt     time.Time
	StartTime     time.Time
	Now           time.Time
	Mode          logic.Mode
	Backlight     uint8
	MQTTConnected bool
	Counts        logic.EventCounts
	Broker        string
}

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Label         string     `json:"label"`
	Mode          string     `json:"mode"`
	Backlight     uint8      `json:"backlight_percent"`
	Version       uint64     `json:"version"`
	UptimeSeconds uint32     `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	UpdatedAt     string     `json:"updated_at,omitempty"`
	Timestamp     string     `json:"timestamp"`
	Link          LinkJSON   `json:"link"`
	Bot           BotJSON    `json:"bot"`
	Memory        MemoryJSON `json:"memory"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"button_counts"`
}

// LinkJSON reports the network link.
type LinkJSON struct {
	Connected bool   `json:"connected"`
	IP        string `json:"ip"`
	SignalDBm *int8  `json:"signal_dbm,omitempty"`
}

// BotJSON reports the chat-bot client.
type BotJSON struct {
	Connected bool   `json:"connected"`
	State     string `json:"state"`
}

// MemoryJSON reports heap usage.
type MemoryJSON struct {
	FreeBytes      uint32 `json:"free_bytes"`
	TotalBytes     uint32 `json:"total_bytes"`
	UtilizationPct uint32 `json:"utilization_percent"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// CountsJSON is the JSON representation of button event counts.
type CountsJSON struct {
	BootShort int `json:"boot_short"`
	BootLong  int `json:"boot_long"`
	UserShort int `json:"user_short"`
	UserLong  int `json:"user_long"`
}

func buildInner(r Report) StatusInner {
	snap := r.Snapshot
	inner := StatusInner{
		Label:         snap.StateLabel,
		Mode:          r.Mode.String(),
		Backlight:     r.Backlight,
		Version:       r.Version,
		UptimeSeconds: snap.UptimeSeconds,
		StartTime:     r.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     r.Now.UTC().Format(time.RFC3339),
		Link: LinkJSON{
			Connected: snap.LinkConnected,
			IP:        snap.IPAddress,
		},
		Bot: BotJSON{
			Connected: snap.BotConnected,
			State:     snap.BotState.String(),
		},
		Memory: MemoryJSON{
			FreeBytes:      snap.FreeMemoryBytes,
			TotalBytes:     snap.TotalMemoryBytes,
			UtilizationPct: snap.MemoryUtilization(),
		},
		MQTT: MQTTStatus{Connected: r.MQTTConnected, Broker: r.Broker},
		Counts: CountsJSON{
			BootShort: r.Counts.BootShort,
			BootLong:  r.Counts.BootLong,
			UserShort: r.Counts.UserShort,
			UserLong:  r.Counts.UserLong,
		},
	}
	if snap.HasSignal {
		sig := snap.LinkSignal
		inner.Link.SignalDBm = &sig
	}
	if !r.UpdatedAt.IsZero() {
		inner.UpdatedAt = r.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(r Report) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(r)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(r Report, event, reason string) []byte {
	inner := buildInner(r)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
