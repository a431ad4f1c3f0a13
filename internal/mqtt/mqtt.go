// Package mqtt publishes panel events and receives collaborator feeds over MQTT.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/agent-panel/internal/logic"
)

// Published topics.
const (
	// TopicSystem carries lifecycle events with the full status document.
	TopicSystem = "agent/panel/system"
	// TopicButton carries one message per button event.
	TopicButton = "agent/panel/button"
	// TopicNetworkCommand asks the network manager to act on the link.
	TopicNetworkCommand = "agent/network/command"
)

// Subscribed topics.
const (
	// TopicBotState is the agent's current activity ("ready", "responding", ...).
	TopicBotState = "agent/bot/state"
	// TopicOutbound carries replies to deliver through a chat channel.
	TopicOutbound = "agent/outbound"
	// TopicPhase is the network manager's connection lifecycle.
	TopicPhase = "agent/network/phase"
	// TopicStatusText replaces the panel's state label.
	TopicStatusText = "agent/panel/status_text"
)

// System event names.
const (
	EventStartup     = "STARTUP"
	EventHeartbeat   = "HEARTBEAT"
	EventShutdown    = "SHUTDOWN"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes panel events.
type Publisher interface {
	// PublishSystem sends a lifecycle event. Errors are reported, never fatal.
	PublishSystem(event SystemEvent) error

	// PublishButton sends a button event.
	PublishButton(event ButtonEvent) error

	// PublishCommand sends a request to the network manager.
	PublishCommand(cmd Command) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a lifecycle event (startup, heartbeat, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string
	Reason     string // shutdown only, e.g. "SIGTERM"
	RawPayload []byte // pre-formatted status document; used as-is when set
	Retained   bool
}

// SystemPayload is the minimal system document used when no status document
// is attached (LWT, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload returns RawPayload when set, otherwise the minimal
// system document.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ButtonEvent is a decoded button press and the action it triggered.
type ButtonEvent struct {
	Timestamp time.Time
	Event     logic.ButtonEvent
	Action    logic.Action
	Mode      logic.Mode
}

// ButtonPayload is the JSON document published on TopicButton.
type ButtonPayload struct {
	Button ButtonPayloadInner `json:"button"`
}

// ButtonPayloadInner contains the button event details.
type ButtonPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Button    string `json:"button"`
	Press     string `json:"press"`
	Action    string `json:"action"`
	Mode      string `json:"mode"`
}

// FormatButtonPayload creates the JSON payload for a button event.
func FormatButtonPayload(event ButtonEvent) ([]byte, error) {
	payload := ButtonPayload{
		Button: ButtonPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Button:    event.Event.Button.String(),
			Press:     event.Event.Kind.String(),
			Action:    event.Action.String(),
			Mode:      event.Mode.String(),
		},
	}
	return json.Marshal(payload)
}

// CommandRestartLink asks the network manager to drop and re-establish the link.
const CommandRestartLink = "restart"

// Command is a request published on TopicNetworkCommand.
type Command struct {
	Timestamp time.Time
	Name      string
	Reason    string
}

// CommandPayload is the JSON document published on TopicNetworkCommand.
type CommandPayload struct {
	Command CommandPayloadInner `json:"command"`
}

// CommandPayloadInner contains the command details.
type CommandPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Reason    string `json:"reason,omitempty"`
}

// FormatCommandPayload creates the JSON payload for a command.
func FormatCommandPayload(cmd Command) ([]byte, error) {
	payload := CommandPayload{
		Command: CommandPayloadInner{
			Timestamp: cmd.Timestamp.UTC().Format(time.RFC3339),
			Name:      cmd.Name,
			Reason:    cmd.Reason,
		},
	}
	return json.Marshal(payload)
}
