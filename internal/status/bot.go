package status

import "strings"

// BotState is the chat-bot client's reported activity.
type BotState uint8

const (
	BotOffline BotState = iota
	BotReady
	BotIncoming
	BotResponding
	BotSending

	botStateCount
)

var botStateNames = [...]string{
	BotOffline:    "offline",
	BotReady:      "ready",
	BotIncoming:   "incoming",
	BotResponding: "responding",
	BotSending:    "sending",
}

var botStateLabels = [...]string{
	BotOffline:    "Offline",
	BotReady:      "Ready",
	BotIncoming:   "Incoming...",
	BotResponding: "Responding...",
	BotSending:    "Sending...",
}

// Valid reports whether s is a known state.
func (s BotState) Valid() bool {
	return s < botStateCount
}

// Connected reports whether the bot is reachable.
func (s BotState) Connected() bool {
	return s.Valid() && s != BotOffline
}

// Busy reports whether the bot is in the middle of a conversation turn.
func (s BotState) Busy() bool {
	return s == BotIncoming || s == BotResponding || s == BotSending
}

// Label is the human readable text shown on the panel.
func (s BotState) Label() string {
	if !s.Valid() {
		return UnknownLabel
	}
	return botStateLabels[s]
}

func (s BotState) String() string {
	if !s.Valid() {
		return "unknown"
	}
	return botStateNames[s]
}

// ParseBotState maps a wire name ("ready", "RESPONDING", ...) to a BotState.
func ParseBotState(name string) (BotState, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range botStateNames {
		if n == name {
			return BotState(i), true
		}
	}
	return BotOffline, false
}
