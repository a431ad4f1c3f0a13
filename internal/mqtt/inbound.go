package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sweeney/agent-panel/internal/dispatch"
	"github.com/sweeney/agent-panel/internal/status"
)

// ErrUnknownTopic is returned by Route for topics no handler is bound to.
var ErrUnknownTopic = errors.New("mqtt: no handler for topic")

// Phase is a network connection lifecycle stage.
type Phase uint8

const (
	PhaseUnknown Phase = iota
	// PhaseConnecting is the power-hungry first association attempt.
	PhaseConnecting
	PhaseConnected
	PhaseDisconnected
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handlers receive decoded inbound messages. A nil handler ignores its topic.
type Handlers struct {
	BotState func(status.BotState)
	Outbound func(dispatch.Message)
	Phase    func(Phase)
	// StatusText receives a free-form state label.
	StatusText func(string)
}

// Topics lists the topics that have a handler set.
func (h Handlers) Topics() []string {
	var topics []string
	if h.BotState != nil {
		topics = append(topics, TopicBotState)
	}
	if h.Outbound != nil {
		topics = append(topics, TopicOutbound)
	}
	if h.Phase != nil {
		topics = append(topics, TopicPhase)
	}
	if h.StatusText != nil {
		topics = append(topics, TopicStatusText)
	}
	return topics
}

// Route decodes payload for topic and calls the matching handler.
func (h Handlers) Route(topic string, payload []byte) error {
	switch {
	case topic == TopicBotState && h.BotState != nil:
		s, err := ParseBotState(payload)
		if err != nil {
			return err
		}
		h.BotState(s)
	case topic == TopicOutbound && h.Outbound != nil:
		m, err := ParseOutbound(payload)
		if err != nil {
			return err
		}
		h.Outbound(m)
	case topic == TopicPhase && h.Phase != nil:
		p, err := ParsePhase(payload)
		if err != nil {
			return err
		}
		h.Phase(p)
	case topic == TopicStatusText && h.StatusText != nil:
		text, err := ParseStatusText(payload)
		if err != nil {
			return err
		}
		h.StatusText(text)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	return nil
}

type stateDoc struct {
	State string `json:"state"`
}

type phaseDoc struct {
	Phase string `json:"phase"`
}

type textDoc struct {
	Text string `json:"text"`
}

// word extracts a single value from either a bare word or a JSON object
// whose only interesting field is read by decode.
func word(payload []byte, decode func([]byte) (string, error)) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return decode(trimmed)
	}
	return string(trimmed), nil
}

// ParseBotState accepts "ready" or {"state":"ready"}.
func ParseBotState(payload []byte) (status.BotState, error) {
	name, err := word(payload, func(b []byte) (string, error) {
		var d stateDoc
		err := json.Unmarshal(b, &d)
		return d.State, err
	})
	if err != nil {
		return status.BotOffline, fmt.Errorf("decode bot state: %w", err)
	}
	s, ok := status.ParseBotState(name)
	if !ok {
		return status.BotOffline, fmt.Errorf("unknown bot state %q", name)
	}
	return s, nil
}

// ParsePhase accepts "connecting" or {"phase":"connecting"}.
func ParsePhase(payload []byte) (Phase, error) {
	name, err := word(payload, func(b []byte) (string, error) {
		var d phaseDoc
		err := json.Unmarshal(b, &d)
		return d.Phase, err
	})
	if err != nil {
		return PhaseUnknown, fmt.Errorf("decode phase: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "connecting":
		return PhaseConnecting, nil
	case "connected", "got_ip":
		return PhaseConnected, nil
	case "disconnected", "failed":
		return PhaseDisconnected, nil
	}
	return PhaseUnknown, fmt.Errorf("unknown phase %q", name)
}

// ParseStatusText accepts "Thinking" or {"text":"Thinking"}.
// An empty label is rejected; the store would show it as unknown.
func ParseStatusText(payload []byte) (string, error) {
	text, err := word(payload, func(b []byte) (string, error) {
		var d textDoc
		err := json.Unmarshal(b, &d)
		return d.Text, err
	})
	if err != nil {
		return "", fmt.Errorf("decode status text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty status text")
	}
	return text, nil
}

// OutboundPayload is the JSON document received on TopicOutbound.
type OutboundPayload struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// ParseOutbound decodes an outbound reply. The channel name is kept as sent;
// unknown channels are rejected later by the dispatcher.
func ParseOutbound(payload []byte) (dispatch.Message, error) {
	var p OutboundPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return dispatch.Message{}, fmt.Errorf("decode outbound: %w", err)
	}
	if p.ChatID == "" {
		return dispatch.Message{}, fmt.Errorf("outbound message has no chat_id")
	}
	return dispatch.NewMessage(p.Channel, p.ChatID, []byte(p.Content)), nil
}
