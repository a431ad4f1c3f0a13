// Package dispatch routes outbound chat messages to their delivery channel.
package dispatch

// Channel is a known delivery channel.
type Channel uint8

const (
	ChannelUnknown Channel = iota
	ChannelTelegram
	ChannelWebsocket
)

// Wire names, matched exactly.
const (
	NameTelegram  = "telegram"
	NameWebsocket = "websocket"
)

// ParseChannel maps a wire name to a Channel. Matching is exact and
// case-sensitive; anything else is ChannelUnknown.
func ParseChannel(name string) Channel {
	switch name {
	case NameTelegram:
		return ChannelTelegram
	case NameWebsocket:
		return ChannelWebsocket
	}
	return ChannelUnknown
}

func (c Channel) String() string {
	switch c {
	case ChannelTelegram:
		return NameTelegram
	case ChannelWebsocket:
		return NameWebsocket
	}
	return "unknown"
}

// Message is one outbound reply. Content is owned by the dispatcher once
// queued and is zeroed after delivery.
type Message struct {
	Channel       Channel
	DestinationID string
	Content       []byte

	// channelName keeps the wire name for logging unknown channels.
	channelName string
}

// NewMessage builds a message from its wire channel name.
func NewMessage(channel, destination string, content []byte) Message {
	return Message{
		Channel:       ParseChannel(channel),
		DestinationID: destination,
		Content:       content,
		channelName:   channel,
	}
}

// ChannelName returns the name the message arrived with.
func (m Message) ChannelName() string {
	if m.channelName != "" {
		return m.channelName
	}
	return m.Channel.String()
}
