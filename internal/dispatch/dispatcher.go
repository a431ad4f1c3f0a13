package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// TelegramSender delivers text to a Telegram chat.
type TelegramSender interface {
	SendTelegram(ctx context.Context, chatID string, text []byte) error
}

// WebsocketSender delivers content to a connected websocket client.
type WebsocketSender interface {
	SendWebsocket(ctx context.Context, clientID string, content []byte) error
}

// ErrNoSink is returned when a message's channel has no configured sink.
var ErrNoSink = errors.New("dispatch: no sink for channel")

// ErrUnknownChannel is returned for messages whose channel is not recognised.
var ErrUnknownChannel = errors.New("dispatch: unknown channel")

// Stats counts dispatch outcomes.
type Stats struct {
	Sent    uint64
	Failed  uint64
	Dropped uint64
}

// Dispatcher drains a Queue and routes each message to its typed sink.
type Dispatcher struct {
	queue     *Queue
	telegram  TelegramSender
	websocket WebsocketSender
	logger    *zap.Logger

	sent    atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

// NewDispatcher wires a queue to its sinks. Either sink may be nil, in which
// case messages for that channel are dropped with a warning.
func NewDispatcher(q *Queue, tg TelegramSender, ws WebsocketSender, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{queue: q, telegram: tg, websocket: ws, logger: logger}
}

// Run dispatches until ctx is cancelled. It returns nil on cancellation.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("outbound dispatch started")
	for {
		m, err := d.queue.Pop(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
		d.Dispatch(ctx, m)
	}
}

// Dispatch routes one message and then zeroes its content, whatever the
// outcome. Sinks must not retain the slice.
func (d *Dispatcher) Dispatch(ctx context.Context, m Message) error {
	defer clear(m.Content)

	d.logger.Debug("dispatching",
		zap.String("channel", m.ChannelName()),
		zap.String("destination", m.DestinationID),
		zap.Int("bytes", len(m.Content)),
	)

	var err error
	switch m.Channel {
	case ChannelTelegram:
		if d.telegram == nil {
			err = ErrNoSink
			break
		}
		err = d.telegram.SendTelegram(ctx, m.DestinationID, m.Content)
	case ChannelWebsocket:
		if d.websocket == nil {
			err = ErrNoSink
			break
		}
		err = d.websocket.SendWebsocket(ctx, m.DestinationID, m.Content)
	default:
		d.dropped.Add(1)
		d.logger.Warn("unknown channel, message dropped",
			zap.String("channel", m.ChannelName()),
			zap.String("destination", m.DestinationID),
		)
		return fmt.Errorf("%w: %q", ErrUnknownChannel, m.ChannelName())
	}

	if errors.Is(err, ErrNoSink) {
		d.dropped.Add(1)
		d.logger.Warn("channel not configured, message dropped",
			zap.String("channel", m.ChannelName()),
		)
		return err
	}
	if err != nil {
		d.failed.Add(1)
		d.logger.Error("dispatch failed",
			zap.String("channel", m.ChannelName()),
			zap.String("destination", m.DestinationID),
			zap.Error(err),
		)
		return err
	}
	d.sent.Add(1)
	return nil
}

// Stats returns outcome counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Sent:    d.sent.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
