package mqtt

import "sync"

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// ButtonEvents contains all button events that were published.
	ButtonEvents []ButtonEvent

	// Commands contains all commands that were published.
	Commands []Command

	// PublishError, if set, is returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// PublishButton records the button event.
func (f *FakePublisher) PublishButton(event ButtonEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.ButtonEvents = append(f.ButtonEvents, event)
	return nil
}

// PublishCommand records the command.
func (f *FakePublisher) PublishCommand(cmd Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Commands = append(f.Commands, cmd)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// SetConnected changes the value reported by IsConnected.
func (f *FakePublisher) SetConnected(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Connected = v
}

// Systems returns a copy of the recorded system events.
func (f *FakePublisher) Systems() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.SystemEvents...)
}

// Buttons returns a copy of the recorded button events.
func (f *FakePublisher) Buttons() []ButtonEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ButtonEvent(nil), f.ButtonEvents...)
}

// SentCommands returns a copy of the recorded commands.
func (f *FakePublisher) SentCommands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.Commands...)
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.ButtonEvents = nil
	f.Commands = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
