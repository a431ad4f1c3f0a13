package panel

import (
	"sync"

	"github.com/sweeney/agent-panel/internal/render"
)

// MemorySink keeps the last presented frame in memory. It backs headless runs
// and tests.
type MemorySink struct {
	mu        sync.Mutex
	last      *render.Frame
	presents  int
	backlight []uint8
	closed    bool
	failNext  error
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Present stores a copy of f.
func (m *MemorySink) Present(f *render.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.last = f.Clone()
	m.presents++
	return nil
}

// SetBacklight records the level.
func (m *MemorySink) SetBacklight(percent uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.backlight = append(m.backlight, percent)
	return nil
}

// Close marks the sink closed.
func (m *MemorySink) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// FailNext makes the next Present return err.
func (m *MemorySink) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

// Last returns a copy of the most recent frame, or nil.
func (m *MemorySink) Last() *render.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return nil
	}
	return m.last.Clone()
}

// Presents returns the number of successful presents.
func (m *MemorySink) Presents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presents
}

// BacklightLevels returns every level set, oldest first.
func (m *MemorySink) BacklightLevels() []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint8(nil), m.backlight...)
}
