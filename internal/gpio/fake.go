package gpio

import (
	"errors"
	"sync"
)

// FakeReader is a test double that returns scripted button levels.
// It is safe for concurrent use.
type FakeReader struct {
	mu sync.Mutex

	// Samples contains scripted (bootPressed, userPressed) values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// Sample represents a single button reading (already in logical form).
type Sample struct {
	Boot bool // true = pressed
	User bool // true = pressed
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ReadError != nil {
		return false, false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample.Boot, sample.User, nil
}

// Consumed returns how many samples have been read (capped at len(Samples)-1).
func (f *FakeReader) Consumed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = 0
	f.Closed = false
}
