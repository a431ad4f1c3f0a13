package render

import (
	"errors"
	"sync"
)

// ErrNoFrame is returned when every pooled frame is in use.
// The caller skips this render pass and tries again on the next one.
var ErrNoFrame = errors.New("render: no frame buffer available")

// Pool hands out a bounded number of full-size frames.
type Pool struct {
	mu     sync.Mutex
	free   []*Frame
	inUse  int
	limit  int
	width  int
	height int
}

// NewPool returns a pool that allows at most limit frames outstanding.
func NewPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{limit: limit, width: Width, height: Height}
}

// Get returns a frame with undefined contents, or ErrNoFrame.
func (p *Pool) Get() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		f := p.free[n-1]
		p.free = p.free[:n-1]
		p.inUse++
		return f, nil
	}
	if p.inUse >= p.limit {
		return nil, ErrNoFrame
	}
	p.inUse++
	return NewFrame(p.width, p.height), nil
}

// Put returns a frame to the pool. Frames of the wrong size are dropped.
func (p *Pool) Put(f *Frame) {
	if f == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse > 0 {
		p.inUse--
	}
	if f.Width == p.width && f.Height == p.height {
		p.free = append(p.free, f)
	}
}

// InUse reports the number of outstanding frames.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}
