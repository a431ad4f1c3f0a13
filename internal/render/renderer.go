package render

import (
	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/status"
)

// DefaultTitle is shown in the banner header.
const DefaultTitle = "AGENT PANEL"

// Renderer produces a frame for a mode and snapshot. Frames returned by
// Render must be handed back with Release once the caller is done with them.
type Renderer interface {
	Render(mode logic.Mode, snap status.Snapshot) (*Frame, error)
	Release(f *Frame)
}

// SceneRenderer is the canonical Renderer: it builds a Scene and rasterizes
// it into a pooled frame.
type SceneRenderer struct {
	pool  *Pool
	title string
}

// NewSceneRenderer returns a renderer backed by pool. A nil pool gets a
// default one sized for a presented frame, a candidate and a spare.
func NewSceneRenderer(pool *Pool, title string) *SceneRenderer {
	if pool == nil {
		pool = NewPool(3)
	}
	if title == "" {
		title = DefaultTitle
	}
	return &SceneRenderer{pool: pool, title: title}
}

// Render returns ErrNoFrame when the pool is exhausted.
func (r *SceneRenderer) Render(mode logic.Mode, snap status.Snapshot) (*Frame, error) {
	f, err := r.pool.Get()
	if err != nil {
		return nil, err
	}
	Rasterize(BuildScene(mode, snap, r.title), f)
	return f, nil
}

// Release returns f to the pool.
func (r *SceneRenderer) Release(f *Frame) {
	r.pool.Put(f)
}
