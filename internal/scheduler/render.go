package scheduler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/agent-panel/internal/render"
)

func (a *App) renderLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Render)
	defer ticker.Stop()
	storeChanged := a.d.Store.Changes()
	modeChanged := a.d.Modes.Changes()

	a.renderPass()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-storeChanged:
		case <-modeChanged:
		case <-a.wake:
		}
		a.renderPass()
	}
}

func (a *App) renderPass() {
	if _, err := a.RenderOnce(); err != nil && !errors.Is(err, render.ErrNoFrame) {
		a.logger.Warn("render pass failed", zap.Error(err))
	}
}

// RenderOnce draws the current mode and snapshot and presents the frame if it
// differs from the last one presented. It reports whether a present happened.
// On a panel error the previous frame stays current and the next pass retries.
func (a *App) RenderOnce() (bool, error) {
	if a.d.Backlight != nil {
		if err := a.d.Backlight.Apply(); err != nil {
			a.logger.Warn("backlight apply failed", zap.Error(err))
		}
	}

	mode := a.d.Modes.Current()
	snap := a.d.Store.Read()

	frame, err := a.d.Renderer.Render(mode, snap)
	if err != nil {
		return false, err
	}
	if a.last != nil && frame.Equal(a.last) {
		a.d.Renderer.Release(frame)
		return false, nil
	}

	if a.d.Sink != nil {
		if err := a.d.Sink.Present(frame); err != nil {
			a.d.Renderer.Release(frame)
			return false, err
		}
	}

	if a.last != nil {
		a.d.Renderer.Release(a.last)
	}
	a.last = frame

	a.frameMu.Lock()
	a.latest = frame.Clone()
	a.frameMu.Unlock()

	a.logger.Debug("frame presented", zap.Stringer("mode", mode))
	return true, nil
}
