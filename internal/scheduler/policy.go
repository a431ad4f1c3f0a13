package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/sweeney/agent-panel/internal/mqtt"
)

// OnPhase queues a connection phase for the backlight policy. It never
// blocks; phases arriving while the queue is full are dropped.
func (a *App) OnPhase(p mqtt.Phase) {
	select {
	case a.phases <- p:
	default:
		a.logger.Warn("connection phase dropped", zap.Stringer("phase", p))
	}
}

func (a *App) policyLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-a.phases:
			a.ApplyPhase(p)
		}
	}
}

// ApplyPhase dims the backlight while the link is connecting and restores it
// once the attempt has finished either way.
func (a *App) ApplyPhase(p mqtt.Phase) {
	if a.d.Backlight == nil {
		return
	}
	var err error
	switch p {
	case mqtt.PhaseConnecting:
		err = a.d.Backlight.Dim(a.cfg.DimPercent)
	case mqtt.PhaseConnected, mqtt.PhaseDisconnected:
		err = a.d.Backlight.Restore()
	default:
		return
	}
	a.logger.Info("backlight policy",
		zap.Stringer("phase", p),
		zap.Uint8("percent", a.d.Backlight.State().Percent),
	)
	if err != nil {
		a.logger.Warn("backlight policy not applied", zap.Error(err))
	}
	a.Wake()
}
