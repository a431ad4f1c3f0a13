package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/mqtt"
)

func (a *App) buttonLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.ButtonPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.PollButtons(a.d.Now())
		}
	}
}

// PollButtons samples both buttons once and handles any resulting event.
// Read errors are logged once per failure streak.
func (a *App) PollButtons(now time.Time) logic.ButtonEvent {
	boot, user, err := a.d.Buttons.Read()
	if err != nil {
		if !a.readFailing {
			a.logger.Warn("button read failed", zap.Error(err))
			a.readFailing = true
		}
		return logic.ButtonEvent{}
	}
	if a.readFailing {
		a.logger.Info("button read recovered")
		a.readFailing = false
	}

	ev := a.d.Detector.PollBoth(boot, user, now)
	if ev.None() {
		return ev
	}
	a.countsMu.Lock()
	a.counts = a.d.Detector.EventCountsSnapshot()
	a.countsMu.Unlock()

	a.HandleEvent(ev, now)
	return ev
}

// HandleEvent applies the action bound to ev. Work that may block is handed
// to the job activity.
func (a *App) HandleEvent(ev logic.ButtonEvent, now time.Time) logic.Action {
	action := logic.ActionFor(ev)
	a.logger.Info("button event",
		zap.Stringer("event", ev),
		zap.Stringer("action", action),
	)

	switch action {
	case logic.ActionCycleMode:
		m := a.d.Modes.Cycle()
		a.logger.Info("display mode changed", zap.Stringer("mode", m))
		a.submit("save preferences", func() error { return a.savePrefs() })
	case logic.ActionToggleBacklight:
		// The render pass applies the level; a panel transfer in flight
		// must not stall button sampling.
		if a.d.Backlight != nil {
			st := a.d.Backlight.ToggleState()
			a.logger.Info("backlight toggled",
				zap.Bool("enabled", st.Enabled),
				zap.Uint8("percent", st.Percent),
			)
			a.submit("save preferences", func() error { return a.savePrefs() })
		}
		a.Wake()
	case logic.ActionRefreshStatus:
		a.RequestRefresh()
	case logic.ActionRestartNetwork:
		if a.d.Publisher == nil {
			a.logger.Warn("network restart requested but no broker configured")
			break
		}
		cmd := mqtt.Command{Timestamp: now, Name: mqtt.CommandRestartLink, Reason: ev.String()}
		a.submit("network restart command", func() error { return a.d.Publisher.PublishCommand(cmd) })
	}

	if a.d.Publisher != nil {
		pe := mqtt.ButtonEvent{Timestamp: now, Event: ev, Action: action, Mode: a.d.Modes.Current()}
		a.submit("button event", func() error { return a.d.Publisher.PublishButton(pe) })
	}
	return action
}
