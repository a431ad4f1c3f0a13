package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/agent-panel/internal/mqtt"
	"github.com/sweeney/agent-panel/internal/settings"
	"github.com/sweeney/agent-panel/internal/status"
)

type job struct {
	name string
	run  func() error
}

// submit queues fn for the job activity. A full queue drops the job.
func (a *App) submit(name string, fn func() error) {
	select {
	case a.jobs <- job{name: name, run: fn}:
	default:
		a.logger.Warn("job queue full, dropped", zap.String("job", name))
	}
}

func (a *App) jobLoop(ctx context.Context) error {
	var heartbeat <-chan time.Time
	if a.cfg.Heartbeat > 0 && a.d.Publisher != nil {
		t := time.NewTicker(a.cfg.Heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}
	for {
		select {
		case <-ctx.Done():
			a.drainJobs()
			return nil
		case j := <-a.jobs:
			a.runJob(j)
		case <-heartbeat:
			a.publishSystem(mqtt.EventHeartbeat, "", false)
		}
	}
}

// drainJobs runs whatever was queued before cancellation.
func (a *App) drainJobs() {
	for {
		select {
		case j := <-a.jobs:
			a.runJob(j)
		default:
			return
		}
	}
}

func (a *App) runJob(j job) {
	if err := j.run(); err != nil {
		a.logger.Warn("job failed", zap.String("job", j.name), zap.Error(err))
	}
}

func (a *App) publishSystem(event, reason string, retained bool) {
	if a.d.Publisher == nil {
		return
	}
	rep := a.Report()
	err := a.d.Publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  rep.Now,
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(rep, event, reason),
	})
	if err != nil {
		a.logger.Warn("system event publish failed", zap.String("event", event), zap.Error(err))
		return
	}
	a.logger.Info("published system event", zap.String("event", event))
}

func (a *App) savePrefs() error {
	if a.d.Prefs == nil {
		return nil
	}
	p := settings.Prefs{
		Mode:      a.d.Modes.Current(),
		UpdatedAt: a.d.Now(),
	}
	if a.d.Backlight != nil {
		// A dim is temporary; persist the level it will restore to.
		p.Backlight = a.d.Backlight.RestoreLevel()
	}
	return a.d.Prefs.Save(p)
}
