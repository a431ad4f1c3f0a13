// Package scheduler runs the panel's concurrent activities over explicitly
// owned shared state.
//
// Activities:
//
//	buttons   fixed-period poll, decodes events and applies their actions
//	refresh   periodic (and on demand) status collection into the store
//	render    timer and change triggered; presents only frames that differ
//	dispatch  drains the outbound message queue
//	policy    backlight dim/restore on connection phase changes
//	jobs      publishes, heartbeats and preference saves off the hot paths
//
// No lock is held across panel or network I/O.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/agent-panel/internal/collect"
	"github.com/sweeney/agent-panel/internal/dispatch"
	"github.com/sweeney/agent-panel/internal/gpio"
	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/mqtt"
	"github.com/sweeney/agent-panel/internal/panel"
	"github.com/sweeney/agent-panel/internal/render"
	"github.com/sweeney/agent-panel/internal/settings"
	"github.com/sweeney/agent-panel/internal/status"
)

// Config holds activity periods and policy values.
type Config struct {
	ButtonPoll time.Duration
	Refresh    time.Duration
	Render     time.Duration
	// Heartbeat is the HEARTBEAT publish period; 0 disables it.
	Heartbeat time.Duration
	// DimPercent is the backlight level held during the connecting phase.
	DimPercent uint8
	// Broker is reported in status documents.
	Broker string
}

// PrefsSaver persists operator preferences.
type PrefsSaver interface {
	Save(settings.Prefs) error
}

// Deps is the shared state injected at startup. Buttons, Dispatcher,
// Publisher, MQTTStatus and Prefs may be nil.
type Deps struct {
	Buttons    gpio.Reader
	Detector   *logic.Detector
	Modes      *logic.ModeController
	Store      *status.Store
	Refresher  *collect.Refresher
	Renderer   render.Renderer
	Sink       panel.Sink
	Backlight  *panel.Backlight
	Dispatcher *dispatch.Dispatcher
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Prefs      PrefsSaver
	Logger     *zap.Logger
	Now        func() time.Time
}

const (
	jobQueueSize   = 32
	phaseQueueSize = 8
)

// App owns the activities and the state they share.
type App struct {
	cfg    Config
	d      Deps
	logger *zap.Logger
	start  time.Time

	refreshReq chan struct{}
	wake       chan struct{}
	phases     chan mqtt.Phase
	jobs       chan job

	// countsMu guards counts, the button totals published outside the
	// button loop.
	countsMu sync.Mutex
	counts   logic.EventCounts

	// Owned by the render loop.
	last *render.Frame

	frameMu sync.Mutex
	latest  *render.Frame

	// Owned by the button loop.
	readFailing bool
}

// New creates an App. Zero periods fall back to 10 ms, 5 s and 100 ms.
func New(cfg Config, d Deps) *App {
	if cfg.ButtonPoll <= 0 {
		cfg.ButtonPoll = 10 * time.Millisecond
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 5 * time.Second
	}
	if cfg.Render <= 0 {
		cfg.Render = 100 * time.Millisecond
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		cfg:        cfg,
		d:          d,
		logger:     logger,
		start:      d.Now(),
		refreshReq: make(chan struct{}, 1),
		wake:       make(chan struct{}, 1),
		phases:     make(chan mqtt.Phase, phaseQueueSize),
		jobs:       make(chan job, jobQueueSize),
	}
}

// Run starts every activity and blocks until ctx is cancelled or one of them
// fails. It publishes STARTUP once the first refresh has landed.
func (a *App) Run(ctx context.Context) error {
	a.refresh()
	a.publishSystem(mqtt.EventStartup, "", true)

	g, ctx := errgroup.WithContext(ctx)
	if a.d.Buttons != nil {
		g.Go(func() error { return a.buttonLoop(ctx) })
	}
	g.Go(func() error { return a.refreshLoop(ctx) })
	g.Go(func() error { return a.renderLoop(ctx) })
	g.Go(func() error { return a.policyLoop(ctx) })
	g.Go(func() error { return a.jobLoop(ctx) })
	if a.d.Dispatcher != nil {
		g.Go(func() error { return a.d.Dispatcher.Run(ctx) })
	}

	a.logger.Info("activities started",
		zap.Duration("button_poll", a.cfg.ButtonPoll),
		zap.Duration("refresh", a.cfg.Refresh),
		zap.Duration("render", a.cfg.Render),
		zap.Duration("heartbeat", a.cfg.Heartbeat),
	)
	return g.Wait()
}

// Shutdown publishes SHUTDOWN and saves preferences. Call it after Run
// returns.
func (a *App) Shutdown(reason string) {
	a.publishSystem(mqtt.EventShutdown, reason, true)
	if err := a.savePrefs(); err != nil {
		a.logger.Warn("save preferences failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete", zap.String("reason", reason))
}

// RequestRefresh asks the refresh activity to collect now. Requests made
// while one is pending are merged.
func (a *App) RequestRefresh() {
	select {
	case a.refreshReq <- struct{}{}:
	default:
	}
}

// Wake asks the render activity for a pass now.
func (a *App) Wake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// SetStatusText replaces the state label. The store change wakes the render
// activity; the next refresh derives the label again.
func (a *App) SetStatusText(text string) {
	v := a.d.Store.UpdateText(text)
	a.logger.Debug("status text set", zap.String("text", text), zap.Uint64("version", v))
}

// Report assembles the current status report.
func (a *App) Report() status.Report {
	snap, version, updated := a.d.Store.ReadVersioned()
	a.countsMu.Lock()
	counts := a.counts
	a.countsMu.Unlock()

	r := status.Report{
		Snapshot:  snap,
		Version:   version,
		UpdatedAt: updated,
		StartTime: a.start,
		Now:       a.d.Now(),
		Mode:      a.d.Modes.Current(),
		Counts:    counts,
		Broker:    a.cfg.Broker,
	}
	if a.d.Backlight != nil {
		r.Backlight = a.d.Backlight.State().Percent
	}
	if a.d.MQTTStatus != nil {
		r.MQTTConnected = a.d.MQTTStatus.IsConnected()
	}
	return r
}

// LatestFrame returns a copy of the last presented frame, or nil.
func (a *App) LatestFrame() *render.Frame {
	a.frameMu.Lock()
	defer a.frameMu.Unlock()
	if a.latest == nil {
		return nil
	}
	return a.latest.Clone()
}

func (a *App) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-a.refreshReq:
		}
		a.refresh()
	}
}

func (a *App) refresh() {
	if a.d.Refresher == nil {
		return
	}
	snap := a.d.Refresher.Refresh(a.d.Store)
	a.logger.Debug("status refreshed",
		zap.String("label", snap.StateLabel),
		zap.String("ip", snap.IPAddress),
		zap.Stringer("bot", snap.BotState),
	)
}
