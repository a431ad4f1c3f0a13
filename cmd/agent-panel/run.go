package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/agent-panel/internal/collect"
	"github.com/sweeney/agent-panel/internal/config"
	"github.com/sweeney/agent-panel/internal/dispatch"
	"github.com/sweeney/agent-panel/internal/gpio"
	"github.com/sweeney/agent-panel/internal/logging"
	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/mqtt"
	"github.com/sweeney/agent-panel/internal/panel"
	"github.com/sweeney/agent-panel/internal/render"
	"github.com/sweeney/agent-panel/internal/scheduler"
	"github.com/sweeney/agent-panel/internal/settings"
	"github.com/sweeney/agent-panel/internal/status"
	"github.com/sweeney/agent-panel/internal/web"
)

const (
	outboundQueueSize = 32
	shutdownTimeout   = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the panel",
	Long: `Run the panel until SIGINT or SIGTERM.

The panel polls the buttons, refreshes status, renders to the configured
driver, publishes events to MQTT and serves the status page.`,
	Example: `  # Run with /etc/agent-panel/config.yaml
  agent-panel run

  # Render to a PNG file without MQTT
  agent-panel run --panel png --broker off

  # Desktop preview (build with -tags preview)
  agent-panel run --panel window --log-level debug`,
	RunE: runDaemon,
}

// daemon is everything assembled for run.
type daemon struct {
	cfg    *config.Config
	logger *zap.Logger

	app     *scheduler.App
	buttons gpio.Reader
	prefs   *settings.Store
	sink    panel.Sink
	window  *panel.Window
	tracker *collect.BotTracker
	queue   *dispatch.Queue
	hub     *dispatch.WebsocketHub
	mqtt    *mqtt.Client
	web     *web.Server
	mdns    *web.Advertiser
}

// build assembles the daemon from cfg. Subsystems that fail to start on
// optional hardware are logged and left out.
func build(cfg *config.Config, logger *zap.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, logger: logger}

	sink, window, err := openSink(cfg)
	if err != nil {
		return nil, err
	}
	d.sink, d.window = sink, window

	prefs, mode, level := openPrefs(cfg, logger.Named("settings"))
	d.prefs = prefs
	d.buttons = openButtons(cfg, logger.Named("gpio"))
	d.tracker = collect.NewBotTracker(cfg.Timing.BotStale)
	d.queue = dispatch.NewQueue(outboundQueueSize)

	var tg dispatch.TelegramSender
	if cfg.Telegram.BotToken != "" {
		tg = dispatch.NewTelegramSink(cfg.Telegram.BotToken, cfg.Telegram.APIBase)
	}
	var ws dispatch.WebsocketSender
	if cfg.HTTP.Listen != "" {
		d.hub = dispatch.NewWebsocketHub(logger.Named("ws"), d.websocketInbound)
		ws = d.hub
	}
	dispatcher := dispatch.NewDispatcher(d.queue, tg, ws, logger.Named("dispatch"))

	deps := scheduler.Deps{
		Buttons:    d.buttons,
		Detector:   newDetector(cfg),
		Modes:      logic.NewModeController(mode),
		Store:      status.NewStore(),
		Refresher:  newRefresher(cfg, d.tracker, time.Now()),
		Renderer:   render.NewSceneRenderer(nil, cfg.Panel.Title),
		Sink:       sink,
		Backlight:  panel.NewBacklight(sink, level),
		Dispatcher: dispatcher,
		Logger:     logger.Named("scheduler"),
	}
	if prefs != nil {
		deps.Prefs = prefs
	}
	schedCfg := scheduler.Config{
		ButtonPoll: cfg.Timing.ButtonPoll,
		Refresh:    cfg.Timing.Refresh,
		Render:     cfg.Timing.Render,
		Heartbeat:  cfg.Timing.Heartbeat,
		DimPercent: uint8(cfg.Backlight.DimPercent),
	}

	// Callbacks can arrive as soon as the client connects; they wait for the
	// App, which is created right after with nothing in between that can fail.
	ready := make(chan struct{})
	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Username:   cfg.MQTT.Username,
			Password:   cfg.MQTT.Password,
			BufferSize: cfg.MQTT.BufferSize,
			Handlers:   d.mqttHandlers(ready),
			Logger:     logger.Named("mqtt"),
		})
		if err != nil {
			d.close()
			return nil, err
		}
		d.mqtt = client
		deps.Publisher = client
		deps.MQTTStatus = client
		schedCfg.Broker = cfg.MQTT.Broker
	}

	d.app = scheduler.New(schedCfg, deps)
	close(ready)

	if cfg.HTTP.Listen != "" {
		var h http.Handler
		if d.hub != nil {
			h = d.hub
		}
		d.web = web.New(cfg.HTTP.Listen, d.app, d.app, h)
	}
	return d, nil
}

func (d *daemon) mqttHandlers(ready <-chan struct{}) mqtt.Handlers {
	return mqtt.Handlers{
		BotState: func(s status.BotState) {
			d.tracker.Set(s)
			<-ready
			d.app.RequestRefresh()
		},
		Outbound: func(m dispatch.Message) {
			if err := d.queue.TryPush(m); err != nil {
				d.logger.Warn("outbound message dropped",
					zap.String("channel", m.ChannelName()),
					zap.Error(err),
				)
			}
		},
		Phase: func(p mqtt.Phase) {
			<-ready
			d.app.OnPhase(p)
		},
		StatusText: func(text string) {
			<-ready
			d.app.SetStatusText(text)
		},
	}
}

func (d *daemon) websocketInbound(clientID string, content []byte) {
	d.logger.Info("websocket message received",
		zap.String("chat_id", clientID),
		zap.Int("bytes", len(content)),
	)
}

// startHTTP serves the status page and advertises it over mDNS.
func (d *daemon) startHTTP() {
	if d.web == nil {
		return
	}
	go func() {
		if err := d.web.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("http server error", zap.Error(err))
		}
	}()
	d.logger.Info("http status server listening", zap.String("addr", d.cfg.HTTP.Listen))

	if !d.cfg.HTTP.MDNS {
		return
	}
	adv, err := web.Advertise(d.cfg.HTTP.Instance, d.cfg.HTTP.Listen, web.TXTRecords(version))
	if err != nil {
		d.logger.Warn("mdns advertisement failed", zap.Error(err))
		return
	}
	d.mdns = adv
}

// close releases everything build and startHTTP acquired and returns the
// aggregated close errors.
func (d *daemon) close() error {
	var errs []error
	if d.web != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, d.web.Shutdown(ctx))
		cancel()
	}
	d.mdns.Shutdown()
	if d.hub != nil {
		d.hub.Close()
	}
	if d.mqtt != nil {
		errs = append(errs, d.mqtt.Close())
	}
	if d.buttons != nil {
		errs = append(errs, d.buttons.Close())
	}
	if d.sink != nil {
		errs = append(errs, d.sink.Close())
	}
	if d.prefs != nil {
		errs = append(errs, d.prefs.Close())
	}
	return errors.Join(errs...)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath, currentOverrides())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logger.Sync()

	d, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.close(); err != nil {
			logger.Warn("close errors", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	reasons := make(chan string, 1)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			logger.Info("received signal, shutting down", zap.Stringer("signal", s))
			reasons <- signalReason(s)
			cancel()
		case <-ctx.Done():
		}
	}()

	d.startHTTP()
	logger.Info("started",
		zap.String("version", version),
		zap.String("panel", cfg.Panel.Driver),
		zap.Bool("buttons", d.buttons != nil),
		zap.Bool("mqtt", d.mqtt != nil),
	)

	if d.window != nil {
		err = d.runWithWindow(ctx, cancel, reasons)
	} else {
		err = d.app.Run(ctx)
	}

	reason := "STOPPED"
	select {
	case reason = <-reasons:
	default:
		if err != nil {
			reason = "ERROR"
		}
	}
	d.app.Shutdown(reason)
	return err
}

// runWithWindow keeps the preview window on the calling goroutine, which
// must be the main one, and runs the activities beside it. Closing the
// window stops the panel.
func (d *daemon) runWithWindow(ctx context.Context, cancel context.CancelFunc, reasons chan<- string) error {
	done := make(chan error, 1)
	go func() {
		done <- d.app.Run(ctx)
	}()
	go func() {
		<-ctx.Done()
		d.window.Close()
	}()

	if err := d.window.Run(d.cfg.Panel.Title); err != nil {
		d.logger.Warn("preview window failed", zap.Error(err))
	}
	select {
	case reasons <- "WINDOW_CLOSED":
	default:
	}
	cancel()
	return <-done
}
