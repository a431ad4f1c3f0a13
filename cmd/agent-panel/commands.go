package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sweeney/agent-panel/internal/collect"
	"github.com/sweeney/agent-panel/internal/gpio"
	"github.com/sweeney/agent-panel/internal/logging"
	"github.com/sweeney/agent-panel/internal/logic"
	"github.com/sweeney/agent-panel/internal/panel"
	"github.com/sweeney/agent-panel/internal/render"
	"github.com/sweeney/agent-panel/internal/status"
)

var printStateCmd = &cobra.Command{
	Use:   "print-state",
	Short: "Print the button levels and current status, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, currentOverrides())
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer logger.Sync()

		buttons := openButtons(cfg, logger)
		if buttons != nil {
			defer buttons.Close()
		}
		ref := newRefresher(cfg, nil, time.Time{})
		return printState(cmd.OutOrStdout(), buttons, ref, cfg.InitialMode(), time.Now())
	},
}

// printState reads the buttons once, collects a snapshot and writes both.
// A nil reader prints the buttons as unavailable.
func printState(w io.Writer, buttons gpio.Reader, ref *collect.Refresher, mode logic.Mode, now time.Time) error {
	if buttons == nil {
		fmt.Fprintln(w, "BOOT: unavailable, USER: unavailable")
	} else {
		boot, user, err := buttons.Read()
		if err != nil {
			return fmt.Errorf("read buttons: %w", err)
		}
		fmt.Fprintf(w, "BOOT: %s, USER: %s\n", pressString(boot), pressString(user))
	}

	store := status.NewStore()
	ref.Refresh(store)
	snap, ver, updated := store.ReadVersioned()
	rep := status.Report{
		Snapshot:  snap,
		Version:   ver,
		UpdatedAt: updated,
		StartTime: now,
		Now:       now,
		Mode:      mode,
	}
	_, err := fmt.Fprintf(w, "%s\n", status.FormatJSON(rep))
	return err
}

func pressString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

var (
	selftestDelay time.Duration
	selftestLoops int
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Cycle the panel through its test patterns",
	Long: `Present solid colours, stripes, a checkerboard and a grey ramp on the
configured panel driver, holding each for --delay. Use it to check wiring,
colour order and offsets.`,
	Example: `  agent-panel selftest --delay 2s
  agent-panel selftest --panel png --delay 0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath, currentOverrides())
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer logger.Sync()

		sink, window, err := openSink(cfg)
		if err != nil {
			return err
		}
		defer sink.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		if window == nil {
			return runSelftest(ctx, sink, selftestDelay, selftestLoops, out, logger)
		}

		done := make(chan error, 1)
		go func() {
			done <- runSelftest(ctx, sink, selftestDelay, selftestLoops, out, logger)
			window.Close()
		}()
		if err := window.Run(cfg.Panel.Title + " selftest"); err != nil {
			return err
		}
		return <-done
	},
}

func init() {
	selftestCmd.Flags().DurationVar(&selftestDelay, "delay", time.Second, "How long each pattern is shown")
	selftestCmd.Flags().IntVar(&selftestLoops, "loops", 1, "Number of passes through the patterns")
}

// runSelftest presents every pattern loops times at full brightness and
// names each on out.
func runSelftest(ctx context.Context, sink panel.Sink, delay time.Duration, loops int, out io.Writer, logger *zap.Logger) error {
	if err := sink.SetBacklight(panel.MaxPercent); err != nil {
		logger.Warn("selftest backlight", zap.Error(err))
	}
	f := render.NewFrame(render.Width, render.Height)
	for i := 0; i < loops; i++ {
		for _, p := range render.Patterns() {
			p.Draw(f)
			if err := sink.Present(f); err != nil {
				return fmt.Errorf("present %s: %w", p.Name, err)
			}
			fmt.Fprintln(out, p.Name)
			if delay <= 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return nil
}
