// Command agent-panel drives the status display and buttons of an agent
// appliance: it polls the BOOT and USER buttons, collects status, renders it
// to the panel and relays outbound replies.
//
// Usage:
//
//	agent-panel run [flags]
//	agent-panel print-state
//	agent-panel selftest --delay 1s
//
// See 'agent-panel --help' for available options.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time:
//
//	go build -ldflags="-X main.version=v1.2.3 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Persistent flags. Empty values leave the configuration untouched.
var (
	configPath string
	logLevel   string
	httpAddr   string
	brokerAddr string
	panelDrv   string
)

var rootCmd = &cobra.Command{
	Use:   "agent-panel",
	Short: "Status panel and buttons for the agent appliance",
	Long: `agent-panel shows the agent's connectivity, bot state and memory on an
ST7789 panel, maps the BOOT and USER buttons to panel actions, serves the
status page over HTTP and relays outbound replies to Telegram and websocket
clients.

Configuration is read from /etc/agent-panel/config.yaml when present; flags
override individual settings.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	pf.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")
	pf.StringVar(&httpAddr, "http", "", `HTTP status address ("off" disables)`)
	pf.StringVar(&brokerAddr, "broker", "", `MQTT broker URL ("off" disables)`)
	pf.StringVar(&panelDrv, "panel", "", "Panel driver (st7789, png, window, none)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(printStateCmd)
	rootCmd.AddCommand(selftestCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "agent-panel %s (commit: %s)\n", version, commit)
	},
}
