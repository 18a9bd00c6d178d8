// Wifiman keeps a headless device on a known WiFi network.
//
// It scans, joins the most preferred known network in range, falls back to
// a local access point according to the document's start policy, and
// serves the network document for remote editing.
//
// Usage:
//
//	wifiman [command] [flags]
//
// See 'wifiman --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiman/internal/config"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	settingsPath string
	networksPath string
	driver       string
	logLevel     string

	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "wifiman",
	Short: "WiFi station manager",
	Long: `Wifiman joins the most preferred known WiFi network in range and keeps
the device connected. When no known network is reachable it can run a
local access point so the device stays configurable.

The list of networks lives in a JSON document (default /networks.json)
that can be edited remotely through the built-in config server.`,
	Version:           version.Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", config.DefaultSettingsPath, "Path to the daemon settings file")
	rootCmd.PersistentFlags().StringVar(&networksPath, "config", "", "Path to the network document (overrides networks_path)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Radio driver: wpa or mock (overrides driver)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(manageCmd, setupCmd, serveCmd, planCmd, historyCmd, hashPasswordCmd, versionCmd)
}

// loadSettings reads the settings file and applies flag overrides. The
// log level comes from the flag, then the settings file, then
// WIFIMAN_LOG_LEVEL, and defaults to info for daemon commands.
func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.Load(settingsPath)
	if err != nil {
		return err
	}
	if networksPath != "" {
		s.NetworksPath = networksPath
	}
	if driver != "" {
		s.Driver = driver
	}
	if err := s.Validate(); err != nil {
		return err
	}

	level := logLevel
	if level == "" {
		level = s.LogLevel
	}
	if level == "" {
		level = os.Getenv(logging.LogLevelEnvVar)
	}
	if level == "" && daemonCommand(cmd) {
		level = "info"
	}
	if err := logging.Initialize(level); err != nil {
		return err
	}

	settings = s
	return nil
}

// daemonCommand reports whether cmd runs unattended, where logs are the
// only output.
func daemonCommand(cmd *cobra.Command) bool {
	return cmd == manageCmd || cmd == serveCmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// Settings are irrelevant here and may not be readable.
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiman %s\n", version.Full())
	},
}
