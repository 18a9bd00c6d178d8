// Wifiman-cfg edits the network document of a wifiman device over the
// network.
//
// It finds devices over mDNS, fetches their document from the config
// server, and pushes changes with read-back verification and automatic
// rollback.
//
// Usage:
//
//	wifiman-cfg [command] [flags]
//
// See 'wifiman-cfg --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/version"
)

// passwordEnvVar supplies --password when the flag is not given.
const passwordEnvVar = "WIFIMAN_PASSWORD"

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	deviceHost string
	devicePort int
	password   string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "wifiman-cfg",
	Short: "Remote configuration for wifiman devices",
	Long: `A utility for editing the network document of wifiman devices.

Devices running the config server are found over mDNS. --host accepts an
address, an mDNS instance name or a nickname from the device registry
(~/.config/wifiman/devices.yaml). Without --host the only device on the
network is used.`,
	Version:      version.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Silent unless asked, so styled output stays readable.
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&deviceHost, "host", "", "Device address, instance name or nickname (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", 8080, "Config server port")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Config server password (default $"+passwordEnvVar+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(discoverCmd, getCmd, pushCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifiman-cfg %s\n", version.Full())
	},
}
