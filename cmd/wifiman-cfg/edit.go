package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/muurk/wifiman/internal/discovery"
	"github.com/muurk/wifiman/internal/ui"
	"github.com/muurk/wifiman/internal/wizard/tui"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a device's network document interactively",
	Long: `Open a full-screen editor for a device's network document.

Without --host the editor starts by browsing mDNS for config servers.
Networks can be reordered, added and removed; pushes are verified and
rolled back like 'wifiman-cfg push'.`,
	Example: `  wifiman-cfg edit
  wifiman-cfg edit --host garden`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !ui.IsTerminal() {
			return errors.New("edit needs an interactive terminal, use get and push instead")
		}

		reg := loadRegistry()
		opts := tui.Options{
			Password:        password,
			DiscoverTimeout: discoverTimeout(reg),
		}
		if opts.Password == "" {
			opts.Password = os.Getenv(passwordEnvVar)
		}
		if deviceHost != "" {
			t, err := resolveTarget(cmd, reg)
			if err != nil {
				return err
			}
			opts.Device = &discovery.Device{Instance: t.Instance, Hostname: t.Host, IP: t.Host, Port: t.Port}
		}

		final, err := tea.NewProgram(tui.NewAppModel(opts), tea.WithAltScreen()).Run()
		if err != nil {
			return fmt.Errorf("editor failed: %w", err)
		}

		app, ok := final.(tui.AppModel)
		if !ok || app.Device == nil {
			return nil
		}
		reg.Seen(app.Device.Instance, app.Device.IP, app.Device.Port)
		if app.Pushed {
			reg.Pushed(app.Device.Instance)
		}
		saveRegistry(reg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
}
