package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiman/internal/auth"
	"github.com/muurk/wifiman/internal/history"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/networks"
	"github.com/muurk/wifiman/internal/planner"
	"github.com/muurk/wifiman/internal/ui"
	"go.uber.org/zap"
)

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

var manageCmd = &cobra.Command{
	Use:   "manage",
	Short: "Keep the device connected (runs until stopped)",
	Long: `Run the supervisor loop. Every interval the station is checked; when it
has no address a full setup cycle runs. The config server is started when
the document enables it, and every observer enabled in the settings file
receives events.

SIGINT or SIGTERM stops the loop and the config server.`,
	Example: `  # Run with the settings in /etc/wifiman/wifiman.yaml
  wifiman manage

  # Try it out without a radio
  wifiman manage --driver mock --config ./networks.json --log-level debug`,
	RunE: runManage,
}

func runManage(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	d, err := newDaemon(ctx, settings)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.attachObservers(ctx); err != nil {
		return err
	}

	err = d.supervisor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run one setup cycle and exit",
	Long: `Scan, join the best known network and apply the access point policy once.
Exits with status 1 when the station did not end up connected.`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	d, err := newDaemon(ctx, settings)
	if err != nil {
		return err
	}
	defer d.Close()

	p := ui.NewPrinter(nil)
	p.PrintHeader("Setup", "wifiman setup", map[string]string{
		"Document": settings.NetworksPath,
		"Driver":   settings.Driver,
	})

	var connected bool
	err = ui.Spin(p.Writer(), "Running setup cycle", func() error {
		connected = d.supervisor.Setup(ctx)
		return nil
	})
	if err != nil {
		return err
	}

	details := map[string]string{
		"State":        d.supervisor.State().String(),
		"Access point": strconv.FormatBool(d.ap.Active()),
	}
	if info, err := d.station.AddressInfo(); err == nil && !info.Unassigned() {
		details["Address"] = info.IP
	}

	if !connected {
		p.PrintWarning("Not connected", details)
		d.Close()
		os.Exit(1)
	}
	p.PrintSuccess("Connected", details)
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run only the config server",
	Long: `Serve the network document without managing the radio. Updates are
stored but no setup cycle runs. The document must enable config_server.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	store := networks.NewFileStore()
	doc, err := networks.Load(store, settings.NetworksPath)
	if err != nil {
		return err
	}
	if !doc.ServerEnabled() {
		return fmt.Errorf("config_server is not enabled in %s", settings.NetworksPath)
	}

	srv, err := newConfigServer(ctx, settings, store, nil)
	if err != nil {
		return err
	}
	if err := srv.Start(*doc.ConfigServer); err != nil {
		return err
	}
	logging.Info("Serving network document", zap.String("path", settings.NetworksPath), zap.Stringer("addr", srv.Addr()))

	<-ctx.Done()
	srv.Stop()
	return nil
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Scan and show the connection plan without connecting",
	RunE:  runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	d, err := newDaemon(ctx, settings)
	if err != nil {
		return err
	}
	defer d.Close()

	p := ui.NewPrinter(nil)
	p.PrintHeader("Connection Plan", "wifiman plan", map[string]string{"Document": settings.NetworksPath})

	var (
		candidates []planner.Candidate
		records    []planner.ScanRecord
	)
	err = ui.Spin(p.Writer(), "Scanning", func() error {
		var err error
		candidates, records, err = d.supervisor.Plan()
		return err
	})
	if err != nil {
		return err
	}

	p.Println("Networks in range:")
	p.PrintTable(scanHeaders, scanRows(records), -1)
	p.Newline()
	p.Println("Connection attempts, in order:")
	p.PrintTable(candidateHeaders, candidateRows(candidates), -1)
	return nil
}

var (
	scanHeaders      = []string{"SSID", "BSSID", "CH", "RSSI", "SECURITY"}
	candidateHeaders = []string{"#", "SSID", "BSSID", "RSSI", "COMPANION"}
)

func scanRows(records []planner.ScanRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		ssid := r.SSID
		if r.Hidden || ssid == "" {
			ssid = "(hidden)"
		}
		rows = append(rows, []string{ssid, r.BSSID.String(), strconv.Itoa(r.Channel), strconv.Itoa(r.Strength), r.Security.String()})
	}
	return rows
}

func candidateRows(candidates []planner.Candidate) [][]string {
	rows := make([][]string, 0, len(candidates))
	for i, c := range candidates {
		rows = append(rows, []string{strconv.Itoa(i + 1), c.SSID, c.BSSID.String(), strconv.Itoa(c.Strength), strconv.FormatBool(c.EnablesCompanion)})
	}
	return rows
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded events, newest first",
	Long: `Print events from the history journal (settings history.path). The
journal is locked while 'wifiman manage' runs.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of events to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if settings.History.Path == "" {
		return errors.New("history is disabled: set history.path in the settings file")
	}

	journal, err := history.Open(settings.History.Path, settings.History.Limit)
	if err != nil {
		return err
	}
	defer journal.Close()

	recent, err := journal.Recent(historyLimit)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(recent))
	for _, ev := range recent {
		rows = append(rows, []string{ev.Time.Local().Format(time.DateTime), ev.Name, fmt.Sprint(ev.Payload)})
	}
	ui.NewPrinter(nil).PrintTable([]string{"TIME", "EVENT", "PAYLOAD"}, rows, -1)
	return nil
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a config server password for the network document",
	Long: `Read a password twice from the terminal and print its argon2id hash.
Put the hash in config_server.password so the document does not hold the
password in plain text.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := auth.PromptAndConfirmPassword()
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}
