package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wifiman/internal/auth"
	"github.com/muurk/wifiman/internal/config"
	"github.com/muurk/wifiman/internal/deviceconfig"
	"github.com/muurk/wifiman/internal/discovery"
	"github.com/muurk/wifiman/internal/networks"
	"github.com/muurk/wifiman/internal/ui"
)

// errAborted is returned when the operator declines a confirmation.
var errAborted = errors.New("aborted")

var discoverTimeoutFlag time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find wifiman config servers on the local network",
	Long: `Browse mDNS for wifiman config servers and list them.

Every device found is recorded in the device registry so later commands
can name it with --host.`,
	Example: `  wifiman-cfg discover
  wifiman-cfg discover --timeout 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := loadRegistry()
		scanner := discovery.NewScanner()
		scanner.Timeout = discoverTimeout(reg)
		if discoverTimeoutFlag > 0 {
			scanner.Timeout = discoverTimeoutFlag
		}

		p := ui.NewPrinter(os.Stdout)
		p.PrintHeader("Discover", "wifiman-cfg discover", map[string]string{
			"Service": discovery.ServiceType,
			"Timeout": scanner.Timeout.String(),
		})
		p.Newline()

		var devices []*discovery.Device
		err := ui.Spin(p.Writer(), "Browsing "+discovery.ServiceType, func() error {
			var err error
			devices, err = scanner.ScanForDevicesWithContext(cmd.Context(), nil)
			return err
		})
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}

		for _, d := range devices {
			reg.Seen(d.Instance, d.IP, d.Port)
		}
		saveRegistry(reg)

		p.PrintTable(deviceHeaders, deviceRows(devices, reg), -1)
		p.Newline()
		p.Printf("%d device(s) found\n", len(devices))
		return nil
	},
}

var deviceHeaders = []string{"INSTANCE", "NICKNAME", "ADDRESS", "AUTH", "VERSION"}

func deviceRows(devices []*discovery.Device, reg *config.Registry) [][]string {
	sorted := append([]*discovery.Device(nil), devices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Instance < sorted[j].Instance })

	rows := make([][]string, 0, len(sorted))
	for _, d := range sorted {
		nickname := ""
		if known := reg.GetDevice(d.Instance); known != nil {
			nickname = known.Nickname
		}
		authMode := "basic"
		if !d.AuthRequired() {
			authMode = "none"
		}
		rows = append(rows, []string{
			d.Instance,
			nickname,
			strings.TrimPrefix(d.BaseURL(), "http://"),
			authMode,
			d.GetMetadata("version"),
		})
	}
	return rows
}

var nameCmd = &cobra.Command{
	Use:   "name <instance> <nickname>",
	Short: "Give a known device a nickname",
	Example: `  wifiman-cfg name garden-pi garden
  wifiman-cfg get --host garden`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := loadRegistry()
		if reg.GetDevice(args[0]) == nil {
			return fmt.Errorf("unknown device %q, run discover first", args[0])
		}
		reg.SetNickname(args[0], args[1])
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save device registry: %w", err)
		}
		fmt.Printf("%s is now %s\n", args[0], args[1])
		return nil
	},
}

var (
	getRaw    bool
	getOutput string
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the network document of a device",
	Example: `  wifiman-cfg get --host 192.168.1.40
  wifiman-cfg get --raw
  wifiman-cfg get --output networks.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := loadRegistry()
		client, t, err := newClient(cmd, reg)
		if err != nil {
			return err
		}

		data, err := client.GetDocument()
		if err != nil {
			p := ui.NewPrinter(os.Stderr)
			p.PrintError(readFailureTitle(t, err), errors.New(deviceconfig.GetShortErrorMessage(err)), troubleshoot(err))
			return err
		}
		reg.Seen(t.Instance, t.Host, t.Port)
		saveRegistry(reg)

		if getOutput != "" {
			if err := os.WriteFile(getOutput, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", getOutput, err)
			}
			fmt.Printf("Saved %d bytes to %s\n", len(data), getOutput)
			return nil
		}
		if getRaw {
			_, err := os.Stdout.Write(data)
			return err
		}

		doc, err := networks.Parse(data)
		if err != nil {
			return fmt.Errorf("device returned an unusable document: %w", err)
		}
		p := ui.NewPrinter(os.Stdout)
		p.PrintHeader("Network document", "wifiman-cfg get", map[string]string{
			"Device":  t.String(),
			"Summary": deviceconfig.Summary(doc),
		})
		p.Newline()
		p.Println(deviceconfig.FormatDocument(doc))
		return nil
	},
}

// pushEdits holds the document edit flags of the push command.
type pushEdits struct {
	add       []string
	companion []string
	remove    []string
	move      []string

	apEssid       string
	apPassword    string
	apCompanion   bool
	startPolicy   string
	serverPass    string
	hashPassword  bool
	disableServer bool

	// changed reports whether a flag was given on the command line.
	changed func(name string) bool
}

var (
	edits        pushEdits
	pushFile     string
	pushNoVerify bool
	pushRetries  int
	pushYes      bool
	pushDryRun   bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a network document to a device",
	Long: `Push a network document to a device and verify it took effect.

The document comes from --file, or from the device's current document with
the edit flags applied. Before pushing, the current document is saved; if
the read-back does not match, the saved document is pushed back.

Every push makes the device run a full setup cycle.`,
	Example: `  # Add a network at the end of the preference list
  wifiman-cfg push --add-network "Cabin=pinecone42"

  # Prefer it over everything else
  wifiman-cfg push --move "Cabin=1"

  # Replace the whole document
  wifiman-cfg push --file networks.json

  # Change the config server password, stored as an argon2id hash
  wifiman-cfg push --server-password 'n3w-s3cret' --hash-password`,
	RunE: runPush,
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeoutFlag, "timeout", 0, "How long to browse (default from the registry, 5s)")

	getCmd.Flags().BoolVar(&getRaw, "raw", false, "Print the document bytes as stored")
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "Save the document to a file")

	f := pushCmd.Flags()
	f.StringVarP(&pushFile, "file", "f", "", "Push this document instead of editing the current one")
	f.StringArrayVar(&edits.add, "add-network", nil, "Add or update a network, as SSID=PASSWORD (repeatable)")
	f.StringArrayVar(&edits.companion, "companion", nil, "Start the companion service on this SSID (repeatable)")
	f.StringArrayVar(&edits.remove, "remove-network", nil, "Remove a network by SSID (repeatable)")
	f.StringArrayVar(&edits.move, "move", nil, "Move a network to a 1-based position, as SSID=POS (repeatable)")
	f.StringVar(&edits.apEssid, "ap-essid", "", "Access point network name")
	f.StringVar(&edits.apPassword, "ap-password", "", "Access point passphrase (empty for an open AP)")
	f.BoolVar(&edits.apCompanion, "ap-companion", false, "Start the companion service while the AP is active")
	f.StringVar(&edits.startPolicy, "start-policy", "", "Access point start policy (never, fallback, always)")
	f.StringVar(&edits.serverPass, "server-password", "", "Enable the config server with this password")
	f.BoolVar(&edits.hashPassword, "hash-password", false, "Store --server-password as an argon2id hash")
	f.BoolVar(&edits.disableServer, "disable-server", false, "Turn the config server off")
	f.BoolVar(&pushNoVerify, "no-verify", false, "Skip read-back verification and rollback")
	f.IntVar(&pushRetries, "verify-retries", 3, "Read-back attempts before rolling back")
	f.BoolVarP(&pushYes, "yes", "y", false, "Do not ask for confirmation")
	f.BoolVar(&pushDryRun, "dry-run", false, "Print the document that would be pushed and exit")
	edits.changed = f.Changed

	rootCmd.AddCommand(nameCmd)
}

// any reports whether at least one edit flag was given.
func (e *pushEdits) any() bool {
	for _, name := range []string{"ap-essid", "ap-password", "ap-companion", "start-policy", "server-password", "disable-server"} {
		if e.changed != nil && e.changed(name) {
			return true
		}
	}
	return len(e.add)+len(e.companion)+len(e.remove)+len(e.move) > 0
}

func (e *pushEdits) flagSet(name string) bool {
	return e.changed != nil && e.changed(name)
}

// build applies the edits to current and returns the encoded document.
func (e *pushEdits) build(current []byte) ([]byte, []error, error) {
	doc, err := networks.Parse(current)
	if err != nil {
		return nil, nil, deviceconfig.NewValidationError(fmt.Sprintf("current document: %v", err))
	}
	b := deviceconfig.NewDocumentBuilder(current)

	companion := make(map[string]bool, len(e.companion))
	for _, ssid := range e.companion {
		companion[ssid] = true
	}
	for _, arg := range e.add {
		ssid, pw, ok := strings.Cut(arg, "=")
		if !ok || ssid == "" {
			return nil, nil, fmt.Errorf("--add-network %q: want SSID=PASSWORD", arg)
		}
		b.AddNetwork(ssid, pw, companion[ssid])
		delete(companion, ssid)
	}
	for _, n := range doc.KnownNetworks {
		if companion[n.SSID] {
			b.AddNetwork(n.SSID, n.Password, true)
			delete(companion, n.SSID)
		}
	}
	for _, ssid := range e.companion {
		if companion[ssid] {
			return nil, nil, fmt.Errorf("--companion %q: network is not in the document", ssid)
		}
	}
	for _, ssid := range e.remove {
		b.RemoveNetwork(ssid)
	}
	for _, arg := range e.move {
		ssid, posText, ok := strings.Cut(arg, "=")
		pos, err := strconv.Atoi(posText)
		if !ok || err != nil || pos < 1 {
			return nil, nil, fmt.Errorf("--move %q: want SSID=POS with POS starting at 1", arg)
		}
		b.MoveNetwork(ssid, pos-1)
	}

	if e.flagSet("ap-essid") || e.flagSet("ap-password") {
		essid := doc.AccessPoint.Config.Essid()
		if e.flagSet("ap-essid") {
			essid = e.apEssid
		}
		pw, _ := doc.AccessPoint.Config["password"].(string)
		if e.flagSet("ap-password") {
			pw = e.apPassword
		}
		b.SetAccessPoint(essid, pw)
	}
	if e.flagSet("ap-companion") {
		b.SetAccessPointCompanion(e.apCompanion)
	}
	if e.flagSet("start-policy") {
		p, ok := networks.ParsePolicy(e.startPolicy)
		if !ok {
			return nil, nil, fmt.Errorf("--start-policy %q: want never, fallback or always", e.startPolicy)
		}
		b.SetStartPolicy(p)
	}

	if e.flagSet("server-password") && e.disableServer {
		return nil, nil, errors.New("--server-password and --disable-server cannot be combined")
	}
	if e.flagSet("server-password") {
		pw := e.serverPass
		if e.hashPassword {
			if pw, err = auth.HashPassword(pw); err != nil {
				return nil, nil, err
			}
		}
		b.SetServerPassword(pw)
	}
	if e.disableServer {
		b.DisableServer()
	}

	if !b.HasChanges() {
		return nil, nil, errors.New("no changes to push")
	}
	return b.Build()
}

// readDocumentFile loads and validates a document for --file.
func readDocumentFile(path string) ([]byte, []error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	_, problems := deviceconfig.ValidateDocument(data)
	warnings, critical := deviceconfig.SeparateWarningsAndErrors(problems)
	if len(critical) > 0 {
		return nil, warnings, deviceconfig.NewValidationError(deviceconfig.FormatValidationErrors(critical))
	}
	return data, warnings, nil
}

func warningDetails(warnings []error) map[string]string {
	details := make(map[string]string, len(warnings))
	for i, w := range warnings {
		details[strconv.Itoa(i+1)] = w.Error()
	}
	return details
}

func runPush(cmd *cobra.Command, args []string) error {
	if pushFile != "" && edits.any() {
		return errors.New("--file cannot be combined with edit flags")
	}
	if pushFile == "" && !edits.any() {
		return errors.New("nothing to push: pass --file or an edit flag")
	}

	reg := loadRegistry()
	client, t, err := newClient(cmd, reg)
	if err != nil {
		return err
	}
	p := ui.NewPrinter(os.Stdout)

	var (
		data     []byte
		warnings []error
	)
	if pushFile != "" {
		data, warnings, err = readDocumentFile(pushFile)
	} else {
		var current []byte
		current, err = client.GetDocument()
		if err != nil {
			p.PrintError(readFailureTitle(t, err), errors.New(deviceconfig.GetShortErrorMessage(err)), troubleshoot(err))
			return err
		}
		data, warnings, err = edits.build(current)
	}
	if len(warnings) > 0 {
		p.PrintWarning("Document warnings", warningDetails(warnings))
		p.Newline()
	}
	if err != nil {
		return err
	}

	if pushDryRun {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}

	doc, err := networks.Parse(data)
	if err != nil {
		return err
	}
	if !doc.ServerEnabled() && !pushYes {
		ok := ui.Confirm(os.Stdin, os.Stdout, "This document turns the config server off", []string{
			"The server keeps running until the device restarts",
			"After that wifiman-cfg cannot reach the device",
			"Re-enable it by editing /networks.json on the device",
		}, "DISABLE")
		if !ok {
			return errAborted
		}
	}

	steps := []string{"Save current document", "Push document", "Verify read-back"}
	if pushNoVerify {
		steps = []string{"Push document"}
	}
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Push",
		Command: "wifiman-cfg push",
		Params: map[string]string{
			"Device":   t.String(),
			"Document": deviceconfig.Summary(doc),
		},
		StepNames:    steps,
		Troubleshoot: troubleshoot,
	})

	err = runner.Run(func(onStep ui.StepCallback) (map[string]string, error) {
		if pushNoVerify {
			return pushOnly(client, data, onStep)
		}
		return safePush(client, data, onStep)
	})
	if err != nil {
		return err
	}

	reg.Seen(t.Instance, t.Host, t.Port)
	reg.Pushed(t.Instance)
	saveRegistry(reg)
	return nil
}

func pushOnly(client *deviceconfig.Client, data []byte, onStep ui.StepCallback) (map[string]string, error) {
	onStep(1, ui.StepRunning, "")
	if err := client.PushDocument(data); err != nil {
		onStep(1, ui.StepFailed, deviceconfig.GetShortErrorMessage(err))
		return nil, err
	}
	onStep(1, ui.StepComplete, "")
	return map[string]string{"Verified": "no"}, nil
}

func safePush(client *deviceconfig.Client, data []byte, onStep ui.StepCallback) (map[string]string, error) {
	opts := deviceconfig.DefaultVerificationOptions()
	opts.MaxRetries = pushRetries

	onStep(1, ui.StepRunning, "")
	result := deviceconfig.NewRollbackManager(client).SafePush(data, opts, "wifiman-cfg push")

	push := result.PushResult
	if push == nil {
		onStep(1, ui.StepFailed, "")
		onStep(2, ui.StepSkipped, "")
		onStep(3, ui.StepSkipped, "")
		return nil, result.Error
	}
	onStep(1, ui.StepComplete, "")

	if push.Attempts == 0 {
		onStep(2, ui.StepFailed, deviceconfig.GetShortErrorMessage(push.Error))
		onStep(3, ui.StepSkipped, "")
		return nil, result.Error
	}
	onStep(2, ui.StepComplete, "")

	if !result.Success {
		msg := "mismatch, rollback failed"
		if result.RollbackSucceeded {
			msg = "mismatch, previous document restored"
		}
		onStep(3, ui.StepFailed, msg)
		return nil, result.Error
	}
	onStep(3, ui.StepComplete, fmt.Sprintf("%d attempt(s)", push.Attempts))

	return map[string]string{
		"Verified": "yes",
		"Bytes":    strconv.Itoa(len(data)),
	}, nil
}
