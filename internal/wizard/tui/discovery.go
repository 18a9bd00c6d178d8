package tui

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifiman/internal/discovery"
)

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	devices []*discovery.Device
	err     error
}

// discoveryKeyMap defines key bindings for the discovery screen
type discoveryKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k discoveryKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k discoveryKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualKeyMap defines key bindings for manual address entry
type manualKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (m manualKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

func (m manualKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{m.Confirm, m.Cancel}}
}

// deviceItem wraps a Device for use with bubbles/list
type deviceItem struct {
	device *discovery.Device
}

// FilterValue matches on instance, address and hostname.
func (d deviceItem) FilterValue() string {
	return d.device.Instance + " " + d.device.IP + " " + d.device.Hostname
}

func (d deviceItem) Title() string {
	return d.device.Instance
}

func (d deviceItem) Description() string {
	return net.JoinHostPort(d.device.IP, strconv.Itoa(d.device.Port))
}

// deviceDelegate renders one device card per list entry.
type deviceDelegate struct {
	width int
}

func (d deviceDelegate) Height() int { return 5 }

func (d deviceDelegate) Spacing() int { return 0 }

func (d deviceDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d deviceDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(deviceItem)
	if !ok {
		return
	}
	device := it.device
	selected := index == m.Index()

	authMode := "password"
	if !device.AuthRequired() {
		authMode = "open"
	}
	ver := device.GetMetadata("version")
	if ver == "" {
		ver = "unknown"
	}

	var content strings.Builder
	if selected {
		content.WriteString(SelectedStyle.Render("→ " + it.Title()))
	} else {
		content.WriteString("  " + it.Title())
	}
	content.WriteString("\n")
	fmt.Fprintf(&content, "  %s%s\n", LabelStyle.Render("Address"), it.Description())
	fmt.Fprintf(&content, "  %s%s · version %s", LabelStyle.Render("Auth"), authMode, ver)

	card := CardStyle.Width(contentWidth(d.width) - 8)
	if selected {
		card = card.BorderForeground(HighlightColor)
	}
	fmt.Fprint(w, card.Render(content.String()))
}

// DiscoveryModel represents the device discovery screen state
type DiscoveryModel struct {
	Scanning   bool
	DeviceList list.Model
	Selected   bool
	Err        error

	// ManualMode is set while an address is being typed.
	ManualMode bool
	HostInput  textinput.Model

	Timeout time.Duration

	Width         int
	Height        int
	Spinner       spinner.Model
	ProgressBar   progress.Model
	ScanStartTime time.Time
	Help          help.Model
	Keys          discoveryKeyMap
	ManualKeys    manualKeyMap
}

// NewDiscoveryModel creates a discovery screen that browses for timeout.
func NewDiscoveryModel(timeout time.Duration) DiscoveryModel {
	if timeout <= 0 {
		timeout = discovery.DefaultScanTimeout
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	hostInput := textinput.New()
	hostInput.Placeholder = "192.168.4.1:8080"
	hostInput.CharLimit = 64
	hostInput.Width = 30

	progressBar := progress.New(progress.WithDefaultGradient())
	progressBar.Width = 40

	deviceList := list.New([]list.Item{}, deviceDelegate{width: MinTerminalWidth}, 0, 0)
	deviceList.Title = "Config servers"
	deviceList.SetShowStatusBar(false)
	deviceList.SetFilteringEnabled(true)
	deviceList.SetShowHelp(false)
	deviceList.Styles.Title = TitleStyle

	keys := discoveryKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "move up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "move down")),
		Enter:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		Rescan: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		Manual: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "enter address")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "quit")),
	}
	manualKeys := manualKeyMap{
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}

	return DiscoveryModel{
		DeviceList:  deviceList,
		HostInput:   hostInput,
		Timeout:     timeout,
		Spinner:     s,
		ProgressBar: progressBar,
		Help:        help.New(),
		Keys:        keys,
		ManualKeys:  manualKeys,
	}
}

// Init starts the first scan.
func (m DiscoveryModel) Init() tea.Cmd {
	return m.startScan()
}

func (m DiscoveryModel) startScan() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanDevices(m.Timeout),
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m DiscoveryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		if !m.Scanning {
			return m.updateNormalMode(msg)
		}
		if msg.String() == "m" {
			return m.enterManualMode(), textinput.Blink
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DeviceList.SetDelegate(deviceDelegate{width: msg.Width})
		m.DeviceList.SetWidth(contentWidth(msg.Width) - 4)
		m.DeviceList.SetHeight(max(msg.Height-8, 5))

	case scanStartMsg:
		m.Scanning = true
		m.ScanStartTime = time.Now()

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.devices))
		for i, dev := range msg.devices {
			items[i] = deviceItem{device: dev}
		}
		m.DeviceList.SetItems(items)

	case spinner.TickMsg:
		if !m.Scanning {
			return m, nil
		}
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m DiscoveryModel) enterManualMode() DiscoveryModel {
	m.ManualMode = true
	m.Err = nil
	m.HostInput.SetValue("")
	m.HostInput.Focus()
	return m
}

// updateNormalMode handles keyboard input in normal device list mode
func (m DiscoveryModel) updateNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.DeviceList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.DeviceList, cmd = m.DeviceList.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		if m.DeviceList.SelectedItem() != nil {
			m.Selected = true
		}
		return m, nil

	case "r":
		m.DeviceList.SetItems([]list.Item{})
		m.Err = nil
		return m, m.startScan()

	case "m":
		return m.enterManualMode(), textinput.Blink
	}

	var cmd tea.Cmd
	m.DeviceList, cmd = m.DeviceList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input in manual address entry mode
func (m DiscoveryModel) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ManualMode = false
		m.HostInput.Blur()
		return m, nil

	case "enter":
		device, err := ParseAddress(m.HostInput.Value())
		if err != nil {
			m.Err = err
			return m, nil
		}
		items := append([]list.Item{deviceItem{device: device}}, m.DeviceList.Items()...)
		m.DeviceList.SetItems(items)
		m.DeviceList.Select(0)
		m.ManualMode = false
		m.Err = nil
		m.HostInput.Blur()
		m.Selected = true
		return m, nil
	}

	var cmd tea.Cmd
	m.HostInput, cmd = m.HostInput.Update(msg)
	return m, cmd
}

// ParseAddress turns "host" or "host:port" into a device on the default
// config server port.
func ParseAddress(addr string) (*discovery.Device, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("address is empty")
	}

	host, port := addr, discovery.DefaultPort
	if h, p, err := net.SplitHostPort(addr); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return nil, fmt.Errorf("invalid port %q", p)
		}
		host, port = h, n
	}

	return &discovery.Device{
		Instance:     host,
		Hostname:     host,
		IP:           host,
		Port:         port,
		DiscoveredAt: time.Now(),
	}, nil
}

// View renders the discovery screen
func (m DiscoveryModel) View() string {
	var content, helpText string
	switch {
	case m.ManualMode:
		content = m.renderManualEntry()
		helpText = m.Help.View(m.ManualKeys)
	case m.Scanning:
		content = m.renderScanning()
		helpText = "m enter address • ctrl+c quit"
	default:
		content = m.renderDeviceResults()
		helpText = m.Help.View(m.Keys)
	}
	return RenderApplicationContainer(content, helpText, m.Width, m.Height)
}

func (m DiscoveryModel) renderScanning() string {
	elapsed := time.Since(m.ScanStartTime)
	fraction := min(elapsed.Seconds()/m.Timeout.Seconds(), 1)

	content := lipgloss.JoinVertical(lipgloss.Center,
		"",
		TitleStyle.Render(m.Spinner.View()+" SEARCHING FOR CONFIG SERVERS"),
		SubtitleStyle.Render("Browsing "+discovery.ServiceType+" on the local network"),
		"",
		m.ProgressBar.ViewAs(fraction),
		"",
		SubtitleStyle.Render(fmt.Sprintf("Elapsed: %ds", int(elapsed.Seconds()))),
	)
	return lipgloss.Place(contentWidth(m.Width)-4, 0, lipgloss.Center, lipgloss.Top, content)
}

func (m DiscoveryModel) renderDeviceResults() string {
	var b strings.Builder
	b.WriteString("\n")

	switch {
	case m.Err != nil:
		b.WriteString("  " + RenderError(fmt.Sprintf("Scan failed: %v", m.Err)))
		b.WriteString("\n\n")
		b.WriteString(troubleshootingText)
	case len(m.DeviceList.Items()) == 0:
		b.WriteString("  " + WarningStyle.Bold(true).Render("⚠ No config servers found"))
		b.WriteString("\n\n")
		b.WriteString(troubleshootingText)
	default:
		b.WriteString(m.DeviceList.View())
	}
	return b.String()
}

const troubleshootingText = `  Troubleshooting:
    • The device only advertises when config_server.advertise is set
    • A device that fell back to its access point is on another network
    • Press m to type the address instead
`

func (m DiscoveryModel) renderManualEntry() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(RenderSubtitle("  Enter the device address (host or host:port)"))
	b.WriteString("\n\n  Address: ")
	b.WriteString(m.HostInput.View())
	b.WriteString("\n")
	if m.Err != nil {
		b.WriteString("\n  " + RenderError(m.Err.Error()) + "\n")
	}
	return b.String()
}

// GetSelectedDevice returns the selected device (if any)
func (m DiscoveryModel) GetSelectedDevice() *discovery.Device {
	if !m.Selected {
		return nil
	}
	if item, ok := m.DeviceList.SelectedItem().(deviceItem); ok {
		return item.device
	}
	return nil
}

// scanDevices browses mDNS for timeout.
func scanDevices(timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		scanner := discovery.NewScanner()
		scanner.Timeout = timeout
		devices, err := scanner.ScanForDevices()
		return scanCompleteMsg{devices: devices, err: err}
	}
}
