package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/wifiman/internal/deviceconfig"
	"github.com/muurk/wifiman/internal/discovery"
	"github.com/muurk/wifiman/internal/networks"
)

type docLoadedMsg struct {
	data []byte
	err  error
}

type pushDoneMsg struct {
	data   []byte
	result *deviceconfig.SafePushResult
}

type editorMode int

const (
	modeLoading editorMode = iota
	modeBrowse
	modePassword
	modeAdd
	modePushing
)

// editorKeyMap defines key bindings for the editor in browse mode
type editorKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	Add       key.Binding
	Delete    key.Binding
	Companion key.Binding
	Policy    key.Binding
	Save      key.Binding
	Reload    key.Binding
	Back      key.Binding
}

func (k editorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.MoveUp, k.MoveDown, k.Add, k.Delete, k.Save, k.Back}
}

func (k editorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.MoveUp, k.MoveDown},
		{k.Add, k.Delete, k.Companion, k.Policy},
		{k.Save, k.Reload, k.Back},
	}
}

// EditorModel edits the document of one device.
type EditorModel struct {
	Device *discovery.Device
	client *deviceconfig.Client

	// original is the document as last read from or pushed to the device.
	original []byte
	builder  *deviceconfig.DocumentBuilder

	mode   editorMode
	cursor int

	passwordInput textinput.Model
	ssidInput     textinput.Model
	pskInput      textinput.Model

	// Status is the last outcome shown under the document.
	Status   string
	Warnings []string
	Err      error

	// Pushed is set once a push has been verified.
	Pushed bool

	backRequested bool

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    editorKeyMap
}

// NewEditorModel creates an editor for device. The document is fetched in
// Init.
func NewEditorModel(device *discovery.Device, password string) EditorModel {
	client := deviceconfig.NewClient(device.IP, device.Port)
	client.Password = password

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	pw := textinput.New()
	pw.Placeholder = "config server password"
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'

	ssid := textinput.New()
	ssid.Placeholder = "SSID"
	ssid.CharLimit = 32

	psk := textinput.New()
	psk.Placeholder = "passphrase (empty for an open network)"
	psk.CharLimit = 64
	psk.EchoMode = textinput.EchoPassword
	psk.EchoCharacter = '•'

	keys := editorKeyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		MoveUp:    key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "prefer")),
		MoveDown:  key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "demote")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Companion: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "companion")),
		Policy:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "AP policy")),
		Save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "push")),
		Reload:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}

	return EditorModel{
		Device:        device,
		client:        client,
		mode:          modeLoading,
		passwordInput: pw,
		ssidInput:     ssid,
		pskInput:      psk,
		Spinner:       s,
		Help:          help.New(),
		Keys:          keys,
	}
}

// Init fetches the document.
func (m EditorModel) Init() tea.Cmd {
	return tea.Batch(loadDocument(m.client), m.Spinner.Tick)
}

// IsBackRequested reports whether the user left the editor.
func (m EditorModel) IsBackRequested() bool {
	return m.backRequested
}

// Busy reports whether a request is in flight or text is being typed, so
// single-letter global keys must not be interpreted.
func (m EditorModel) Busy() bool {
	return m.mode != modeBrowse
}

// Document returns the edited document, or nil before it is loaded.
func (m EditorModel) Document() *networks.Document {
	if m.builder == nil {
		return nil
	}
	return m.builder.Document()
}

// Update handles messages and updates the model
func (m EditorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case docLoadedMsg:
		return m.loaded(msg)

	case pushDoneMsg:
		return m.pushed(msg)

	case spinner.TickMsg:
		if m.mode != modeLoading && m.mode != modePushing {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeBrowse:
			return m.updateBrowse(msg)
		case modePassword:
			return m.updatePassword(msg)
		case modeAdd:
			return m.updateAdd(msg)
		}
	}
	return m, nil
}

func (m EditorModel) loaded(msg docLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if deviceconfig.IsAuthError(msg.err) {
			m.mode = modePassword
			m.Err = errors.New(deviceconfig.GetShortErrorMessage(msg.err))
			m.passwordInput.SetValue("")
			return m, m.passwordInput.Focus()
		}
		m.mode = modeBrowse
		m.Err = msg.err
		return m, nil
	}

	m.original = msg.data
	m.builder = deviceconfig.NewDocumentBuilder(msg.data)
	m.mode = modeBrowse
	m.cursor = 0
	m.Err = nil
	m.Warnings = nil
	m.Status = deviceconfig.Summary(m.builder.Document())
	return m, nil
}

func (m EditorModel) pushed(msg pushDoneMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.result.Success {
		m.Pushed = true
		m.original = msg.data
		m.builder = deviceconfig.NewDocumentBuilder(msg.data)
		m.cursor = min(m.cursor, max(len(m.builder.Document().KnownNetworks)-1, 0))
		m.Err = nil
		m.Status = fmt.Sprintf("Pushed and verified in %d attempt(s)", msg.result.PushResult.Attempts)
		return m, nil
	}

	m.Err = msg.result.Error
	if msg.result.RollbackSucceeded {
		m.Status = "The device has its previous document again; your edits are kept"
	} else {
		m.Status = ""
	}
	return m, nil
}

func (m EditorModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.builder == nil {
		switch {
		case key.Matches(msg, m.Keys.Reload):
			return m.reload()
		case key.Matches(msg, m.Keys.Back):
			m.backRequested = true
		}
		return m, nil
	}

	list := m.builder.Document().KnownNetworks
	switch {
	case key.Matches(msg, m.Keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.Keys.Down):
		if m.cursor < len(list)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.Keys.MoveUp):
		if m.cursor > 0 {
			m.builder.MoveNetwork(list[m.cursor].SSID, m.cursor-1)
			m.cursor--
			m.Status = ""
		}

	case key.Matches(msg, m.Keys.MoveDown):
		if m.cursor < len(list)-1 {
			m.builder.MoveNetwork(list[m.cursor].SSID, m.cursor+1)
			m.cursor++
			m.Status = ""
		}

	case key.Matches(msg, m.Keys.Delete):
		if len(list) > 0 {
			m.builder.RemoveNetwork(list[m.cursor].SSID)
			m.cursor = min(m.cursor, max(len(m.builder.Document().KnownNetworks)-1, 0))
			m.Status = ""
		}

	case key.Matches(msg, m.Keys.Companion):
		if len(list) > 0 {
			n := list[m.cursor]
			m.builder.AddNetwork(n.SSID, n.Password, !n.EnablesCompanion)
		}

	case key.Matches(msg, m.Keys.Policy):
		p := m.builder.Document().AccessPoint.StartPolicy
		m.builder.SetStartPolicy((p + 1) % (networks.PolicyAlways + 1))

	case key.Matches(msg, m.Keys.Add):
		m.mode = modeAdd
		m.Err = nil
		m.ssidInput.SetValue("")
		m.pskInput.SetValue("")
		m.pskInput.Blur()
		return m, m.ssidInput.Focus()

	case key.Matches(msg, m.Keys.Save):
		return m.save()

	case key.Matches(msg, m.Keys.Reload):
		return m.reload()

	case key.Matches(msg, m.Keys.Back):
		m.backRequested = true
	}
	return m, nil
}

func (m EditorModel) reload() (tea.Model, tea.Cmd) {
	m.mode = modeLoading
	m.Err = nil
	m.Status = ""
	return m, tea.Batch(loadDocument(m.client), m.Spinner.Tick)
}

func (m EditorModel) save() (tea.Model, tea.Cmd) {
	if !m.builder.HasChanges() {
		m.Status = "Nothing to push"
		return m, nil
	}
	data, warnings, err := m.builder.Build()
	m.Warnings = nil
	for _, w := range warnings {
		m.Warnings = append(m.Warnings, w.Error())
	}
	if err != nil {
		m.Err = err
		return m, nil
	}

	m.mode = modePushing
	m.Err = nil
	m.Status = ""
	return m, tea.Batch(pushDocument(m.client, data), m.Spinner.Tick)
}

func (m EditorModel) updatePassword(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.passwordInput.Blur()
		m.mode = modeBrowse
		return m, nil
	case "enter":
		m.client.Password = m.passwordInput.Value()
		m.passwordInput.Blur()
		return m.reload()
	}
	var cmd tea.Cmd
	m.passwordInput, cmd = m.passwordInput.Update(msg)
	return m, cmd
}

func (m EditorModel) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.ssidInput.Blur()
		m.pskInput.Blur()
		m.mode = modeBrowse
		return m, nil

	case "tab", "shift+tab":
		if m.ssidInput.Focused() {
			m.ssidInput.Blur()
			return m, m.pskInput.Focus()
		}
		m.pskInput.Blur()
		return m, m.ssidInput.Focus()

	case "enter":
		if m.ssidInput.Focused() {
			m.ssidInput.Blur()
			return m, m.pskInput.Focus()
		}
		ssid, psk := m.ssidInput.Value(), m.pskInput.Value()
		if err := deviceconfig.ValidateSSID(ssid); err != nil {
			m.Err = err
			return m, nil
		}
		if err := deviceconfig.ValidatePassphrase(psk); err != nil {
			m.Err = err
			return m, nil
		}
		m.builder.AddNetwork(ssid, psk, false)
		m.cursor = len(m.builder.Document().KnownNetworks) - 1
		for i, n := range m.builder.Document().KnownNetworks {
			if n.SSID == ssid {
				m.cursor = i
			}
		}
		m.pskInput.Blur()
		m.mode = modeBrowse
		m.Err = nil
		m.Status = fmt.Sprintf("Added %s", ssid)
		return m, nil
	}

	var cmd tea.Cmd
	if m.ssidInput.Focused() {
		m.ssidInput, cmd = m.ssidInput.Update(msg)
	} else {
		m.pskInput, cmd = m.pskInput.Update(msg)
	}
	return m, cmd
}

// View renders the editor screen
func (m EditorModel) View() string {
	var helpText string
	switch m.mode {
	case modeBrowse:
		helpText = m.Help.View(m.Keys)
	case modeAdd:
		helpText = "tab switch field • enter confirm • esc cancel"
	case modePassword:
		helpText = "enter confirm • esc cancel"
	default:
		helpText = "ctrl+c quit"
	}
	return RenderApplicationContainer(m.renderContent(), helpText, m.Width, m.Height)
}

func (m EditorModel) renderContent() string {
	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("  %s (%s)", m.Device.Instance, m.client.BaseURL)))
	b.WriteString("\n")

	switch m.mode {
	case modeLoading:
		b.WriteString("  " + m.Spinner.View() + " Reading the network document...\n")
		return b.String()
	case modePushing:
		b.WriteString("  " + m.Spinner.View() + " Pushing, verifying and rolling back if needed...\n")
		b.WriteString(RenderSubtitle("  The device runs a full setup cycle before it answers"))
		b.WriteString("\n")
		return b.String()
	case modePassword:
		if m.Err != nil {
			b.WriteString("  " + RenderError(m.Err.Error()) + "\n\n")
		}
		b.WriteString("  Password for " + deviceconfig.Username + ": " + m.passwordInput.View() + "\n")
		return b.String()
	}

	if doc := m.Document(); doc != nil {
		b.WriteString(m.renderDocument(doc))
	}

	if m.mode == modeAdd {
		b.WriteString("\n  " + RenderSubtitle("Add a network") + "\n")
		b.WriteString("  " + LabelStyle.Render("SSID") + m.ssidInput.View() + "\n")
		b.WriteString("  " + LabelStyle.Render("Passphrase") + m.pskInput.View() + "\n")
	}

	b.WriteString("\n")
	for _, w := range m.Warnings {
		b.WriteString("  " + WarningStyle.Render("⚠ "+w) + "\n")
	}
	if m.Err != nil {
		b.WriteString("  " + RenderError(m.Err.Error()) + "\n")
	}
	if m.Status != "" {
		if m.Pushed && m.Err == nil && strings.HasPrefix(m.Status, "Pushed") {
			b.WriteString("  " + RenderSuccess(m.Status) + "\n")
		} else {
			b.WriteString("  " + RenderSubtitle(m.Status) + "\n")
		}
	}
	if m.builder != nil && m.builder.HasChanges() {
		b.WriteString("  " + WarningStyle.Render("Unpushed changes, press s to push") + "\n")
	}
	return b.String()
}

func (m EditorModel) renderDocument(doc *networks.Document) string {
	var b strings.Builder

	b.WriteString("  " + RenderSubtitle("Known networks, most preferred first") + "\n")
	if len(doc.KnownNetworks) == 0 {
		b.WriteString("    (none)\n")
	}
	for i, n := range doc.KnownNetworks {
		line := fmt.Sprintf("%d. %s", i+1, n.SSID)
		if n.EnablesCompanion {
			line += "  [companion]"
		}
		if n.Password == "" {
			line += "  (open)"
		}
		if i == m.cursor {
			b.WriteString("  " + SelectedStyle.Render("→ "+line) + "\n")
		} else {
			b.WriteString("    " + line + "\n")
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s%s\n", LabelStyle.Render("AP essid"), doc.AccessPoint.Config.Essid())
	fmt.Fprintf(&b, "  %s%s\n", LabelStyle.Render("AP policy"), doc.AccessPoint.StartPolicy)
	server := "disabled"
	if doc.ServerEnabled() {
		server = "enabled"
	}
	fmt.Fprintf(&b, "  %s%s\n", LabelStyle.Render("Config server"), server)
	return b.String()
}

func loadDocument(client *deviceconfig.Client) tea.Cmd {
	return func() tea.Msg {
		data, err := client.GetDocument()
		return docLoadedMsg{data: data, err: err}
	}
}

func pushDocument(client *deviceconfig.Client, data []byte) tea.Cmd {
	return func() tea.Msg {
		rm := deviceconfig.NewRollbackManager(client)
		return pushDoneMsg{
			data:   data,
			result: rm.SafePush(data, deviceconfig.DefaultVerificationOptions(), "wifiman-cfg edit"),
		}
	}
}
