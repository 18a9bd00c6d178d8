package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/wifiman/internal/discovery"
)

// Screen represents the current active screen in the application
type Screen string

const (
	ScreenDiscovery Screen = "discovery"
	ScreenEditor    Screen = "editor"
)

// Options configures the editor program.
type Options struct {
	// Device opens the editor directly. Nil starts with discovery.
	Device *discovery.Device

	// Password is tried first on every device.
	Password string

	// DiscoverTimeout bounds each mDNS browse.
	DiscoverTimeout time.Duration
}

// AppModel is the top-level coordinator model that manages screen transitions
type AppModel struct {
	CurrentScreen Screen
	options       Options

	DiscoveryModel DiscoveryModel
	EditorModel    EditorModel

	// Device is the device last opened in the editor.
	Device *discovery.Device

	// Pushed is set once any push in this session has been verified.
	Pushed bool

	Width  int
	Height int
}

// NewAppModel creates the application model.
func NewAppModel(opts Options) AppModel {
	m := AppModel{options: opts}
	if opts.Device != nil {
		m.CurrentScreen = ScreenEditor
		m.Device = opts.Device
		m.EditorModel = NewEditorModel(opts.Device, opts.Password)
	} else {
		m.CurrentScreen = ScreenDiscovery
		m.DiscoveryModel = NewDiscoveryModel(opts.DiscoverTimeout)
	}
	return m
}

// Init initializes the current screen.
func (m AppModel) Init() tea.Cmd {
	switch m.CurrentScreen {
	case ScreenEditor:
		return m.EditorModel.Init()
	default:
		return m.DiscoveryModel.Init()
	}
}

// Update handles all messages and routes them to the appropriate screen
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		if m.CurrentScreen == ScreenEditor {
			e, _ := m.EditorModel.Update(msg)
			m.EditorModel = e.(EditorModel)
		} else {
			d, _ := m.DiscoveryModel.Update(msg)
			m.DiscoveryModel = d.(DiscoveryModel)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if msg.String() == "q" && m.quitAllowed() {
			return m, tea.Quit
		}
	}

	return m.updateCurrentScreen(msg)
}

// quitAllowed reports whether a plain q means quit on the current screen.
func (m AppModel) quitAllowed() bool {
	switch m.CurrentScreen {
	case ScreenEditor:
		return !m.EditorModel.Busy()
	default:
		d := m.DiscoveryModel
		return !d.ManualMode && d.DeviceList.FilterState() == list.Unfiltered
	}
}

// updateCurrentScreen routes updates to the currently active screen
func (m AppModel) updateCurrentScreen(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.CurrentScreen {
	case ScreenDiscovery:
		updated, cmd := m.DiscoveryModel.Update(msg)
		m.DiscoveryModel = updated.(DiscoveryModel)

		if dev := m.DiscoveryModel.GetSelectedDevice(); dev != nil {
			return m.openEditor(dev)
		}
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "esc" && m.quitAllowed() {
			return m, tea.Quit
		}
		return m, cmd

	case ScreenEditor:
		updated, cmd := m.EditorModel.Update(msg)
		m.EditorModel = updated.(EditorModel)
		if m.EditorModel.Pushed {
			m.Pushed = true
		}
		if m.EditorModel.IsBackRequested() {
			return m.goBack()
		}
		return m, cmd
	}
	return m, nil
}

func (m AppModel) openEditor(dev *discovery.Device) (tea.Model, tea.Cmd) {
	m.CurrentScreen = ScreenEditor
	m.Device = dev
	m.DiscoveryModel.Selected = false
	m.EditorModel = NewEditorModel(dev, m.options.Password)
	m.EditorModel.Width = m.Width
	m.EditorModel.Height = m.Height
	return m, m.EditorModel.Init()
}

// goBack leaves the editor. Without a discovery screen to return to the
// program ends.
func (m AppModel) goBack() (tea.Model, tea.Cmd) {
	if m.options.Device != nil {
		return m, tea.Quit
	}
	m.CurrentScreen = ScreenDiscovery
	m.DiscoveryModel = NewDiscoveryModel(m.options.DiscoverTimeout)
	d, _ := m.DiscoveryModel.Update(tea.WindowSizeMsg{Width: m.Width, Height: m.Height})
	m.DiscoveryModel = d.(DiscoveryModel)
	return m, m.DiscoveryModel.Init()
}

// View renders the current screen
func (m AppModel) View() string {
	if m.CurrentScreen == ScreenEditor {
		return m.EditorModel.View()
	}
	return m.DiscoveryModel.View()
}
