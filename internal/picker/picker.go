package picker

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/artifex-eng/opm500/internal/transport"
	"github.com/artifex-eng/opm500/internal/ui"
)

// ErrAborted is returned when the user quits the picker without
// selecting an instrument.
var ErrAborted = errors.New("instrument selection aborted")

// Messages for async operations
type scanStartMsg struct{}
type scanCompleteMsg struct {
	descriptors []string
	err         error
}

// pickerKeyMap defines key bindings for the selection list
type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Rescan key.Binding
	Manual key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Rescan, k.Manual, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter},
		{k.Rescan, k.Manual, k.Quit},
	}
}

// manualKeyMap defines key bindings for manual port entry mode
type manualKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (m manualKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{m.Confirm, m.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (m manualKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.Confirm, m.Cancel},
	}
}

// descriptorItem wraps a descriptor for use with bubbles/list
type descriptorItem struct {
	descriptor string
}

// Implement list.Item interface
func (d descriptorItem) FilterValue() string { return d.descriptor }

// Title returns the instrument name for list display
func (d descriptorItem) Title() string {
	if serial, err := transport.SerialFromDescriptor(d.descriptor); err == nil {
		return transport.ModelName + " " + serial
	}
	return d.descriptor
}

// Description returns the full descriptor for list display
func (d descriptorItem) Description() string { return d.descriptor }

// descriptorDelegate renders one row of the selection list
type descriptorDelegate struct{}

func (d descriptorDelegate) Height() int  { return 2 }
func (d descriptorDelegate) Spacing() int { return 1 }

func (d descriptorDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d descriptorDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	di, ok := item.(descriptorItem)
	if !ok {
		return
	}

	title := di.Title()
	detail := di.Description()

	if index == m.Index() {
		marker := lipgloss.NewStyle().Foreground(ui.PrimaryColor).Bold(true)
		fmt.Fprintf(w, "%s\n    %s",
			marker.Render("→ "+title),
			ui.SubtitleStyle.Render(detail))
		return
	}
	fmt.Fprintf(w, "  %s\n    %s", title, ui.SubtitleStyle.Render(detail))
}

// Model is the instrument selection screen state
type Model struct {
	// Scan state
	Scanning       bool
	DescriptorList list.Model
	Selected       string
	Err            error

	// Manual port entry state
	ManualMode bool
	PortInput  textinput.Model

	// UI state
	Width      int
	Height     int
	Spinner    spinner.Model
	Help       help.Model
	Keys       pickerKeyMap
	ManualKeys manualKeyMap
}

// New creates a new instrument selection model
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = ui.SpinnerStyle

	portInput := textinput.New()
	portInput.Placeholder = "/dev/ttyUSB0"
	portInput.CharLimit = 64
	portInput.Width = 30

	descriptorList := list.New([]list.Item{}, descriptorDelegate{}, 0, 0)
	descriptorList.Title = "Attached Instruments"
	descriptorList.SetShowStatusBar(false)
	descriptorList.SetFilteringEnabled(true)
	descriptorList.Styles.Title = ui.TitleStyle

	keys := pickerKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "connect"),
		),
		Rescan: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
		Manual: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "manual port"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
	}

	manualKeys := manualKeyMap{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}

	return Model{
		DescriptorList: descriptorList,
		PortInput:      portInput,
		Spinner:        s,
		Help:           help.New(),
		Keys:           keys,
		ManualKeys:     manualKeys,
	}
}

// Init starts the initial scan
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return scanStartMsg{} },
		scanInstruments,
		m.Spinner.Tick,
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.ManualMode {
			return m.updateManualMode(msg)
		}
		return m.updateListMode(msg)

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.DescriptorList.SetWidth(msg.Width - 4)
		m.DescriptorList.SetHeight(msg.Height - 8) // Leave room for header/footer

	case scanStartMsg:
		m.Scanning = true

	case scanCompleteMsg:
		m.Scanning = false
		m.Err = msg.err
		items := make([]list.Item, len(msg.descriptors))
		for i, desc := range msg.descriptors {
			items[i] = descriptorItem{descriptor: desc}
		}
		m.DescriptorList.SetItems(items)

	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	if !m.ManualMode && !m.Scanning {
		m.DescriptorList, cmd = m.DescriptorList.Update(msg)
	}

	return m, cmd
}

// updateListMode handles keyboard input in the selection list
func (m Model) updateListMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		return m, tea.Quit

	case "enter", " ":
		if item, ok := m.DescriptorList.SelectedItem().(descriptorItem); ok {
			m.Selected = item.descriptor
			return m, tea.Quit
		}

	case "r":
		m.DescriptorList.SetItems([]list.Item{})
		m.Err = nil
		return m, tea.Batch(
			func() tea.Msg { return scanStartMsg{} },
			scanInstruments,
			m.Spinner.Tick,
		)

	case "m":
		m.ManualMode = true
		m.PortInput.SetValue("")
		m.PortInput.Focus()
	}

	var cmd tea.Cmd
	m.DescriptorList, cmd = m.DescriptorList.Update(msg)
	return m, cmd
}

// updateManualMode handles keyboard input in manual port entry mode
func (m Model) updateManualMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.String() {
	case "ctrl+c", "esc":
		m.ManualMode = false
		m.PortInput.SetValue("")
		m.PortInput.Blur()
		return m, nil

	case "enter":
		value := strings.TrimSpace(m.PortInput.Value())
		if value != "" {
			m.Selected = value
			return m, tea.Quit
		}
	}

	m.PortInput, cmd = m.PortInput.Update(msg)
	return m, cmd
}

// View renders the selection screen
func (m Model) View() string {
	var b strings.Builder

	b.WriteString("\n")

	switch {
	case m.ManualMode:
		b.WriteString(ui.SubtitleStyle.Render("Enter serial port name"))
		b.WriteString("\n\n  Port: ")
		b.WriteString(m.PortInput.View())
		b.WriteString("\n\n")
		b.WriteString(m.Help.View(m.ManualKeys))

	case m.Scanning:
		b.WriteString(fmt.Sprintf("  %s Scanning serial ports for instruments...\n\n", m.Spinner.View()))
		b.WriteString(m.Help.View(m.Keys))

	case m.Err != nil:
		b.WriteString(ui.ErrorMessageStyle.Render(fmt.Sprintf("  Scan failed: %v", m.Err)))
		b.WriteString("\n\n  Troubleshooting:\n")
		b.WriteString("    • Check that the USB cable is plugged in\n")
		b.WriteString("    • Check your permissions on the serial device (dialout group)\n")
		b.WriteString("    • Press 'r' to rescan or 'm' to enter a port manually\n\n")
		b.WriteString(m.Help.View(m.Keys))

	case len(m.DescriptorList.Items()) == 0:
		warning := lipgloss.NewStyle().Foreground(ui.WarningColor).Bold(true)
		b.WriteString("  ")
		b.WriteString(warning.Render("⚠ No instruments found"))
		b.WriteString("\n\n  Troubleshooting:\n")
		b.WriteString("    • Check that the meter is powered on\n")
		b.WriteString("    • Check that the USB cable is plugged in\n")
		b.WriteString("    • Press 'r' to rescan or 'm' to enter a port manually\n\n")
		b.WriteString(m.Help.View(m.Keys))

	default:
		b.WriteString(m.DescriptorList.View())
		b.WriteString("\n")
		b.WriteString(m.Help.View(m.Keys))
	}

	return b.String()
}

// scanInstruments is a command that enumerates attached instruments
func scanInstruments() tea.Msg {
	// Enumeration is fast but give slow USB stacks a moment to settle
	time.Sleep(50 * time.Millisecond)

	descriptors, err := transport.ListDescriptors()
	return scanCompleteMsg{
		descriptors: descriptors,
		err:         err,
	}
}

// Run shows the picker and blocks until the user selects an instrument
// or quits. Returns the selected descriptor or port name.
func Run() (string, error) {
	final, err := tea.NewProgram(New()).Run()
	if err != nil {
		return "", fmt.Errorf("instrument picker failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.Selected == "" {
		return "", ErrAborted
	}
	return m.Selected, nil
}
