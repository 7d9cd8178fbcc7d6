package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/carverauto/stationwatch/pkg/models"
	"github.com/carverauto/stationwatch/pkg/version"
)

// Dracula theme colors.
const (
	draculaForeground = "#F8F8F2"
	draculaCyan       = "#8BE9FD"
	draculaGreen      = "#50FA7B"
	draculaOrange     = "#FFB86C"
	draculaPink       = "#FF79C6"
	draculaPurple     = "#BD93F9"
	draculaRed        = "#FF5555"
	draculaYellow     = "#F1FA8C"
	draculaComment    = "#6272A4"
)

const (
	defaultServerURL   = "http://127.0.0.1:5580"
	refreshInterval    = 2 * time.Second
	defaultTableHeight = 12
	minTableHeight     = 4
	chromeHeight       = 9
	appPadding         = 2
)

// Styling with lipgloss.
func newStyles() struct {
	title, help, hint, success, error, app lipgloss.Style
} {
	return struct {
		title, help, hint, success, error, app lipgloss.Style
	}{
		title: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaPink)).
			Bold(true),
		help: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaComment)),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaOrange)),
		success: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaGreen)),
		error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(draculaRed)).
			Bold(true),
		app: lipgloss.NewStyle().
			Padding(1, appPadding).
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color(draculaCyan)).
			Foreground(lipgloss.Color(draculaForeground)),
	}
}

// tickMsg drives the periodic poll of the daemon.
type tickMsg time.Time

// refreshMsg carries one poll result back into the update loop.
type refreshMsg struct {
	devices []models.DeviceListItem
	status  *models.StatusResponse
	err     error
}

type model struct {
	client      *apiClient
	serverURL   string
	table       table.Model
	devices     []models.DeviceListItem
	status      *models.StatusResponse
	err         error
	onlineOnly  bool
	canCopy     bool
	copyMessage string
	width       int
	height      int
	styles      struct {
		title, help, hint, success, error, app lipgloss.Style
	}
}

func initialModel(serverURL string, onlineOnly bool) *model {
	columns := []table.Column{
		{Title: "Hardware Address", Width: 17},
		{Title: "Status", Width: 8},
		{Title: "Stations", Width: 40},
		{Title: "Last Seen", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(defaultTableHeight),
	)

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(draculaPurple)).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color(draculaCyan))
	ts.Selected = ts.Selected.
		Foreground(lipgloss.Color(draculaGreen)).
		Background(lipgloss.Color(draculaComment)).
		Bold(false)
	t.SetStyles(ts)

	canCopy := true
	if err := clipboard.WriteAll(""); err != nil {
		canCopy = false
	}

	return &model{
		client:     newAPIClient(serverURL),
		serverURL:  serverURL,
		table:      t,
		onlineOnly: onlineOnly,
		canCopy:    canCopy,
		styles:     newStyles(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refresh polls the daemon once off the update loop.
func (m *model) refresh() tea.Cmd {
	client := m.client

	return func() tea.Msg {
		devices, err := client.fetchDevices()
		if err != nil {
			return refreshMsg{err: err}
		}

		status, err := client.fetchStatus()
		if err != nil {
			return refreshMsg{err: err}
		}

		return refreshMsg{devices: devices, status: status}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tickMsg:
		m.copyMessage = ""

		return m, tea.Batch(m.refresh(), tick())
	case refreshMsg:
		if msg.err != nil {
			m.err = msg.err

			return m, nil
		}

		m.err = nil
		m.devices = msg.devices
		m.status = msg.status
		m.buildRows()

		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

		return m, nil
	}

	return m, nil
}

func (m *model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Default case handles all unlisted keys
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m.quit()
	default:
		return m.handleDefault(msg)
	}
}

func (m *model) quit() (tea.Model, tea.Cmd) {
	return m, tea.Quit
}

func (m *model) handleDefault(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "o":
		m.onlineOnly = !m.onlineOnly
		m.buildRows()

		return m, nil
	case "r":
		return m, m.refresh()
	case "c":
		m.copySelected()

		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m *model) copySelected() {
	if !m.canCopy {
		m.copyMessage = "Clipboard unavailable"
		return
	}

	row := m.table.SelectedRow()
	if len(row) == 0 {
		return
	}

	if err := clipboard.WriteAll(row[0]); err != nil {
		m.copyMessage = "Failed to copy to clipboard"
	} else {
		m.copyMessage = "Address copied to clipboard!"
	}
}

// buildRows projects the device list into table rows, applying the
// online-only filter.
func (m *model) buildRows() {
	rows := make([]table.Row, 0, len(m.devices))

	for i := range m.devices {
		dev := &m.devices[i]

		if m.onlineOnly && !dev.Online {
			continue
		}

		status := "offline"
		if dev.Online {
			status = "online"
		}

		rows = append(rows, table.Row{
			dev.MAC,
			status,
			formatStations(dev.Stations),
			formatSince(lastSeen(&dev.Device)),
		})
	}

	m.table.SetRows(rows)

	if cursor := m.table.Cursor(); len(rows) > 0 && cursor >= len(rows) {
		m.table.SetCursor(len(rows) - 1)
	}
}

func (m *model) resize() {
	height := m.height - chromeHeight
	if height < minTableHeight {
		height = minTableHeight
	}

	m.table.SetHeight(height)
}

func (m *model) View() string {
	var content strings.Builder

	styles := m.styles

	// Title
	title := lipgloss.JoinHorizontal(
		lipgloss.Top,
		lipgloss.NewStyle().Foreground(lipgloss.Color(draculaPurple)).Render("📡 "),
		styles.title.Render("stationwatch: "+m.serverURL),
	)
	content.WriteString(title + "\n\n")

	// Device table
	content.WriteString(m.table.View() + "\n\n")

	// Footer: summary, help, transient messages
	content.WriteString(styles.hint.Render(m.summaryLine()) + "\n")
	content.WriteString(styles.help.Render("o → online only | j/k/↑/↓ → select | c → copy address | r → refresh | q/Ctrl+C → quit"))

	if m.copyMessage != "" {
		messageStyle := styles.success
		if strings.HasPrefix(m.copyMessage, "Failed") || strings.HasPrefix(m.copyMessage, "Clipboard") {
			messageStyle = styles.error
		}

		content.WriteString("\n" + messageStyle.Render(m.copyMessage))
	}

	if m.err != nil {
		content.WriteString("\n" + styles.error.Render(fmt.Sprintf("Error: %v (retrying)", m.err)))
	}

	return styles.app.Align(lipgloss.Left).Render(content.String())
}

func (m *model) summaryLine() string {
	shown := len(m.table.Rows())

	mode := "all"
	if m.onlineOnly {
		mode = "online"
	}

	if m.status == nil {
		return fmt.Sprintf("%d devices (%s)", shown, mode)
	}

	uptime := time.Duration(m.status.UptimeSeconds) * time.Second

	return fmt.Sprintf("%d/%d devices (%s) | %d online | last event %s | up %s | mem %.1f%% | cpu %.1f%%",
		shown, m.status.Devices, mode, m.status.Online,
		formatSince(m.status.LastEvent), uptime,
		m.status.MemoryUsedPercent, m.status.CPUPercent)
}

func formatStations(stations []models.Station) string {
	if len(stations) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(stations))
	for _, st := range stations {
		parts = append(parts, st.Hostname+"/"+st.Interface)
	}

	return strings.Join(parts, " ")
}

// lastSeen picks the most recent of a device's event timestamps.
func lastSeen(d *models.Device) *time.Time {
	latest := d.LastAssociated

	for _, ts := range []*time.Time{d.LastDisassociated, d.LastObserved} {
		if ts != nil && (latest == nil || ts.After(*latest)) {
			latest = ts
		}
	}

	return latest
}

func formatSince(ts *time.Time) string {
	if ts == nil {
		return "never"
	}

	elapsed := time.Since(*ts)

	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours()/24))
	}
}

func main() {
	serverURL := flag.String("server", defaultServerURL, "stationd base URL")
	onlineOnly := flag.Bool("online", false, "start with the online-only filter enabled")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("stationwatch %s\n", version.GetFullVersion())
		os.Exit(0)
	}

	p := tea.NewProgram(initialModel(*serverURL, *onlineOnly), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
