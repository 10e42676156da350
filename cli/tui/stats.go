package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/segwire/cli/reader"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewStatsMetrics:
		content = m.renderMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderMetrics() string {
	data, ok := m.data.(*reader.MetricsView)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Relay Metrics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Channel:"), ValueStyle.Render(data.Channel))
	fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Transport:"), ValueStyle.Render(data.Transport))
	fmt.Fprintf(&b, "%s %s\n\n", LabelStyle.Render("Recorded:"), ValueStyle.Render(data.Ts))

	section := func(title string, boxes ...string) {
		b.WriteString(SectionStyle.Render(title))
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
		b.WriteString("\n")
	}

	section("Sender",
		renderStatBox("Sent", data.MessagesSent, accentColor),
		renderStatBox("Segmented", data.MessagesSegmented, accentColor),
		renderStatBox("Units", data.UnitsPublished, okColor),
		renderStatBox("Failures", data.PublishFailures+data.SegmentationRejected, failColor),
	)
	section("Receiver",
		renderStatBox("Units", data.UnitsReceived, accentColor),
		renderStatBox("Delivered", data.MessagesDelivered, okColor),
		renderStatBox("Dropped", data.UnitsDropped, pendColor),
		renderStatBox("Failures", data.DeliveryFailures, failColor),
	)
	section("Reassembly",
		renderStatBox("Reassembled", data.Reassembled, okColor),
		renderStatBox("In Flight", data.InFlight, pendColor),
		renderStatBox("Expired", data.Expired, pendColor),
		renderStatBox("Rejected", data.Malformed+data.Inconsistent, failColor),
	)
	if data.ArchiveBackend != "" {
		section("Archive ("+data.ArchiveBackend+")",
			renderStatBox("Writes", data.ArchiveWriteSuccess, okColor),
			renderStatBox("Failures", data.ArchiveWriteFailure, failColor),
		)
	}

	return b.String()
}

func renderStatBox(label string, value int64, color lipgloss.Color) string {
	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	p := tea.NewProgram(NewStatsModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without the full TUI.
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
