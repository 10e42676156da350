package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/segwire/cli/reader"
)

// InspectModel is a Bubble Tea model for inspect views.
type InspectModel struct {
	viewType string
	data     any
	messages table.Model
	width    int
	height   int
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	m := InspectModel{
		viewType: viewType,
		data:     data,
	}
	if stream, ok := data.(*reader.StreamView); ok {
		m.messages = newMessageTable(stream)
	}
	return m
}

func newMessageTable(stream *reader.StreamView) table.Model {
	columns := []table.Column{
		{Title: "ID", Width: 36},
		{Title: "Last", Width: 5},
		{Title: "Data", Width: 5},
		{Title: "Bytes", Width: 9},
		{Title: "State", Width: 9},
	}
	rows := make([]table.Row, 0, len(stream.Messages))
	for _, msg := range stream.Messages {
		last := "-"
		if msg.LastIndex != nil {
			last = fmt.Sprintf("%02d", *msg.LastIndex)
		}
		rows = append(rows, table.Row{
			msg.ID,
			last,
			fmt.Sprintf("%d", msg.DataUnits),
			fmt.Sprintf("%d", msg.PayloadBytes),
			completion(msg),
		})
	}
	return table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(min(len(rows)+1, 15)),
	)
}

func completion(msg reader.MessageSummary) string {
	if msg.Complete {
		return "complete"
	}
	return "pending"
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	if m.viewType == ViewInspectStream {
		var cmd tea.Cmd
		m.messages, cmd = m.messages.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case ViewInspectUnit:
		content = m.renderUnit()
	case ViewInspectStream:
		content = m.renderStream()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m InspectModel) renderUnit() string {
	data, ok := m.data.(*reader.UnitView)
	if !ok {
		return "Invalid data type for inspect_unit"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Unit"))
	b.WriteString("\n\n")

	writeField(&b, "Kind:", KindStyle(data.Kind).Render(data.Kind))
	if data.ID != "" {
		writeField(&b, "ID:", ValueStyle.Render(data.ID))
	}
	if data.Index != nil {
		writeField(&b, "Index:", ValueStyle.Render(fmt.Sprintf("%02d", *data.Index)))
	}
	writeField(&b, "Size:", ValueStyle.Render(fmt.Sprintf("%d bytes", data.Size)))
	writeField(&b, "Payload:", ValueStyle.Render(fmt.Sprintf("%d bytes", data.PayloadSize)))
	if data.Malformed {
		writeField(&b, "Reason:", ErrorStyle.Render(data.MalformedWhy))
	}
	if data.Preview != "" {
		b.WriteString("\n")
		b.WriteString(SectionStyle.Render("Preview"))
		b.WriteString("\n")
		b.WriteString(ValueStyle.Render(data.Preview))
		b.WriteString("\n")
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderStream() string {
	data, ok := m.data.(*reader.StreamView)
	if !ok {
		return "Invalid data type for inspect_stream"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Unit Stream"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Units", int64(data.Units), accentColor),
		renderStatBox("Plain", int64(data.Plain), dimColor),
		renderStatBox("Stamped", int64(data.Stamped), okColor),
		renderStatBox("Malformed", int64(data.Malformed), failColor),
	))
	b.WriteString("\n\n")

	if len(data.Messages) == 0 {
		b.WriteString(ValueStyle.Render("(no segmented messages)"))
		return b.String()
	}
	b.WriteString(m.messages.View())
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", LabelStyle.Render(label), value)
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	p := tea.NewProgram(NewInspectModel(viewType, data), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without the full TUI.
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
