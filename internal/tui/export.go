package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dealercrm/internal/charset"
	"dealercrm/internal/csv"
)

var exportEncodings = []charset.Encoding{charset.ShiftJIS, charset.UTF8}

type ExportModel struct {
	svc      Services
	output   textinput.Model
	encoding int
	working  bool
	done     bool
	count    int
	path     string
	err      error
	width    int
	height   int
}

type ExportCompleteMsg struct {
	Path  string
	Count int
	Err   error
}

func NewExportModel(svc Services) *ExportModel {
	output := textinput.New()
	output.Placeholder = "customers.csv"
	output.SetValue("customers.csv")
	output.Focus()

	return &ExportModel{svc: svc, output: output}
}

func (m *ExportModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ExportModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.working {
			return m, nil
		}
		switch msg.String() {
		case "tab", "shift+tab":
			m.encoding = (m.encoding + 1) % len(exportEncodings)
			return m, nil
		case "enter":
			path := strings.TrimSpace(m.output.Value())
			if path == "" {
				return m, nil
			}
			m.working = true
			m.done = false
			return m, m.export(path, exportEncodings[m.encoding])
		}
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd

	case ExportCompleteMsg:
		m.working = false
		m.done = true
		m.path = msg.Path
		m.count = msg.Count
		m.err = msg.Err
	}
	return m, nil
}

func (m *ExportModel) export(path string, enc charset.Encoding) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		customers, err := svc.Customers.Customers(context.Background())
		if err != nil {
			return ExportCompleteMsg{Err: err}
		}

		file, err := os.Create(path)
		if err != nil {
			return ExportCompleteMsg{Err: fmt.Errorf("failed to create output file: %w", err)}
		}
		defer file.Close()

		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			err = csv.WriteXLSX(file, customers)
		} else {
			var w io.WriteCloser
			if w, err = charset.NewWriter(file, enc); err == nil {
				if err = csv.WriteCustomers(w, customers); err == nil {
					err = w.Close()
				}
			}
		}
		if err != nil {
			os.Remove(path)
			return ExportCompleteMsg{Err: fmt.Errorf("export failed: %w", err)}
		}

		svc.Logger.Infof("Exported %d customers to %s", len(customers), path)
		return ExportCompleteMsg{Path: path, Count: len(customers)}
	}
}

func (m *ExportModel) View() string {
	adaptiveTitleStyle, adaptiveFormStyle, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)

	title := adaptiveTitleStyle.Render("📤 Export Customers")

	var encodings []string
	for i, enc := range exportEncodings {
		if i == m.encoding {
			encodings = append(encodings, selectedMenuItemStyle.Render(string(enc)))
		} else {
			encodings = append(encodings, menuItemStyle.Render(string(enc)))
		}
	}
	form := adaptiveFormStyle.Render(
		labelStyle.Render("Output file (.csv or .xlsx):") + "\n" + m.output.View() + "\n\n" +
			labelStyle.Render("CSV encoding:") + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, encodings...),
	)

	var status string
	switch {
	case m.working:
		status = progressStyle.Render("Exporting...")
	case m.done && m.err != nil:
		status = errorStyle.Render(fmt.Sprintf("❌ Export failed: %v", m.err))
	case m.done:
		status = successStyle.Render(fmt.Sprintf("✅ Wrote %d customers to %s", m.count, m.path))
	}

	help := adaptiveHelpStyle.Render("Tab: Toggle encoding • Enter: Export • Esc: Back to menu")
	return place(m.width, m.height, lipgloss.Top, lipgloss.JoinVertical(lipgloss.Left, title, form, status, help))
}
