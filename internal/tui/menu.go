package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type menuChoice struct {
	label  string
	screen Screen
	quit   bool
}

type MenuModel struct {
	choices []menuChoice
	cursor  int
	width   int
	height  int
}

func NewMenuModel() *MenuModel {
	return &MenuModel{
		choices: []menuChoice{
			{label: "📥 Import Customer CSV", screen: ImportScreen},
			{label: "📤 Export Customers", screen: ExportScreen},
			{label: "💾 Backup Storage", screen: BackupScreen},
			{label: "🔄 Restore Backup", screen: RestoreScreen},
			{label: "📊 Storage Usage", screen: StorageScreen},
			{label: "🚪 Exit", quit: true},
		},
	}
}

func (m *MenuModel) Init() tea.Cmd {
	return nil
}

func (m *MenuModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case "enter", " ":
			choice := m.choices[m.cursor]
			if choice.quit {
				return m, tea.Quit
			}
			return m, ChangeScreen(choice.screen)
		}
	}
	return m, nil
}

func (m *MenuModel) View() string {
	adaptiveTitleStyle, _, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)

	title := adaptiveTitleStyle.Render("🚗 dealercrm - Customer Data Tools")

	var menu string
	for i, choice := range m.choices {
		cursor := " "
		label := menuItemStyle.Render(choice.label)
		if m.cursor == i {
			cursor = ">"
			label = selectedMenuItemStyle.Render(choice.label)
		}
		menu += fmt.Sprintf("%s %s\n", cursor, label)
	}

	help := adaptiveHelpStyle.Render("Use ↑/↓ (or j/k) to navigate • Enter to select • q to quit")

	content := lipgloss.JoinVertical(lipgloss.Center, title, menu, help)
	return place(m.width, m.height, lipgloss.Center, content)
}
