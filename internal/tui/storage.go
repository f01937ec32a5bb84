package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"dealercrm/internal/backup"
)

type StorageState int

const (
	StorageViewState StorageState = iota
	StorageConfirmClearState
)

type StorageModel struct {
	svc       Services
	state     StorageState
	progress  progress.Model
	usage     backup.Usage
	inventory []backup.KeyInfo
	loaded    bool
	message   string
	err       error
	width     int
	height    int
}

type StorageLoadedMsg struct {
	Usage     backup.Usage
	Inventory []backup.KeyInfo
	Err       error
}

type StorageClearedMsg struct {
	Err error
}

func NewStorageModel(svc Services) *StorageModel {
	return &StorageModel{
		svc:      svc,
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func (m *StorageModel) Init() tea.Cmd {
	return m.Refresh()
}

func (m *StorageModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.progress.Width = min(max(width-10, 20), 60)
}

// Refresh reloads usage and inventory.
func (m *StorageModel) Refresh() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		usage, err := svc.Backup.UsageEstimate(ctx)
		if err != nil {
			return StorageLoadedMsg{Err: err}
		}
		inventory, err := svc.Backup.Inventory(ctx)
		return StorageLoadedMsg{Usage: usage, Inventory: inventory, Err: err}
	}
}

func (m *StorageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case StorageViewState:
			switch msg.String() {
			case "r":
				m.message = ""
				return m, m.Refresh()
			case "x":
				m.state = StorageConfirmClearState
			}
		case StorageConfirmClearState:
			switch msg.String() {
			case "y":
				m.state = StorageViewState
				return m, m.clear()
			case "n", "esc":
				m.state = StorageViewState
			}
		}

	case StorageLoadedMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.usage = msg.Usage
			m.inventory = msg.Inventory
			m.loaded = true
		}

	case StorageClearedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.message = "Cleared every CRM storage key"
		return m, m.Refresh()
	}
	return m, nil
}

func (m *StorageModel) clear() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return StorageClearedMsg{Err: svc.Backup.ClearAll(context.Background())}
	}
}

func (m *StorageModel) View() string {
	adaptiveTitleStyle, _, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)
	title := adaptiveTitleStyle.Render("📊 Storage Usage")

	if m.err != nil {
		return lipgloss.JoinVertical(lipgloss.Left, title,
			errorStyle.Render(fmt.Sprintf("❌ %v", m.err)),
			adaptiveHelpStyle.Render("R: Retry • Esc: Back to menu"))
	}
	if !m.loaded {
		return lipgloss.JoinVertical(lipgloss.Left, title, progressStyle.Render("Loading..."))
	}

	bar := progressStyle.Render(m.progress.ViewAs(min(m.usage.Percentage/100, 1)) + "\n" +
		fmt.Sprintf("%d / %d bytes (%.1f%%)", m.usage.Used, m.usage.Total, m.usage.Percentage))

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Key", "Name", "Size", "Items")
	for _, info := range m.inventory {
		size, items := "-", "-"
		if info.Exists {
			size = strconv.Itoa(info.SizeBytes)
		}
		if info.ItemCount != nil {
			items = strconv.Itoa(*info.ItemCount)
		}
		t.Row(info.Key, info.DisplayName, size, items)
	}

	parts := []string{title, bar, t.Render()}
	if m.message != "" {
		parts = append(parts, successStyle.Render("✅ "+m.message))
	}
	if m.state == StorageConfirmClearState {
		parts = append(parts,
			warningStyle.Render("⚠️  Remove every CRM key from storage? Back it up first."),
			adaptiveHelpStyle.Render("Y: Clear • N/Esc: Cancel"))
	} else {
		parts = append(parts, adaptiveHelpStyle.Render("R: Refresh • X: Clear storage • Esc: Back to menu"))
	}
	return place(m.width, m.height, lipgloss.Top, lipgloss.JoinVertical(lipgloss.Left, parts...))
}
