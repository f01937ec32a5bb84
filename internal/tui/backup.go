package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dealercrm/internal/backup"
)

type BackupState int

const (
	BackupInputState BackupState = iota
	BackupKeySelectState
	BackupProgressState
	BackupResultState
)

type BackupModel struct {
	svc          Services
	state        BackupState
	outputInput  textinput.Model
	keyInput     textinput.Model
	focusedInput int
	keys         picker
	spinner      spinner.Model
	result       BackupResult
	width        int
	height       int
}

type BackupResult struct {
	FilePath  string
	SizeBytes int64
	Key       string
	Error     error
}

type BackupCompleteMsg struct {
	Result BackupResult
}

func NewBackupModel(svc Services) *BackupModel {
	outputInput := textinput.New()
	outputInput.Placeholder = svc.BackupDir
	outputInput.SetValue(svc.BackupDir)
	outputInput.Focus()

	keyInput := textinput.New()
	keyInput.Placeholder = "all keys"

	names := make([]string, 0, len(backup.StorageKeys))
	for _, k := range backup.StorageKeys {
		names = append(names, k.Name)
	}

	return &BackupModel{
		svc:         svc,
		state:       BackupInputState,
		outputInput: outputInput,
		keyInput:    keyInput,
		keys:        picker{items: names},
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m *BackupModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *BackupModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *BackupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case BackupInputState:
			return m.updateInputState(msg)
		case BackupKeySelectState:
			return m.updateKeySelectState(msg)
		case BackupResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.state = BackupInputState
				m.result = BackupResult{}
			}
		}

	case spinner.TickMsg:
		if m.state == BackupProgressState {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case BackupCompleteMsg:
		m.result = msg.Result
		m.state = BackupResultState
	}
	return m, nil
}

func (m *BackupModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab", "down", "up":
		m.focusedInput = 1 - m.focusedInput
		if m.focusedInput == 0 {
			m.outputInput.Focus()
			m.keyInput.Blur()
		} else {
			m.keyInput.Focus()
			m.outputInput.Blur()
		}
		return m, nil
	case "ctrl+l":
		m.state = BackupKeySelectState
		return m, nil
	case "enter":
		if strings.TrimSpace(m.outputInput.Value()) == "" {
			return m, nil
		}
		m.state = BackupProgressState
		return m, tea.Batch(m.spinner.Tick, m.performBackup(
			strings.TrimSpace(m.outputInput.Value()),
			strings.TrimSpace(m.keyInput.Value()),
		))
	}

	var cmd tea.Cmd
	if m.focusedInput == 0 {
		m.outputInput, cmd = m.outputInput.Update(msg)
	} else {
		m.keyInput, cmd = m.keyInput.Update(msg)
	}
	return m, cmd
}

func (m *BackupModel) updateKeySelectState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if key, ok := m.keys.current(); ok {
			m.keyInput.SetValue(key)
		}
		m.state = BackupInputState
	case "esc":
		m.state = BackupInputState
	default:
		m.keys.move(msg.String())
	}
	return m, nil
}

func (m *BackupModel) performBackup(outputDir, key string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		result := BackupResult{Key: key}
		path, err := svc.Backup.BackupToFile(context.Background(), outputDir, key)
		if err != nil {
			result.Error = fmt.Errorf("backup failed: %w", err)
			return BackupCompleteMsg{Result: result}
		}
		if path == "" {
			result.Error = fmt.Errorf("key %s holds no data", key)
			return BackupCompleteMsg{Result: result}
		}

		result.FilePath = path
		if info, err := os.Stat(path); err == nil {
			result.SizeBytes = info.Size()
		}
		svc.Logger.Infof("Backup written to %s", path)
		return BackupCompleteMsg{Result: result}
	}
}

func (m *BackupModel) View() string {
	switch m.state {
	case BackupInputState:
		return m.renderInputForm()
	case BackupKeySelectState:
		return m.keys.View("📋 Select Storage Key", "No storage keys known")
	case BackupProgressState:
		return place(m.width, m.height, lipgloss.Center,
			progressStyle.Render(m.spinner.View()+" Creating backup..."))
	case BackupResultState:
		return m.renderResult()
	}
	return ""
}

func (m *BackupModel) renderInputForm() string {
	adaptiveTitleStyle, adaptiveFormStyle, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)

	title := adaptiveTitleStyle.Render("💾 Backup Storage")
	form := adaptiveFormStyle.Render(
		labelStyle.Render("Output Directory:") + "\n" + m.outputInput.View() + "\n\n" +
			labelStyle.Render("Storage Key (empty for all):") + "\n" + m.keyInput.View(),
	)
	help := adaptiveHelpStyle.Render("Tab: Navigate • Ctrl+L: List keys • Enter: Start backup • Esc: Back to menu")

	return place(m.width, m.height, lipgloss.Top, lipgloss.JoinVertical(lipgloss.Left, title, form, help))
}

func (m *BackupModel) renderResult() string {
	title := titleStyle.Render("💾 Backup Complete")

	if m.result.Error != nil {
		status := errorStyle.Render(fmt.Sprintf("❌ %v", m.result.Error))
		return lipgloss.JoinVertical(lipgloss.Left, title, status, helpStyle.Render("Enter: Try again • Esc: Back to menu"))
	}

	scope := "all keys"
	if m.result.Key != "" {
		scope = m.result.Key
	}
	status := successStyle.Render("✅ Backup completed successfully!")
	stats := statStyle.Render(fmt.Sprintf("Output file: %s\nScope: %s\nSize: %d bytes",
		m.result.FilePath, scope, m.result.SizeBytes))

	help := helpStyle.Render("Enter: Create another backup • Esc: Back to menu")
	return lipgloss.JoinVertical(lipgloss.Left, title, status, stats, help)
}
