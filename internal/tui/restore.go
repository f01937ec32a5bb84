package tui

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dealercrm/internal/backup"
	"dealercrm/internal/models"
)

type RestoreState int

const (
	RestoreInputState RestoreState = iota
	RestoreFileSelectState
	ConfirmationState
	RestoreProgressState
	RestoreResultState
)

type RestoreModel struct {
	svc             Services
	state           RestoreState
	backupFileInput textinput.Model
	files           picker
	spinner         spinner.Model
	envelope        *models.Envelope
	result          backup.RestoreResult
	err             error
	width           int
	height          int
}

// RestoreLoadedMsg carries a validated envelope awaiting confirmation.
type RestoreLoadedMsg struct {
	Envelope *models.Envelope
	Err      error
}

type RestoreCompleteMsg struct {
	Result backup.RestoreResult
	Err    error
}

func NewRestoreModel(svc Services) *RestoreModel {
	backupFileInput := textinput.New()
	backupFileInput.Placeholder = "backups/backup_20250401_093000.json"
	backupFileInput.Focus()

	return &RestoreModel{
		svc:             svc,
		state:           RestoreInputState,
		backupFileInput: backupFileInput,
		spinner:         spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m *RestoreModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *RestoreModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *RestoreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case RestoreInputState:
			return m.updateInputState(msg)
		case RestoreFileSelectState:
			return m.updateFileSelectState(msg)
		case ConfirmationState:
			return m.updateConfirmationState(msg)
		case RestoreResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.reset()
			}
		}

	case spinner.TickMsg:
		if m.state == RestoreProgressState {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case RestoreLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.state = RestoreResultState
			return m, nil
		}
		m.envelope = msg.Envelope
		m.state = ConfirmationState

	case RestoreCompleteMsg:
		m.result = msg.Result
		m.err = msg.Err
		m.state = RestoreResultState
	}
	return m, nil
}

func (m *RestoreModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+f":
		return m.browseFiles()
	case "enter":
		path := strings.TrimSpace(m.backupFileInput.Value())
		if path == "" {
			return m, nil
		}
		m.state = RestoreProgressState
		m.err = nil
		return m, tea.Batch(m.spinner.Tick, loadEnvelope(path))
	}

	var cmd tea.Cmd
	m.backupFileInput, cmd = m.backupFileInput.Update(msg)
	return m, cmd
}

func (m *RestoreModel) updateFileSelectState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if file, ok := m.files.current(); ok {
			m.backupFileInput.SetValue(file)
		}
		m.state = RestoreInputState
	case "esc":
		m.state = RestoreInputState
	default:
		m.files.move(msg.String())
	}
	return m, nil
}

func (m *RestoreModel) updateConfirmationState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		m.state = RestoreProgressState
		return m, tea.Batch(m.spinner.Tick, m.performRestore(m.envelope))
	case "n", "esc":
		m.state = RestoreInputState
		m.envelope = nil
	}
	return m, nil
}

func (m *RestoreModel) browseFiles() (tea.Model, tea.Cmd) {
	files, err := globFiles("*.json", strings.TrimSuffix(m.svc.BackupDir, "/")+"/*.json")
	if err != nil {
		return m, ShowError(err)
	}
	// newest timestamped backups first
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	m.files = picker{items: files}
	m.state = RestoreFileSelectState
	return m, nil
}

func loadEnvelope(path string) tea.Cmd {
	return func() tea.Msg {
		if err := backup.ValidateBackupFile(path); err != nil {
			return RestoreLoadedMsg{Err: err}
		}
		f, err := os.Open(path)
		if err != nil {
			return RestoreLoadedMsg{Err: fmt.Errorf("failed to open backup file: %w", err)}
		}
		defer f.Close()

		env, err := backup.ReadEnvelope(f)
		return RestoreLoadedMsg{Envelope: env, Err: err}
	}
}

func (m *RestoreModel) performRestore(env *models.Envelope) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		result, err := svc.Backup.Restore(context.Background(), env)
		return RestoreCompleteMsg{Result: result, Err: err}
	}
}

func (m *RestoreModel) reset() {
	m.state = RestoreInputState
	m.envelope = nil
	m.result = backup.RestoreResult{}
	m.err = nil
	m.backupFileInput.Focus()
}

func (m *RestoreModel) View() string {
	switch m.state {
	case RestoreInputState:
		return m.renderInputForm()
	case RestoreFileSelectState:
		return m.files.View("📁 Select Backup File", "No backup files (*.json) found")
	case ConfirmationState:
		return m.renderConfirmation()
	case RestoreProgressState:
		return place(m.width, m.height, lipgloss.Center,
			progressStyle.Render(m.spinner.View()+" Working on backup..."))
	case RestoreResultState:
		return m.renderResult()
	}
	return ""
}

func (m *RestoreModel) renderInputForm() string {
	adaptiveTitleStyle, adaptiveFormStyle, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)

	title := adaptiveTitleStyle.Render("🔄 Restore Backup")
	form := adaptiveFormStyle.Render(labelStyle.Render("Backup File:") + "\n" + m.backupFileInput.View())
	help := adaptiveHelpStyle.Render("Ctrl+F: Browse files • Enter: Continue • Esc: Back to menu")

	return place(m.width, m.height, lipgloss.Top, lipgloss.JoinVertical(lipgloss.Left, title, form, help))
}

func (m *RestoreModel) renderConfirmation() string {
	title := titleStyle.Render("⚠️  Confirm Restore")
	warningText := warningStyle.Render("Existing values for these keys will be overwritten.")

	keys := make([]string, 0, len(m.envelope.Data))
	for k := range m.envelope.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, k := range keys {
		if backup.IsStorageKey(k) {
			lines = append(lines, successStyle.Render("✓ ")+k)
		} else {
			lines = append(lines, warningStyle.Render("✗ ")+k+" (unknown, ignored)")
		}
	}

	details := statStyle.Render(fmt.Sprintf("File: %s\nVersion: %s\nCreated: %s\n\n%s",
		m.backupFileInput.Value(),
		m.envelope.Version,
		m.envelope.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		strings.Join(lines, "\n"),
	))

	help := helpStyle.Render("Y/Enter: Confirm • N/Esc: Cancel")
	return lipgloss.JoinVertical(lipgloss.Left, title, warningText, details, help)
}

func (m *RestoreModel) renderResult() string {
	title := titleStyle.Render("🔄 Restore Complete")

	if m.err != nil {
		status := errorStyle.Render(fmt.Sprintf("❌ Restore failed: %v", m.err))
		return lipgloss.JoinVertical(lipgloss.Left, title, status, helpStyle.Render("Enter: Try again • Esc: Back to menu"))
	}

	status := successStyle.Render("✅ Restore completed successfully!")
	stats := fmt.Sprintf("Restored: %s", strings.Join(m.result.Restored, ", "))
	if len(m.result.Ignored) > 0 {
		stats += "\n" + warningStyle.Render("Ignored: "+strings.Join(m.result.Ignored, ", "))
	}

	help := helpStyle.Render("Enter: Restore another file • Esc: Back to menu")
	return lipgloss.JoinVertical(lipgloss.Left, title, status, statStyle.Render(stats), help)
}
