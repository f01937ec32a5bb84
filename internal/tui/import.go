package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dealercrm/internal/charset"
	"dealercrm/internal/importer"
	"dealercrm/internal/models"
)

type ImportState int

const (
	ImportInputState ImportState = iota
	ImportFileSelectState
	ImportProgressState
	ImportPreviewState
	ImportResultState
)

const (
	importFileField = iota
	importEncodingField
	importUsersField
	importFieldCount
)

// previewLimit caps how many diagnostics the preview lists.
const previewLimit = 8

type ImportModel struct {
	svc          Services
	state        ImportState
	inputs       []textinput.Model
	focusedInput int
	files        picker
	spinner      spinner.Model
	preview      importer.Result
	existing     int
	saved        int
	err          error
	width        int
	height       int
}

// ImportParsedMsg carries a reconciled file awaiting confirmation.
type ImportParsedMsg struct {
	Result   importer.Result
	Existing int
	Err      error
}

// ImportCommittedMsg reports the outcome of saving a preview.
type ImportCommittedMsg struct {
	Saved int
	Err   error
}

func NewImportModel(svc Services) *ImportModel {
	file := textinput.New()
	file.Placeholder = "customers.csv"
	file.Focus()

	enc := textinput.New()
	enc.Placeholder = "auto"
	enc.SetValue("auto")

	users := textinput.New()
	users.Placeholder = "optional: users.csv (id,name)"

	return &ImportModel{
		svc:     svc,
		state:   ImportInputState,
		inputs:  []textinput.Model{file, enc, users},
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m *ImportModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *ImportModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch m.state {
		case ImportInputState:
			return m.updateInputState(msg)
		case ImportFileSelectState:
			return m.updateFileSelectState(msg)
		case ImportPreviewState:
			return m.updatePreviewState(msg)
		case ImportResultState:
			if msg.String() == "enter" || msg.String() == " " {
				m.reset()
			}
		}

	case spinner.TickMsg:
		if m.state == ImportProgressState {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case ImportParsedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			m.state = ImportResultState
			return m, nil
		}
		m.preview = msg.Result
		m.existing = msg.Existing
		m.state = ImportPreviewState

	case ImportCommittedMsg:
		m.saved = msg.Saved
		m.err = msg.Err
		m.state = ImportResultState
	}
	return m, nil
}

func (m *ImportModel) updateInputState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		m.focusedInput = (m.focusedInput + 1) % importFieldCount
		m.updateInputFocus()
		return m, nil
	case "shift+tab", "up":
		m.focusedInput = (m.focusedInput - 1 + importFieldCount) % importFieldCount
		m.updateInputFocus()
		return m, nil
	case "ctrl+f":
		return m.browseFiles()
	case "enter":
		if strings.TrimSpace(m.inputs[importFileField].Value()) != "" {
			return m.startImport()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedInput], cmd = m.inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *ImportModel) updateFileSelectState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if file, ok := m.files.current(); ok {
			m.inputs[importFileField].SetValue(file)
		}
		m.state = ImportInputState
	case "esc":
		m.state = ImportInputState
	default:
		m.files.move(msg.String())
	}
	return m, nil
}

func (m *ImportModel) updatePreviewState(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "c":
		if len(m.preview.Customers) == 0 {
			return m, nil
		}
		m.state = ImportProgressState
		return m, tea.Batch(m.spinner.Tick, m.commit(m.preview))
	case "n", "esc":
		m.reset()
	}
	return m, nil
}

func (m *ImportModel) browseFiles() (tea.Model, tea.Cmd) {
	files, err := globFiles("*.csv", "*.CSV", "*.xlsx")
	if err != nil {
		return m, ShowError(err)
	}
	m.files = picker{items: files}
	m.state = ImportFileSelectState
	return m, nil
}

func (m *ImportModel) updateInputFocus() {
	for i := range m.inputs {
		if i == m.focusedInput {
			m.inputs[i].Focus()
		} else {
			m.inputs[i].Blur()
		}
	}
}

func (m *ImportModel) startImport() (tea.Model, tea.Cmd) {
	m.state = ImportProgressState
	m.err = nil
	return m, tea.Batch(m.spinner.Tick, m.parse(
		strings.TrimSpace(m.inputs[importFileField].Value()),
		strings.TrimSpace(m.inputs[importEncodingField].Value()),
		strings.TrimSpace(m.inputs[importUsersField].Value()),
	))
}

// parse reads and reconciles the file without writing anything.
func (m *ImportModel) parse(path, encoding, usersPath string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		enc, err := charset.ParseEncoding(encoding)
		if err != nil {
			return ImportParsedMsg{Err: err}
		}

		existing, err := svc.Customers.Customers(ctx)
		if err != nil {
			return ImportParsedMsg{Err: err}
		}
		opts := importer.Options{Existing: existing}
		if usersPath != "" {
			opts.KnownUsers, err = loadUsersFile(usersPath)
		} else {
			opts.KnownUsers, err = svc.Customers.Users(ctx)
		}
		if err != nil {
			return ImportParsedMsg{Err: err}
		}

		var result importer.Result
		if strings.EqualFold(filepath.Ext(path), ".xlsx") {
			f, err := os.Open(path)
			if err != nil {
				return ImportParsedMsg{Err: fmt.Errorf("failed to open %s: %w", path, err)}
			}
			defer f.Close()
			if result, err = importer.ImportXLSX(f, opts); err != nil {
				return ImportParsedMsg{Err: err}
			}
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return ImportParsedMsg{Err: fmt.Errorf("failed to read %s: %w", path, err)}
			}
			result = importer.ImportBytes(data, enc, opts)
		}

		svc.Logger.Infof("Parsed %d customer records from %s (%d errors, %d possible duplicates)",
			len(result.Customers), path, len(result.Errors), len(result.DuplicateWarnings))
		return ImportParsedMsg{Result: result, Existing: len(existing)}
	}
}

func loadUsersFile(path string) ([]models.User, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open users file: %w", err)
	}
	defer f.Close()
	return importer.LoadUsers(f)
}

func (m *ImportModel) commit(result importer.Result) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.Customers.Append(context.Background(), result.Customers); err != nil {
			return ImportCommittedMsg{Err: fmt.Errorf("failed to save customers: %w", err)}
		}
		svc.Logger.Infof("Imported %d customers", len(result.Customers))
		return ImportCommittedMsg{Saved: len(result.Customers)}
	}
}

func (m *ImportModel) reset() {
	m.state = ImportInputState
	m.preview = importer.Result{}
	m.saved = 0
	m.err = nil
	m.inputs[importFileField].SetValue("")
	m.focusedInput = importFileField
	m.updateInputFocus()
}

func (m *ImportModel) View() string {
	switch m.state {
	case ImportInputState:
		return m.renderInputForm()
	case ImportFileSelectState:
		return m.files.View("📁 Select Customer File", "No CSV or XLSX files found in current directory")
	case ImportProgressState:
		return place(m.width, m.height, lipgloss.Center,
			progressStyle.Render(m.spinner.View()+" Working on customer data..."))
	case ImportPreviewState:
		return m.renderPreview()
	case ImportResultState:
		return m.renderResult()
	}
	return ""
}

func (m *ImportModel) renderInputForm() string {
	adaptiveTitleStyle, adaptiveFormStyle, adaptiveHelpStyle := GetAdaptiveStyles(m.width, m.height)

	title := adaptiveTitleStyle.Render("📥 Import Customer CSV")
	form := adaptiveFormStyle.Render(
		labelStyle.Render("File (CSV or XLSX):") + "\n" + m.inputs[importFileField].View() + "\n\n" +
			labelStyle.Render("Encoding (auto, utf-8, shift_jis):") + "\n" + m.inputs[importEncodingField].View() + "\n\n" +
			labelStyle.Render("Sales rep list:") + "\n" + m.inputs[importUsersField].View(),
	)
	help := adaptiveHelpStyle.Render("Tab/Shift+Tab: Navigate • Ctrl+F: Browse files • Enter: Preview • Esc: Back to menu")

	return place(m.width, m.height, lipgloss.Top, lipgloss.JoinVertical(lipgloss.Left, title, form, help))
}

func (m *ImportModel) renderPreview() string {
	title := titleStyle.Render("🔍 Import Preview")
	r := m.preview

	lines := []string{
		fmt.Sprintf("Customers ready: %d", len(r.Customers)),
		fmt.Sprintf("Already stored: %d", m.existing),
		fmt.Sprintf("Errors: %d", len(r.Errors)),
		fmt.Sprintf("Possible duplicates: %d", len(r.DuplicateWarnings)),
	}
	stats := statStyle.Render(strings.Join(lines, "\n"))

	var details []string
	for i, e := range r.Errors {
		if i == previewLimit {
			details = append(details, fmt.Sprintf("… and %d more", len(r.Errors)-previewLimit))
			break
		}
		details = append(details, errorStyle.Render("✗ ")+e)
	}
	for i, w := range r.DuplicateWarnings {
		if i == previewLimit {
			details = append(details, fmt.Sprintf("… and %d more", len(r.DuplicateWarnings)-previewLimit))
			break
		}
		details = append(details, warningStyle.Render("⚠ ")+
			fmt.Sprintf("row %d: %s (%s) matches %s", w.Row, w.Name, w.Prefecture, w.ExistingCustomerName))
	}

	help := "y: Save customers • n/Esc: Discard"
	if len(r.Customers) == 0 {
		help = "n/Esc: Back to form"
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, stats, strings.Join(details, "\n"), helpStyle.Render(help))
}

func (m *ImportModel) renderResult() string {
	title := titleStyle.Render("📥 Import Complete")

	var status string
	if m.err != nil {
		status = errorStyle.Render(fmt.Sprintf("❌ Import failed: %v", m.err))
	} else {
		status = successStyle.Render(fmt.Sprintf("✅ Saved %d customers", m.saved))
	}

	help := helpStyle.Render("Enter: Import another file • Esc: Back to menu")
	return lipgloss.JoinVertical(lipgloss.Left, title, status, help)
}
